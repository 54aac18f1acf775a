// Package eventstatus derives the read-side presentation of an event:
// lifecycle status, remaining capacity and access conveniences.
//
// Nothing here is persisted. Every read recomputes the projection from the
// stored start/end timestamps and participant set, so it can never go stale.
package eventstatus

import (
	"time"

	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	Upcoming  Status = "upcoming"
	Ongoing   Status = "ongoing"
	Completed Status = "completed"
)

// Statuses lists every derived status in lifecycle order.
var Statuses = []Status{Upcoming, Ongoing, Completed}

// Parse validates a status supplied by a caller (e.g. a list filter).
func Parse(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Derive maps (now, start, end) to a lifecycle status. Both bounds are
// inclusive for ongoing.
func Derive(now, start, end time.Time) Status {
	switch {
	case now.Before(start):
		return Upcoming
	case now.After(end):
		return Completed
	default:
		return Ongoing
	}
}

// Remaining returns max(0, maxAttendees - participants).
func Remaining(maxAttendees, participants int) int {
	if r := maxAttendees - participants; r > 0 {
		return r
	}
	return 0
}

// View is the caller-facing shape of an event.
type View struct {
	ID             primitive.ObjectID     `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	Type           models.EventType       `json:"type"`
	AccessType     models.AccessType      `json:"access_type"`
	JoinCode       string                 `json:"join_code,omitempty"`
	StartDate      time.Time              `json:"start_date"`
	EndDate        time.Time              `json:"end_date"`
	Image          string                 `json:"image"`
	CreatorID      primitive.ObjectID     `json:"creator_id"`
	OrganizationID primitive.ObjectID     `json:"organization_id"`
	MaxAttendees   int                    `json:"max_attendees"`
	ParticipantIDs []primitive.ObjectID   `json:"participant_ids"`
	Online         *models.OnlineDetails  `json:"online,omitempty"`
	Offline        *models.OfflineDetails `json:"offline,omitempty"`
	IsDeleted      bool                   `json:"is_deleted"`
	DeletedAt      *time.Time             `json:"deleted_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`

	Status             Status `json:"status"`
	ParticipantCount   int    `json:"participant_count"`
	RemainingAttendees int    `json:"remaining_attendees"`
	IsCodeProtected    bool   `json:"is_code_protected"`
	IsFreeForAll       bool   `json:"is_free_for_all"`

	// Populated by the caller when summaries are available.
	Creator      *models.UserSummary         `json:"creator,omitempty"`
	Organization *models.OrganizationSummary `json:"organization,omitempty"`
}

// Project builds the view of e as seen by viewer at time now. The join code
// is only exposed to the event's creator.
func Project(e models.Event, now time.Time, viewer primitive.ObjectID) View {
	participants := e.ParticipantIDs
	if participants == nil {
		participants = []primitive.ObjectID{}
	}
	v := View{
		ID:             e.ID,
		Name:           e.Name,
		Description:    e.Description,
		Type:           e.Type,
		AccessType:     e.AccessType,
		StartDate:      e.StartDate,
		EndDate:        e.EndDate,
		Image:          e.Image,
		CreatorID:      e.CreatorID,
		OrganizationID: e.OrganizationID,
		MaxAttendees:   e.MaxAttendees,
		ParticipantIDs: participants,
		Online:         e.Online,
		Offline:        e.Offline,
		IsDeleted:      e.IsDeleted,
		DeletedAt:      e.DeletedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,

		Status:             Derive(now, e.StartDate, e.EndDate),
		ParticipantCount:   len(participants),
		RemainingAttendees: Remaining(e.MaxAttendees, len(participants)),
		IsCodeProtected:    e.AccessType == models.AccessCodeToJoin,
		IsFreeForAll:       e.AccessType == models.AccessFreeForAll,
	}
	if viewer == e.CreatorID {
		v.JoinCode = e.JoinCode
	}
	return v
}
