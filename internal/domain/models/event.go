// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventType string

const (
	EventTypeOnline  EventType = "online"
	EventTypeOffline EventType = "offline"
)

// EventTypes is the canonical list used by validators and schema enums.
var EventTypes = []EventType{EventTypeOnline, EventTypeOffline}

type AccessType string

const (
	AccessFreeForAll AccessType = "freeForAll"
	AccessCodeToJoin AccessType = "codeToJoin"
)

var AccessTypes = []AccessType{AccessFreeForAll, AccessCodeToJoin}

// OnlineDetails is populated only when Type is online.
type OnlineDetails struct {
	Platform string `bson:"platform" json:"platform"`
	Link     string `bson:"link" json:"link"`
}

// OfflineDetails is populated only when Type is offline.
type OfflineDetails struct {
	Location     string `bson:"location" json:"location"`
	VenueName    string `bson:"venue_name,omitempty" json:"venue_name,omitempty"`
	VenueAddress string `bson:"venue_address,omitempty" json:"venue_address,omitempty"`
}

// Event is a scheduled activity owned by one organization.
//
// NOTE:
//   - Status is written once at creation as a display seed. Reads always
//     derive the lifecycle status from StartDate/EndDate (see eventstatus).
//   - ParticipantIDs is never nil in storage; membership updates compare
//     its $size against MaxAttendees.
type Event struct {
	ID             primitive.ObjectID   `bson:"_id" json:"id"`
	Name           string               `bson:"name" json:"name"`
	NameCI         string               `bson:"name_ci" json:"-"`
	Description    string               `bson:"description" json:"description"`
	Type           EventType            `bson:"type" json:"type"`
	AccessType     AccessType           `bson:"access_type" json:"access_type"`
	JoinCode       string               `bson:"join_code,omitempty" json:"join_code,omitempty"`
	StartDate      time.Time            `bson:"start_date" json:"start_date"`
	EndDate        time.Time            `bson:"end_date" json:"end_date"`
	Image          string               `bson:"image" json:"image"`
	CreatorID      primitive.ObjectID   `bson:"creator_id" json:"creator_id"`
	OrganizationID primitive.ObjectID   `bson:"organization_id" json:"organization_id"`
	MaxAttendees   int                  `bson:"max_attendees" json:"max_attendees"`
	ParticipantIDs []primitive.ObjectID `bson:"participant_ids" json:"participant_ids"`
	Online         *OnlineDetails       `bson:"online,omitempty" json:"online,omitempty"`
	Offline        *OfflineDetails      `bson:"offline,omitempty" json:"offline,omitempty"`
	Status         string               `bson:"status" json:"-"`
	IsDeleted      bool                 `bson:"is_deleted" json:"is_deleted"`
	DeletedAt      *time.Time           `bson:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether userID is in the participant set.
func (e Event) HasParticipant(userID primitive.ObjectID) bool {
	for _, id := range e.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}
