package eventservice

import (
	"reflect"
	"strings"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/apperr"
	"github.com/dalemusser/eventhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/domain/models"
)

// CreateInput is the payload for Create.
type CreateInput struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	Type           models.EventType       `json:"type"`
	AccessType     models.AccessType      `json:"access_type"`
	JoinCode       string                 `json:"join_code"`
	StartDate      *time.Time             `json:"start_date"`
	EndDate        *time.Time             `json:"end_date"`
	Image          string                 `json:"image"`
	OrganizationID string                 `json:"organization_id"`
	MaxAttendees   *int                   `json:"max_attendees"`
	Online         *models.OnlineDetails  `json:"online"`
	Offline        *models.OfflineDetails `json:"offline"`
}

// UpdateInput is a partial update. Nil fields keep their stored value.
// Switching type requires the matching details block, and the other block
// is dropped. Switching to freeForAll drops the join code.
type UpdateInput struct {
	Name         *string                `json:"name"`
	Description  *string                `json:"description"`
	Type         *models.EventType      `json:"type"`
	AccessType   *models.AccessType     `json:"access_type"`
	JoinCode     *string                `json:"join_code"`
	StartDate    *time.Time             `json:"start_date"`
	EndDate      *time.Time             `json:"end_date"`
	Image        *string                `json:"image"`
	MaxAttendees *int                   `json:"max_attendees"`
	Online       *models.OnlineDetails  `json:"online"`
	Offline      *models.OfflineDetails `json:"offline"`
}

type presence struct {
	field string
	label string
	ok    bool
}

// requireFields reports the first missing required field, then a malformed
// organization id.
func (in CreateInput) requireFields() error {
	for _, p := range []presence{
		{"name", "Name", strings.TrimSpace(in.Name) != ""},
		{"description", "Description", strings.TrimSpace(in.Description) != ""},
		{"type", "Type", in.Type != ""},
		{"access_type", "Access type", in.AccessType != ""},
		{"start_date", "Start date", in.StartDate != nil && !in.StartDate.IsZero()},
		{"end_date", "End date", in.EndDate != nil && !in.EndDate.IsZero()},
		{"image", "Image", strings.TrimSpace(in.Image) != ""},
		{"organization_id", "Organization", strings.TrimSpace(in.OrganizationID) != ""},
		{"max_attendees", "Max attendees", in.MaxAttendees != nil},
	} {
		if !p.ok {
			return apperr.Validation(p.field, p.label+" is required.")
		}
	}
	if fe := inputval.Var("Organization", in.orgHex(), "objectid"); fe != nil {
		return apperr.Validation("organization_id", MsgInvalidOrganization)
	}
	return nil
}

func (in CreateInput) orgHex() string { return strings.TrimSpace(in.OrganizationID) }

// event builds the unsaved event. requireFields must have passed.
func (in CreateInput) event() models.Event {
	return models.Event{
		Name:         in.Name,
		Description:  in.Description,
		Type:         in.Type,
		AccessType:   in.AccessType,
		JoinCode:     in.JoinCode,
		StartDate:    in.StartDate.UTC(),
		EndDate:      in.EndDate.UTC(),
		Image:        in.Image,
		MaxAttendees: *in.MaxAttendees,
		Online:       copyOnline(in.Online),
		Offline:      copyOffline(in.Offline),
	}
}

// apply merges the patch onto a copy of cur.
func (in UpdateInput) apply(cur models.Event) models.Event {
	next := cur
	next.Online = copyOnline(cur.Online)
	next.Offline = copyOffline(cur.Offline)
	if in.Name != nil {
		next.Name = *in.Name
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Type != nil {
		next.Type = *in.Type
	}
	if in.AccessType != nil {
		next.AccessType = *in.AccessType
	}
	if in.JoinCode != nil {
		next.JoinCode = *in.JoinCode
	}
	if in.StartDate != nil {
		next.StartDate = in.StartDate.UTC()
	}
	if in.EndDate != nil {
		next.EndDate = in.EndDate.UTC()
	}
	if in.Image != nil {
		next.Image = *in.Image
	}
	if in.MaxAttendees != nil {
		next.MaxAttendees = *in.MaxAttendees
	}
	if in.Online != nil {
		next.Online = copyOnline(in.Online)
	}
	if in.Offline != nil {
		next.Offline = copyOffline(in.Offline)
	}
	return next
}

func copyOnline(o *models.OnlineDetails) *models.OnlineDetails {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

func copyOffline(o *models.OfflineDetails) *models.OfflineDetails {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

// normalize trims and strips markup from free-text fields and rounds the
// dates down to stored (millisecond) precision.
func normalize(e *models.Event) {
	e.StartDate = e.StartDate.UTC().Truncate(time.Millisecond)
	e.EndDate = e.EndDate.UTC().Truncate(time.Millisecond)
	e.Name = htmlsanitize.PlainText(e.Name)
	e.Description = htmlsanitize.PlainText(e.Description)
	e.JoinCode = strings.TrimSpace(e.JoinCode)
	e.Image = strings.TrimSpace(e.Image)
	if e.Online != nil {
		e.Online.Platform = htmlsanitize.PlainText(e.Online.Platform)
		e.Online.Link = strings.TrimSpace(e.Online.Link)
	}
	if e.Offline != nil {
		e.Offline.Location = htmlsanitize.PlainText(e.Offline.Location)
		e.Offline.VenueName = htmlsanitize.PlainText(e.Offline.VenueName)
		e.Offline.VenueAddress = htmlsanitize.PlainText(e.Offline.VenueAddress)
	}
}

// validate runs the event rules in their fixed order and returns the
// first failure. checkStart enables the start-not-in-past rule.
func validate(e models.Event, now time.Time, checkStart bool) error {
	if fe := inputval.First(
		inputval.Check{Field: "type", Label: "Type", Value: string(e.Type), Tag: "required,oneof=online offline"},
		inputval.Check{Field: "access_type", Label: "Access type", Value: string(e.AccessType), Tag: "required,oneof=freeForAll codeToJoin"},
	); fe != nil {
		return apperr.Validation(fe.Field, fe.Message)
	}

	if e.AccessType == models.AccessCodeToJoin {
		if fe := inputval.First(
			inputval.Check{Field: "join_code", Label: "Join code", Value: e.JoinCode, Tag: "required,min=4,max=20"},
		); fe != nil {
			return apperr.Validation(fe.Field, fe.Message)
		}
	}

	if checkStart && e.StartDate.Before(now) {
		return apperr.Validation("start_date", "Start date cannot be in the past.")
	}
	if !e.EndDate.After(e.StartDate) {
		return apperr.Validation("end_date", "End date must be after the start date.")
	}

	if fe := inputval.First(
		inputval.Check{Field: "max_attendees", Label: "Max attendees", Value: e.MaxAttendees, Tag: "min=1,max=10000"},
	); fe != nil {
		return apperr.Validation(fe.Field, fe.Message)
	}

	if err := validatePayload(e); err != nil {
		return err
	}

	if fe := inputval.First(
		inputval.Check{Field: "image", Label: "Image", Value: e.Image, Tag: "required"},
		inputval.Check{Field: "name", Label: "Name", Value: e.Name, Tag: "required,min=10,max=40"},
		inputval.Check{Field: "description", Label: "Description", Value: e.Description, Tag: "required,min=10,max=200"},
	); fe != nil {
		return apperr.Validation(fe.Field, fe.Message)
	}
	return nil
}

func validatePayload(e models.Event) error {
	var fe *inputval.FieldError
	switch e.Type {
	case models.EventTypeOnline:
		if e.Online == nil {
			return apperr.Validation("online", "Online details are required for online events.")
		}
		fe = inputval.First(
			inputval.Check{Field: "online.platform", Label: "Platform", Value: e.Online.Platform, Tag: "required,min=2"},
			inputval.Check{Field: "online.link", Label: "Link", Value: e.Online.Link, Tag: "required,httpurl"},
		)
	case models.EventTypeOffline:
		if e.Offline == nil {
			return apperr.Validation("offline", "Offline details are required for offline events.")
		}
		fe = inputval.First(
			inputval.Check{Field: "offline.location", Label: "Location", Value: e.Offline.Location, Tag: "required,min=5"},
			inputval.Check{Field: "offline.venue_name", Label: "Venue name", Value: e.Offline.VenueName, Tag: "omitempty,min=2"},
			inputval.Check{Field: "offline.venue_address", Label: "Venue address", Value: e.Offline.VenueAddress, Tag: "omitempty,min=10"},
		)
	}
	if fe != nil {
		return apperr.Validation(fe.Field, fe.Message)
	}
	return nil
}

// shapePayload keeps only the details block matching the type, and the
// join code only for codeToJoin events.
func shapePayload(e *models.Event) {
	switch e.Type {
	case models.EventTypeOnline:
		e.Offline = nil
	case models.EventTypeOffline:
		e.Online = nil
	}
	if e.AccessType != models.AccessCodeToJoin {
		e.JoinCode = ""
	}
}

// changedFields names the editable fields that differ between cur and next.
func changedFields(cur, next models.Event) []string {
	var out []string
	add := func(name string, differ bool) {
		if differ {
			out = append(out, name)
		}
	}
	add("name", cur.Name != next.Name)
	add("description", cur.Description != next.Description)
	add("type", cur.Type != next.Type)
	add("access_type", cur.AccessType != next.AccessType)
	add("join_code", cur.JoinCode != next.JoinCode)
	add("start_date", !cur.StartDate.Equal(next.StartDate))
	add("end_date", !cur.EndDate.Equal(next.EndDate))
	add("image", cur.Image != next.Image)
	add("max_attendees", cur.MaxAttendees != next.MaxAttendees)
	add("online", !reflect.DeepEqual(cur.Online, next.Online))
	add("offline", !reflect.DeepEqual(cur.Offline, next.Offline))
	return out
}
