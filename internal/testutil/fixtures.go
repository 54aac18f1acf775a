package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures inserts test data directly, bypassing services.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
	n  int
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) seq() int {
	f.n++
	return f.n
}

// CreateUser inserts a user with the given full name.
func (f *Fixtures) CreateUser(ctx context.Context, fullName string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      fmt.Sprintf("user%d@example.com", f.seq()),
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateOrganization inserts a live organization owned by creator.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string, creator primitive.ObjectID) models.Organization {
	f.t.Helper()

	now := time.Now().UTC()
	org := models.Organization{
		ID:             primitive.NewObjectID(),
		Name:           name,
		NameCI:         text.Fold(name),
		CreatorID:      creator,
		MemberIDs:      []primitive.ObjectID{creator},
		InvitationCode: fmt.Sprintf("FIXTURE%03d", f.seq()),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := f.db.Collection("organizations").InsertOne(ctx, org); err != nil {
		f.t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

// EventOption adjusts an event before CreateEvent inserts it.
type EventOption func(*models.Event)

// WithDates sets the event window.
func WithDates(start, end time.Time) EventOption {
	return func(e *models.Event) {
		e.StartDate = start.UTC()
		e.EndDate = end.UTC()
	}
}

// WithCapacity sets MaxAttendees.
func WithCapacity(n int) EventOption {
	return func(e *models.Event) { e.MaxAttendees = n }
}

// WithJoinCode makes the event code-protected.
func WithJoinCode(code string) EventOption {
	return func(e *models.Event) {
		e.AccessType = models.AccessCodeToJoin
		e.JoinCode = code
	}
}

// WithParticipants seeds the participant set.
func WithParticipants(ids ...primitive.ObjectID) EventOption {
	return func(e *models.Event) { e.ParticipantIDs = append([]primitive.ObjectID{}, ids...) }
}

// CreateEvent inserts an upcoming, free-for-all online event under org.
func (f *Fixtures) CreateEvent(ctx context.Context, org models.Organization, opts ...EventOption) models.Event {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	e := models.Event{
		ID:             primitive.NewObjectID(),
		Name:           fmt.Sprintf("Fixture Event %03d", f.seq()),
		Description:    "An event created by test fixtures.",
		Type:           models.EventTypeOnline,
		AccessType:     models.AccessFreeForAll,
		StartDate:      now.Add(24 * time.Hour),
		EndDate:        now.Add(26 * time.Hour),
		Image:          "https://images.example.com/event.png",
		CreatorID:      org.CreatorID,
		OrganizationID: org.ID,
		MaxAttendees:   10,
		ParticipantIDs: []primitive.ObjectID{},
		Online:         &models.OnlineDetails{Platform: "Zoom", Link: "https://zoom.example.com/j/1"},
		Status:         "upcoming",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(&e)
	}
	e.NameCI = text.Fold(e.Name)
	if _, err := f.db.Collection("events").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test event: %v", err)
	}
	return e
}
