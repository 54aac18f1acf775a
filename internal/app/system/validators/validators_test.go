package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/validators"
	"github.com/dalemusser/eventhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 2; i++ {
		if err := validators.EnsureAll(ctx, db); err != nil {
			t.Fatalf("EnsureAll #%d failed: %v", i+1, err)
		}
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"organizations", "events", "users", "audit_events"} {
		if !have[want] {
			t.Errorf("collection %s not created", want)
		}
	}
}

func validEvent() bson.M {
	now := time.Now().UTC()
	return bson.M{
		"name":            "Weekend Robotics Workshop",
		"type":            "online",
		"access_type":     "freeForAll",
		"start_date":      now.Add(time.Hour),
		"end_date":        now.Add(2 * time.Hour),
		"creator_id":      primitive.NewObjectID(),
		"organization_id": primitive.NewObjectID(),
		"max_attendees":   10,
		"participant_ids": bson.A{},
		"is_deleted":      false,
	}
}

func TestEventsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	coll := db.Collection("events")

	if _, err := coll.InsertOne(ctx, validEvent()); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(bson.M)
	}{
		{"bad type", func(d bson.M) { d["type"] = "hybrid" }},
		{"bad access type", func(d bson.M) { d["access_type"] = "inviteOnly" }},
		{"zero capacity", func(d bson.M) { d["max_attendees"] = 0 }},
		{"capacity too large", func(d bson.M) { d["max_attendees"] = 10001 }},
		{"missing participants", func(d bson.M) { delete(d, "participant_ids") }},
		{"blank name", func(d bson.M) { d["name"] = "   " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validEvent()
			tt.mutate(doc)
			if _, err := coll.InsertOne(ctx, doc); err == nil {
				t.Error("expected validator to reject document")
			}
		})
	}
}

func TestOrganizationsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	coll := db.Collection("organizations")

	creator := primitive.NewObjectID()
	if _, err := coll.InsertOne(ctx, bson.M{
		"name":            "Acme Robotics",
		"name_ci":         "acme robotics",
		"creator_id":      creator,
		"member_ids":      bson.A{creator},
		"invitation_code": "ABCDEFGHIJ",
		"is_deleted":      false,
	}); err != nil {
		t.Fatalf("valid organization rejected: %v", err)
	}

	if _, err := coll.InsertOne(ctx, bson.M{
		"name":            "Acme Robotics",
		"name_ci":         "acme robotics",
		"creator_id":      primitive.NewObjectID(),
		"member_ids":      bson.A{},
		"invitation_code": "ABCDEFGHIK",
		"is_deleted":      false,
	}); err == nil {
		t.Error("expected empty member set to be rejected")
	}
}
