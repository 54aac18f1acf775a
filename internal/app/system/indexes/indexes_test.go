package indexes_test

import (
	"testing"

	"github.com/dalemusser/eventhub/internal/app/system/indexes"
	"github.com/dalemusser/eventhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexDocs(t *testing.T, coll *mongo.Collection) map[string]bson.M {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	out := map[string]bson.M{}
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			t.Fatalf("decode index: %v", err)
		}
		out[idx["name"].(string)] = idx
	}
	return out
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// SetupTestDB already ran EnsureAll once.
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("third EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)

	want := map[string][]string{
		"organizations": {"uniq_orgs_invitation_code", "uniq_orgs_active_creator", "idx_orgs_members"},
		"events": {
			"idx_events_deleted_start",
			"idx_events_creator_deleted",
			"idx_events_participants_deleted",
			"idx_events_org",
			"idx_events_join_code",
		},
		"audit_events": {"idx_audit_time", "idx_audit_actor_time", "idx_audit_event_time", "idx_audit_category_type_time"},
	}
	for coll, names := range want {
		got := indexDocs(t, db.Collection(coll))
		for _, name := range names {
			if _, ok := got[name]; !ok {
				t.Errorf("%s: missing index %s", coll, name)
			}
		}
	}

	orgs := indexDocs(t, db.Collection("organizations"))
	active := orgs["uniq_orgs_active_creator"]
	if active["unique"] != true {
		t.Error("uniq_orgs_active_creator should be unique")
	}
	if _, ok := active["partialFilterExpression"]; !ok {
		t.Error("uniq_orgs_active_creator should be partial")
	}
}

func TestEnsureAll_ReplacesMisnamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coll := db.Collection("events")
	if _, err := coll.Indexes().DropOne(ctx, "idx_events_org"); err != nil {
		t.Fatalf("DropOne failed: %v", err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "start_date", Value: 1}},
		Options: options.Index().SetName("legacy_org_start"),
	}); err != nil {
		t.Fatalf("CreateOne failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	got := indexDocs(t, coll)
	if _, ok := got["legacy_org_start"]; ok {
		t.Error("legacy index should have been replaced")
	}
	if _, ok := got["idx_events_org"]; !ok {
		t.Error("idx_events_org should exist")
	}
}

func TestActiveCreatorIndex_AllowsDeletedDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coll := db.Collection("organizations")
	creator := primitive.NewObjectID()
	org := func(creator primitive.ObjectID, code string, deleted bool) bson.M {
		return bson.M{
			"name":            "Acme Robotics",
			"name_ci":         "acme robotics",
			"creator_id":      creator,
			"member_ids":      bson.A{creator},
			"invitation_code": code,
			"is_deleted":      deleted,
		}
	}

	for _, d := range []bson.M{
		org(creator, "AAAAAAAAA1", true),
		org(creator, "AAAAAAAAA2", true),
		org(creator, "AAAAAAAAA3", false),
	} {
		if _, err := coll.InsertOne(ctx, d); err != nil {
			t.Fatalf("InsertOne failed: %v", err)
		}
	}
	_, err := coll.InsertOne(ctx, org(creator, "AAAAAAAAA4", false))
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error for second live organization, got %v", err)
	}
	_, err = coll.InsertOne(ctx, org(primitive.NewObjectID(), "AAAAAAAAA1", false))
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error for reused invitation code, got %v", err)
	}
}
