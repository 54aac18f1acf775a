package userstore

import (
	"testing"

	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/eventhub/internal/testutil"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreate_FillsDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	u, err := store.Create(ctx, models.User{FullName: "Zoë Álvarez", Email: "zoe@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID.IsZero() {
		t.Error("expected an id")
	}
	if u.Status != "active" {
		t.Errorf("Status = %q, want active", u.Status)
	}
	if u.FullNameCI != text.Fold("Zoë Álvarez") {
		t.Errorf("FullNameCI = %q", u.FullNameCI)
	}
	if u.CreatedAt.IsZero() || !u.CreatedAt.Equal(u.UpdatedAt) {
		t.Errorf("timestamps = %v / %v", u.CreatedAt, u.UpdatedAt)
	}
}

func TestGetSummaries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	ada, err := store.Create(ctx, models.User{FullName: "Ada Lovelace", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	alan, err := store.Create(ctx, models.User{FullName: "Alan Turing", Email: "alan@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	missing := primitive.NewObjectID()

	got, err := store.GetSummaries(ctx, []primitive.ObjectID{ada.ID, alan.ID, missing})
	if err != nil {
		t.Fatalf("GetSummaries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if s := got[ada.ID]; s.Name != "Ada Lovelace" || s.Email != "ada@example.com" {
		t.Errorf("ada summary = %+v", s)
	}
	if _, ok := got[missing]; ok {
		t.Error("unknown id should be absent")
	}

	empty, err := store.GetSummaries(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("GetSummaries(nil) = %v, %v", empty, err)
	}
}
