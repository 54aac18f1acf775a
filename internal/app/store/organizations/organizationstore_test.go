package organizationstore_test

import (
	"errors"
	"testing"

	organizationstore "github.com/dalemusser/eventhub/internal/app/store/organizations"
	"github.com/dalemusser/eventhub/internal/app/system/optional"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/eventhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newOrg(creator primitive.ObjectID, code string) models.Organization {
	return models.Organization{
		Name:           "Acme Robotics",
		URL:            "https://acme.example",
		CreatorID:      creator,
		MemberIDs:      []primitive.ObjectID{creator},
		InvitationCode: code,
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := primitive.NewObjectID()
	created, err := store.Create(ctx, newOrg(creator, "ABCDEFGHIJ"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if created.NameCI != "acme robotics" {
		t.Errorf("NameCI = %q", created.NameCI)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := store.GetActiveByCreator(ctx, creator)
	if err != nil {
		t.Fatalf("GetActiveByCreator failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetActiveByCreator returned %v, want %v", got.ID, created.ID)
	}
}

func TestStore_Create_Duplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := primitive.NewObjectID()
	if _, err := store.Create(ctx, newOrg(creator, "ABCDEFGHIJ")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err := store.Create(ctx, newOrg(creator, "KLMNOPQRST"))
	if !errors.Is(err, organizationstore.ErrCreatorHasOrganization) {
		t.Errorf("second org for creator: got %v, want ErrCreatorHasOrganization", err)
	}

	_, err = store.Create(ctx, newOrg(primitive.NewObjectID(), "ABCDEFGHIJ"))
	if !errors.Is(err, organizationstore.ErrDuplicateInvitationCode) {
		t.Errorf("reused code: got %v, want ErrDuplicateInvitationCode", err)
	}
}

func TestStore_InvitationCodeExists_IncludesDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org, err := store.Create(ctx, newOrg(primitive.NewObjectID(), "ABCDEFGHIJ"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.SoftDelete(ctx, org.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	exists, err := store.InvitationCodeExists(ctx, "ABCDEFGHIJ")
	if err != nil {
		t.Fatalf("InvitationCodeExists failed: %v", err)
	}
	if !exists {
		t.Error("code of a deleted organization should still be taken")
	}
	exists, _ = store.InvitationCodeExists(ctx, "ZZZZZZZZZZ")
	if exists {
		t.Error("unused code reported as taken")
	}
}

func TestStore_Update_SetAndClear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org, err := store.Create(ctx, newOrg(primitive.NewObjectID(), "ABCDEFGHIJ"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	name := "Acme Robotics Club"
	updated, err := store.Update(ctx, org.ID, organizationstore.Update{
		Name:        &name,
		Description: optional.Set("We build robots."),
		URL:         optional.Clear[string](),
		Location:    optional.Set(models.Location{Address: "1 Main St"}),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != name || updated.NameCI != "acme robotics club" {
		t.Errorf("name not updated: %q / %q", updated.Name, updated.NameCI)
	}
	if updated.Description != "We build robots." {
		t.Errorf("Description = %q", updated.Description)
	}
	if updated.URL != "" {
		t.Errorf("URL should be cleared, got %q", updated.URL)
	}
	if updated.Location == nil || updated.Location.Address != "1 Main St" {
		t.Errorf("Location = %+v", updated.Location)
	}

	// Unset fields are left alone.
	again, err := store.Update(ctx, org.ID, organizationstore.Update{})
	if err != nil {
		t.Fatalf("empty Update failed: %v", err)
	}
	if again.Description != "We build robots." || again.Location == nil {
		t.Error("empty update changed fields")
	}
}

func TestStore_SoftDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := primitive.NewObjectID()
	org, err := store.Create(ctx, newOrg(creator, "ABCDEFGHIJ"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	deleted, err := store.SoftDelete(ctx, org.ID)
	if err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if !deleted.IsDeleted || deleted.DeletedAt == nil {
		t.Error("expected deletion flag and timestamp")
	}

	if _, err := store.SoftDelete(ctx, org.ID); !errors.Is(err, organizationstore.ErrAlreadyDeleted) {
		t.Errorf("second SoftDelete: got %v, want ErrAlreadyDeleted", err)
	}
	if _, err := store.SoftDelete(ctx, primitive.NewObjectID()); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("unknown id: got %v, want ErrNoDocuments", err)
	}
	if _, err := store.Update(ctx, org.ID, organizationstore.Update{}); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("update of deleted org: got %v, want ErrNoDocuments", err)
	}

	// The creator may start over once the old organization is deleted.
	if _, err := store.Create(ctx, newOrg(creator, "KLMNOPQRST")); err != nil {
		t.Errorf("Create after delete failed: %v", err)
	}
}

func TestStore_AddMemberByInvitationCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := primitive.NewObjectID()
	org, err := store.Create(ctx, newOrg(creator, "ABCDEFGHIJ"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	member := primitive.NewObjectID()
	joined, err := store.AddMemberByInvitationCode(ctx, "ABCDEFGHIJ", member)
	if err != nil {
		t.Fatalf("AddMemberByInvitationCode failed: %v", err)
	}
	if len(joined.MemberIDs) != 2 || joined.MemberIDs[0] != creator || !joined.HasMember(member) {
		t.Errorf("unexpected members %v", joined.MemberIDs)
	}

	if _, err := store.AddMemberByInvitationCode(ctx, "ABCDEFGHIJ", member); !errors.Is(err, organizationstore.ErrAlreadyMember) {
		t.Errorf("second join: got %v, want ErrAlreadyMember", err)
	}
	if _, err := store.AddMemberByInvitationCode(ctx, "NOSUCHCODE", member); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("unknown code: got %v, want ErrNoDocuments", err)
	}

	if _, err := store.SoftDelete(ctx, org.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if _, err := store.AddMemberByInvitationCode(ctx, "ABCDEFGHIJ", primitive.NewObjectID()); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("deleted org: got %v, want ErrNoDocuments", err)
	}
}

func TestStore_GetSummaries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org, err := store.Create(ctx, newOrg(primitive.NewObjectID(), "ABCDEFGHIJ"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got, err := store.GetSummaries(ctx, []primitive.ObjectID{org.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("GetSummaries failed: %v", err)
	}
	if len(got) != 1 || got[org.ID].Name != "Acme Robotics" {
		t.Errorf("unexpected summaries %+v", got)
	}
}
