// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/optional"
	"github.com/dalemusser/eventhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Index names referenced when classifying duplicate-key errors. They must
// match the names created by system/indexes.
const (
	IndexInvitationCode = "uniq_orgs_invitation_code"
	IndexActiveCreator  = "uniq_orgs_active_creator"
)

var (
	// ErrCreatorHasOrganization is returned when the creator already owns a
	// non-deleted organization.
	ErrCreatorHasOrganization = errors.New("creator already owns an organization")
	// ErrDuplicateInvitationCode is returned when the generated invitation code
	// lost a race with a concurrent insert.
	ErrDuplicateInvitationCode = errors.New("invitation code already in use")
	ErrAlreadyDeleted          = errors.New("organization already deleted")
	ErrAlreadyMember           = errors.New("already a member of this organization")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

// Update carries the fields of a partial update. Nil pointers and unset
// optional fields are left untouched; cleared optional fields are removed.
type Update struct {
	Name        *string
	Description optional.Field[string]
	URL         optional.Field[string]
	Location    optional.Field[models.Location]
}

// Create inserts org with a fresh id, timestamps and an empty deletion state.
func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	org.ID = primitive.NewObjectID()
	org.NameCI = text.Fold(org.Name)
	org.IsDeleted = false
	org.DeletedAt = nil
	org.CreatedAt = now
	org.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, org); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, classifyDup(err)
		}
		return models.Organization{}, err
	}
	return org, nil
}

// classifyDup maps a duplicate-key error to the sentinel for the index
// that rejected it.
func classifyDup(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, IndexActiveCreator):
		return ErrCreatorHasOrganization
	case strings.Contains(msg, IndexInvitationCode):
		return ErrDuplicateInvitationCode
	}
	return err
}

// GetByID loads an organization regardless of its deletion state.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&org); err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// GetActiveByCreator returns the creator's non-deleted organization.
// Returns mongo.ErrNoDocuments if the creator has none.
func (s *Store) GetActiveByCreator(ctx context.Context, creatorID primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	err := s.c.FindOne(ctx, bson.M{"creator_id": creatorID, "is_deleted": false}).Decode(&org)
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// GetSummaries loads id/name pairs for the given organizations.
func (s *Store) GetSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.OrganizationSummary, error) {
	out := make(map[primitive.ObjectID]models.OrganizationSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	proj := options.Find().SetProjection(bson.M{"_id": 1, "name": 1})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, proj)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var os models.OrganizationSummary
		if err := cur.Decode(&os); err != nil {
			return nil, err
		}
		out[os.ID] = os
	}
	return out, cur.Err()
}

// InvitationCodeExists checks every organization, deleted ones included.
func (s *Store) InvitationCodeExists(ctx context.Context, code string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"invitation_code": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update applies upd to a non-deleted organization and returns the result.
// Returns mongo.ErrNoDocuments if no such organization exists.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (models.Organization, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if upd.Name != nil {
		set["name"] = *upd.Name
		set["name_ci"] = text.Fold(*upd.Name)
	}
	setOrUnset(set, unset, "description", upd.Description)
	setOrUnset(set, unset, "url", upd.URL)
	setOrUnset(set, unset, "location", upd.Location)

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var org models.Organization
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_deleted": false},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&org)
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

func setOrUnset[T any](set, unset bson.M, field string, f optional.Field[T]) {
	switch {
	case f.IsSet():
		v, _ := f.Value()
		set[field] = v
	case f.IsClear():
		unset[field] = ""
	}
}

// SoftDelete flags a non-deleted organization as deleted. Returns
// mongo.ErrNoDocuments if it does not exist and ErrAlreadyDeleted if it was
// already flagged.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	now := time.Now().UTC()
	var org models.Organization
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{"is_deleted": true, "deleted_at": now, "updated_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&org)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Organization{}, err
	}
	if _, gerr := s.GetByID(ctx, id); gerr != nil {
		return models.Organization{}, gerr
	}
	return models.Organization{}, ErrAlreadyDeleted
}

// AddMemberByInvitationCode adds userID to the member set of the active
// organization holding code. Returns mongo.ErrNoDocuments when no active
// organization holds the code and ErrAlreadyMember when userID is already
// a member.
func (s *Store) AddMemberByInvitationCode(ctx context.Context, code string, userID primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"invitation_code": code, "is_deleted": false, "member_ids": bson.M{"$ne": userID}},
		bson.M{
			"$addToSet": bson.M{"member_ids": userID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&org)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Organization{}, err
	}
	if err := s.c.FindOne(ctx, bson.M{"invitation_code": code, "is_deleted": false}).Err(); err != nil {
		return models.Organization{}, err
	}
	return models.Organization{}, ErrAlreadyMember
}
