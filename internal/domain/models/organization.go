// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization groups events under one creator. The creator is always the first
// entry of MemberIDs and never changes after creation.
type Organization struct {
	ID             primitive.ObjectID   `bson:"_id" json:"id"`
	Name           string               `bson:"name" json:"name"`
	NameCI         string               `bson:"name_ci" json:"-"` // ← always stored
	Description    string               `bson:"description,omitempty" json:"description,omitempty"`
	URL            string               `bson:"url,omitempty" json:"url,omitempty"`
	Location       *Location            `bson:"location,omitempty" json:"location,omitempty"`
	CreatorID      primitive.ObjectID   `bson:"creator_id" json:"creator_id"`
	MemberIDs      []primitive.ObjectID `bson:"member_ids" json:"member_ids"`
	InvitationCode string               `bson:"invitation_code" json:"invitation_code,omitempty"`
	IsDeleted      bool                 `bson:"is_deleted" json:"is_deleted"`
	DeletedAt      *time.Time           `bson:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`
}

// Location is a free-form address with optional coordinates supplied by the
// geocoding collaborator.
type Location struct {
	Address     string       `bson:"address" json:"address"`
	Coordinates *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// OrganizationSummary is the reference shape embedded in event views.
type OrganizationSummary struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
}

// HasMember reports whether userID is in the member set.
func (o Organization) HasMember(userID primitive.ObjectID) bool {
	for _, id := range o.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
