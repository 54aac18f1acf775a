// internal/app/store/events/eventstore.go
package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/eventstatus"
	"github.com/dalemusser/eventhub/internal/app/system/paging"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrAlreadyDeleted = errors.New("event already deleted")
	// ErrNotUpcoming is returned when deleting an event that has started.
	ErrNotUpcoming     = errors.New("event has already started")
	ErrHasParticipants = errors.New("event has participants")
	ErrCreator         = errors.New("creator cannot join or leave own event")
	ErrAlreadyJoined   = errors.New("already joined this event")
	ErrNotParticipant  = errors.New("not a participant of this event")
	ErrEventFull       = errors.New("event is full")
	// ErrCapacityBelowParticipants is returned when an update lowers
	// max_attendees below the current participant count.
	ErrCapacityBelowParticipants = errors.New("max attendees is below the current participant count")
)

// casAttempts bounds how often a guarded update is re-run when the event
// changed between the update and the classifying read.
const casAttempts = 3

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

// Filter narrows List. Zero values match everything; deleted events are
// always excluded.
type Filter struct {
	Type           models.EventType
	AccessType     models.AccessType
	Status         eventstatus.Status
	OrganizationID primitive.ObjectID
	Now            time.Time
}

// Create inserts e with an empty participant set and the upcoming status seed.
// Times are truncated to the millisecond BSON stores, so the returned event
// matches what a later read decodes.
func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	e.ID = primitive.NewObjectID()
	e.StartDate = e.StartDate.UTC().Truncate(time.Millisecond)
	e.EndDate = e.EndDate.UTC().Truncate(time.Millisecond)
	e.NameCI = text.Fold(e.Name)
	e.ParticipantIDs = []primitive.ObjectID{}
	e.Status = string(eventstatus.Upcoming)
	e.IsDeleted = false
	e.DeletedAt = nil
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// GetByID loads an event regardless of its deletion state.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// JoinCodeExists checks every event, deleted ones included.
func (s *Store) JoinCodeExists(ctx context.Context, code string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"join_code": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateDetails overwrites the editable fields of a non-deleted event with
// those of e. Participants, creator and organization are never touched.
// The write only applies while the participant count fits e.MaxAttendees.
func (s *Store) UpdateDetails(ctx context.Context, e models.Event) (models.Event, error) {
	set := bson.M{
		"name":          e.Name,
		"name_ci":       text.Fold(e.Name),
		"description":   e.Description,
		"type":          e.Type,
		"access_type":   e.AccessType,
		"start_date":    e.StartDate,
		"end_date":      e.EndDate,
		"image":         e.Image,
		"max_attendees": e.MaxAttendees,
		"updated_at":    time.Now().UTC(),
	}
	unset := bson.M{}
	if e.JoinCode != "" {
		set["join_code"] = e.JoinCode
	} else {
		unset["join_code"] = ""
	}
	if e.Online != nil {
		set["online"] = e.Online
	} else {
		unset["online"] = ""
	}
	if e.Offline != nil {
		set["offline"] = e.Offline
	} else {
		unset["offline"] = ""
	}

	filter := bson.M{
		"_id":        e.ID,
		"is_deleted": false,
		"$expr":      bson.M{"$lte": bson.A{bson.M{"$size": "$participant_ids"}, e.MaxAttendees}},
	}
	var out models.Event
	err := s.c.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": set, "$unset": unset},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Event{}, err
	}
	cur, gerr := s.GetByID(ctx, e.ID)
	if gerr != nil {
		return models.Event{}, gerr
	}
	if cur.IsDeleted {
		return models.Event{}, mongo.ErrNoDocuments
	}
	return models.Event{}, ErrCapacityBelowParticipants
}

// SoftDelete flags an upcoming event with no participants as deleted.
// When the guard fails the event is re-read to report why: already deleted,
// then started, then participants.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID, now time.Time) (models.Event, error) {
	filter := bson.M{
		"_id":             id,
		"is_deleted":      false,
		"participant_ids": bson.M{"$size": 0},
		"start_date":      bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"is_deleted": true, "deleted_at": now, "updated_at": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for attempt := 0; attempt < casAttempts; attempt++ {
		var out models.Event
		err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return models.Event{}, err
		}

		cur, gerr := s.GetByID(ctx, id)
		if gerr != nil {
			return models.Event{}, gerr
		}
		switch {
		case cur.IsDeleted:
			return models.Event{}, ErrAlreadyDeleted
		case !cur.StartDate.After(now):
			return models.Event{}, ErrNotUpcoming
		case len(cur.ParticipantIDs) > 0:
			return models.Event{}, ErrHasParticipants
		}
		// The last participant left between the update and the read.
	}
	return models.Event{}, ErrHasParticipants
}

// Join adds userID to the participants of a non-deleted event in a single
// conditional update that also enforces capacity, so concurrent joins can
// never overshoot max_attendees.
func (s *Store) Join(ctx context.Context, id, userID primitive.ObjectID) (models.Event, error) {
	filter := bson.M{
		"_id":             id,
		"is_deleted":      false,
		"creator_id":      bson.M{"$ne": userID},
		"participant_ids": bson.M{"$ne": userID},
		"$expr":           bson.M{"$lt": bson.A{bson.M{"$size": "$participant_ids"}, "$max_attendees"}},
	}
	update := bson.M{
		"$addToSet": bson.M{"participant_ids": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for attempt := 0; attempt < casAttempts; attempt++ {
		var out models.Event
		err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return models.Event{}, err
		}

		cur, gerr := s.GetByID(ctx, id)
		if gerr != nil {
			return models.Event{}, gerr
		}
		switch {
		case cur.IsDeleted:
			return models.Event{}, mongo.ErrNoDocuments
		case cur.CreatorID == userID:
			return models.Event{}, ErrCreator
		case cur.HasParticipant(userID):
			return models.Event{}, ErrAlreadyJoined
		case len(cur.ParticipantIDs) >= cur.MaxAttendees:
			return models.Event{}, ErrEventFull
		}
		// A seat opened between the update and the read; try again.
	}
	return models.Event{}, ErrEventFull
}

// Leave removes userID from the participants of a non-deleted event.
func (s *Store) Leave(ctx context.Context, id, userID primitive.ObjectID) (models.Event, error) {
	var out models.Event
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_deleted": false, "participant_ids": userID},
		bson.M{
			"$pull": bson.M{"participant_ids": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Event{}, err
	}

	cur, gerr := s.GetByID(ctx, id)
	if gerr != nil {
		return models.Event{}, gerr
	}
	switch {
	case cur.IsDeleted:
		return models.Event{}, mongo.ErrNoDocuments
	case cur.CreatorID == userID:
		return models.Event{}, ErrCreator
	}
	return models.Event{}, ErrNotParticipant
}

// StatusFilter expresses a derived status as a date-range filter at now.
func StatusFilter(st eventstatus.Status, now time.Time) bson.M {
	switch st {
	case eventstatus.Upcoming:
		return bson.M{"start_date": bson.M{"$gt": now}}
	case eventstatus.Ongoing:
		return bson.M{"start_date": bson.M{"$lte": now}, "end_date": bson.M{"$gte": now}}
	case eventstatus.Completed:
		return bson.M{"end_date": bson.M{"$lt": now}}
	}
	return bson.M{}
}

func (f Filter) bson() bson.M {
	q := bson.M{"is_deleted": false}
	if f.Type != "" {
		q["type"] = f.Type
	}
	if f.AccessType != "" {
		q["access_type"] = f.AccessType
	}
	if !f.OrganizationID.IsZero() {
		q["organization_id"] = f.OrganizationID
	}
	if f.Status != "" {
		for k, v := range StatusFilter(f.Status, f.Now) {
			q[k] = v
		}
	}
	return q
}

// List returns one page of non-deleted events matching f, plus the total
// number of matches.
func (s *Store) List(ctx context.Context, f Filter, page paging.Page, sort bson.D) ([]models.Event, int64, error) {
	q := f.bson()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	order := make(bson.D, 0, len(sort)+1)
	order = append(order, sort...)
	order = append(order, bson.E{Key: "_id", Value: 1})
	find := options.Find().SetSort(order)
	page.ApplyToFind(find)
	events, err := s.find(ctx, q, find)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// ListByCreatorOrParticipant returns non-deleted events the user created or
// joined, soonest first.
func (s *Store) ListByCreatorOrParticipant(ctx context.Context, userID primitive.ObjectID) ([]models.Event, error) {
	q := bson.M{
		"is_deleted": false,
		"$or": bson.A{
			bson.M{"creator_id": userID},
			bson.M{"participant_ids": userID},
		},
	}
	return s.find(ctx, q, options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}, {Key: "_id", Value: 1}}))
}

// ListByParticipant returns non-deleted events the user joined, soonest first.
func (s *Store) ListByParticipant(ctx context.Context, userID primitive.ObjectID) ([]models.Event, error) {
	q := bson.M{"is_deleted": false, "participant_ids": userID}
	return s.find(ctx, q, options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}, {Key: "_id", Value: 1}}))
}

// ListDeletedByCreator returns the user's soft-deleted events, most recently
// deleted first.
func (s *Store) ListDeletedByCreator(ctx context.Context, creatorID primitive.ObjectID) ([]models.Event, error) {
	q := bson.M{"is_deleted": true, "creator_id": creatorID}
	return s.find(ctx, q, options.Find().SetSort(bson.D{{Key: "deleted_at", Value: -1}, {Key: "_id", Value: 1}}))
}

func (s *Store) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.Event, error) {
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	events := []models.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
