// Package eventservice owns the event lifecycle: creation under the
// caller's organization, creator-only updates and guarded soft deletion,
// plus the read paths that project stored events into views.
package eventservice

import (
	"context"
	"errors"
	"time"

	eventstore "github.com/dalemusser/eventhub/internal/app/store/events"
	organizationstore "github.com/dalemusser/eventhub/internal/app/store/organizations"
	"github.com/dalemusser/eventhub/internal/app/system/apperr"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/codegen"
	"github.com/dalemusser/eventhub/internal/app/system/eventstatus"
	"github.com/dalemusser/eventhub/internal/app/system/usercache"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Messages returned to callers.
const (
	MsgNotFound            = "Event not found"
	MsgNotCreator          = "Only the event creator can do this"
	MsgInvalidOrganization = "Invalid organization"
	MsgAlreadyDeleted      = "Event is already deleted"
	MsgStarted             = "Cannot delete an event that has started or completed"
	MsgHasParticipants     = "Cannot delete an event that has participants"
	MsgBelowParticipants   = "Max attendees cannot be lower than the current number of participants"
	MsgCodeExhausted       = "Could not generate a unique join code"
)

type Service struct {
	events *eventstore.Store
	orgs   *organizationstore.Store
	users  *usercache.Resolver
	codes  *codegen.Generator
	audit  *auditlog.Logger
	logger *zap.Logger
	now    func() time.Time
}

func New(db *mongo.Database, users *usercache.Resolver, audit *auditlog.Logger, logger *zap.Logger) *Service {
	return &Service{
		events: eventstore.New(db),
		orgs:   organizationstore.New(db),
		users:  users,
		codes:  codegen.JoinCodes(),
		audit:  audit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for date rules and status.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// fail logs a store error and hides it behind an Unavailable error.
// Timeouts and network errors log at Warn since a retry may succeed.
func (s *Service) fail(op string, err error) error {
	if apperr.IsTransient(err) {
		s.logger.Warn("event store unavailable", zap.String("op", op), zap.Error(err))
	} else {
		s.logger.Error("event store failure", zap.String("op", op), zap.Error(err))
	}
	return apperr.Unavailable(err)
}

// Create validates in and stores a new event owned by callerID. The first
// failing rule is reported.
func (s *Service) Create(ctx context.Context, callerID primitive.ObjectID, in CreateInput) (eventstatus.View, error) {
	now := s.now()
	if err := in.requireFields(); err != nil {
		return eventstatus.View{}, err
	}

	orgID, _ := primitive.ObjectIDFromHex(in.orgHex())
	org, err := s.orgs.GetByID(ctx, orgID)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && (org.IsDeleted || org.CreatorID != callerID)) {
		return eventstatus.View{}, apperr.Validation("organization_id", MsgInvalidOrganization)
	}
	if err != nil {
		return eventstatus.View{}, s.fail("get_organization", err)
	}

	e := in.event()
	e.CreatorID = callerID
	e.OrganizationID = org.ID
	normalize(&e)
	if err := validate(e, now, true); err != nil {
		return eventstatus.View{}, err
	}
	shapePayload(&e)

	created, err := s.events.Create(ctx, e)
	if err != nil {
		return eventstatus.View{}, s.fail("create", err)
	}

	s.audit.EventCreated(ctx, callerID, created)
	return s.view(ctx, created, callerID)
}

// loadLive loads a non-deleted event.
func (s *Service) loadLive(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && e.IsDeleted) {
		return models.Event{}, apperr.NotFound(MsgNotFound)
	}
	if err != nil {
		return models.Event{}, s.fail("get", err)
	}
	return e, nil
}

// Update applies a partial update. The merged event goes through the same
// rules as Create; the start-date-not-in-past rule only applies when the
// start date is being changed. A patch that changes nothing is not written.
func (s *Service) Update(ctx context.Context, callerID, id primitive.ObjectID, in UpdateInput) (eventstatus.View, error) {
	cur, err := s.loadLive(ctx, id)
	if err != nil {
		return eventstatus.View{}, err
	}
	if cur.CreatorID != callerID {
		return eventstatus.View{}, apperr.Forbidden(MsgNotCreator)
	}

	next := in.apply(cur)
	normalize(&next)
	startChanged := !next.StartDate.Equal(cur.StartDate)
	if err := validate(next, s.now(), startChanged); err != nil {
		return eventstatus.View{}, err
	}
	shapePayload(&next)

	changed := changedFields(cur, next)
	if len(changed) == 0 {
		return s.view(ctx, cur, callerID)
	}

	updated, err := s.events.UpdateDetails(ctx, next)
	switch {
	case errors.Is(err, eventstore.ErrCapacityBelowParticipants):
		return eventstatus.View{}, apperr.Conflict(MsgBelowParticipants)
	case errors.Is(err, mongo.ErrNoDocuments):
		return eventstatus.View{}, apperr.NotFound(MsgNotFound)
	case err != nil:
		return eventstatus.View{}, s.fail("update", err)
	}

	s.audit.EventUpdated(ctx, callerID, updated, changed)
	return s.view(ctx, updated, callerID)
}

// SoftDelete flags an upcoming event without participants as deleted.
func (s *Service) SoftDelete(ctx context.Context, callerID, id primitive.ObjectID) (eventstatus.View, error) {
	e, err := s.events.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return eventstatus.View{}, apperr.NotFound(MsgNotFound)
	}
	if err != nil {
		return eventstatus.View{}, s.fail("get", err)
	}
	if e.CreatorID != callerID {
		return eventstatus.View{}, apperr.Forbidden(MsgNotCreator)
	}

	now := s.now()
	switch {
	case e.IsDeleted:
		return eventstatus.View{}, apperr.Conflict(MsgAlreadyDeleted)
	case eventstatus.Derive(now, e.StartDate, e.EndDate) != eventstatus.Upcoming:
		return eventstatus.View{}, apperr.Conflict(MsgStarted)
	case len(e.ParticipantIDs) > 0:
		return eventstatus.View{}, apperr.Conflict(MsgHasParticipants)
	}

	deleted, err := s.events.SoftDelete(ctx, id, now)
	switch {
	case errors.Is(err, eventstore.ErrAlreadyDeleted):
		return eventstatus.View{}, apperr.Conflict(MsgAlreadyDeleted)
	case errors.Is(err, eventstore.ErrNotUpcoming):
		return eventstatus.View{}, apperr.Conflict(MsgStarted)
	case errors.Is(err, eventstore.ErrHasParticipants):
		return eventstatus.View{}, apperr.Conflict(MsgHasParticipants)
	case errors.Is(err, mongo.ErrNoDocuments):
		return eventstatus.View{}, apperr.NotFound(MsgNotFound)
	case err != nil:
		return eventstatus.View{}, s.fail("soft_delete", err)
	}

	s.audit.EventDeleted(ctx, callerID, deleted)
	return s.view(ctx, deleted, callerID)
}

// Get returns a live event as seen by callerID.
func (s *Service) Get(ctx context.Context, callerID, id primitive.ObjectID) (eventstatus.View, error) {
	e, err := s.loadLive(ctx, id)
	if err != nil {
		return eventstatus.View{}, err
	}
	return s.view(ctx, e, callerID)
}

// GetByCreatorOrParticipant lists live events the caller created or joined.
func (s *Service) GetByCreatorOrParticipant(ctx context.Context, callerID primitive.ObjectID) ([]eventstatus.View, error) {
	events, err := s.events.ListByCreatorOrParticipant(ctx, callerID)
	if err != nil {
		return nil, s.fail("list_mine", err)
	}
	return s.views(ctx, events, callerID)
}

// GetJoinedByParticipant lists live events the caller joined.
func (s *Service) GetJoinedByParticipant(ctx context.Context, callerID primitive.ObjectID) ([]eventstatus.View, error) {
	events, err := s.events.ListByParticipant(ctx, callerID)
	if err != nil {
		return nil, s.fail("list_joined", err)
	}
	return s.views(ctx, events, callerID)
}

// GetDeletedByCreator lists the caller's soft-deleted events.
func (s *Service) GetDeletedByCreator(ctx context.Context, callerID primitive.ObjectID) ([]eventstatus.View, error) {
	events, err := s.events.ListDeletedByCreator(ctx, callerID)
	if err != nil {
		return nil, s.fail("list_deleted", err)
	}
	return s.views(ctx, events, callerID)
}

// SuggestJoinCode draws a join code not used by any event, deleted ones
// included. Create still accepts any caller-supplied code.
func (s *Service) SuggestJoinCode(ctx context.Context) (string, error) {
	code, err := s.codes.Unique(ctx, s.events.JoinCodeExists)
	if errors.Is(err, codegen.ErrExhausted) {
		return "", apperr.ConflictWrap(MsgCodeExhausted, err)
	}
	if err != nil {
		return "", s.fail("join_code", err)
	}
	return code, nil
}

// view projects e for viewer with creator and organization summaries.
func (s *Service) view(ctx context.Context, e models.Event, viewer primitive.ObjectID) (eventstatus.View, error) {
	vs, err := s.views(ctx, []models.Event{e}, viewer)
	if err != nil {
		return eventstatus.View{}, err
	}
	return vs[0], nil
}

func (s *Service) views(ctx context.Context, events []models.Event, viewer primitive.ObjectID) ([]eventstatus.View, error) {
	out := make([]eventstatus.View, 0, len(events))
	if len(events) == 0 {
		return out, nil
	}

	creatorIDs := make([]primitive.ObjectID, 0, len(events))
	orgIDs := make([]primitive.ObjectID, 0, len(events))
	for _, e := range events {
		creatorIDs = append(creatorIDs, e.CreatorID)
		orgIDs = append(orgIDs, e.OrganizationID)
	}
	users, err := s.users.Summaries(ctx, creatorIDs)
	if err != nil {
		return nil, s.fail("user_summaries", err)
	}
	orgs, err := s.orgs.GetSummaries(ctx, orgIDs)
	if err != nil {
		return nil, s.fail("organization_summaries", err)
	}

	now := s.now()
	for _, e := range events {
		v := eventstatus.Project(e, now, viewer)
		if u, ok := users[e.CreatorID]; ok {
			v.Creator = &u
		}
		if o, ok := orgs[e.OrganizationID]; ok {
			v.Organization = &o
		}
		out = append(out, v)
	}
	return out, nil
}
