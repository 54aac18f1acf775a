// Package membershipservice adds and removes event participants. Joins are
// decided by a single conditional update in the event store, so concurrent
// callers can never push an event past its capacity.
package membershipservice

import (
	"context"
	"errors"
	"strings"
	"time"

	eventstore "github.com/dalemusser/eventhub/internal/app/store/events"
	organizationstore "github.com/dalemusser/eventhub/internal/app/store/organizations"
	"github.com/dalemusser/eventhub/internal/app/system/apperr"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/eventstatus"
	"github.com/dalemusser/eventhub/internal/app/system/usercache"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Messages returned to callers.
const (
	MsgNotFound        = "Event not found"
	MsgCreatorJoin     = "You cannot join your own event"
	MsgCreatorLeave    = "The event creator cannot leave the event"
	MsgAlreadyJoined   = "You have already joined this event"
	MsgFull            = "Event is full"
	MsgCodeRequired    = "Join code is required."
	MsgInvalidJoinCode = "Invalid join code"
	MsgNotParticipant  = "You are not a participant of this event"
)

type Service struct {
	events *eventstore.Store
	orgs   *organizationstore.Store
	users  *usercache.Resolver
	audit  *auditlog.Logger
	logger *zap.Logger
	now    func() time.Time
}

func New(db *mongo.Database, users *usercache.Resolver, audit *auditlog.Logger, logger *zap.Logger) *Service {
	return &Service{
		events: eventstore.New(db),
		orgs:   organizationstore.New(db),
		users:  users,
		audit:  audit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) fail(op string, err error) error {
	if apperr.IsTransient(err) {
		s.logger.Warn("membership store unavailable", zap.String("op", op), zap.Error(err))
	} else {
		s.logger.Error("membership store failure", zap.String("op", op), zap.Error(err))
	}
	return apperr.Unavailable(err)
}

// Join adds callerID to the event's participants. The checks below give
// precise errors for the common cases; the store's conditional update is
// what actually enforces them under concurrency.
func (s *Service) Join(ctx context.Context, callerID, eventID primitive.ObjectID, code string) (eventstatus.View, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && e.IsDeleted) {
		return eventstatus.View{}, apperr.NotFound(MsgNotFound)
	}
	if err != nil {
		return eventstatus.View{}, s.fail("get", err)
	}

	switch {
	case e.CreatorID == callerID:
		return eventstatus.View{}, apperr.Forbidden(MsgCreatorJoin)
	case e.HasParticipant(callerID):
		return eventstatus.View{}, apperr.Conflict(MsgAlreadyJoined)
	case len(e.ParticipantIDs) >= e.MaxAttendees:
		return eventstatus.View{}, apperr.Conflict(MsgFull)
	}

	if e.AccessType == models.AccessCodeToJoin {
		code = strings.TrimSpace(code)
		if code == "" {
			return eventstatus.View{}, apperr.Validation("join_code", MsgCodeRequired)
		}
		if code != e.JoinCode {
			return eventstatus.View{}, apperr.Forbidden(MsgInvalidJoinCode)
		}
	}

	joined, err := s.events.Join(ctx, eventID, callerID)
	if err != nil {
		return eventstatus.View{}, s.translate("join", err)
	}

	s.audit.EventJoined(ctx, callerID, joined)
	return s.view(ctx, joined, callerID)
}

// Leave removes callerID from the event's participants.
func (s *Service) Leave(ctx context.Context, callerID, eventID primitive.ObjectID) (eventstatus.View, error) {
	left, err := s.events.Leave(ctx, eventID, callerID)
	if err != nil {
		return eventstatus.View{}, s.translate("leave", err)
	}

	s.audit.EventLeft(ctx, callerID, left)
	return s.view(ctx, left, callerID)
}

// view projects e for viewer with the creator and organization summaries
// the event read paths return.
func (s *Service) view(ctx context.Context, e models.Event, viewer primitive.ObjectID) (eventstatus.View, error) {
	v := eventstatus.Project(e, s.now(), viewer)
	creator, ok, err := s.users.Summary(ctx, e.CreatorID)
	if err != nil {
		return eventstatus.View{}, s.fail("user_summary", err)
	}
	if ok {
		v.Creator = &creator
	}
	orgs, err := s.orgs.GetSummaries(ctx, []primitive.ObjectID{e.OrganizationID})
	if err != nil {
		return eventstatus.View{}, s.fail("organization_summary", err)
	}
	if o, ok := orgs[e.OrganizationID]; ok {
		v.Organization = &o
	}
	return v, nil
}

func (s *Service) translate(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound(MsgNotFound)
	case errors.Is(err, eventstore.ErrCreator):
		if op == "leave" {
			return apperr.Forbidden(MsgCreatorLeave)
		}
		return apperr.Forbidden(MsgCreatorJoin)
	case errors.Is(err, eventstore.ErrAlreadyJoined):
		return apperr.Conflict(MsgAlreadyJoined)
	case errors.Is(err, eventstore.ErrEventFull):
		return apperr.Conflict(MsgFull)
	case errors.Is(err, eventstore.ErrNotParticipant):
		return apperr.Conflict(MsgNotParticipant)
	}
	return s.fail(op, err)
}
