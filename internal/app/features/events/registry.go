package events

import (
	"context"
	"net/http"

	eventservice "github.com/dalemusser/eventhub/internal/app/service/events"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/eventstatus"
	"github.com/dalemusser/eventhub/internal/app/system/paging"
	"github.com/dalemusser/eventhub/internal/app/system/reqmeta"
	"github.com/dalemusser/eventhub/internal/app/system/respond"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listResponse struct {
	Events []eventstatus.View `json:"events"`
}

type joinCodeResponse struct {
	JoinCode string `json:"join_code"`
}

// HandleCreate creates an event under the caller's organization.
//
// Route: POST /api/events
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in eventservice.CreateInput
	if !respond.Decode(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "events.create")
	defer cancel()

	v, err := h.Events.Create(ctx, auth.CallerID(r), in)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusCreated, v)
}

// ServeList returns one page of live events.
//
// Route: GET /api/events?type=&status=&accessType=&organization=&sort=&page=&limit=
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := eventservice.ListQuery{
		Type:           query.Get(r, "type"),
		AccessType:     query.Get(r, "accessType"),
		Status:         query.Get(r, "status"),
		OrganizationID: query.Get(r, "organization"),
		Sort:           query.Get(r, "sort"),
		Page:           paging.FromRequest(r),
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "events.list")
	defer cancel()

	res, err := h.Events.List(ctx, auth.CallerID(r), q)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// ServeMine lists events the caller created or joined.
//
// Route: GET /api/events/mine
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	h.serveListing(w, r, "events.mine", h.Events.GetByCreatorOrParticipant)
}

// ServeJoined lists events the caller joined.
//
// Route: GET /api/events/joined
func (h *Handler) ServeJoined(w http.ResponseWriter, r *http.Request) {
	h.serveListing(w, r, "events.joined", h.Events.GetJoinedByParticipant)
}

// ServeDeleted lists the caller's soft-deleted events.
//
// Route: GET /api/events/deleted
func (h *Handler) ServeDeleted(w http.ResponseWriter, r *http.Request) {
	h.serveListing(w, r, "events.deleted", h.Events.GetDeletedByCreator)
}

func (h *Handler) serveListing(w http.ResponseWriter, r *http.Request, op string, list func(context.Context, primitive.ObjectID) ([]eventstatus.View, error)) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	views, err := list(ctx, auth.CallerID(r))
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, listResponse{Events: views})
}

// ServeJoinCode suggests an unused join code.
//
// Route: GET /api/events/join-code
func (h *Handler) ServeJoinCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "events.join_code")
	defer cancel()

	code, err := h.Events.SuggestJoinCode(ctx)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, joinCodeResponse{JoinCode: code})
}

// ServeOne returns a live event.
//
// Route: GET /api/events/{id}
func (h *Handler) ServeOne(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(w, r, "id", eventservice.MsgNotFound)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "events.get")
	defer cancel()

	v, err := h.Events.Get(ctx, auth.CallerID(r), id)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

// HandleUpdate applies a partial update.
//
// Route: PATCH /api/events/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(w, r, "id", eventservice.MsgNotFound)
	if !ok {
		return
	}
	var in eventservice.UpdateInput
	if !respond.Decode(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "events.update")
	defer cancel()

	v, err := h.Events.Update(ctx, auth.CallerID(r), id, in)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

// HandleDelete soft-deletes an upcoming event without participants.
//
// Route: DELETE /api/events/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(w, r, "id", eventservice.MsgNotFound)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "events.delete")
	defer cancel()

	v, err := h.Events.SoftDelete(ctx, auth.CallerID(r), id)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}
