package events

import (
	"net/http"

	eventservice "github.com/dalemusser/eventhub/internal/app/service/events"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/reqmeta"
	"github.com/dalemusser/eventhub/internal/app/system/respond"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
)

type joinRequest struct {
	JoinCode string `json:"join_code"`
}

// HandleJoin adds the caller to the event's participants.
//
// Route: POST /api/events/{id}/join
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(w, r, "id", eventservice.MsgNotFound)
	if !ok {
		return
	}
	var in joinRequest
	if !respond.Decode(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "events.join")
	defer cancel()

	v, err := h.Members.Join(ctx, auth.CallerID(r), id, in.JoinCode)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

// HandleLeave removes the caller from the event's participants.
//
// Route: POST /api/events/{id}/leave
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(w, r, "id", eventservice.MsgNotFound)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "events.leave")
	defer cancel()

	v, err := h.Members.Leave(ctx, auth.CallerID(r), id)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}
