package organizations

import (
	"net/http"

	orgservice "github.com/dalemusser/eventhub/internal/app/service/organizations"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/reqmeta"
	"github.com/dalemusser/eventhub/internal/app/system/respond"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
)

type mineResponse struct {
	Organization *orgservice.View `json:"organization"`
}

type joinRequest struct {
	InvitationCode string `json:"invitation_code"`
}

// HandleCreate creates the caller's organization.
//
// Route: POST /api/organizations
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in orgservice.CreateInput
	if !respond.Decode(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "organizations.create")
	defer cancel()

	v, err := h.Svc.Create(ctx, auth.CallerID(r), in)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusCreated, v)
}

// ServeMine returns the caller's live organization, or null.
//
// Route: GET /api/organizations/mine
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "organizations.mine")
	defer cancel()

	v, err := h.Svc.GetByCreator(ctx, auth.CallerID(r))
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, mineResponse{Organization: v})
}

// ServeOne returns a live organization.
//
// Route: GET /api/organizations/{id}
func (h *Handler) ServeOne(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(w, r, "id", orgservice.MsgNotFound)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "organizations.get")
	defer cancel()

	v, err := h.Svc.GetByID(ctx, auth.CallerID(r), id)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

// HandleUpdate applies a partial update. Explicit nulls clear description,
// url and location.
//
// Route: PATCH /api/organizations/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(w, r, "id", orgservice.MsgNotFound)
	if !ok {
		return
	}
	var in orgservice.UpdateInput
	if !respond.Decode(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "organizations.update")
	defer cancel()

	v, err := h.Svc.Update(ctx, auth.CallerID(r), id, in)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

// HandleDelete soft-deletes the caller's organization.
//
// Route: DELETE /api/organizations/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(w, r, "id", orgservice.MsgNotFound)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "organizations.delete")
	defer cancel()

	v, err := h.Svc.SoftDelete(ctx, auth.CallerID(r), id)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

// HandleJoin adds the caller to the organization holding the code.
//
// Route: POST /api/organizations/join
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var in joinRequest
	if !respond.Decode(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "organizations.join")
	defer cancel()

	v, err := h.Svc.JoinByInvitationCode(ctx, auth.CallerID(r), in.InvitationCode)
	if err != nil {
		respond.Error(w, reqmeta.Logger(r.Context(), h.Log), err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}
