package events

import (
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Event routes under the base path
// (typically "/api/events" from bootstrap).
func Routes(h *Handler, am *auth.Middleware, joins *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Use(am.RequireCaller)

	r.Post("/", h.HandleCreate)
	r.Get("/", h.ServeList)

	// Caller-scoped listings
	r.Get("/mine", h.ServeMine)
	r.Get("/joined", h.ServeJoined)
	r.Get("/deleted", h.ServeDeleted)
	r.Get("/join-code", h.ServeJoinCode)

	r.Get("/{id}", h.ServeOne)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)

	// Membership
	r.With(joins.Middleware(auth.CallerKey)).Post("/{id}/join", h.HandleJoin)
	r.Post("/{id}/leave", h.HandleLeave)

	return r
}

