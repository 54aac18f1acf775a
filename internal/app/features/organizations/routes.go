package organizations

import (
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Organization routes under the base path
// (typically "/api/organizations" from bootstrap).
func Routes(h *Handler, am *auth.Middleware, joins *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Use(am.RequireCaller)

	r.Post("/", h.HandleCreate)
	r.Get("/mine", h.ServeMine)
	r.With(joins.Middleware(auth.CallerKey)).Post("/join", h.HandleJoin)

	r.Get("/{id}", h.ServeOne)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)

	return r
}

