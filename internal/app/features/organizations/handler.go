// Package organizations serves the organization API: create, read, update,
// soft delete and joining by invitation code.
package organizations

import (
	orgservice "github.com/dalemusser/eventhub/internal/app/service/organizations"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Organizations.
type Handler struct {
	Svc *orgservice.Service
	Log *zap.Logger
}

// NewHandler constructs an Organizations handler around the service.
func NewHandler(svc *orgservice.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}
