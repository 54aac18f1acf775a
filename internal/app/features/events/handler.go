// Package events serves the event API: the event registry endpoints plus
// join and leave.
package events

import (
	eventservice "github.com/dalemusser/eventhub/internal/app/service/events"
	membershipservice "github.com/dalemusser/eventhub/internal/app/service/membership"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Events.
type Handler struct {
	Events  *eventservice.Service
	Members *membershipservice.Service
	Log     *zap.Logger
}

// NewHandler constructs an Events handler around the registry and the
// membership controller.
func NewHandler(events *eventservice.Service, members *membershipservice.Service, logger *zap.Logger) *Handler {
	return &Handler{Events: events, Members: members, Log: logger}
}
