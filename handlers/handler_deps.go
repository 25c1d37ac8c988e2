// Package handlers exposes the gateway's HTTP surface: the timeline
// persistence API, event and briefing CRUD, the media-watcher webhook
// and the websocket upgrade into the collaboration hub.
package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"prodflow/collab-gateway/internal/collab"
	"prodflow/collab-gateway/internal/storage"
)

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Store    storage.TimelineStore
	Hub      *collab.Hub
	Logger   *logrus.Logger
	Validate *validator.Validate
}

// NewApplicationHandler creates a new ApplicationHandler with the given dependencies.
func NewApplicationHandler(store storage.TimelineStore, hub *collab.Hub, logger *logrus.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		Store:    store,
		Hub:      hub,
		Logger:   logger,
		Validate: validator.New(),
	}
}
