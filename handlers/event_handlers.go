package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"prodflow/collab-gateway/internal/storage"
	"prodflow/collab-gateway/models"
	"prodflow/collab-gateway/utils"
)

// CreateEventPayload defines the body for creating or updating an event.
type CreateEventPayload struct {
	Title  string     `json:"title" validate:"required"`
	Client string     `json:"client,omitempty"`
	Date   *time.Time `json:"date,omitempty"`
}

// SaveBriefingPayload defines the body for saving an event briefing.
type SaveBriefingPayload struct {
	EventDate *time.Time             `json:"eventDate,omitempty"`
	Sections  map[string]interface{} `json:"sections,omitempty"`
}

// ListEvents returns every known event.
func (h *ApplicationHandler) ListEvents(c *fiber.Ctx) error {
	events, err := h.Store.ListEvents()
	if err != nil {
		h.Logger.WithError(err).Error("Failed to list events")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to list events")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, events)
}

// GetEvent returns one event by id.
func (h *ApplicationHandler) GetEvent(c *fiber.Ctx) error {
	eventID := c.Params("eventId")
	event, err := h.Store.GetEvent(eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Event '%s' not found", eventID))
		}
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to fetch event")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch event")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, event)
}

// CreateEvent registers a new event.
func (h *ApplicationHandler) CreateEvent(c *fiber.Ctx) error {
	var payload CreateEventPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validate.Struct(payload); err != nil {
		return utils.RespondWithValidationErrors(c, utils.FormatValidationErrors(err))
	}

	now := time.Now().UTC()
	event := models.Event{
		ID:        uuid.NewString(),
		Title:     payload.Title,
		Client:    payload.Client,
		Date:      payload.Date,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Store.SaveEvent(event); err != nil {
		h.Logger.WithError(err).WithField("event_id", event.ID).Error("Failed to save event")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to save event")
	}

	h.Logger.WithField("event_id", event.ID).Info("Event created")
	return utils.RespondWithJSON(c, fiber.StatusCreated, event)
}

// UpdateEvent overwrites an existing event's mutable fields.
func (h *ApplicationHandler) UpdateEvent(c *fiber.Ctx) error {
	eventID := c.Params("eventId")
	event, err := h.Store.GetEvent(eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Event '%s' not found", eventID))
		}
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to fetch event")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch event")
	}

	var payload CreateEventPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validate.Struct(payload); err != nil {
		return utils.RespondWithValidationErrors(c, utils.FormatValidationErrors(err))
	}

	event.Title = payload.Title
	event.Client = payload.Client
	event.Date = payload.Date
	event.UpdatedAt = time.Now().UTC()
	if err := h.Store.SaveEvent(event); err != nil {
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to save event")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to save event")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, event)
}

// GetBriefing returns the stored briefing for an event.
func (h *ApplicationHandler) GetBriefing(c *fiber.Ctx) error {
	eventID := c.Params("eventId")
	briefing, err := h.Store.GetBriefing(eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Briefing for event '%s' not found", eventID))
		}
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to fetch briefing")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch briefing")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, briefing)
}

// SaveBriefing stores the briefing snapshot for an event, replacing
// any previous one. The event must exist.
func (h *ApplicationHandler) SaveBriefing(c *fiber.Ctx) error {
	eventID := c.Params("eventId")
	if _, err := h.Store.GetEvent(eventID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Event '%s' not found", eventID))
		}
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to fetch event")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch event")
	}

	var payload SaveBriefingPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	briefing := models.Briefing{
		EventID:   eventID,
		EventDate: payload.EventDate,
		Sections:  payload.Sections,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveBriefing(briefing); err != nil {
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to save briefing")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to save briefing")
	}

	h.Logger.WithField("event_id", eventID).Info("Briefing saved")
	return utils.RespondWithJSON(c, fiber.StatusOK, briefing)
}
