package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"prodflow/collab-gateway/internal/collab"
	"prodflow/collab-gateway/models"
	"prodflow/collab-gateway/utils"
)

// WatcherUploadPayload is what the media watcher posts when it finds a
// new video file for an event deliverable.
type WatcherUploadPayload struct {
	EventID   string `json:"eventId" validate:"required"`
	FileName  string `json:"fileName" validate:"required"`
	FilePath  string `json:"filePath" validate:"required"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
}

// UploadFromWatcher records a video version discovered by the watcher
// process and notifies any live review session on that event so
// participants see the new version without reloading.
func (h *ApplicationHandler) UploadFromWatcher(c *fiber.Ctx) error {
	var payload WatcherUploadPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validate.Struct(payload); err != nil {
		return utils.RespondWithValidationErrors(c, utils.FormatValidationErrors(err))
	}

	version := models.VideoVersion{
		ID:        uuid.NewString(),
		EventID:   payload.EventID,
		FileName:  payload.FileName,
		FilePath:  payload.FilePath,
		SizeBytes: payload.SizeBytes,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveVideoVersion(version); err != nil {
		h.Logger.WithError(err).WithField("event_id", payload.EventID).Error("Failed to save video version")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to save video version")
	}

	// Review sessions are keyed by the event's deliverable id, so the
	// event id is the session id on the hub.
	if h.Hub != nil {
		h.Hub.Notify(payload.EventID, collab.MustEnvelope(collab.MsgVideoVersionAdded, collab.VideoVersionAddedPayload{Version: version}))
	}

	h.Logger.WithFields(logrus.Fields{
		"event_id":  payload.EventID,
		"file_name": payload.FileName,
	}).Info("Video version recorded from watcher")
	return utils.RespondWithJSON(c, fiber.StatusCreated, version)
}

// ListVideoVersions returns the recorded versions for an event, newest
// last.
func (h *ApplicationHandler) ListVideoVersions(c *fiber.Ctx) error {
	eventID := c.Params("eventId")
	versions, err := h.Store.ListVideoVersions(eventID)
	if err != nil {
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to list video versions")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to list video versions")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, versions)
}
