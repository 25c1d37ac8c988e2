package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"prodflow/collab-gateway/internal/storage"
	"prodflow/collab-gateway/internal/timeline"
	"prodflow/collab-gateway/models"
	"prodflow/collab-gateway/utils"
)

// TimelineResponse is the body of a timeline fetch. IsGenerated is
// true when the phases were derived from the briefing on the fly and
// have not been persisted.
type TimelineResponse struct {
	Timeline    []models.Phase `json:"timeline"`
	IsGenerated bool           `json:"isGenerated"`
}

// SaveTimelinePayload is the POST body. Exactly one of the two modes
// applies: GenerateFromBriefing regenerates from briefing data, or
// Timeline persists the given phases verbatim after validation.
type SaveTimelinePayload struct {
	GenerateFromBriefing bool             `json:"generateFromBriefing"`
	BriefingData         *models.Briefing `json:"briefingData,omitempty"`
	Timeline             []models.Phase   `json:"timeline,omitempty"`
}

// PatchTimelinePayload is the PATCH body. UpdateType selects the
// operation; the other fields it requires depend on the type.
type PatchTimelinePayload struct {
	UpdateType string             `json:"updateType" validate:"required,oneof=phase task addTask addPhase removePhase removeTask"`
	PhaseID    string             `json:"phaseId,omitempty"`
	TaskID     string             `json:"taskId,omitempty"`
	Phase      *PhaseUpdateFields `json:"phase,omitempty"`
	Task       *TaskUpdateFields  `json:"task,omitempty"`
	NewPhase   *models.Phase      `json:"newPhase,omitempty"`
	NewTask    *models.Task       `json:"newTask,omitempty"`
}

// PhaseUpdateFields carries the partial update for one phase. Nil
// fields are left untouched.
type PhaseUpdateFields struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	Type        *string    `json:"type,omitempty"`
}

// TaskUpdateFields carries the partial update for one task.
type TaskUpdateFields struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	DueDate     *time.Time         `json:"dueDate,omitempty"`
	Status      *models.TaskStatus `json:"status,omitempty"`
}

// GetTimeline returns the stored timeline for an event. When no
// timeline has been persisted yet, it derives one from the event's
// briefing without saving it, so a briefing edit is immediately
// reflected until someone persists an override.
func (h *ApplicationHandler) GetTimeline(c *fiber.Ctx) error {
	eventID := c.Params("eventId")

	event, err := h.Store.GetEvent(eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Event '%s' not found", eventID))
		}
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to fetch event")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch event")
	}

	phases, ok, err := h.Store.GetTimeline(eventID)
	if err != nil {
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to fetch timeline")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch timeline")
	}
	if ok {
		return utils.RespondWithJSON(c, fiber.StatusOK, TimelineResponse{Timeline: phases, IsGenerated: false})
	}

	briefing := h.briefingOrNil(eventID)
	generated := timeline.Generate(briefing, &event, time.Now().UTC())
	return utils.RespondWithJSON(c, fiber.StatusOK, TimelineResponse{Timeline: generated, IsGenerated: true})
}

// SaveTimeline persists a timeline for an event. With
// generateFromBriefing it regenerates from the supplied briefing data
// (falling back to the stored briefing) and persists the result: 201
// when this is the event's first timeline, 200 when replacing. With an
// explicit timeline it validates every phase and task and persists
// verbatim, returning the itemized validation errors on failure.
func (h *ApplicationHandler) SaveTimeline(c *fiber.Ctx) error {
	eventID := c.Params("eventId")

	event, err := h.Store.GetEvent(eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Event '%s' not found", eventID))
		}
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to fetch event")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch event")
	}

	var payload SaveTimelinePayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	var phases []models.Phase
	switch {
	case payload.GenerateFromBriefing:
		briefing := payload.BriefingData
		if briefing == nil {
			briefing = h.briefingOrNil(eventID)
		}
		phases = timeline.Generate(briefing, &event, time.Now().UTC())
	case payload.Timeline != nil:
		if errs := h.validateTimeline(payload.Timeline); len(errs) > 0 {
			return utils.RespondWithValidationErrors(c, errs)
		}
		phases = payload.Timeline
	default:
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Request must set generateFromBriefing or provide a timeline")
	}

	created, err := h.Store.SaveTimeline(eventID, phases)
	if err != nil {
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to save timeline")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to save timeline")
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	h.Logger.WithFields(logrus.Fields{
		"event_id":  eventID,
		"phases":    len(phases),
		"created":   created,
		"generated": payload.GenerateFromBriefing,
	}).Info("Timeline saved")
	return utils.RespondWithJSON(c, status, TimelineResponse{Timeline: phases, IsGenerated: payload.GenerateFromBriefing})
}

// PatchTimeline applies one partial operation to a persisted timeline.
// The operation is selected by updateType; referencing an unknown
// phase or task id yields a 404 naming that id.
func (h *ApplicationHandler) PatchTimeline(c *fiber.Ctx) error {
	eventID := c.Params("eventId")

	phases, ok, err := h.Store.GetTimeline(eventID)
	if err != nil {
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to fetch timeline")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch timeline")
	}
	if !ok {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("No timeline persisted for event '%s'", eventID))
	}

	var payload PatchTimelinePayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validate.Struct(payload); err != nil {
		return utils.RespondWithValidationErrors(c, utils.FormatValidationErrors(err))
	}

	phases, err = applyTimelinePatch(phases, payload)
	if err != nil {
		var nf *patchNotFoundError
		if errors.As(err, &nf) {
			return utils.RespondWithError(c, fiber.StatusNotFound, nf.Error())
		}
		return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
	}

	if _, err := h.Store.SaveTimeline(eventID, phases); err != nil {
		h.Logger.WithError(err).WithField("event_id", eventID).Error("Failed to save patched timeline")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to save timeline")
	}

	h.Logger.WithFields(logrus.Fields{
		"event_id":    eventID,
		"update_type": payload.UpdateType,
	}).Info("Timeline patched")
	return utils.RespondWithJSON(c, fiber.StatusOK, TimelineResponse{Timeline: phases, IsGenerated: false})
}

// patchNotFoundError marks a patch that referenced an absent phase or
// task id, so the handler can answer 404 instead of 400.
type patchNotFoundError struct {
	kind string
	id   string
}

func (e *patchNotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.kind, e.id)
}

func applyTimelinePatch(phases []models.Phase, p PatchTimelinePayload) ([]models.Phase, error) {
	switch p.UpdateType {
	case "phase":
		if p.PhaseID == "" || p.Phase == nil {
			return nil, errors.New("updateType 'phase' requires phaseId and phase")
		}
		i, err := phaseIndex(phases, p.PhaseID)
		if err != nil {
			return nil, err
		}
		applyPhaseFields(&phases[i], p.Phase)
		return phases, nil

	case "task":
		if p.PhaseID == "" || p.TaskID == "" || p.Task == nil {
			return nil, errors.New("updateType 'task' requires phaseId, taskId and task")
		}
		i, err := phaseIndex(phases, p.PhaseID)
		if err != nil {
			return nil, err
		}
		j, err := taskIndex(phases[i].Tasks, p.TaskID)
		if err != nil {
			return nil, err
		}
		applyTaskFields(&phases[i].Tasks[j], p.Task)
		return phases, nil

	case "addTask":
		if p.PhaseID == "" || p.NewTask == nil {
			return nil, errors.New("updateType 'addTask' requires phaseId and newTask")
		}
		if p.NewTask.Name == "" || p.NewTask.DueDate.IsZero() {
			return nil, errors.New("newTask requires name and dueDate")
		}
		i, err := phaseIndex(phases, p.PhaseID)
		if err != nil {
			return nil, err
		}
		t := *p.NewTask
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Status == "" {
			t.Status = models.TaskPending
		}
		phases[i].Tasks = append(phases[i].Tasks, t)
		return phases, nil

	case "addPhase":
		if p.NewPhase == nil {
			return nil, errors.New("updateType 'addPhase' requires newPhase")
		}
		if p.NewPhase.Name == "" || p.NewPhase.StartDate.IsZero() || p.NewPhase.EndDate.IsZero() {
			return nil, errors.New("newPhase requires name, startDate and endDate")
		}
		ph := *p.NewPhase
		if ph.ID == "" {
			ph.ID = uuid.NewString()
		}
		return append(phases, ph), nil

	case "removePhase":
		if p.PhaseID == "" {
			return nil, errors.New("updateType 'removePhase' requires phaseId")
		}
		i, err := phaseIndex(phases, p.PhaseID)
		if err != nil {
			return nil, err
		}
		return append(phases[:i], phases[i+1:]...), nil

	case "removeTask":
		if p.PhaseID == "" || p.TaskID == "" {
			return nil, errors.New("updateType 'removeTask' requires phaseId and taskId")
		}
		i, err := phaseIndex(phases, p.PhaseID)
		if err != nil {
			return nil, err
		}
		j, err := taskIndex(phases[i].Tasks, p.TaskID)
		if err != nil {
			return nil, err
		}
		phases[i].Tasks = append(phases[i].Tasks[:j], phases[i].Tasks[j+1:]...)
		return phases, nil
	}
	return nil, fmt.Errorf("unknown updateType '%s'", p.UpdateType)
}

func phaseIndex(phases []models.Phase, id string) (int, error) {
	for i := range phases {
		if phases[i].ID == id {
			return i, nil
		}
	}
	return 0, &patchNotFoundError{kind: "Phase", id: id}
}

func taskIndex(tasks []models.Task, id string) (int, error) {
	for i := range tasks {
		if tasks[i].ID == id {
			return i, nil
		}
	}
	return 0, &patchNotFoundError{kind: "Task", id: id}
}

func applyPhaseFields(ph *models.Phase, f *PhaseUpdateFields) {
	if f.Name != nil {
		ph.Name = *f.Name
	}
	if f.Description != nil {
		ph.Description = *f.Description
	}
	if f.StartDate != nil {
		ph.StartDate = *f.StartDate
	}
	if f.EndDate != nil {
		ph.EndDate = *f.EndDate
	}
	if f.Completed != nil {
		ph.Completed = *f.Completed
	}
	if f.Type != nil {
		ph.Type = *f.Type
	}
}

func applyTaskFields(t *models.Task, f *TaskUpdateFields) {
	if f.Name != nil {
		t.Name = *f.Name
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.DueDate != nil {
		t.DueDate = *f.DueDate
	}
	if f.Status != nil {
		t.Status = *f.Status
	}
}

// validateTimeline runs struct validation over every phase and its
// tasks, collecting the itemized errors with phase/task positions so
// the caller can fix each one.
func (h *ApplicationHandler) validateTimeline(phases []models.Phase) []string {
	var errs []string
	for i, ph := range phases {
		if err := h.Validate.Struct(ph); err != nil {
			for _, msg := range utils.FormatValidationErrors(err) {
				errs = append(errs, fmt.Sprintf("phase[%d]: %s", i, msg))
			}
		}
		for j, t := range ph.Tasks {
			if err := h.Validate.Struct(t); err != nil {
				for _, msg := range utils.FormatValidationErrors(err) {
					errs = append(errs, fmt.Sprintf("phase[%d].task[%d]: %s", i, j, msg))
				}
			}
		}
	}
	return errs
}

// briefingOrNil fetches the event's briefing, tolerating absence.
func (h *ApplicationHandler) briefingOrNil(eventID string) *models.Briefing {
	b, err := h.Store.GetBriefing(eventID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.Logger.WithError(err).WithField("event_id", eventID).Warn("Failed to fetch briefing, generating without it")
		}
		return nil
	}
	return &b
}
