package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"prodflow/collab-gateway/internal/collab"
	"prodflow/collab-gateway/internal/storage"
	"prodflow/collab-gateway/models"
)

func newTestApp(t *testing.T) (*fiber.App, *ApplicationHandler) {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	h := NewApplicationHandler(store, collab.NewHub(log, nil), log)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/events", h.ListEvents)
	apiV1.Post("/events", h.CreateEvent)
	apiV1.Get("/events/:eventId", h.GetEvent)
	apiV1.Put("/events/:eventId/briefing", h.SaveBriefing)
	apiV1.Get("/events/:eventId/videos", h.ListVideoVersions)
	apiV1.Post("/events/upload-from-watcher", h.UploadFromWatcher)
	apiV1.Get("/timeline/:eventId", h.GetTimeline)
	apiV1.Post("/timeline/:eventId", h.SaveTimeline)
	apiV1.Patch("/timeline/:eventId", h.PatchTimeline)
	return app, h
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var envelope map[string]json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			t.Fatalf("decode response %q: %v", raw, err)
		}
	}
	return resp, envelope
}

func decodeData(t *testing.T, envelope map[string]json.RawMessage, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(envelope["data"], out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func createEvent(t *testing.T, app *fiber.App, date string) models.Event {
	t.Helper()
	body := map[string]interface{}{"title": "Launch film", "client": "Acme"}
	if date != "" {
		body["date"] = date
	}
	resp, envelope := doJSON(t, app, fiber.MethodPost, "/api/v1/events", body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create event status = %d", resp.StatusCode)
	}
	var event models.Event
	decodeData(t, envelope, &event)
	return event
}

func TestGetTimelineUnknownEventIs404WithID(t *testing.T) {
	app, _ := newTestApp(t)

	resp, envelope := doJSON(t, app, fiber.MethodGet, "/api/v1/timeline/no-such-event", nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if !strings.Contains(string(envelope["message"]), "no-such-event") {
		t.Errorf("message %s does not name the offending id", envelope["message"])
	}
}

func TestGetTimelineGeneratesWithoutPersisting(t *testing.T) {
	app, h := newTestApp(t)
	event := createEvent(t, app, "2025-05-18T00:00:00Z")

	resp, envelope := doJSON(t, app, fiber.MethodGet, "/api/v1/timeline/"+event.ID, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var tl TimelineResponse
	decodeData(t, envelope, &tl)
	if !tl.IsGenerated {
		t.Error("IsGenerated = false for an unpersisted timeline")
	}
	if len(tl.Timeline) != 4 {
		t.Fatalf("generated %d phases, want 4", len(tl.Timeline))
	}
	if tl.Timeline[0].Name != "Pre-production" {
		t.Errorf("first phase = %s", tl.Timeline[0].Name)
	}

	// The generation must not have been persisted.
	if _, ok, err := h.Store.GetTimeline(event.ID); err != nil || ok {
		t.Errorf("timeline persisted as a side effect (ok=%v err=%v)", ok, err)
	}
}

func TestSaveTimelineGenerateCreatesThenReplaces(t *testing.T) {
	app, _ := newTestApp(t)
	event := createEvent(t, app, "2025-05-18T00:00:00Z")

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{"generateFromBriefing": true})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("first save status = %d, want 201", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{"generateFromBriefing": true})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("replace status = %d, want 200", resp.StatusCode)
	}

	resp, envelope := doJSON(t, app, fiber.MethodGet, "/api/v1/timeline/"+event.ID, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var tl TimelineResponse
	decodeData(t, envelope, &tl)
	if tl.IsGenerated {
		t.Error("IsGenerated = true after persisting")
	}
}

func TestSaveTimelineGenerateUsesBriefingDate(t *testing.T) {
	app, _ := newTestApp(t)
	event := createEvent(t, app, "")

	resp, _ := doJSON(t, app, fiber.MethodPut, "/api/v1/events/"+event.ID+"/briefing",
		map[string]interface{}{"eventDate": "2025-06-01T00:00:00Z"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("save briefing status = %d", resp.StatusCode)
	}

	resp, envelope := doJSON(t, app, fiber.MethodPost, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{"generateFromBriefing": true})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	var tl TimelineResponse
	decodeData(t, envelope, &tl)

	prod := tl.Timeline[1]
	if got := prod.StartDate.UTC().Format("2006-01-02"); got != "2025-05-17" {
		t.Errorf("Production start = %s, want 2025-05-17", got)
	}
	if got := prod.EndDate.UTC().Format("2006-01-02"); got != "2025-05-27" {
		t.Errorf("Production end = %s, want 2025-05-27", got)
	}
}

func TestSaveTimelineValidatesPhasesItemized(t *testing.T) {
	app, _ := newTestApp(t)
	event := createEvent(t, app, "2025-05-18T00:00:00Z")

	resp, envelope := doJSON(t, app, fiber.MethodPost, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{"timeline": []map[string]interface{}{
			{"id": "p1", "startDate": "2025-05-01T00:00:00Z", "endDate": "2025-05-10T00:00:00Z"}, // missing name
			{
				"id": "p2", "name": "Edit", "startDate": "2025-05-10T00:00:00Z", "endDate": "2025-05-20T00:00:00Z",
				"tasks": []map[string]interface{}{{"id": "t1", "name": "Cut"}}, // missing dueDate
			},
		}})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var errs []string
	if err := json.Unmarshal(envelope["errors"], &errs); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "phase[0]") || !strings.Contains(errs[0], "Name") {
		t.Errorf("errs[0] = %q", errs[0])
	}
	if !strings.Contains(errs[1], "phase[1].task[0]") || !strings.Contains(errs[1], "DueDate") {
		t.Errorf("errs[1] = %q", errs[1])
	}
}

func TestPatchTimelineRequiresPersistedTimeline(t *testing.T) {
	app, _ := newTestApp(t)
	event := createEvent(t, app, "2025-05-18T00:00:00Z")

	resp, _ := doJSON(t, app, fiber.MethodPatch, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{"updateType": "removePhase", "phaseId": "p1"})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPatchTimelineUnknownIDsAre404WithID(t *testing.T) {
	app, _ := newTestApp(t)
	event := createEvent(t, app, "2025-05-18T00:00:00Z")
	doJSON(t, app, fiber.MethodPost, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{"generateFromBriefing": true})

	resp, envelope := doJSON(t, app, fiber.MethodPatch, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{"updateType": "removePhase", "phaseId": "ghost-phase"})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if !strings.Contains(string(envelope["message"]), "ghost-phase") {
		t.Errorf("message %s does not name the offending id", envelope["message"])
	}
}

func TestPatchTimelineUpdatesPhaseAndTask(t *testing.T) {
	app, _ := newTestApp(t)
	event := createEvent(t, app, "2025-05-18T00:00:00Z")

	_, envelope := doJSON(t, app, fiber.MethodPost, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{"generateFromBriefing": true})
	var tl TimelineResponse
	decodeData(t, envelope, &tl)
	phase := tl.Timeline[0]
	task := phase.Tasks[0]

	resp, envelope := doJSON(t, app, fiber.MethodPatch, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{
			"updateType": "phase",
			"phaseId":    phase.ID,
			"phase":      map[string]interface{}{"completed": true},
		})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("patch phase status = %d", resp.StatusCode)
	}
	decodeData(t, envelope, &tl)
	if !tl.Timeline[0].Completed {
		t.Error("phase not marked completed")
	}

	resp, envelope = doJSON(t, app, fiber.MethodPatch, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{
			"updateType": "task",
			"phaseId":    phase.ID,
			"taskId":     task.ID,
			"task":       map[string]interface{}{"status": "done"},
		})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("patch task status = %d", resp.StatusCode)
	}
	decodeData(t, envelope, &tl)
	if got := tl.Timeline[0].Tasks[0].Status; got != models.TaskDone {
		t.Errorf("task status = %s, want done", got)
	}
}

func TestPatchTimelineMissingSubFieldsAre400(t *testing.T) {
	app, _ := newTestApp(t)
	event := createEvent(t, app, "2025-05-18T00:00:00Z")
	doJSON(t, app, fiber.MethodPost, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{"generateFromBriefing": true})

	resp, _ := doJSON(t, app, fiber.MethodPatch, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{"updateType": "addTask", "phaseId": "whatever"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

// Replaying a timeline as addPhase/addTask operations against an empty
// timeline reconstructs an equivalent one: same names and dates, ids
// may differ.
func TestPatchReplayReconstructsTimeline(t *testing.T) {
	app, _ := newTestApp(t)
	event := createEvent(t, app, "2025-05-18T00:00:00Z")

	_, envelope := doJSON(t, app, fiber.MethodPost, "/api/v1/timeline/"+event.ID,
		map[string]interface{}{"generateFromBriefing": true})
	var original TimelineResponse
	decodeData(t, envelope, &original)

	replica := createEvent(t, app, "")
	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/timeline/"+replica.ID,
		map[string]interface{}{"timeline": []models.Phase{}})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("seed empty timeline status = %d", resp.StatusCode)
	}

	for _, phase := range original.Timeline {
		resp, envelope = doJSON(t, app, fiber.MethodPatch, "/api/v1/timeline/"+replica.ID,
			map[string]interface{}{
				"updateType": "addPhase",
				"newPhase": models.Phase{
					Name:        phase.Name,
					Description: phase.Description,
					StartDate:   phase.StartDate,
					EndDate:     phase.EndDate,
					Type:        phase.Type,
				},
			})
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("addPhase %s status = %d", phase.Name, resp.StatusCode)
		}
		var current TimelineResponse
		decodeData(t, envelope, &current)
		newPhaseID := current.Timeline[len(current.Timeline)-1].ID

		for _, task := range phase.Tasks {
			resp, envelope = doJSON(t, app, fiber.MethodPatch, "/api/v1/timeline/"+replica.ID,
				map[string]interface{}{
					"updateType": "addTask",
					"phaseId":    newPhaseID,
					"newTask": models.Task{
						Name:        task.Name,
						Description: task.Description,
						DueDate:     task.DueDate,
						Status:      task.Status,
					},
				})
			if resp.StatusCode != fiber.StatusOK {
				t.Fatalf("addTask %s status = %d", task.Name, resp.StatusCode)
			}
		}
	}

	_, envelope = doJSON(t, app, fiber.MethodGet, "/api/v1/timeline/"+replica.ID, nil)
	var rebuilt TimelineResponse
	decodeData(t, envelope, &rebuilt)

	if len(rebuilt.Timeline) != len(original.Timeline) {
		t.Fatalf("rebuilt %d phases, want %d", len(rebuilt.Timeline), len(original.Timeline))
	}
	for i, want := range original.Timeline {
		got := rebuilt.Timeline[i]
		if got.Name != want.Name || !got.StartDate.Equal(want.StartDate) || !got.EndDate.Equal(want.EndDate) {
			t.Errorf("phase[%d] = %s [%s..%s], want %s [%s..%s]",
				i, got.Name, got.StartDate, got.EndDate, want.Name, want.StartDate, want.EndDate)
		}
		if got.ID == want.ID {
			t.Errorf("phase[%d] reused id %s", i, got.ID)
		}
		if len(got.Tasks) != len(want.Tasks) {
			t.Fatalf("phase[%d] has %d tasks, want %d", i, len(got.Tasks), len(want.Tasks))
		}
		for j, wt := range want.Tasks {
			gt := got.Tasks[j]
			if gt.Name != wt.Name || !gt.DueDate.Equal(wt.DueDate) {
				t.Errorf("phase[%d].task[%d] = %s @%s, want %s @%s", i, j, gt.Name, gt.DueDate, wt.Name, wt.DueDate)
			}
		}
	}
}

func TestUploadFromWatcherRecordsVersion(t *testing.T) {
	app, _ := newTestApp(t)
	event := createEvent(t, app, "2025-05-18T00:00:00Z")

	resp, envelope := doJSON(t, app, fiber.MethodPost, "/api/v1/events/upload-from-watcher",
		map[string]interface{}{
			"eventId":   event.ID,
			"fileName":  "launch_v2.mp4",
			"filePath":  "/exports/launch_v2.mp4",
			"sizeBytes": 1024,
		})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var version models.VideoVersion
	decodeData(t, envelope, &version)
	if version.ID == "" || version.EventID != event.ID {
		t.Errorf("version = %+v", version)
	}

	_, envelope = doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/v1/events/%s/videos", event.ID), nil)
	var versions []models.VideoVersion
	decodeData(t, envelope, &versions)
	if len(versions) != 1 || versions[0].FileName != "launch_v2.mp4" {
		t.Errorf("versions = %+v", versions)
	}
}

func TestUploadFromWatcherValidatesPayload(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/events/upload-from-watcher",
		map[string]interface{}{"fileName": "clip.mp4"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
