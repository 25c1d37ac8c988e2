package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"prodflow/collab-gateway/models"
)

// FileStore keeps each collection in one JSON file under a data
// directory, mirroring the flat-file layout the desktop app uses.
// Writes go through a temp file plus rename so a crash never leaves a
// half-written collection, and a per-store mutex serializes access
// within the process.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

const (
	eventsFile    = "events.json"
	briefingsFile = "briefings.json"
	timelinesFile = "timelines.json"
	videosFile    = "videos.json"
)

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Close() error { return nil }

func readJSONFile[T any](path string, into *T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, into)
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *FileStore) ListEvents() ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []models.Event
	if err := readJSONFile(s.path(eventsFile), &events); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

func (s *FileStore) GetEvent(eventID string) (models.Event, error) {
	events, err := s.ListEvents()
	if err != nil {
		return models.Event{}, err
	}
	for _, e := range events {
		if e.ID == eventID {
			return e, nil
		}
	}
	return models.Event{}, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
}

func (s *FileStore) SaveEvent(e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []models.Event
	if err := readJSONFile(s.path(eventsFile), &events); err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	replaced := false
	for i := range events {
		if events[i].ID == e.ID {
			events[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		events = append(events, e)
	}
	return writeJSONFile(s.path(eventsFile), events)
}

func (s *FileStore) GetBriefing(eventID string) (models.Briefing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	briefings := map[string]models.Briefing{}
	if err := readJSONFile(s.path(briefingsFile), &briefings); err != nil {
		return models.Briefing{}, fmt.Errorf("read briefings: %w", err)
	}
	b, ok := briefings[eventID]
	if !ok {
		return models.Briefing{}, fmt.Errorf("briefing for event %s: %w", eventID, ErrNotFound)
	}
	return b, nil
}

func (s *FileStore) SaveBriefing(b models.Briefing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	briefings := map[string]models.Briefing{}
	if err := readJSONFile(s.path(briefingsFile), &briefings); err != nil {
		return fmt.Errorf("read briefings: %w", err)
	}
	briefings[b.EventID] = b
	return writeJSONFile(s.path(briefingsFile), briefings)
}

func (s *FileStore) GetTimeline(eventID string) ([]models.Phase, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	timelines := map[string][]models.Phase{}
	if err := readJSONFile(s.path(timelinesFile), &timelines); err != nil {
		return nil, false, fmt.Errorf("read timelines: %w", err)
	}
	phases, ok := timelines[eventID]
	return phases, ok, nil
}

func (s *FileStore) SaveTimeline(eventID string, phases []models.Phase) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	timelines := map[string][]models.Phase{}
	if err := readJSONFile(s.path(timelinesFile), &timelines); err != nil {
		return false, fmt.Errorf("read timelines: %w", err)
	}
	_, existed := timelines[eventID]
	timelines[eventID] = phases
	if err := writeJSONFile(s.path(timelinesFile), timelines); err != nil {
		return false, err
	}
	return !existed, nil
}

func (s *FileStore) SaveVideoVersion(v models.VideoVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	videos := map[string][]models.VideoVersion{}
	if err := readJSONFile(s.path(videosFile), &videos); err != nil {
		return fmt.Errorf("read videos: %w", err)
	}
	videos[v.EventID] = append(videos[v.EventID], v)
	return writeJSONFile(s.path(videosFile), videos)
}

func (s *FileStore) ListVideoVersions(eventID string) ([]models.VideoVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	videos := map[string][]models.VideoVersion{}
	if err := readJSONFile(s.path(videosFile), &videos); err != nil {
		return nil, fmt.Errorf("read videos: %w", err)
	}
	return videos[eventID], nil
}
