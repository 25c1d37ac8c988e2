package storage

import (
	"encoding/json"
	"fmt"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"prodflow/collab-gateway/models"
)

// SupabaseStore backs the same contract with hosted Postgres through
// the Supabase REST client. Each collection maps to a table; timeline
// phases and briefing sections travel as jsonb columns.
type SupabaseStore struct {
	client *supa.Client
}

// NewSupabaseStore dials the project URL with the given API key.
func NewSupabaseStore(url, key string) (*SupabaseStore, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("init supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

func (s *SupabaseStore) Close() error { return nil }

type timelineRow struct {
	EventID string          `json:"event_id"`
	Phases  json.RawMessage `json:"phases"`
}

type briefingRow struct {
	EventID  string          `json:"event_id"`
	Briefing json.RawMessage `json:"briefing"`
}

func (s *SupabaseStore) ListEvents() ([]models.Event, error) {
	body, _, err := s.client.From("events").Select("*", "", false).Execute()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	var events []models.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

func (s *SupabaseStore) GetEvent(eventID string) (models.Event, error) {
	body, _, err := s.client.From("events").Select("*", "", false).Eq("id", eventID).Execute()
	if err != nil {
		return models.Event{}, fmt.Errorf("get event %s: %w", eventID, err)
	}
	var events []models.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return models.Event{}, fmt.Errorf("decode event %s: %w", eventID, err)
	}
	if len(events) == 0 {
		return models.Event{}, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	return events[0], nil
}

func (s *SupabaseStore) SaveEvent(e models.Event) error {
	_, _, err := s.client.From("events").
		Upsert(e, "id", "representation", "").
		Execute()
	if err != nil {
		return fmt.Errorf("save event %s: %w", e.ID, err)
	}
	return nil
}

func (s *SupabaseStore) GetBriefing(eventID string) (models.Briefing, error) {
	body, _, err := s.client.From("briefings").Select("*", "", false).Eq("event_id", eventID).Execute()
	if err != nil {
		return models.Briefing{}, fmt.Errorf("get briefing %s: %w", eventID, err)
	}
	var rows []briefingRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return models.Briefing{}, fmt.Errorf("decode briefing %s: %w", eventID, err)
	}
	if len(rows) == 0 {
		return models.Briefing{}, fmt.Errorf("briefing for event %s: %w", eventID, ErrNotFound)
	}
	var b models.Briefing
	if err := json.Unmarshal(rows[0].Briefing, &b); err != nil {
		return models.Briefing{}, fmt.Errorf("decode briefing payload %s: %w", eventID, err)
	}
	return b, nil
}

func (s *SupabaseStore) SaveBriefing(b models.Briefing) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode briefing %s: %w", b.EventID, err)
	}
	_, _, err = s.client.From("briefings").
		Upsert(briefingRow{EventID: b.EventID, Briefing: payload}, "event_id", "representation", "").
		Execute()
	if err != nil {
		return fmt.Errorf("save briefing %s: %w", b.EventID, err)
	}
	return nil
}

func (s *SupabaseStore) GetTimeline(eventID string) ([]models.Phase, bool, error) {
	body, _, err := s.client.From("timelines").Select("*", "", false).Eq("event_id", eventID).Execute()
	if err != nil {
		return nil, false, fmt.Errorf("get timeline %s: %w", eventID, err)
	}
	var rows []timelineRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, false, fmt.Errorf("decode timeline %s: %w", eventID, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	var phases []models.Phase
	if err := json.Unmarshal(rows[0].Phases, &phases); err != nil {
		return nil, false, fmt.Errorf("decode timeline phases %s: %w", eventID, err)
	}
	return phases, true, nil
}

func (s *SupabaseStore) SaveTimeline(eventID string, phases []models.Phase) (bool, error) {
	_, existed, err := s.GetTimeline(eventID)
	if err != nil {
		return false, err
	}
	payload, err := json.Marshal(phases)
	if err != nil {
		return false, fmt.Errorf("encode timeline %s: %w", eventID, err)
	}
	_, _, err = s.client.From("timelines").
		Upsert(timelineRow{EventID: eventID, Phases: payload}, "event_id", "representation", "").
		Execute()
	if err != nil {
		return false, fmt.Errorf("save timeline %s: %w", eventID, err)
	}
	return !existed, nil
}

func (s *SupabaseStore) SaveVideoVersion(v models.VideoVersion) error {
	_, _, err := s.client.From("video_versions").
		Insert(v, false, "", "representation", "").
		Execute()
	if err != nil {
		return fmt.Errorf("save video version %s: %w", v.ID, err)
	}
	return nil
}

func (s *SupabaseStore) ListVideoVersions(eventID string) ([]models.VideoVersion, error) {
	body, _, err := s.client.From("video_versions").
		Select("*", "", false).
		Eq("event_id", eventID).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list video versions %s: %w", eventID, err)
	}
	var versions []models.VideoVersion
	if err := json.Unmarshal(body, &versions); err != nil {
		return nil, fmt.Errorf("decode video versions %s: %w", eventID, err)
	}
	return versions, nil
}
