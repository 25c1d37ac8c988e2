// Package storage provides the persistence backends the gateway
// consumes: a flat-file store and a Supabase store for events,
// briefings and timelines, and a badger-backed archive for durable
// review-session state.
package storage

import (
	"errors"

	"prodflow/collab-gateway/models"
)

// ErrNotFound is returned for lookups of ids that do not exist.
var ErrNotFound = errors.New("not found")

// TimelineStore is the persistence contract the REST handlers consume.
// Events, briefings and timelines are independent collections with no
// cross-collection transactional guarantees.
type TimelineStore interface {
	ListEvents() ([]models.Event, error)
	GetEvent(eventID string) (models.Event, error)
	SaveEvent(e models.Event) error

	GetBriefing(eventID string) (models.Briefing, error)
	SaveBriefing(b models.Briefing) error

	// GetTimeline returns the stored phases; ok is false when no
	// timeline has been persisted for the event yet.
	GetTimeline(eventID string) (phases []models.Phase, ok bool, err error)
	// SaveTimeline persists phases wholesale, replacing any prior
	// timeline. created reports whether this was the first save.
	SaveTimeline(eventID string, phases []models.Phase) (created bool, err error)

	SaveVideoVersion(v models.VideoVersion) error
	ListVideoVersions(eventID string) ([]models.VideoVersion, error)

	Close() error
}
