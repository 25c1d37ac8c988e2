package models

import "time"

// Briefing is the saved briefing snapshot for an event. Only the
// fields the timeline generator reads are modelled; the briefing form
// itself round-trips whatever sections the client saves.
type Briefing struct {
	EventID   string                 `json:"eventId"`
	EventDate *time.Time             `json:"eventDate,omitempty"`
	Sections  map[string]interface{} `json:"sections,omitempty"`
	UpdatedAt time.Time              `json:"updatedAt"`
}
