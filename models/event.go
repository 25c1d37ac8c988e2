package models

import "time"

// Event is a production event (shoot, launch, conference) that
// briefings and timelines hang off of.
type Event struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Client    string     `json:"client,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// VideoVersion records a media file the watcher process found for an
// event deliverable.
type VideoVersion struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	FileName  string    `json:"fileName"`
	FilePath  string    `json:"filePath"`
	SizeBytes int64     `json:"sizeBytes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
