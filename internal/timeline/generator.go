// Package timeline derives project schedules from briefing data and
// lays phases out proportionally for rendering.
package timeline

import (
	"time"

	"github.com/google/uuid"

	"prodflow/collab-gateway/models"
)

// Generate produces the standard four-phase schedule anchored on the
// event date. The anchor is briefing.EventDate when present, then
// event.Date, then now. Every date is pure offset arithmetic from the
// anchor; now is only ever the fallback anchor. Re-invoking with the
// same inputs yields the same dates with fresh ids.
//
// Phases are always returned in the order Pre-production, Production,
// Post-production, Delivery.
func Generate(briefing *models.Briefing, event *models.Event, now time.Time) []models.Phase {
	if briefing == nil && event == nil {
		return []models.Phase{}
	}

	anchor := now
	switch {
	case briefing != nil && briefing.EventDate != nil:
		anchor = *briefing.EventDate
	case event != nil && event.Date != nil:
		anchor = *event.Date
	}

	preStart := anchor.AddDate(0, 0, -30)
	prodStart := anchor.AddDate(0, 0, -15)
	postStart := anchor.AddDate(0, 0, -5)

	return []models.Phase{
		{
			ID:          uuid.NewString(),
			Name:        "Pre-production",
			Description: "Planning and preparation",
			StartDate:   preStart,
			EndDate:     preStart.AddDate(0, 0, 15),
			Type:        "planning",
			Tasks: []models.Task{
				task("Kickoff meeting", "Align expectations with the client", preStart.AddDate(0, 0, 2)),
				task("Script development", "Develop the base content", preStart.AddDate(0, 0, 7)),
			},
		},
		{
			ID:          uuid.NewString(),
			Name:        "Production",
			Description: "Capture and content creation",
			StartDate:   prodStart,
			EndDate:     prodStart.AddDate(0, 0, 10),
			Type:        "production",
			Tasks: []models.Task{
				task("Video capture", "Shoot the content", prodStart.AddDate(0, 0, 3)),
				task("Footage backup", "Organize and back up all material", prodStart.AddDate(0, 0, 4)),
			},
		},
		{
			ID:          uuid.NewString(),
			Name:        "Post-production",
			Description: "Editing and finishing",
			StartDate:   postStart,
			EndDate:     postStart.AddDate(0, 0, 3),
			Type:        "post-production",
			Tasks: []models.Task{
				task("Rough cut", "First pass of the edit", postStart.AddDate(0, 0, 1)),
				task("Client review", "Review round with the client", postStart.AddDate(0, 0, 2)),
				task("Final adjustments", "Apply review feedback", postStart.AddDate(0, 0, 3)),
			},
		},
		{
			ID:          uuid.NewString(),
			Name:        "Delivery",
			Description: "Handover of final files",
			StartDate:   anchor,
			EndDate:     anchor,
			Type:        "delivery",
			Tasks: []models.Task{
				task("Final delivery", "Make the final files available", anchor),
			},
		},
	}
}

func task(name, description string, due time.Time) models.Task {
	return models.Task{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		DueDate:     due,
		Status:      models.TaskPending,
	}
}
