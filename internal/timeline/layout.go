package timeline

import (
	"sort"
	"time"

	"prodflow/collab-gateway/models"
)

// PhaseStatus is derived at render time, never stored.
type PhaseStatus string

const (
	StatusDone       PhaseStatus = "done"
	StatusOverdue    PhaseStatus = "overdue"
	StatusInProgress PhaseStatus = "in-progress"
	StatusPending    PhaseStatus = "pending"
)

// minVisibleDuration keeps zero-duration phases (Delivery) from
// collapsing to an invisible sliver.
const minVisibleDuration = 12 * time.Hour

// Column is one phase placed on the proportional grid.
type Column struct {
	Phase        models.Phase
	Fraction     float64 // share of the total width, all columns sum to 1
	Status       PhaseStatus
	EndsAfterDue bool // phase runs past the project's final due date
}

// Layout is the proportional rendering of a phase set.
type Layout struct {
	Start   time.Time
	End     time.Time
	Columns []Column
	// DueMarker is the fractional x-position of the final-due-date
	// line, pinned to 0 or 1 when the date falls outside the window.
	// Nil when no final due date was given.
	DueMarker *float64
}

// Compute lays out phases proportionally between the earliest start
// and the latest end (extended by finalDueDate when that is later).
// The input order does not matter; columns come back sorted by start
// date. now drives status derivation only.
func Compute(phases []models.Phase, finalDueDate *time.Time, now time.Time) Layout {
	if len(phases) == 0 {
		return Layout{}
	}

	sorted := make([]models.Phase, len(phases))
	copy(sorted, phases)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})

	start := sorted[0].StartDate
	end := sorted[0].EndDate
	for _, p := range sorted[1:] {
		if p.EndDate.After(end) {
			end = p.EndDate
		}
	}
	if finalDueDate != nil && finalDueDate.After(end) {
		end = *finalDueDate
	}

	columns := make([]Column, len(sorted))
	var rawTotal float64
	for i, p := range sorted {
		d := p.Duration()
		if d < minVisibleDuration {
			d = minVisibleDuration
		}
		columns[i] = Column{
			Phase:        p,
			Fraction:     float64(d),
			Status:       deriveStatus(p, now),
			EndsAfterDue: finalDueDate != nil && p.EndDate.After(*finalDueDate),
		}
		rawTotal += float64(d)
	}
	// The 12h floor can push the raw sum past the window span, so
	// fractions are normalized against the floored total rather than
	// the wall-clock window.
	for i := range columns {
		columns[i].Fraction /= rawTotal
	}

	layout := Layout{Start: start, End: end, Columns: columns}

	if finalDueDate != nil {
		span := end.Sub(start)
		var pos float64
		switch {
		case span <= 0:
			pos = 1
		case finalDueDate.Before(start):
			pos = 0
		case finalDueDate.After(end):
			pos = 1
		default:
			pos = float64(finalDueDate.Sub(start)) / float64(span)
		}
		layout.DueMarker = &pos
	}

	return layout
}

// deriveStatus: the completed flag always wins; otherwise the phase is
// placed relative to now.
func deriveStatus(p models.Phase, now time.Time) PhaseStatus {
	if p.Completed {
		return StatusDone
	}
	if p.EndDate.Before(now) {
		return StatusOverdue
	}
	if !p.StartDate.After(now) && !p.EndDate.Before(now) {
		return StatusInProgress
	}
	return StatusPending
}
