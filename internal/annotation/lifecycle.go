// Package annotation holds the drawing-side logic for video
// annotations: the creation lifecycle and the pure geometry that turns
// a point sequence into a renderable shape.
package annotation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"prodflow/collab-gateway/models"
)

// VisibilityWindow is how long a freshly started annotation stays
// visible past its creation time.
const VisibilityWindow = 5.0 // seconds

var (
	ErrCompleted     = errors.New("annotation already completed")
	ErrTextAppend    = errors.New("text annotations carry exactly one point")
	ErrNoPoints      = errors.New("annotation has no points")
	ErrEmptyText     = errors.New("text annotation requires non-empty text")
	ErrUnknownTool   = errors.New("unknown annotation tool")
	ErrBadTimeRange  = errors.New("timeEnd must be greater than timeStart")
	ErrBadThickness  = errors.New("thickness must be positive")
)

// Start creates a new in-progress annotation anchored at the current
// playback time. The visibility window is applied up front so remote
// viewers who receive the in-progress broadcast see it for a sensible
// span even before it is completed.
func Start(tool models.AnnotationTool, color string, thickness int, initial models.Point, author models.CollaborationUser, playbackTime float64) (models.Annotation, error) {
	if !models.ValidTool(tool) {
		return models.Annotation{}, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
	if thickness <= 0 {
		return models.Annotation{}, ErrBadThickness
	}
	return models.Annotation{
		ID:        uuid.NewString(),
		TimeStart: playbackTime,
		TimeEnd:   playbackTime + VisibilityWindow,
		Tool:      tool,
		Color:     color,
		Thickness: thickness,
		Points:    []models.Point{initial},
		Completed: false,
		UserID:    author.ID,
		UserName:  author.Name,
		UserColor: author.Color,
	}, nil
}

// AppendPoint adds a point to an in-progress annotation. Text
// annotations keep their single anchor point; the text itself arrives
// through a separate submit step.
func AppendPoint(a models.Annotation, p models.Point) (models.Annotation, error) {
	if a.Completed {
		return a, ErrCompleted
	}
	if a.Tool == models.ToolText {
		return a, ErrTextAppend
	}
	a.Points = append(a.Points, p)
	return a, nil
}

// SetText attaches the submitted text to a text annotation.
func SetText(a models.Annotation, text string) (models.Annotation, error) {
	if a.Completed {
		return a, ErrCompleted
	}
	if strings.TrimSpace(text) == "" {
		return a, ErrEmptyText
	}
	a.Text = text
	return a, nil
}

// Complete finalizes an annotation. Completing twice is an error;
// callers treat the first completion as the moment the annotation
// enters the persisted, exportable set.
func Complete(a models.Annotation) (models.Annotation, error) {
	if a.Completed {
		return a, ErrCompleted
	}
	a.Completed = true
	return a, nil
}

// Validate is the client-side gate that keeps degenerate annotations
// from ever reaching the wire.
func Validate(a models.Annotation) error {
	if !models.ValidTool(a.Tool) {
		return fmt.Errorf("%w: %q", ErrUnknownTool, a.Tool)
	}
	if len(a.Points) == 0 {
		return ErrNoPoints
	}
	if a.TimeEnd <= a.TimeStart {
		return ErrBadTimeRange
	}
	if a.Thickness <= 0 {
		return ErrBadThickness
	}
	if a.Tool == models.ToolText && strings.TrimSpace(a.Text) == "" {
		return ErrEmptyText
	}
	return nil
}
