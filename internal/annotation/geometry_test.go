package annotation

import (
	"math"
	"testing"

	"prodflow/collab-gateway/models"
)

func TestPenProducesPolyline(t *testing.T) {
	a := models.Annotation{
		Tool: models.ToolPen, Color: "#112233", Thickness: 4,
		Points: []models.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 0}},
	}
	s := ComputeShape(a)
	if s.Kind != ShapePolyline {
		t.Fatalf("Kind = %v, want polyline", s.Kind)
	}
	if len(s.Polyline) != 3 {
		t.Errorf("polyline has %d points, want 3", len(s.Polyline))
	}
	if s.Stroke.Width != 4 || s.Stroke.Opacity != 1 || !s.Stroke.RoundCaps {
		t.Errorf("stroke = %+v", s.Stroke)
	}
}

func TestHighlighterDoublesWidthAtReducedOpacity(t *testing.T) {
	a := models.Annotation{
		Tool: models.ToolHighlighter, Thickness: 6,
		Points: []models.Point{{X: 0, Y: 0}, {X: 10, Y: 0}},
	}
	s := ComputeShape(a)
	if s.Kind != ShapePolyline {
		t.Fatalf("Kind = %v, want polyline", s.Kind)
	}
	if s.Stroke.Width != 12 {
		t.Errorf("Width = %v, want 12", s.Stroke.Width)
	}
	if s.Stroke.Opacity != 0.3 {
		t.Errorf("Opacity = %v, want 0.3", s.Stroke.Opacity)
	}
}

func TestArrowHeadGeometry(t *testing.T) {
	a := models.Annotation{
		Tool: models.ToolArrow, Thickness: 2,
		Points: []models.Point{{X: 0, Y: 0}, {X: 100, Y: 0}},
	}
	s := ComputeShape(a)
	if s.Kind != ShapeSegments {
		t.Fatalf("Kind = %v, want segments", s.Kind)
	}
	if len(s.Segments) != 3 {
		t.Fatalf("expected shaft + 2 head strokes, got %d segments", len(s.Segments))
	}
	end := s.Segments[0][1]
	for i := 1; i <= 2; i++ {
		tip := s.Segments[i][1]
		dist := math.Hypot(tip.X-end.X, tip.Y-end.Y)
		if math.Abs(dist-15) > 1e-9 {
			t.Errorf("head stroke %d length = %v, want 15", i, dist)
		}
		// For a horizontal shaft the head strokes land 15*cos(30°)
		// behind the tip.
		wantX := 100 - 15*math.Cos(math.Pi/6)
		if math.Abs(tip.X-wantX) > 1e-9 {
			t.Errorf("head stroke %d x = %v, want %v", i, tip.X, wantX)
		}
	}
}

func TestRectangleUsesFirstAndLastPointOnly(t *testing.T) {
	a := models.Annotation{
		Tool: models.ToolRectangle, Thickness: 2,
		// The wild intermediate point must not affect the box.
		Points: []models.Point{{X: 10, Y: 10}, {X: 900, Y: -900}, {X: 50, Y: 40}},
	}
	s := ComputeShape(a)
	if s.Kind != ShapeRect {
		t.Fatalf("Kind = %v, want rect", s.Kind)
	}
	want := Rect{X: 10, Y: 10, W: 40, H: 30}
	if s.Rect != want {
		t.Errorf("Rect = %+v, want %+v", s.Rect, want)
	}
}

func TestEllipseRadii(t *testing.T) {
	a := models.Annotation{
		Tool: models.ToolEllipse, Thickness: 2,
		Points: []models.Point{{X: 0, Y: 0}, {X: 20, Y: 10}},
	}
	s := ComputeShape(a)
	if s.Kind != ShapeEllipse {
		t.Fatalf("Kind = %v, want ellipse", s.Kind)
	}
	want := Ellipse{CX: 10, CY: 5, RX: 10, RY: 5}
	if s.Ellipse != want {
		t.Errorf("Ellipse = %+v, want %+v", s.Ellipse, want)
	}
}

func TestTextFontSize(t *testing.T) {
	a := models.Annotation{
		Tool: models.ToolText, Thickness: 1, Text: "note",
		Points: []models.Point{{X: 7, Y: 8}},
	}
	s := ComputeShape(a)
	if s.Kind != ShapeText {
		t.Fatalf("Kind = %v, want text", s.Kind)
	}
	if s.Text.FontSize != 12 {
		t.Errorf("thickness 1: FontSize = %v, want floor of 12", s.Text.FontSize)
	}

	a.Thickness = 4
	if got := ComputeShape(a).Text.FontSize; got != 20 {
		t.Errorf("thickness 4: FontSize = %v, want 20", got)
	}
}

func TestDegenerateInputsRenderNothing(t *testing.T) {
	cases := []struct {
		name string
		a    models.Annotation
	}{
		{"no points", models.Annotation{Tool: models.ToolPen}},
		{"single point pen", models.Annotation{Tool: models.ToolPen, Points: []models.Point{{X: 1, Y: 1}}}},
		{"single point arrow", models.Annotation{Tool: models.ToolArrow, Points: []models.Point{{X: 1, Y: 1}}}},
		{"single point rectangle", models.Annotation{Tool: models.ToolRectangle, Points: []models.Point{{X: 1, Y: 1}}}},
		{"eraser", models.Annotation{Tool: models.ToolEraser, Points: []models.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}},
		{"text without content", models.Annotation{Tool: models.ToolText, Points: []models.Point{{X: 1, Y: 1}}}},
		{"unknown tool", models.Annotation{Tool: "spray", Points: []models.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}},
	}
	for _, c := range cases {
		if s := ComputeShape(c.a); s.Kind != ShapeNone {
			t.Errorf("%s: Kind = %v, want none", c.name, s.Kind)
		}
	}
}
