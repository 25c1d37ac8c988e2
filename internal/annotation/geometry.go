package annotation

import (
	"math"

	"prodflow/collab-gateway/models"
)

// ShapeKind discriminates the renderable primitive a tool produces.
type ShapeKind string

const (
	ShapeNone     ShapeKind = "none"
	ShapePolyline ShapeKind = "polyline"
	ShapeSegments ShapeKind = "segments"
	ShapeRect     ShapeKind = "rect"
	ShapeEllipse  ShapeKind = "ellipse"
	ShapeText     ShapeKind = "text"
)

// Stroke carries the paint settings for a shape.
type Stroke struct {
	Color     string
	Width     float64
	Opacity   float64 // 0..1, applied once per annotation
	RoundCaps bool
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

// Ellipse is a center + radii pair.
type Ellipse struct {
	CX, CY, RX, RY float64
}

// TextAnchor places a text annotation.
type TextAnchor struct {
	At       models.Point
	Content  string
	FontSize float64 // px
}

// Shape is the visual primitive computed for one annotation. Exactly
// the fields implied by Kind are populated.
type Shape struct {
	Kind     ShapeKind
	Stroke   Stroke
	Polyline []models.Point
	Segments [][2]models.Point
	Rect     Rect
	Ellipse  Ellipse
	Text     TextAnchor
}

const (
	arrowHeadLength    = 15.0           // px
	arrowHeadHalfAngle = math.Pi / 6    // 30 degrees off the shaft
	highlighterOpacity = 0.3
	minTextFontSize    = 12.0
)

// ComputeShape turns an annotation into its renderable primitive. It
// is total: degenerate input (no points, fewer than two points for a
// geometric tool, the eraser tool) yields ShapeNone rather than an
// error, so a renderer can always iterate a mixed annotation set and
// draw whatever is drawable.
func ComputeShape(a models.Annotation) Shape {
	if len(a.Points) == 0 {
		return Shape{Kind: ShapeNone}
	}

	stroke := Stroke{
		Color:     a.Color,
		Width:     float64(a.Thickness),
		Opacity:   1,
		RoundCaps: true,
	}

	switch a.Tool {
	case models.ToolPen:
		if len(a.Points) < 2 {
			return Shape{Kind: ShapeNone}
		}
		return Shape{Kind: ShapePolyline, Stroke: stroke, Polyline: a.Points}

	case models.ToolHighlighter:
		if len(a.Points) < 2 {
			return Shape{Kind: ShapeNone}
		}
		stroke.Width *= 2
		stroke.Opacity = highlighterOpacity
		return Shape{Kind: ShapePolyline, Stroke: stroke, Polyline: a.Points}

	case models.ToolArrow:
		if len(a.Points) < 2 {
			return Shape{Kind: ShapeNone}
		}
		return Shape{Kind: ShapeSegments, Stroke: stroke, Segments: arrowSegments(a.Points[0], a.Points[len(a.Points)-1])}

	case models.ToolRectangle:
		if len(a.Points) < 2 {
			return Shape{Kind: ShapeNone}
		}
		// Intermediate points are ignored: the box is spanned by the
		// first and last point only.
		return Shape{Kind: ShapeRect, Stroke: stroke, Rect: boundingRect(a.Points[0], a.Points[len(a.Points)-1])}

	case models.ToolEllipse:
		if len(a.Points) < 2 {
			return Shape{Kind: ShapeNone}
		}
		r := boundingRect(a.Points[0], a.Points[len(a.Points)-1])
		return Shape{Kind: ShapeEllipse, Stroke: stroke, Ellipse: Ellipse{
			CX: r.X + r.W/2,
			CY: r.Y + r.H/2,
			RX: r.W / 2,
			RY: r.H / 2,
		}}

	case models.ToolText:
		if a.Text == "" {
			return Shape{Kind: ShapeNone}
		}
		return Shape{Kind: ShapeText, Stroke: stroke, Text: TextAnchor{
			At:       a.Points[0],
			Content:  a.Text,
			FontSize: math.Max(minTextFontSize, float64(a.Thickness)*5),
		}}

	case models.ToolEraser:
		// Accepted into the model, never rendered.
		return Shape{Kind: ShapeNone}
	}

	return Shape{Kind: ShapeNone}
}

// arrowSegments returns the shaft plus the two head strokes, angled
// arrowHeadHalfAngle off the shaft direction at the endpoint.
func arrowSegments(start, end models.Point) [][2]models.Point {
	angle := math.Atan2(end.Y-start.Y, end.X-start.X)
	left := models.Point{
		X: end.X - arrowHeadLength*math.Cos(angle-arrowHeadHalfAngle),
		Y: end.Y - arrowHeadLength*math.Sin(angle-arrowHeadHalfAngle),
	}
	right := models.Point{
		X: end.X - arrowHeadLength*math.Cos(angle+arrowHeadHalfAngle),
		Y: end.Y - arrowHeadLength*math.Sin(angle+arrowHeadHalfAngle),
	}
	return [][2]models.Point{
		{start, end},
		{end, left},
		{end, right},
	}
}

func boundingRect(a, b models.Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}
