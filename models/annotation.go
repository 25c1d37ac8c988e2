package models

// AnnotationTool identifies the drawing tool that produced an annotation.
type AnnotationTool string

const (
	ToolPen         AnnotationTool = "pen"
	ToolHighlighter AnnotationTool = "highlighter"
	ToolArrow       AnnotationTool = "arrow"
	ToolRectangle   AnnotationTool = "rectangle"
	ToolEllipse     AnnotationTool = "ellipse"
	ToolText        AnnotationTool = "text"
	// ToolEraser is accepted into the model but has no rendering
	// semantics. Kept so clients that expose the tool do not get
	// rejected at the protocol boundary.
	ToolEraser AnnotationTool = "eraser"
)

// ValidTool reports whether t is one of the known annotation tools.
func ValidTool(t AnnotationTool) bool {
	switch t {
	case ToolPen, ToolHighlighter, ToolArrow, ToolRectangle, ToolEllipse, ToolText, ToolEraser:
		return true
	}
	return false
}

// Point is a coordinate in video-pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Annotation is a timed visual mark drawn over a video frame.
// Points is append-only while Completed is false; once completed the
// annotation is immutable except for deletion.
type Annotation struct {
	ID        string         `json:"id"`
	TimeStart float64        `json:"timeStart"` // seconds
	TimeEnd   float64        `json:"timeEnd"`   // seconds, > TimeStart
	Tool      AnnotationTool `json:"tool"`
	Color     string         `json:"color"`
	Thickness int            `json:"thickness"` // pixels
	Points    []Point        `json:"points"`
	Text      string         `json:"text,omitempty"` // required iff Tool == ToolText
	Completed bool           `json:"completed"`
	UserID    string         `json:"userId,omitempty"`
	UserName  string         `json:"userName,omitempty"`
	UserColor string         `json:"userColor,omitempty"`
}

// VisibleAt reports whether the annotation should be shown at playback
// time t.
func (a *Annotation) VisibleAt(t float64) bool {
	return a.TimeStart <= t && t <= a.TimeEnd
}
