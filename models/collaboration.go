package models

// CollaborationUser is a participant in a review session. Color is the
// display color assigned when the user joins; it tags the user's
// cursor and in-progress annotations on every other participant's
// screen.
type CollaborationUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Role  string `json:"role,omitempty"`
}

// CursorPosition is a participant cursor location in video-pixel
// space. Broadcast best-effort; stale positions are simply overwritten.
type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CollaborationState is the authoritative aggregate for one session.
// The server owns it; clients receive a full copy on join (catch-up)
// and patch their local copy from relayed events afterwards. Playback
// fields are last-writer-wins.
type CollaborationState struct {
	Users       []CollaborationUser `json:"users"`
	Comments    []Comment           `json:"comments"`
	Annotations []Annotation        `json:"annotations"`
	CurrentTime float64             `json:"currentTime"`
	IsPlaying   bool                `json:"isPlaying"`
}
