// Package collab implements the real-time review session: the wire
// protocol, the per-session room state, and the hub that owns the
// rooms and fans events out to connected participants.
package collab

import (
	"encoding/json"
	"errors"
	"fmt"

	"prodflow/collab-gateway/models"
)

// MsgType tags every frame on the collaboration socket.
type MsgType string

// Client → server.
const (
	MsgJoinSession         MsgType = "joinSession"
	MsgLeaveSession        MsgType = "leaveSession"
	MsgMoveCursor          MsgType = "moveCursor"
	MsgSetTyping           MsgType = "setTyping"
	MsgAddComment          MsgType = "addComment"
	MsgUpdateComment       MsgType = "updateComment"
	MsgDeleteComment       MsgType = "deleteComment"
	MsgStartAnnotation     MsgType = "startAnnotation"
	MsgUpdateAnnotation    MsgType = "updateAnnotation"
	MsgCompleteAnnotation  MsgType = "completeAnnotation"
	MsgDeleteAnnotation    MsgType = "deleteAnnotation"
	MsgSeekVideo           MsgType = "seekVideo"
	MsgPlayPauseVideo      MsgType = "playPauseVideo"
	MsgRequestInitialState MsgType = "requestInitialState"
)

// Server → client.
const (
	MsgUserJoined          MsgType = "userJoined"
	MsgUserLeft            MsgType = "userLeft"
	MsgUserCursorMoved     MsgType = "userCursorMoved"
	MsgUserIsTyping        MsgType = "userIsTyping"
	MsgCommentAdded        MsgType = "commentAdded"
	MsgCommentUpdated      MsgType = "commentUpdated"
	MsgCommentDeleted      MsgType = "commentDeleted"
	MsgAnnotationStarted   MsgType = "annotationStarted"
	MsgAnnotationUpdated   MsgType = "annotationUpdated"
	MsgAnnotationCompleted MsgType = "annotationCompleted"
	MsgAnnotationDeleted   MsgType = "annotationDeleted"
	MsgVideoSeeked         MsgType = "videoSeeked"
	MsgVideoPlayPause      MsgType = "videoPlayPause"
	MsgInitialState        MsgType = "initialState"
	MsgVideoVersionAdded   MsgType = "videoVersionAdded"
)

// Envelope is the framing for every message in either direction. The
// payload shape is fixed per type; nothing dynamically typed crosses
// the boundary.
type Envelope struct {
	Type    MsgType         `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrBadPayload     = errors.New("malformed payload")
)

// Client → server payloads.

type JoinSessionPayload struct {
	SessionID string                   `json:"sessionId"`
	User      models.CollaborationUser `json:"user"`
}

type MoveCursorPayload struct {
	Position models.CursorPosition `json:"position"`
}

type SetTypingPayload struct {
	IsTyping bool `json:"isTyping"`
}

type CommentPayload struct {
	Comment models.Comment `json:"comment"`
}

type CommentRefPayload struct {
	CommentID string `json:"commentId"`
}

type AnnotationPayload struct {
	Annotation models.Annotation `json:"annotation"`
}

type AnnotationRefPayload struct {
	AnnotationID string `json:"annotationId"`
}

type SeekVideoPayload struct {
	Time float64 `json:"time"`
}

type PlayPauseVideoPayload struct {
	IsPlaying bool `json:"isPlaying"`
}

// Server → client payloads.

type UserJoinedPayload struct {
	User models.CollaborationUser `json:"user"`
}

type UserLeftPayload struct {
	UserID string `json:"userId"`
}

type UserCursorMovedPayload struct {
	UserID   string                `json:"userId"`
	Position models.CursorPosition `json:"position"`
}

type UserIsTypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type RemoteAnnotationPayload struct {
	UserID     string            `json:"userId"`
	Annotation models.Annotation `json:"annotation"`
}

type VideoSeekedPayload struct {
	UserID string  `json:"userId"`
	Time   float64 `json:"time"`
}

type VideoPlayPausePayload struct {
	UserID    string `json:"userId"`
	IsPlaying bool   `json:"isPlaying"`
}

type InitialStatePayload struct {
	State models.CollaborationState `json:"state"`
}

// VideoVersionAddedPayload announces a new media file the watcher
// recorded for the session's deliverable.
type VideoVersionAddedPayload struct {
	Version models.VideoVersion `json:"version"`
}

// NewEnvelope marshals payload into a typed frame. Marshalling the
// payload types in this package cannot fail, so errors are collapsed
// into an empty envelope plus the error for callers that care.
func NewEnvelope(t MsgType, payload interface{}) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: t}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", t, err)
	}
	return Envelope{Type: t, Payload: raw}, nil
}

// MustEnvelope is NewEnvelope for payload values owned by this
// package, where marshalling cannot fail.
func MustEnvelope(t MsgType, payload interface{}) Envelope {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		panic(err)
	}
	return env
}

// ClientMessage is the closed set of decoded client → server messages.
type ClientMessage interface {
	clientMessage()
}

func (JoinSessionPayload) clientMessage()    {}
func (LeaveSession) clientMessage()          {}
func (MoveCursorPayload) clientMessage()     {}
func (SetTypingPayload) clientMessage()      {}
func (AddComment) clientMessage()            {}
func (UpdateComment) clientMessage()         {}
func (CommentRefPayload) clientMessage()     {}
func (StartAnnotation) clientMessage()       {}
func (UpdateAnnotation) clientMessage()      {}
func (CompleteAnnotation) clientMessage()    {}
func (AnnotationRefPayload) clientMessage()  {}
func (SeekVideoPayload) clientMessage()      {}
func (PlayPauseVideoPayload) clientMessage() {}
func (RequestInitialState) clientMessage()   {}

// Wrapper types so each message type decodes to a distinct variant
// even when the payload shape is shared.
type (
	LeaveSession        struct{}
	RequestInitialState struct{}
	AddComment          struct{ Comment models.Comment }
	UpdateComment       struct{ Comment models.Comment }
	StartAnnotation     struct{ Annotation models.Annotation }
	UpdateAnnotation    struct{ Annotation models.Annotation }
	CompleteAnnotation  struct{ Annotation models.Annotation }
)

// DecodeClientMessage parses and validates one inbound frame. Anything
// that fails here never reaches a room.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	switch env.Type {
	case MsgJoinSession:
		var p JoinSessionPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if p.SessionID == "" || p.User.ID == "" {
			return nil, fmt.Errorf("%w: joinSession requires sessionId and user.id", ErrBadPayload)
		}
		return p, nil

	case MsgLeaveSession:
		return LeaveSession{}, nil

	case MsgMoveCursor:
		var p MoveCursorPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return p, nil

	case MsgSetTyping:
		var p SetTypingPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return p, nil

	case MsgAddComment, MsgUpdateComment:
		var p CommentPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if err := validateComment(p.Comment); err != nil {
			return nil, err
		}
		if env.Type == MsgAddComment {
			return AddComment{Comment: p.Comment}, nil
		}
		return UpdateComment{Comment: p.Comment}, nil

	case MsgDeleteComment:
		var p CommentRefPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if p.CommentID == "" {
			return nil, fmt.Errorf("%w: deleteComment requires commentId", ErrBadPayload)
		}
		return p, nil

	case MsgStartAnnotation, MsgUpdateAnnotation, MsgCompleteAnnotation:
		var p AnnotationPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if err := validateAnnotation(p.Annotation); err != nil {
			return nil, err
		}
		switch env.Type {
		case MsgStartAnnotation:
			return StartAnnotation{Annotation: p.Annotation}, nil
		case MsgUpdateAnnotation:
			return UpdateAnnotation{Annotation: p.Annotation}, nil
		default:
			return CompleteAnnotation{Annotation: p.Annotation}, nil
		}

	case MsgDeleteAnnotation:
		var p AnnotationRefPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if p.AnnotationID == "" {
			return nil, fmt.Errorf("%w: deleteAnnotation requires annotationId", ErrBadPayload)
		}
		return p, nil

	case MsgSeekVideo:
		var p SeekVideoPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if p.Time < 0 {
			return nil, fmt.Errorf("%w: seek time must be >= 0", ErrBadPayload)
		}
		return p, nil

	case MsgPlayPauseVideo:
		var p PlayPauseVideoPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return p, nil

	case MsgRequestInitialState:
		return RequestInitialState{}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
}

func decodePayload(env Envelope, into interface{}) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s requires a payload", ErrBadPayload, env.Type)
	}
	if err := json.Unmarshal(env.Payload, into); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadPayload, env.Type, err)
	}
	return nil
}

func validateComment(c models.Comment) error {
	if c.ID == "" {
		return fmt.Errorf("%w: comment requires id", ErrBadPayload)
	}
	if c.Text == "" {
		return fmt.Errorf("%w: comment requires text", ErrBadPayload)
	}
	if c.Time < 0 {
		return fmt.Errorf("%w: comment time must be >= 0", ErrBadPayload)
	}
	if !models.ValidCommentCategory(c.ColorCategory) {
		return fmt.Errorf("%w: unknown color category %q", ErrBadPayload, c.ColorCategory)
	}
	return nil
}

func validateAnnotation(a models.Annotation) error {
	if a.ID == "" {
		return fmt.Errorf("%w: annotation requires id", ErrBadPayload)
	}
	if !models.ValidTool(a.Tool) {
		return fmt.Errorf("%w: unknown tool %q", ErrBadPayload, a.Tool)
	}
	if len(a.Points) == 0 {
		return fmt.Errorf("%w: annotation requires at least one point", ErrBadPayload)
	}
	if a.TimeEnd <= a.TimeStart {
		return fmt.Errorf("%w: annotation timeEnd must be greater than timeStart", ErrBadPayload)
	}
	return nil
}
