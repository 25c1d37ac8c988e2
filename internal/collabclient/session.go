// Package collabclient is the Go client for the collaboration
// protocol: an explicit session handle that a caller constructs,
// passes around, and closes, instead of a process-wide socket
// singleton.
package collabclient

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/sirupsen/logrus"

	"prodflow/collab-gateway/internal/collab"
	"prodflow/collab-gateway/models"
)

// State is the connection lifecycle. disconnected is terminal after an
// explicit Leave/Close or after reconnection attempts are exhausted.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateJoined       State = "joined"
)

const (
	// MaxReconnectAttempts bounds automatic reconnection before the
	// session gives up and surfaces disconnected to the caller.
	MaxReconnectAttempts = 5
	defaultBaseBackoff   = time.Second
)

var ErrNotJoined = errors.New("session not joined")

// wire is the subset of the websocket connection the session uses.
// Tests inject fakes; production uses fasthttp/websocket.
type wire interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer opens a wire to the given URL.
type Dialer func(url string) (wire, error)

func defaultDialer(url string) (wire, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Config describes one session membership.
type Config struct {
	// URL is the websocket endpoint for the session, e.g.
	// ws://host/ws/session/{sessionId}.
	URL       string
	SessionID string
	User      models.CollaborationUser

	// BaseBackoff is the delay before the first reconnect attempt;
	// each further attempt doubles it. Zero means one second.
	BaseBackoff time.Duration

	Logger *logrus.Logger
	// Dial overrides the transport; nil means the real dialer.
	Dial Dialer
}

// Events receives server-side changes as they are applied to the
// local cache. Any field may be nil.
type Events struct {
	OnStateChange func(State)
	// OnCatchUp fires when an authoritative snapshot replaces the
	// local cache (initial join and every successful rejoin).
	OnCatchUp func(models.CollaborationState)
	// OnEvent fires for every incremental server frame after it has
	// been applied locally.
	OnEvent func(collab.Envelope)
}

// Session is a live membership in one collaboration room. All emit
// methods are optimistic: the local cache is patched first and the
// frame is sent fire-and-forget, never waiting for acknowledgement.
type Session struct {
	cfg    Config
	events Events
	log    *logrus.Logger

	mu      sync.Mutex
	state   State
	conn    wire
	local   models.CollaborationState
	history collab.History
	closed  bool
}

// Join dials the endpoint, sends joinSession and starts the receive
// loop. It returns once the connection is established; the
// authoritative catch-up state arrives through Events.OnCatchUp before
// any delta.
func Join(cfg Config, events Events) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Dial == nil {
		cfg.Dial = defaultDialer
	}
	if cfg.BaseBackoff == 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}

	s := &Session{cfg: cfg, events: events, log: cfg.Logger, state: StateDisconnected}
	if err := s.connect(); err != nil {
		return nil, err
	}
	go s.readLoop()
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Local returns a copy of the client's cached session state.
func (s *Session) Local() models.CollaborationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	s.mu.Unlock()
	if changed && s.events.OnStateChange != nil {
		s.events.OnStateChange(st)
	}
}

func (s *Session) connect() error {
	s.setState(StateConnecting)
	conn, err := s.cfg.Dial(s.cfg.URL)
	if err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}

	join := collab.MustEnvelope(collab.MsgJoinSession, collab.JoinSessionPayload{
		SessionID: s.cfg.SessionID,
		User:      s.cfg.User,
	})
	if err := conn.WriteJSON(join); err != nil {
		conn.Close()
		s.setState(StateDisconnected)
		return fmt.Errorf("join session %s: %w", s.cfg.SessionID, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.setState(StateJoined)
	return nil
}

func (s *Session) readLoop() {
	for {
		s.mu.Lock()
		conn := s.conn
		closed := s.closed
		s.mu.Unlock()
		if closed || conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			// The failed connection is done either way; release it
			// before dialing a replacement.
			conn.Close()
			s.mu.Lock()
			closed := s.closed
			if s.conn == conn {
				s.conn = nil
			}
			s.mu.Unlock()
			if closed {
				return
			}
			if !s.reconnect() {
				return
			}
			continue
		}

		env, err := decodeServerEnvelope(data)
		if err != nil {
			s.log.WithError(err).WithField("session_id", s.cfg.SessionID).Warn("dropped malformed server frame")
			continue
		}
		s.apply(env)
	}
}

// reconnect runs the bounded retry loop. It returns false when the
// session is closed or the attempts are exhausted; the session is then
// terminally disconnected.
func (s *Session) reconnect() bool {
	s.log.WithField("session_id", s.cfg.SessionID).Warn("connection lost, reconnecting")

	backoff := s.cfg.BaseBackoff
	for attempt := 1; attempt <= MaxReconnectAttempts; attempt++ {
		time.Sleep(backoff)
		backoff *= 2

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return false
		}
		s.mu.Unlock()

		if err := s.connect(); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"session_id": s.cfg.SessionID,
				"attempt":    attempt,
				"max":        MaxReconnectAttempts,
			}).Warn("reconnect attempt failed")
			continue
		}
		// The rejoin's fresh catch-up is authoritative; anything
		// produced while offline was at-most-once and is gone.
		s.log.WithFields(logrus.Fields{
			"session_id": s.cfg.SessionID,
			"attempt":    attempt,
		}).Info("reconnected")
		return true
	}

	s.log.WithField("session_id", s.cfg.SessionID).Error("reconnect attempts exhausted")
	s.setState(StateDisconnected)
	return false
}

// Leave tells the server, tears the connection down and leaves the
// session terminally disconnected. Safe to call when not joined.
func (s *Session) Leave() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		conn.WriteJSON(collab.MustEnvelope(collab.MsgLeaveSession, nil))
		conn.Close()
	}
	s.setState(StateDisconnected)
}

// send writes one frame fire-and-forget. Frames attempted while the
// wire is down are dropped: delivery is at-most-once and the next
// catch-up reconciles.
func (s *Session) send(env collab.Envelope) {
	s.mu.Lock()
	conn := s.conn
	st := s.state
	s.mu.Unlock()
	if st != StateJoined || conn == nil {
		return
	}
	if err := conn.WriteJSON(env); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"session_id": s.cfg.SessionID,
			"msg":        string(env.Type),
		}).Warn("send failed")
	}
}

// MoveCursor broadcasts the local cursor. Lossy by design.
func (s *Session) MoveCursor(pos models.CursorPosition) {
	s.send(collab.MustEnvelope(collab.MsgMoveCursor, collab.MoveCursorPayload{Position: pos}))
}

// SetTyping broadcasts the typing indicator.
func (s *Session) SetTyping(isTyping bool) {
	s.send(collab.MustEnvelope(collab.MsgSetTyping, collab.SetTypingPayload{IsTyping: isTyping}))
}

// AddComment applies the comment locally and emits it.
func (s *Session) AddComment(c models.Comment) {
	s.mu.Lock()
	s.history.Do(&s.local, collab.AddCommentCommand{Comment: c})
	s.mu.Unlock()
	s.send(collab.MustEnvelope(collab.MsgAddComment, collab.CommentPayload{Comment: c}))
}

// ResolveComment flips the resolved flag locally and emits the update.
func (s *Session) ResolveComment(commentID string, resolved bool) {
	s.mu.Lock()
	s.history.Do(&s.local, collab.ResolveCommentCommand{CommentID: commentID, Resolved: resolved})
	var updated *models.Comment
	for i := range s.local.Comments {
		if s.local.Comments[i].ID == commentID {
			updated = &s.local.Comments[i]
			break
		}
	}
	s.mu.Unlock()
	if updated != nil {
		s.send(collab.MustEnvelope(collab.MsgUpdateComment, collab.CommentPayload{Comment: *updated}))
	}
}

// DeleteComment removes the comment locally and emits the deletion.
func (s *Session) DeleteComment(commentID string) {
	s.mu.Lock()
	for i := range s.local.Comments {
		if s.local.Comments[i].ID == commentID {
			s.history.Do(&s.local, collab.DeleteCommentCommand{Comment: s.local.Comments[i]})
			break
		}
	}
	s.mu.Unlock()
	s.send(collab.MustEnvelope(collab.MsgDeleteComment, collab.CommentRefPayload{CommentID: commentID}))
}

// StartAnnotation emits an in-progress annotation so remote viewers
// see live drawing. In-progress strokes are not undo steps; the
// finished drawing becomes one when CompleteAnnotation records it.
func (s *Session) StartAnnotation(a models.Annotation) {
	s.mu.Lock()
	upsertAnnotation(&s.local, a)
	s.mu.Unlock()
	s.send(collab.MustEnvelope(collab.MsgStartAnnotation, collab.AnnotationPayload{Annotation: a}))
}

// UpdateAnnotation emits the current stroke state of an in-progress
// annotation.
func (s *Session) UpdateAnnotation(a models.Annotation) {
	s.mu.Lock()
	upsertAnnotation(&s.local, a)
	s.mu.Unlock()
	s.send(collab.MustEnvelope(collab.MsgUpdateAnnotation, collab.AnnotationPayload{Annotation: a}))
}

// CompleteAnnotation finalizes the annotation locally and emits it.
// The completed annotation enters the undo history as one step
// covering the whole drawing.
func (s *Session) CompleteAnnotation(a models.Annotation) {
	a.Completed = true
	s.mu.Lock()
	// Drop the in-progress version first so the history's add is the
	// only copy; the draw-in-progress upserts were not undo steps.
	for i := range s.local.Annotations {
		if s.local.Annotations[i].ID == a.ID {
			s.local.Annotations = append(s.local.Annotations[:i], s.local.Annotations[i+1:]...)
			break
		}
	}
	s.history.Do(&s.local, collab.AddAnnotationCommand{Annotation: a})
	s.mu.Unlock()
	s.send(collab.MustEnvelope(collab.MsgCompleteAnnotation, collab.AnnotationPayload{Annotation: a}))
}

// DeleteAnnotation removes locally and emits. Unknown ids are a no-op
// on both ends.
func (s *Session) DeleteAnnotation(annotationID string) {
	s.mu.Lock()
	for i := range s.local.Annotations {
		if s.local.Annotations[i].ID == annotationID {
			s.history.Do(&s.local, collab.DeleteAnnotationCommand{Annotation: s.local.Annotations[i]})
			break
		}
	}
	s.mu.Unlock()
	s.send(collab.MustEnvelope(collab.MsgDeleteAnnotation, collab.AnnotationRefPayload{AnnotationID: annotationID}))
}

// Seek applies the position locally (optimistic, the local player has
// already moved) and emits the override for everyone else.
func (s *Session) Seek(t float64) {
	s.mu.Lock()
	s.local.CurrentTime = t
	s.mu.Unlock()
	s.send(collab.MustEnvelope(collab.MsgSeekVideo, collab.SeekVideoPayload{Time: t}))
}

// SetPlaying applies play/pause locally and emits the override.
func (s *Session) SetPlaying(isPlaying bool) {
	s.mu.Lock()
	s.local.IsPlaying = isPlaying
	s.mu.Unlock()
	s.send(collab.MustEnvelope(collab.MsgPlayPauseVideo, collab.PlayPauseVideoPayload{IsPlaying: isPlaying}))
}

// RequestInitialState asks the server for a fresh snapshot.
func (s *Session) RequestInitialState() {
	s.send(collab.MustEnvelope(collab.MsgRequestInitialState, nil))
}

// Undo reverts the most recent local edit and emits the inverse frame
// so other participants converge.
func (s *Session) Undo() bool {
	s.mu.Lock()
	cmd, ok := s.history.Undo(&s.local)
	var env collab.Envelope
	emit := false
	if ok {
		env, emit = s.frameForLocked(cmd)
	}
	s.mu.Unlock()
	if emit {
		s.send(env)
	}
	return ok
}

// Redo re-applies the most recently undone local edit and emits it.
func (s *Session) Redo() bool {
	s.mu.Lock()
	cmd, ok := s.history.Redo(&s.local)
	var env collab.Envelope
	emit := false
	if ok {
		env, emit = s.frameForLocked(cmd)
	}
	s.mu.Unlock()
	if emit {
		s.send(env)
	}
	return ok
}

// frameForLocked maps an applied history command to the outgoing frame
// that tells the room about it. Callers hold s.mu.
func (s *Session) frameForLocked(cmd collab.Command) (collab.Envelope, bool) {
	switch c := cmd.(type) {
	case collab.AddCommentCommand:
		return collab.MustEnvelope(collab.MsgAddComment, collab.CommentPayload{Comment: c.Comment}), true
	case collab.DeleteCommentCommand:
		return collab.MustEnvelope(collab.MsgDeleteComment, collab.CommentRefPayload{CommentID: c.Comment.ID}), true
	case collab.ResolveCommentCommand:
		for i := range s.local.Comments {
			if s.local.Comments[i].ID == c.CommentID {
				return collab.MustEnvelope(collab.MsgUpdateComment, collab.CommentPayload{Comment: s.local.Comments[i]}), true
			}
		}
		return collab.Envelope{}, false
	case collab.AddAnnotationCommand:
		if c.Annotation.Completed {
			return collab.MustEnvelope(collab.MsgCompleteAnnotation, collab.AnnotationPayload{Annotation: c.Annotation}), true
		}
		return collab.MustEnvelope(collab.MsgStartAnnotation, collab.AnnotationPayload{Annotation: c.Annotation}), true
	case collab.DeleteAnnotationCommand:
		return collab.MustEnvelope(collab.MsgDeleteAnnotation, collab.AnnotationRefPayload{AnnotationID: c.Annotation.ID}), true
	}
	return collab.Envelope{}, false
}
