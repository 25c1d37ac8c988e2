package collab

import (
	"sync"

	"github.com/sirupsen/logrus"

	"prodflow/collab-gateway/models"
)

// outbound is one participant's ordered message queue. Enqueue must
// never block the room; implementations drop on overflow and report it.
type outbound interface {
	Enqueue(Envelope) bool
	Close()
}

type participant struct {
	user models.CollaborationUser
	conn outbound
}

// Room is the authoritative state for one review session. All methods
// are safe for concurrent use; every relayed event is applied and
// fanned out under the room lock, so delivery order equals receipt
// order for each connected participant.
type Room struct {
	ID string

	mu           sync.Mutex
	participants map[string]*participant // keyed by user id
	comments     []models.Comment
	annotations  []models.Annotation
	currentTime  float64
	isPlaying    bool

	log     *logrus.Entry
	archive Archive
	onEmpty func(string)
}

// Archive persists the durable slice of session state (completed
// annotations and comments) so a restarted server can seed catch-up
// state. Cursor, typing and playback state are ephemeral and never
// archived.
type Archive interface {
	SaveAnnotation(sessionID string, a models.Annotation) error
	DeleteAnnotation(sessionID, annotationID string) error
	SaveComment(sessionID string, c models.Comment) error
	DeleteComment(sessionID, commentID string) error
	Load(sessionID string) ([]models.Annotation, []models.Comment, error)
}

func newRoom(id string, log *logrus.Entry, archive Archive, onEmpty func(string)) *Room {
	r := &Room{
		ID:           id,
		participants: make(map[string]*participant),
		log:          log,
		archive:      archive,
		onEmpty:      onEmpty,
	}
	if archive != nil {
		annotations, comments, err := archive.Load(id)
		if err != nil {
			log.WithError(err).Warn("could not seed session from archive")
		} else {
			r.annotations = annotations
			r.comments = comments
		}
	}
	return r
}

// snapshotLocked builds the catch-up state. Callers hold r.mu.
func (r *Room) snapshotLocked() models.CollaborationState {
	users := make([]models.CollaborationUser, 0, len(r.participants))
	for _, p := range r.participants {
		users = append(users, p.user)
	}
	comments := make([]models.Comment, len(r.comments))
	copy(comments, r.comments)
	annotations := make([]models.Annotation, len(r.annotations))
	copy(annotations, r.annotations)
	return models.CollaborationState{
		Users:       users,
		Comments:    comments,
		Annotations: annotations,
		CurrentTime: r.currentTime,
		IsPlaying:   r.isPlaying,
	}
}

// broadcastLocked sends env to every participant except exceptUserID.
// Callers hold r.mu.
func (r *Room) broadcastLocked(env Envelope, exceptUserID string) {
	for id, p := range r.participants {
		if id == exceptUserID {
			continue
		}
		if !p.conn.Enqueue(env) {
			r.log.WithFields(logrus.Fields{
				"user_id": id,
				"msg":     string(env.Type),
			}).Warn("dropped message for slow participant")
		}
	}
}

// Join registers a participant and hands it the authoritative state.
// Rejoining with an id that is already present replaces the prior
// registration instead of duplicating it; the stale connection is
// closed unless it is the same connection re-joining, which must stay
// usable. A participant without a display color is assigned the first
// free palette color here, under the room lock, so concurrent joiners
// cannot pick the same one. The initial-state frame is enqueued before
// the participant becomes eligible for broadcasts, so catch-up always
// precedes deltas.
func (r *Room) Join(user models.CollaborationUser, conn outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.participants[user.ID]; ok {
		if prior.conn != conn {
			prior.conn.Close()
		}
		delete(r.participants, user.ID)
	}
	if user.Color == "" {
		user.Color = r.pickColorLocked()
	}

	conn.Enqueue(MustEnvelope(MsgInitialState, InitialStatePayload{State: r.snapshotLocked()}))
	r.participants[user.ID] = &participant{user: user, conn: conn}

	r.broadcastLocked(MustEnvelope(MsgUserJoined, UserJoinedPayload{User: user}), user.ID)
	r.log.WithFields(logrus.Fields{
		"user_id":      user.ID,
		"participants": len(r.participants),
	}).Info("participant joined")
}

// Leave removes a participant and tells everyone else. Calling it for
// a user that never joined is a no-op and produces no broadcast. The
// connection is left open: it belongs to the serve loop, and a client
// that sent leaveSession may re-join on the same socket.
func (r *Room) Leave(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.participants[userID]
	if !ok {
		return
	}
	delete(r.participants, userID)
	r.broadcastLocked(MustEnvelope(MsgUserLeft, UserLeftPayload{UserID: userID}), userID)
	r.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"participants": len(r.participants),
	}).Info("participant left")

	if len(r.participants) == 0 && r.onEmpty != nil {
		r.onEmpty(r.ID)
	}
}

// Participants returns the current membership.
func (r *Room) Participants() []models.CollaborationUser {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]models.CollaborationUser, 0, len(r.participants))
	for _, p := range r.participants {
		users = append(users, p.user)
	}
	return users
}

// MoveCursor relays a cursor position to everyone else. Fire and
// forget: no state is kept server-side and drops are acceptable.
func (r *Room) MoveCursor(userID string, pos models.CursorPosition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(MustEnvelope(MsgUserCursorMoved, UserCursorMovedPayload{UserID: userID, Position: pos}), userID)
}

// SetTyping relays a typing indicator to everyone else.
func (r *Room) SetTyping(userID string, isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(MustEnvelope(MsgUserIsTyping, UserIsTypingPayload{UserID: userID, IsTyping: isTyping}), userID)
}

// AddComment appends a comment, archives it, and relays it.
func (r *Room) AddComment(userID string, c models.Comment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments = append(r.comments, c)
	r.archiveComment(c)
	r.broadcastLocked(MustEnvelope(MsgCommentAdded, CommentPayload{Comment: c}), userID)
}

// UpdateComment replaces a comment by id (resolve/unresolve, edits).
// Unknown ids are relayed anyway; the sender's copy is authoritative
// for late joiners only after it lands in room state, so an unknown id
// is recorded fresh rather than dropped.
func (r *Room) UpdateComment(userID string, c models.Comment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	replaced := false
	for i := range r.comments {
		if r.comments[i].ID == c.ID {
			r.comments[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		r.comments = append(r.comments, c)
	}
	r.archiveComment(c)
	r.broadcastLocked(MustEnvelope(MsgCommentUpdated, CommentPayload{Comment: c}), userID)
}

// DeleteComment removes a comment. Deleting an unknown id is a no-op.
func (r *Room) DeleteComment(userID, commentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := false
	for i := range r.comments {
		if r.comments[i].ID == commentID {
			r.comments = append(r.comments[:i], r.comments[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return
	}
	if r.archive != nil {
		if err := r.archive.DeleteComment(r.ID, commentID); err != nil {
			r.log.WithError(err).WithField("comment_id", commentID).Error("archive delete failed")
		}
	}
	r.broadcastLocked(MustEnvelope(MsgCommentDeleted, CommentRefPayload{CommentID: commentID}), userID)
}

// StartAnnotation records an in-progress annotation so late joiners
// catch it up mid-draw, and relays it tagged with the drawing user.
func (r *Room) StartAnnotation(userID string, a models.Annotation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertAnnotationLocked(a)
	r.broadcastLocked(MustEnvelope(MsgAnnotationStarted, RemoteAnnotationPayload{UserID: userID, Annotation: a}), userID)
}

// UpdateAnnotation replaces the in-progress annotation. Last writer
// wins per field; concurrent edits are not merged.
func (r *Room) UpdateAnnotation(userID string, a models.Annotation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertAnnotationLocked(a)
	r.broadcastLocked(MustEnvelope(MsgAnnotationUpdated, RemoteAnnotationPayload{UserID: userID, Annotation: a}), userID)
}

// CompleteAnnotation finalizes an annotation, archives it, and relays
// the completion.
func (r *Room) CompleteAnnotation(userID string, a models.Annotation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.Completed = true
	r.upsertAnnotationLocked(a)
	if r.archive != nil {
		if err := r.archive.SaveAnnotation(r.ID, a); err != nil {
			r.log.WithError(err).WithField("annotation_id", a.ID).Error("archive save failed")
		}
	}
	r.broadcastLocked(MustEnvelope(MsgAnnotationCompleted, AnnotationPayload{Annotation: a}), userID)
}

// DeleteAnnotation removes an annotation. Deleting an unknown id is a
// no-op, not an error.
func (r *Room) DeleteAnnotation(userID, annotationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := false
	for i := range r.annotations {
		if r.annotations[i].ID == annotationID {
			r.annotations = append(r.annotations[:i], r.annotations[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return
	}
	if r.archive != nil {
		if err := r.archive.DeleteAnnotation(r.ID, annotationID); err != nil {
			r.log.WithError(err).WithField("annotation_id", annotationID).Error("archive delete failed")
		}
	}
	r.broadcastLocked(MustEnvelope(MsgAnnotationDeleted, AnnotationRefPayload{AnnotationID: annotationID}), userID)
}

// Seek applies a hard playback-position override and relays it. Last
// writer wins; two users scrubbing at once will visibly fight, which
// is the documented behavior.
func (r *Room) Seek(userID string, t float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentTime = t
	r.broadcastLocked(MustEnvelope(MsgVideoSeeked, VideoSeekedPayload{UserID: userID, Time: t}), userID)
}

// SetPlaying applies a play/pause override and relays it.
func (r *Room) SetPlaying(userID string, isPlaying bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isPlaying = isPlaying
	r.broadcastLocked(MustEnvelope(MsgVideoPlayPause, VideoPlayPausePayload{UserID: userID, IsPlaying: isPlaying}), userID)
}

// SendInitialState re-sends the authoritative snapshot to one
// participant on request.
func (r *Room) SendInitialState(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[userID]
	if !ok {
		return
	}
	p.conn.Enqueue(MustEnvelope(MsgInitialState, InitialStatePayload{State: r.snapshotLocked()}))
}

// Snapshot returns a copy of the current session state.
func (r *Room) Snapshot() models.CollaborationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// userColors is the display palette assigned to participants that
// join without a color of their own.
var userColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7B731",
}

// pickColorLocked returns the first palette color no current
// participant uses, wrapping by participant count when the palette is
// exhausted. Callers hold r.mu.
func (r *Room) pickColorLocked() string {
	used := make(map[string]bool, len(r.participants))
	for _, p := range r.participants {
		used[p.user.Color] = true
	}
	for _, c := range userColors {
		if !used[c] {
			return c
		}
	}
	return userColors[len(r.participants)%len(userColors)]
}

func (r *Room) upsertAnnotationLocked(a models.Annotation) {
	for i := range r.annotations {
		if r.annotations[i].ID == a.ID {
			r.annotations[i] = a
			return
		}
	}
	r.annotations = append(r.annotations, a)
}

func (r *Room) archiveComment(c models.Comment) {
	if r.archive == nil {
		return
	}
	if err := r.archive.SaveComment(r.ID, c); err != nil {
		r.log.WithError(err).WithField("comment_id", c.ID).Error("archive save failed")
	}
}
