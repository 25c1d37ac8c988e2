package collab

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"prodflow/collab-gateway/models"
)

// fakeConn is an outbound queue that records everything in order.
type fakeConn struct {
	frames chan Envelope
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan Envelope, 128)}
}

func (f *fakeConn) Enqueue(env Envelope) bool {
	select {
	case f.frames <- env:
		return true
	default:
		return false
	}
}

func (f *fakeConn) Close() { f.closed = true }

func (f *fakeConn) next(t *testing.T) Envelope {
	t.Helper()
	select {
	case env := <-f.frames:
		return env
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
		return Envelope{}
	}
}

func (f *fakeConn) expectNone(t *testing.T) {
	t.Helper()
	select {
	case env := <-f.frames:
		t.Fatalf("unexpected frame %s", env.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func testHub() *Hub {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewHub(log, nil)
}

func user(id string) models.CollaborationUser {
	return models.CollaborationUser{ID: id, Name: "user-" + id, Color: "#123456"}
}

func TestJoinDeliversInitialStateBeforeDeltas(t *testing.T) {
	room := testHub().Room("s1")

	a := newFakeConn()
	room.Join(user("a"), a)

	if env := a.next(t); env.Type != MsgInitialState {
		t.Fatalf("first frame = %s, want initialState", env.Type)
	}

	b := newFakeConn()
	room.Join(user("b"), b)

	// a hears about b; b's very first frame is the catch-up state.
	if env := a.next(t); env.Type != MsgUserJoined {
		t.Errorf("a got %s, want userJoined", env.Type)
	}
	if env := b.next(t); env.Type != MsgInitialState {
		t.Errorf("b's first frame = %s, want initialState", env.Type)
	}
}

func TestJoinIdempotentPerUserID(t *testing.T) {
	room := testHub().Room("s1")

	first := newFakeConn()
	room.Join(user("a"), first)

	second := newFakeConn()
	room.Join(user("a"), second)

	if got := len(room.Participants()); got != 1 {
		t.Fatalf("participants = %d, want 1 after rejoin", got)
	}
	if !first.closed {
		t.Error("stale connection was not closed on rejoin")
	}
}

func TestRejoinOnSameConnectionStaysUsable(t *testing.T) {
	room := testHub().Room("s1")

	conn := newFakeConn()
	room.Join(user("a"), conn)
	if env := conn.next(t); env.Type != MsgInitialState {
		t.Fatalf("first frame = %s, want initialState", env.Type)
	}

	// leaveSession then joinSession on the same socket: the room must
	// not close the connection out from under the serve loop, and the
	// rejoin's catch-up must still arrive.
	room.Leave("a")
	room.Join(user("a"), conn)

	if conn.closed {
		t.Fatal("connection closed by leave/rejoin on the same socket")
	}
	if env := conn.next(t); env.Type != MsgInitialState {
		t.Fatalf("rejoin frame = %s, want initialState", env.Type)
	}
	if !conn.Enqueue(MustEnvelope(MsgUserIsTyping, UserIsTypingPayload{UserID: "b", IsTyping: true})) {
		t.Error("outbound rejects frames after rejoin")
	}
}

func TestRejoinWithoutLeaveKeepsOwnConnectionOpen(t *testing.T) {
	room := testHub().Room("s1")

	conn := newFakeConn()
	room.Join(user("a"), conn)
	conn.next(t) // initialState

	// A second join for the same user on the same connection replaces
	// the registration without closing it.
	room.Join(user("a"), conn)
	if conn.closed {
		t.Fatal("re-join closed its own connection")
	}
	if env := conn.next(t); env.Type != MsgInitialState {
		t.Fatalf("re-join frame = %s, want initialState", env.Type)
	}
	if got := len(room.Participants()); got != 1 {
		t.Errorf("participants = %d, want 1", got)
	}
}

func TestJoinAssignsDistinctColors(t *testing.T) {
	room := testHub().Room("s1")

	a := models.CollaborationUser{ID: "a", Name: "Ana"}
	b := models.CollaborationUser{ID: "b", Name: "Bruno"}
	room.Join(a, newFakeConn())
	room.Join(b, newFakeConn())

	colors := make(map[string]string, 2)
	for _, u := range room.Participants() {
		if u.Color == "" {
			t.Fatalf("user %s joined without an assigned color", u.ID)
		}
		colors[u.ID] = u.Color
	}
	if colors["a"] == colors["b"] {
		t.Errorf("both users got color %s", colors["a"])
	}

	// A caller-provided color is kept as-is.
	c := models.CollaborationUser{ID: "c", Name: "Caio", Color: "#000000"}
	room.Join(c, newFakeConn())
	for _, u := range room.Participants() {
		if u.ID == "c" && u.Color != "#000000" {
			t.Errorf("preset color overwritten with %s", u.Color)
		}
	}
}

func TestLeaveWithoutJoinIsNoOp(t *testing.T) {
	room := testHub().Room("s1")

	a := newFakeConn()
	room.Join(user("a"), a)
	a.next(t) // initialState

	room.Leave("ghost")
	a.expectNone(t)
}

func TestRelayExcludesSender(t *testing.T) {
	room := testHub().Room("s1")

	a, b, c := newFakeConn(), newFakeConn(), newFakeConn()
	room.Join(user("a"), a)
	room.Join(user("b"), b)
	room.Join(user("c"), c)
	for _, conn := range []*fakeConn{a, b, c} {
		for len(conn.frames) > 0 {
			<-conn.frames
		}
	}

	room.AddComment("a", models.Comment{ID: "c1", Text: "tighten this cut", Author: "user-a"})

	a.expectNone(t)
	for name, conn := range map[string]*fakeConn{"b": b, "c": c} {
		if env := conn.next(t); env.Type != MsgCommentAdded {
			t.Errorf("%s got %s, want commentAdded", name, env.Type)
		}
	}
}

func TestPlaybackLastWriterWins(t *testing.T) {
	room := testHub().Room("s1")

	a, b := newFakeConn(), newFakeConn()
	room.Join(user("a"), a)
	room.Join(user("b"), b)

	room.Seek("a", 12.0)
	room.Seek("b", 48.5)

	if got := room.Snapshot().CurrentTime; got != 48.5 {
		t.Errorf("CurrentTime = %v, want last writer's 48.5", got)
	}

	room.SetPlaying("a", true)
	room.SetPlaying("b", false)
	if room.Snapshot().IsPlaying {
		t.Error("IsPlaying = true, want last writer's false")
	}
}

func TestDeleteNonexistentAnnotationIsNoOp(t *testing.T) {
	room := testHub().Room("s1")

	a, b := newFakeConn(), newFakeConn()
	room.Join(user("a"), a)
	room.Join(user("b"), b)
	for len(a.frames) > 0 {
		<-a.frames
	}
	for len(b.frames) > 0 {
		<-b.frames
	}

	room.DeleteAnnotation("a", "never-existed")
	b.expectNone(t)
}

func TestAnnotationLifecycleThroughRoom(t *testing.T) {
	room := testHub().Room("s1")

	a, b := newFakeConn(), newFakeConn()
	room.Join(user("a"), a)
	room.Join(user("b"), b)
	for len(a.frames) > 0 {
		<-a.frames
	}
	for len(b.frames) > 0 {
		<-b.frames
	}

	ann := models.Annotation{
		ID: "n1", Tool: models.ToolPen, TimeStart: 10, TimeEnd: 15,
		Thickness: 2, Points: []models.Point{{X: 1, Y: 1}}, UserID: "a",
	}
	room.StartAnnotation("a", ann)
	if env := b.next(t); env.Type != MsgAnnotationStarted {
		t.Fatalf("b got %s, want annotationStarted", env.Type)
	}

	// In-progress annotations are part of catch-up for late joiners.
	c := newFakeConn()
	room.Join(user("c"), c)
	env := c.next(t)
	if env.Type != MsgInitialState {
		t.Fatalf("late joiner's first frame = %s", env.Type)
	}
	var snap models.CollaborationState
	if got := room.Snapshot(); len(got.Annotations) != 1 {
		t.Fatalf("snapshot has %d annotations, want 1", len(got.Annotations))
	} else {
		snap = got
	}
	if snap.Annotations[0].Completed {
		t.Error("in-progress annotation should not be completed yet")
	}

	room.CompleteAnnotation("a", ann)
	if got := room.Snapshot().Annotations[0]; !got.Completed {
		t.Error("annotation not completed in room state")
	}

	room.DeleteAnnotation("b", "n1")
	if got := len(room.Snapshot().Annotations); got != 0 {
		t.Errorf("annotations = %d after delete, want 0", got)
	}
}

func TestLeaveBroadcastsAndTearsDownEmptyRoom(t *testing.T) {
	hub := testHub()
	room := hub.Room("s1")

	a, b := newFakeConn(), newFakeConn()
	room.Join(user("a"), a)
	room.Join(user("b"), b)
	for len(a.frames) > 0 {
		<-a.frames
	}

	room.Leave("b")
	if env := a.next(t); env.Type != MsgUserLeft {
		t.Errorf("a got %s, want userLeft", env.Type)
	}
	room.Leave("a")

	if got := len(hub.ActiveSessions()); got != 0 {
		t.Errorf("active sessions = %d, want 0 after everyone left", got)
	}
}

func TestCursorRelayIsLossyNotFatal(t *testing.T) {
	room := testHub().Room("s1")

	a := newFakeConn()
	room.Join(user("a"), a)

	// Slow consumer: tiny queue that fills instantly.
	slow := &fakeConn{frames: make(chan Envelope, 1)}
	room.Join(user("b"), slow)

	for i := 0; i < 10; i++ {
		room.MoveCursor("a", models.CursorPosition{X: float64(i), Y: 0})
	}
	// The room must survive the overflow and keep serving others.
	room.Seek("a", 5)
	if got := room.Snapshot().CurrentTime; got != 5 {
		t.Errorf("CurrentTime = %v, want 5", got)
	}
}
