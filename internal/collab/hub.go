package collab

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Hub owns the active rooms. One hub per process; rooms are created on
// first join and torn down when the last participant leaves.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	log     *logrus.Logger
	archive Archive
}

// NewHub creates a hub. archive may be nil for a purely in-memory hub
// (tests, or deployments that do not retain review state).
func NewHub(log *logrus.Logger, archive Archive) *Hub {
	return &Hub{
		rooms:   make(map[string]*Room),
		log:     log,
		archive: archive,
	}
}

// Room returns the room for sessionID, creating it if needed.
func (h *Hub) Room(sessionID string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[sessionID]; ok {
		return r
	}
	r := newRoom(sessionID,
		h.log.WithField("session_id", sessionID),
		h.archive,
		h.removeRoom,
	)
	h.rooms[sessionID] = r
	return r
}

// ActiveSessions lists the session ids with at least one room.
func (h *Hub) ActiveSessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	return ids
}

// Notify pushes an envelope to every participant of sessionID, if the
// session is active. Used by REST handlers (e.g. the watcher webhook)
// to surface out-of-band events into live sessions.
func (h *Hub) Notify(sessionID string, env Envelope) {
	h.mu.RLock()
	r, ok := h.rooms[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(env, "")
}

func (h *Hub) removeRoom(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, sessionID)
	h.log.WithField("session_id", sessionID).Info("session closed")
}
