package collabclient

import (
	"encoding/json"
	"fmt"

	"prodflow/collab-gateway/internal/collab"
	"prodflow/collab-gateway/models"
)

func decodeServerEnvelope(data []byte) (collab.Envelope, error) {
	var env collab.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return collab.Envelope{}, fmt.Errorf("%w: %v", collab.ErrBadPayload, err)
	}
	if env.Type == "" {
		return collab.Envelope{}, fmt.Errorf("%w: missing type", collab.ErrBadPayload)
	}
	return env, nil
}

// apply patches the local cache from one server frame, then surfaces
// it through the event callbacks. The local cache is read-mostly:
// catch-up overwrites it wholesale, deltas patch individual entries,
// and nothing is ever merged field-by-field.
func (s *Session) apply(env collab.Envelope) {
	switch env.Type {
	case collab.MsgInitialState:
		var p collab.InitialStatePayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.mu.Lock()
		s.local = p.State
		s.history = collab.History{}
		s.mu.Unlock()
		if s.events.OnCatchUp != nil {
			s.events.OnCatchUp(p.State)
		}
		return

	case collab.MsgUserJoined:
		var p collab.UserJoinedPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.mu.Lock()
		replaced := false
		for i := range s.local.Users {
			if s.local.Users[i].ID == p.User.ID {
				s.local.Users[i] = p.User
				replaced = true
				break
			}
		}
		if !replaced {
			s.local.Users = append(s.local.Users, p.User)
		}
		s.mu.Unlock()

	case collab.MsgUserLeft:
		var p collab.UserLeftPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.mu.Lock()
		for i := range s.local.Users {
			if s.local.Users[i].ID == p.UserID {
				s.local.Users = append(s.local.Users[:i], s.local.Users[i+1:]...)
				break
			}
		}
		s.mu.Unlock()

	case collab.MsgCommentAdded, collab.MsgCommentUpdated:
		var p collab.CommentPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.mu.Lock()
		upsertComment(&s.local, p.Comment)
		s.mu.Unlock()

	case collab.MsgCommentDeleted:
		var p collab.CommentRefPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.mu.Lock()
		for i := range s.local.Comments {
			if s.local.Comments[i].ID == p.CommentID {
				s.local.Comments = append(s.local.Comments[:i], s.local.Comments[i+1:]...)
				break
			}
		}
		s.mu.Unlock()

	case collab.MsgAnnotationStarted, collab.MsgAnnotationUpdated:
		var p collab.RemoteAnnotationPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.mu.Lock()
		upsertAnnotation(&s.local, p.Annotation)
		s.mu.Unlock()

	case collab.MsgAnnotationCompleted:
		var p collab.AnnotationPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.mu.Lock()
		upsertAnnotation(&s.local, p.Annotation)
		s.mu.Unlock()

	case collab.MsgAnnotationDeleted:
		var p collab.AnnotationRefPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.mu.Lock()
		for i := range s.local.Annotations {
			if s.local.Annotations[i].ID == p.AnnotationID {
				s.local.Annotations = append(s.local.Annotations[:i], s.local.Annotations[i+1:]...)
				break
			}
		}
		s.mu.Unlock()

	case collab.MsgVideoSeeked:
		var p collab.VideoSeekedPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		// Hard override, last writer wins.
		s.mu.Lock()
		s.local.CurrentTime = p.Time
		s.mu.Unlock()

	case collab.MsgVideoPlayPause:
		var p collab.VideoPlayPausePayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.mu.Lock()
		s.local.IsPlaying = p.IsPlaying
		s.mu.Unlock()
	}

	if s.events.OnEvent != nil {
		s.events.OnEvent(env)
	}
}

func upsertComment(state *models.CollaborationState, c models.Comment) {
	for i := range state.Comments {
		if state.Comments[i].ID == c.ID {
			state.Comments[i] = c
			return
		}
	}
	state.Comments = append(state.Comments, c)
}

func upsertAnnotation(state *models.CollaborationState, a models.Annotation) {
	for i := range state.Annotations {
		if state.Annotations[i].ID == a.ID {
			state.Annotations[i] = a
			return
		}
	}
	state.Annotations = append(state.Annotations, a)
}
