package collab

import "prodflow/collab-gateway/models"

// Command is one undoable edit on a session state. Invert returns the
// command that undoes this one; the action log replays inverses in
// reverse order instead of switching on action tags.
type Command interface {
	Name() string
	Apply(*models.CollaborationState)
	Invert() Command
}

// AddAnnotationCommand inserts an annotation.
type AddAnnotationCommand struct {
	Annotation models.Annotation
}

func (c AddAnnotationCommand) Name() string { return "add-annotation" }

func (c AddAnnotationCommand) Apply(s *models.CollaborationState) {
	s.Annotations = append(s.Annotations, c.Annotation)
}

func (c AddAnnotationCommand) Invert() Command {
	return DeleteAnnotationCommand{Annotation: c.Annotation}
}

// DeleteAnnotationCommand removes an annotation by id. It carries the
// full annotation so its inverse can restore it.
type DeleteAnnotationCommand struct {
	Annotation models.Annotation
}

func (c DeleteAnnotationCommand) Name() string { return "delete-annotation" }

func (c DeleteAnnotationCommand) Apply(s *models.CollaborationState) {
	for i := range s.Annotations {
		if s.Annotations[i].ID == c.Annotation.ID {
			s.Annotations = append(s.Annotations[:i], s.Annotations[i+1:]...)
			return
		}
	}
}

func (c DeleteAnnotationCommand) Invert() Command {
	return AddAnnotationCommand{Annotation: c.Annotation}
}

// AddCommentCommand inserts a comment.
type AddCommentCommand struct {
	Comment models.Comment
}

func (c AddCommentCommand) Name() string { return "add-comment" }

func (c AddCommentCommand) Apply(s *models.CollaborationState) {
	s.Comments = append(s.Comments, c.Comment)
}

func (c AddCommentCommand) Invert() Command {
	return DeleteCommentCommand{Comment: c.Comment}
}

// DeleteCommentCommand removes a comment by id.
type DeleteCommentCommand struct {
	Comment models.Comment
}

func (c DeleteCommentCommand) Name() string { return "delete-comment" }

func (c DeleteCommentCommand) Apply(s *models.CollaborationState) {
	for i := range s.Comments {
		if s.Comments[i].ID == c.Comment.ID {
			s.Comments = append(s.Comments[:i], s.Comments[i+1:]...)
			return
		}
	}
}

func (c DeleteCommentCommand) Invert() Command {
	return AddCommentCommand{Comment: c.Comment}
}

// ResolveCommentCommand flips a comment's resolved flag.
type ResolveCommentCommand struct {
	CommentID string
	Resolved  bool
}

func (c ResolveCommentCommand) Name() string { return "resolve-comment" }

func (c ResolveCommentCommand) Apply(s *models.CollaborationState) {
	for i := range s.Comments {
		if s.Comments[i].ID == c.CommentID {
			s.Comments[i].IsResolved = c.Resolved
			return
		}
	}
}

func (c ResolveCommentCommand) Invert() Command {
	return ResolveCommentCommand{CommentID: c.CommentID, Resolved: !c.Resolved}
}

// History is the editing surface's undo/redo stack. Do applies a
// command and clears the redo branch, matching the usual editor
// behavior where a fresh edit after undo discards the undone future.
type History struct {
	applied []Command
	undone  []Command
}

func (h *History) Do(s *models.CollaborationState, c Command) {
	c.Apply(s)
	h.applied = append(h.applied, c)
	h.undone = nil
}

// Undo reverts the most recent command and returns the inverse that
// was applied, so the caller can relay it. Returns false when there is
// nothing to undo.
func (h *History) Undo(s *models.CollaborationState) (Command, bool) {
	if len(h.applied) == 0 {
		return nil, false
	}
	last := h.applied[len(h.applied)-1]
	h.applied = h.applied[:len(h.applied)-1]
	inv := last.Invert()
	inv.Apply(s)
	h.undone = append(h.undone, last)
	return inv, true
}

// Redo re-applies the most recently undone command and returns it.
func (h *History) Redo(s *models.CollaborationState) (Command, bool) {
	if len(h.undone) == 0 {
		return nil, false
	}
	last := h.undone[len(h.undone)-1]
	h.undone = h.undone[:len(h.undone)-1]
	last.Apply(s)
	h.applied = append(h.applied, last)
	return last, true
}

// CanUndo reports whether the applied log is non-empty.
func (h *History) CanUndo() bool { return len(h.applied) > 0 }

// CanRedo reports whether the redo branch is non-empty.
func (h *History) CanRedo() bool { return len(h.undone) > 0 }
