package collab

import (
	"testing"

	"prodflow/collab-gateway/models"
)

func TestHistoryUndoRedo(t *testing.T) {
	s := &models.CollaborationState{}
	h := &History{}

	h.Do(s, AddCommentCommand{Comment: models.Comment{ID: "c1", Text: "first"}})
	h.Do(s, AddCommentCommand{Comment: models.Comment{ID: "c2", Text: "second"}})
	h.Do(s, ResolveCommentCommand{CommentID: "c1", Resolved: true})

	if len(s.Comments) != 2 || !s.Comments[0].IsResolved {
		t.Fatalf("state after edits: %+v", s.Comments)
	}

	inv, ok := h.Undo(s)
	if !ok {
		t.Fatal("Undo returned false with commands applied")
	}
	if s.Comments[0].IsResolved {
		t.Error("resolve not undone")
	}
	if r, isResolve := inv.(ResolveCommentCommand); !isResolve || r.Resolved {
		t.Errorf("Undo returned %#v, want the unresolve inverse", inv)
	}

	if _, ok := h.Undo(s); !ok {
		t.Fatal("second Undo failed")
	}
	if len(s.Comments) != 1 {
		t.Fatalf("comments = %d after undoing add, want 1", len(s.Comments))
	}

	redone, ok := h.Redo(s)
	if !ok {
		t.Fatal("Redo returned false")
	}
	if len(s.Comments) != 2 {
		t.Fatalf("comments = %d after redo, want 2", len(s.Comments))
	}
	if a, isAdd := redone.(AddCommentCommand); !isAdd || a.Comment.ID != "c2" {
		t.Errorf("Redo returned %#v, want the re-applied add", redone)
	}
}

func TestHistoryFreshEditClearsRedo(t *testing.T) {
	s := &models.CollaborationState{}
	h := &History{}

	h.Do(s, AddCommentCommand{Comment: models.Comment{ID: "c1", Text: "x"}})
	h.Undo(s)
	if !h.CanRedo() {
		t.Fatal("expected redo available after undo")
	}

	h.Do(s, AddCommentCommand{Comment: models.Comment{ID: "c2", Text: "y"}})
	if h.CanRedo() {
		t.Error("fresh edit must discard the undone branch")
	}
}

func TestHistoryAnnotationInverse(t *testing.T) {
	ann := models.Annotation{
		ID: "a1", Tool: models.ToolArrow, TimeStart: 1, TimeEnd: 6,
		Thickness: 3, Points: []models.Point{{X: 0, Y: 0}, {X: 9, Y: 9}},
	}
	s := &models.CollaborationState{Annotations: []models.Annotation{ann}}
	h := &History{}

	h.Do(s, DeleteAnnotationCommand{Annotation: ann})
	if len(s.Annotations) != 0 {
		t.Fatal("delete did not apply")
	}

	inv, _ := h.Undo(s)
	if len(s.Annotations) != 1 || s.Annotations[0].ID != "a1" {
		t.Errorf("undo of delete did not restore the annotation: %+v", s.Annotations)
	}
	if _, isAdd := inv.(AddAnnotationCommand); !isAdd {
		t.Errorf("Undo returned %#v, want the restoring add", inv)
	}
}

func TestHistoryEmptyStacks(t *testing.T) {
	s := &models.CollaborationState{}
	h := &History{}
	if _, ok := h.Undo(s); ok {
		t.Error("Undo on empty history returned true")
	}
	if _, ok := h.Redo(s); ok {
		t.Error("Redo on empty history returned true")
	}
}
