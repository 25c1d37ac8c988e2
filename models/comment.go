package models

import "time"

// CommentColorCategory is a fixed set used purely for visual grouping
// of comment markers on the review timeline.
type CommentColorCategory string

const (
	CommentCategoryFeedback  CommentColorCategory = "feedback"
	CommentCategoryTechnical CommentColorCategory = "technical"
	CommentCategoryCreative  CommentColorCategory = "creative"
	CommentCategoryApproval  CommentColorCategory = "approval"
)

// ValidCommentCategory reports whether c is a known color category.
// An empty category is allowed and rendered with the default marker.
func ValidCommentCategory(c CommentColorCategory) bool {
	switch c {
	case "", CommentCategoryFeedback, CommentCategoryTechnical, CommentCategoryCreative, CommentCategoryApproval:
		return true
	}
	return false
}

// Comment is time-anchored feedback on a video. Mutated only by
// resolve/unresolve after creation.
type Comment struct {
	ID            string               `json:"id"`
	Time          float64              `json:"time"` // seconds
	Text          string               `json:"text"`
	IsResolved    bool                 `json:"isResolved"`
	Author        string               `json:"author"`
	CreatedAt     time.Time            `json:"createdAt"`
	ColorCategory CommentColorCategory `json:"colorCategory,omitempty"`
}
