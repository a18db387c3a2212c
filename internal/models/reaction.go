package models

import "fmt"

// TargetType is the kind of entity a reaction points at.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// ReactionLike is the only reaction type the client issues.
const ReactionLike = "like"

// Reactable is the like state of a post or a comment as seen by the current viewer.
// Liked false implies ReactionID is empty. Count never goes below zero.
type Reactable struct {
	Type       TargetType `json:"type" yaml:"type"`
	ID         string     `json:"id" yaml:"id"`
	Liked      bool       `json:"liked" yaml:"liked"`
	Count      int        `json:"count" yaml:"count"`
	ReactionID string     `json:"reaction_id,omitempty" yaml:"reaction_id,omitempty"`
}

// Key identifies the reactable across posts and comments.
func (r Reactable) Key() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

// Increment bumps the count.
func (r *Reactable) Increment() {
	r.Count++
}

// Decrement lowers the count, flooring at zero.
func (r *Reactable) Decrement() {
	if r.Count > 0 {
		r.Count--
	}
}

// Reaction represents one like by the current session on a post or comment.
type Reaction struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	TargetType TargetType `json:"target_type"`
	TargetID   string     `json:"target_id"`
}

// Key identifies the reaction's target like Reactable.Key, or is "" when the
// backend did not echo the target.
func (r Reaction) Key() string {
	if r.TargetID == "" {
		return ""
	}
	return Reactable{Type: r.TargetType, ID: r.TargetID}.Key()
}

// ReactionRecord is the backend representation of a reaction.
type ReactionRecord struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	PostID    *string `json:"postId,omitempty"`
	CommentID *string `json:"commentId,omitempty"`
}

// Validate rejects a record the client cannot use to unlike later.
func (r *ReactionRecord) Validate() error {
	if r == nil || r.ID == "" {
		return NewValidationError("reaction record without id")
	}
	return nil
}

// ToReaction converts the wire record into the domain reaction.
func (r *ReactionRecord) ToReaction() Reaction {
	out := Reaction{ID: r.ID, Type: r.Type}
	switch {
	case r.CommentID != nil:
		out.TargetType = TargetComment
		out.TargetID = *r.CommentID
	case r.PostID != nil:
		out.TargetType = TargetPost
		out.TargetID = *r.PostID
	}
	return out
}

// CreateReactionRequest is the body of POST /reactions. Exactly one of
// PostID and CommentID is set.
type CreateReactionRequest struct {
	PostID    string `json:"postId,omitempty"`
	CommentID string `json:"commentId,omitempty"`
	Type      string `json:"type"`
}

// NewLikeRequest builds the create-reaction body for a target.
func NewLikeRequest(target TargetType, id string) CreateReactionRequest {
	req := CreateReactionRequest{Type: ReactionLike}
	if target == TargetComment {
		req.CommentID = id
	} else {
		req.PostID = id
	}
	return req
}
