package models

import "time"

// DisplayTimeLayout is the layout used for confirmed timestamps.
const DisplayTimeLayout = "02/01/2006 15:04"

// Comment represents a comment on a post, or a reply when ParentID is set.
// Replies are flat: a reply never has replies of its own.
type Comment struct {
	ID        string     `json:"id" yaml:"id"`
	PostID    string     `json:"post_id" yaml:"post_id"`
	ParentID  string     `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Author    string     `json:"author" yaml:"author"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	TimeLabel string     `json:"time_label" yaml:"time_label"`
	Content   string     `json:"content" yaml:"content"`
	Likes     Reactable  `json:"likes" yaml:"likes"`
	Replies   []*Comment `json:"replies" yaml:"replies"`
}

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != ""
}

// Clone deep-copies the comment and its replies.
func (c *Comment) Clone() *Comment {
	if c == nil {
		return nil
	}
	out := *c
	out.Replies = make([]*Comment, 0, len(c.Replies))
	for _, r := range c.Replies {
		out.Replies = append(out.Replies, r.Clone())
	}
	return &out
}

// CommentRecord is the backend representation of a comment or a reply.
type CommentRecord struct {
	ID              string          `json:"id"`
	PostID          string          `json:"postId"`
	ParentCommentID *string         `json:"parentCommentId"`
	Content         string          `json:"content"`
	CreatedAt       time.Time       `json:"createdAt"`
	User            *AuthorRecord   `json:"user,omitempty"`
	ReactionsCount  int             `json:"reactionsCount"`
	UserReaction    *ReactionRecord `json:"userReaction,omitempty"`
}

// Validate checks the fields the client depends on.
func (r *CommentRecord) Validate() error {
	if r == nil || r.ID == "" {
		return NewValidationError("comment record without id")
	}
	return nil
}

// ParentID returns the parent comment id, or "" for a top-level comment.
func (r *CommentRecord) ParentID() string {
	if r.ParentCommentID == nil {
		return ""
	}
	return *r.ParentCommentID
}

// ToComment builds the confirmed comment from the record.
func (r *CommentRecord) ToComment() *Comment {
	c := &Comment{
		ID:        r.ID,
		PostID:    r.PostID,
		ParentID:  r.ParentID(),
		Author:    r.User.DisplayName(),
		CreatedAt: r.CreatedAt,
		TimeLabel: FormatTime(r.CreatedAt),
		Content:   r.Content,
		Likes: Reactable{
			Type:  TargetComment,
			ID:    r.ID,
			Count: max(r.ReactionsCount, 0),
		},
		Replies: []*Comment{},
	}
	if r.UserReaction != nil && r.UserReaction.ID != "" {
		c.Likes.Liked = true
		c.Likes.ReactionID = r.UserReaction.ID
	}
	return c
}

// CreateCommentRequest is the body of POST /comments. ParentCommentID is
// null for a top-level comment.
type CreateCommentRequest struct {
	PostID          string  `json:"postId"`
	Content         string  `json:"content"`
	ParentCommentID *string `json:"parentCommentId"`
}

// FormatTime renders a server timestamp for display in local time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(DisplayTimeLayout)
}
