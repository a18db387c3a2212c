// Package models contains data structures for the client's domain models and
// the typed records exchanged with the backend.
package models

import "time"

// Post represents a post in the feed together with the viewer's like state.
type Post struct {
	ID            string    `json:"id" yaml:"id"`
	Author        string    `json:"author" yaml:"author"`
	AuthorID      string    `json:"author_id" yaml:"author_id"`
	Content       string    `json:"content" yaml:"content"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	TimeLabel     string    `json:"time_label" yaml:"time_label"`
	CommentsCount int       `json:"comments_count" yaml:"comments_count"`
	Likes         Reactable `json:"likes" yaml:"likes"`
}

// PostRecord is the backend representation of a post.
type PostRecord struct {
	ID             string          `json:"id"`
	Content        string          `json:"content"`
	CreatedAt      time.Time       `json:"createdAt"`
	User           *AuthorRecord   `json:"user,omitempty"`
	ReactionsCount int             `json:"reactionsCount"`
	CommentsCount  int             `json:"commentsCount"`
	UserReaction   *ReactionRecord `json:"userReaction,omitempty"`
}

// Validate checks the fields the client depends on.
func (r *PostRecord) Validate() error {
	if r == nil || r.ID == "" {
		return NewValidationError("post record without id")
	}
	return nil
}

// ToPost builds the feed entry from the record.
func (r *PostRecord) ToPost() *Post {
	p := &Post{
		ID:            r.ID,
		Author:        r.User.DisplayName(),
		Content:       r.Content,
		CreatedAt:     r.CreatedAt,
		TimeLabel:     FormatTime(r.CreatedAt),
		CommentsCount: r.CommentsCount,
		Likes: Reactable{
			Type:  TargetPost,
			ID:    r.ID,
			Count: max(r.ReactionsCount, 0),
		},
	}
	if r.User != nil {
		p.AuthorID = r.User.ID
	}
	if r.UserReaction != nil && r.UserReaction.ID != "" {
		p.Likes.Liked = true
		p.Likes.ReactionID = r.UserReaction.ID
	}
	return p
}

// PostPage is the paginated body of GET /posts.
type PostPage struct {
	Data  []*PostRecord `json:"data"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int           `json:"total"`
}
