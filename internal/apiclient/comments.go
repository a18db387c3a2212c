package apiclient

import (
	"context"
	"net/http"

	"snmvm/internal/cache"
	"snmvm/internal/models"
	"snmvm/internal/observability"
)

// ListComments fetches every comment and reply of a post in one call. With
// a cache it reads through the viewer's cached copy.
func (c *Client) ListComments(ctx context.Context, postID string) ([]*models.CommentRecord, error) {
	var records []*models.CommentRecord
	err := c.cache.CacheAside(ctx, cache.CommentsKey(c.scope, postID), &records, func() error {
		out, err := c.fetchComments(ctx, postID)
		if err != nil {
			return err
		}
		records = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// RefreshComments always asks the backend and then replaces the cached copy,
// so a thread that is opened again shows changes made elsewhere.
func (c *Client) RefreshComments(ctx context.Context, postID string) ([]*models.CommentRecord, error) {
	records, err := c.fetchComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetJSON(ctx, cache.CommentsKey(c.scope, postID), records); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache write failed", "post_id", postID, "error", err.Error())
	}
	return records, nil
}

func (c *Client) fetchComments(ctx context.Context, postID string) ([]*models.CommentRecord, error) {
	var out []*models.CommentRecord
	resp, err := c.execute(ctx, http.MethodGet, "/comments/{postId}", "list comments",
		c.http.R().SetPathParam("postId", postID).SetResult(&out))
	if err != nil {
		return nil, err
	}
	for _, r := range out {
		if err := r.Validate(); err != nil {
			return nil, decodeFailure("list comments", resp.StatusCode(), err)
		}
	}
	return out, nil
}

// CreateComment creates a comment, or a reply when ParentCommentID is set.
func (c *Client) CreateComment(ctx context.Context, in models.CreateCommentRequest) (*models.CommentRecord, error) {
	var out models.CommentRecord
	resp, err := c.execute(ctx, http.MethodPost, "/comments", "create comment",
		c.http.R().SetHeader("Content-Type", "application/json").SetBody(in).SetResult(&out))
	if err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, decodeFailure("create comment", resp.StatusCode(), err)
	}
	c.InvalidateComments(ctx, in.PostID)
	return &out, nil
}

// DeleteComment deletes a comment by id.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	_, err := c.execute(ctx, http.MethodDelete, "/comments/{id}", "delete comment",
		c.http.R().SetPathParam("id", id))
	return err
}

// InvalidateComments drops the cached comment list of a post.
func (c *Client) InvalidateComments(ctx context.Context, postID string) {
	c.cache.Invalidate(ctx, cache.CommentsKey(c.scope, postID))
}
