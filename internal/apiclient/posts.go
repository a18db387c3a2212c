package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"snmvm/internal/models"
)

// ListPosts fetches one page of the feed.
func (c *Client) ListPosts(ctx context.Context, page, limit int) (*models.PostPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var out models.PostPage
	resp, err := c.execute(ctx, http.MethodGet, "/posts", "list posts",
		c.http.R().
			SetQueryParam("page", strconv.Itoa(page)).
			SetQueryParam("limit", strconv.Itoa(limit)).
			SetResult(&out))
	if err != nil {
		return nil, err
	}
	for _, p := range out.Data {
		if err := p.Validate(); err != nil {
			return nil, decodeFailure("list posts", resp.StatusCode(), err)
		}
	}
	return &out, nil
}

// GetPost fetches a single post.
func (c *Client) GetPost(ctx context.Context, id string) (*models.PostRecord, error) {
	var out models.PostRecord
	resp, err := c.execute(ctx, http.MethodGet, "/posts/{id}", "get post",
		c.http.R().SetPathParam("id", id).SetResult(&out))
	if err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, decodeFailure("get post", resp.StatusCode(), err)
	}
	return &out, nil
}
