package apiclient

import (
	"context"
	"net/http"

	"snmvm/internal/models"
)

// CreateReaction likes a post or a comment and returns the created reaction.
func (c *Client) CreateReaction(ctx context.Context, in models.CreateReactionRequest) (*models.ReactionRecord, error) {
	var out models.ReactionRecord
	resp, err := c.execute(ctx, http.MethodPost, "/reactions", "create reaction",
		c.http.R().SetHeader("Content-Type", "application/json").SetBody(in).SetResult(&out))
	if err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, decodeFailure("create reaction", resp.StatusCode(), err)
	}
	return &out, nil
}

// DeleteReaction removes a like by its reaction id.
func (c *Client) DeleteReaction(ctx context.Context, id string) error {
	_, err := c.execute(ctx, http.MethodDelete, "/reactions/{id}", "delete reaction",
		c.http.R().SetPathParam("id", id))
	return err
}
