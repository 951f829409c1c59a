package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"ideaboard/internal/models"
)

type addCommentRequest struct {
	UserID  int    `json:"userId"`
	Comment string `json:"comment"`
}

// ListComments fetches the thread for ideaID, oldest first
func (c *Client) ListComments(ctx context.Context, ideaID int) ([]models.Comment, error) {
	var out []models.Comment
	err := c.call(ctx, request{
		method:        http.MethodGet,
		path:          fmt.Sprintf("/ideas/%d/comments", ideaID),
		route:         "/ideas/:id/comments",
		authenticated: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].IdeaID = ideaID
	}
	return out, nil
}

// AddComment appends a comment by userID to ideaID
func (c *Client) AddComment(ctx context.Context, ideaID, userID int, text string) error {
	return c.call(ctx, request{
		method:        http.MethodPost,
		path:          fmt.Sprintf("/ideas/%d/comments", ideaID),
		route:         "/ideas/:id/comments",
		body:          addCommentRequest{UserID: userID, Comment: text},
		authenticated: true,
	}, nil)
}
