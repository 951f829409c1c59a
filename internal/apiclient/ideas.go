package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ideaboard/internal/models"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// IdeaFilter narrows GET /ideas. Zero fields are not sent.
type IdeaFilter struct {
	Search    string
	Status    string
	Category  string
	Company   string
	StartDate *openapi_types.Date
	EndDate   *openapi_types.Date
}

// IsZero reports whether no filter field is set
func (f IdeaFilter) IsZero() bool {
	return f.Query().Encode() == ""
}

// Query encodes the filter as URL query parameters
func (f IdeaFilter) Query() url.Values {
	q := url.Values{}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Company != "" {
		q.Set("company", f.Company)
	}
	if f.StartDate != nil {
		q.Set("startDate", f.StartDate.Time.Format(openapi_types.DateFormat))
	}
	if f.EndDate != nil {
		q.Set("endDate", f.EndDate.Time.Format(openapi_types.DateFormat))
	}
	return q
}

type createIdeaResponse struct {
	Message string `json:"message"`
	ID      int    `json:"id"`
}

type statusUpdateRequest struct {
	Updates []models.StatusUpdate `json:"updates"`
}

type reactRequest struct {
	UserID       int                 `json:"userId"`
	ReactionType models.ReactionType `json:"reactionType"`
}

// ListIdeas fetches every idea visible to the session, filtered server side
func (c *Client) ListIdeas(ctx context.Context, filter IdeaFilter) ([]models.Idea, error) {
	var out []models.Idea
	err := c.call(ctx, request{
		method:        http.MethodGet,
		path:          "/ideas",
		route:         "/ideas",
		query:         filter.Query(),
		authenticated: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UserIdeas fetches the ideas (drafts included) owned by userID
func (c *Client) UserIdeas(ctx context.Context, userID int) ([]models.Idea, error) {
	var out []models.Idea
	err := c.call(ctx, request{
		method:        http.MethodGet,
		path:          fmt.Sprintf("/ideas/user/%d", userID),
		route:         "/ideas/user/:id",
		authenticated: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateIdea posts a new idea payload and returns the server-assigned id
func (c *Client) CreateIdea(ctx context.Context, payload map[string]interface{}) (int, error) {
	var out createIdeaResponse
	err := c.call(ctx, request{
		method:        http.MethodPost,
		path:          "/ideas",
		route:         "/ideas",
		body:          payload,
		authenticated: true,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.ID, nil
}

// UpdateIdea replaces the stored fields of idea id
func (c *Client) UpdateIdea(ctx context.Context, id int, payload map[string]interface{}) error {
	return c.call(ctx, request{
		method:        http.MethodPut,
		path:          fmt.Sprintf("/ideas/%d", id),
		route:         "/ideas/:id",
		body:          payload,
		authenticated: true,
	}, nil)
}

// DeleteIdea removes idea id along with its comments, reactions and notifications
func (c *Client) DeleteIdea(ctx context.Context, id int) error {
	return c.call(ctx, request{
		method:        http.MethodDelete,
		path:          fmt.Sprintf("/ideas/%d", id),
		route:         "/ideas/:id",
		authenticated: true,
	}, nil)
}

// UpdateStatus applies a batch of status changes
func (c *Client) UpdateStatus(ctx context.Context, updates []models.StatusUpdate) error {
	return c.call(ctx, request{
		method:        http.MethodPost,
		path:          "/ideas/update-status",
		route:         "/ideas/update-status",
		body:          statusUpdateRequest{Updates: updates},
		authenticated: true,
	}, nil)
}

// React sends a like or dislike. The server toggles an identical repeat off.
func (c *Client) React(ctx context.Context, ideaID, userID int, reaction models.ReactionType) (*models.ReactionResult, error) {
	var out models.ReactionResult
	err := c.call(ctx, request{
		method:        http.MethodPost,
		path:          fmt.Sprintf("/ideas/%d/react", ideaID),
		route:         "/ideas/:id/react",
		body:          reactRequest{UserID: userID, ReactionType: reaction},
		authenticated: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
