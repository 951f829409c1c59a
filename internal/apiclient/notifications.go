package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"ideaboard/internal/models"
)

type markReadRequest struct {
	IDs []int `json:"ids"`
}

// ListNotifications fetches userID's notifications, newest first
func (c *Client) ListNotifications(ctx context.Context, userID int) ([]models.Notification, error) {
	var out []models.Notification
	err := c.call(ctx, request{
		method:        http.MethodGet,
		path:          fmt.Sprintf("/notifications/user/%d", userID),
		route:         "/notifications/user/:id",
		authenticated: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkNotificationsRead flags ids as read
func (c *Client) MarkNotificationsRead(ctx context.Context, ids []int) error {
	return c.call(ctx, request{
		method:        http.MethodPost,
		path:          "/notifications/mark-read",
		route:         "/notifications/mark-read",
		body:          markReadRequest{IDs: ids},
		authenticated: true,
	}, nil)
}
