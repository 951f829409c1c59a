package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"ideaboard/internal/models"
)

type roleRequest struct {
	Role models.Role `json:"role"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

// ListUsers fetches every account, newest first. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := c.call(ctx, request{
		method:        http.MethodGet,
		path:          "/users",
		route:         "/users",
		authenticated: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetUserRole changes the role of userID
func (c *Client) SetUserRole(ctx context.Context, userID int, role models.Role) (string, error) {
	var out messageResponse
	err := c.call(ctx, request{
		method:        http.MethodPut,
		path:          fmt.Sprintf("/users/%d/role", userID),
		route:         "/users/:id/role",
		body:          roleRequest{Role: role},
		authenticated: true,
	}, &out)
	return out.Message, err
}

// ResetUserPassword sets a new password for userID
func (c *Client) ResetUserPassword(ctx context.Context, userID int, password string) (string, error) {
	var out messageResponse
	err := c.call(ctx, request{
		method:        http.MethodPut,
		path:          fmt.Sprintf("/users/%d/password", userID),
		route:         "/users/:id/password",
		body:          passwordRequest{Password: password},
		authenticated: true,
	}, &out)
	return out.Message, err
}

// DeleteUser removes userID and everything they own
func (c *Client) DeleteUser(ctx context.Context, userID int) (string, error) {
	var out messageResponse
	err := c.call(ctx, request{
		method:        http.MethodDelete,
		path:          fmt.Sprintf("/users/%d", userID),
		route:         "/users/:id",
		authenticated: true,
	}, &out)
	return out.Message, err
}
