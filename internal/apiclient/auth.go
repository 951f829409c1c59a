package apiclient

import (
	"context"
	"errors"
	"net/http"

	"ideaboard/internal/models"
	contextutils "ideaboard/internal/utils"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email           openapi_types.Email `json:"email"`
	FullName        string              `json:"fullName"`
	Phone           string              `json:"phone"`
	Password        string              `json:"password"`
	ConfirmPassword string              `json:"confirmPassword"`
	OTP             string              `json:"otp"`
}

type otpRequest struct {
	Email openapi_types.Email `json:"email"`
}

// Login exchanges credentials for a session token. A rejected login is reported as
// ErrInvalidCredentials carrying the server message.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/login",
		route:  "/login",
		body:   loginRequest{Email: email, Password: password},
	}, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidCredentials,
				contextutils.SeverityWarn, apiErr.Message, "", apiErr)
		}
		return nil, err
	}
	return &out, nil
}

// Signup creates an account and returns the server confirmation message
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (string, error) {
	var out messageResponse
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/signup",
		route:  "/signup",
		body: signupRequest{
			Email:           openapi_types.Email(req.Email),
			FullName:        req.FullName,
			Phone:           req.Phone,
			Password:        req.Password,
			ConfirmPassword: req.ConfirmPassword,
			OTP:             req.OTP,
		},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}

// SendOTP asks the backend to email a one-time signup code to email
func (c *Client) SendOTP(ctx context.Context, email string) (string, error) {
	var out messageResponse
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/send-otp",
		route:  "/send-otp",
		body:   otpRequest{Email: openapi_types.Email(email)},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}
