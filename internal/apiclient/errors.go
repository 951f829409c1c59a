package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ideaboard/internal/config"
	contextutils "ideaboard/internal/utils"
)

// APIError is a non-2xx response (or a 2xx with an unreadable body)
type APIError struct {
	StatusCode int
	// Message is the server's "error" (or "message") field, or a "Server returned ..." line
	// for non-JSON bodies
	Message string
	// Body holds at most the first ErrorBodyPreviewLimit bytes of the raw response
	Body string
}

func newAPIError(status int, isJSON bool, raw []byte) *APIError {
	preview := string(raw)
	if len(preview) > config.ErrorBodyPreviewLimit {
		preview = preview[:config.ErrorBodyPreviewLimit]
	}
	apiErr := &APIError{StatusCode: status, Body: preview}

	if isJSON {
		var envelope messageResponse
		if err := json.Unmarshal(raw, &envelope); err == nil {
			switch {
			case envelope.Error != "":
				apiErr.Message = envelope.Error
			case envelope.Message != "":
				apiErr.Message = envelope.Message
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("Error: %s", http.StatusText(status))
		}
		return apiErr
	}

	apiErr.Message = fmt.Sprintf("Server returned %d: %s", status, preview)
	return apiErr
}

// Error implements the error interface with the server message
func (e *APIError) Error() string {
	return e.Message
}

// Is maps HTTP statuses onto the shared error taxonomy so callers can use errors.Is with
// the contextutils sentinels.
func (e *APIError) Is(target error) bool {
	appErr, ok := target.(*contextutils.AppError)
	if !ok {
		return false
	}
	return appErr.Code == e.Code()
}

// Code returns the contextutils error code for the status
func (e *APIError) Code() contextutils.ErrorCode {
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return contextutils.ErrorCodeValidationFailed
	case e.StatusCode == http.StatusUnauthorized:
		return contextutils.ErrorCodeUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return contextutils.ErrorCodeForbidden
	case e.StatusCode == http.StatusNotFound:
		return contextutils.ErrorCodeRecordNotFound
	case e.StatusCode == http.StatusConflict:
		return contextutils.ErrorCodeRecordExists
	case e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusGatewayTimeout:
		return contextutils.ErrorCodeTimeout
	default:
		return contextutils.ErrorCodeServiceUnavailable
	}
}

// StatusCode extracts the HTTP status from an APIError anywhere in err's chain, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
