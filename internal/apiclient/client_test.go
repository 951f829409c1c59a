package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	contextutils "ideaboard/internal/utils"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	mu           sync.Mutex
	token        string
	unauthorized int
}

func (s *stubAuth) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *stubAuth) HandleUnauthorized(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unauthorized++
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := NewClientWithURL(server.URL+"/api", observability.NewNopLogger(), opts...)
	return client, server.Close
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestLogin_Success(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@adventz.com", body["email"])
		assert.Equal(t, "secret", body["password"])

		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"isLoggedIn": true,
			"user":       map[string]interface{}{"id": 3, "email": "a@adventz.com", "role": "user", "fullName": "Ann"},
			"token":      "tok",
		})
	}, WithAuthenticator(&stubAuth{token: "stale"}))
	defer cleanup()

	resp, err := client.Login(context.Background(), "a@adventz.com", "secret")
	require.NoError(t, err)
	assert.True(t, resp.IsLoggedIn)
	assert.Equal(t, 3, resp.User.ID)
	assert.Equal(t, models.RoleUser, resp.User.Role)
	assert.Equal(t, "Ann", resp.User.FullName)
	assert.Equal(t, "tok", resp.Token)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	auth := &stubAuth{}
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
	}, WithAuthenticator(auth))
	defer cleanup()

	_, err := client.Login(context.Background(), "a@adventz.com", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, contextutils.ErrInvalidCredentials))
	assert.Equal(t, "Invalid email or password", contextutils.UserMessage(err))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	// Login is unauthenticated, so the session handler is not involved
	assert.Equal(t, 0, auth.unauthorized)
}

func TestAuthenticatedCall_AttachesBearerToken(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, []interface{}{})
	}, WithAuthenticator(&stubAuth{token: "tok-123"}))
	defer cleanup()

	ideas, err := client.ListIdeas(context.Background(), IdeaFilter{})
	require.NoError(t, err)
	assert.Empty(t, ideas)
}

func TestAuthenticatedCall_UnauthorizedNotifiesAuthenticator(t *testing.T) {
	auth := &stubAuth{token: "expired"}
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"message": "Token has expired!"})
	}, WithAuthenticator(auth))
	defer cleanup()

	_, err := client.ListNotifications(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contextutils.ErrUnauthorized))
	assert.Equal(t, "Token has expired!", err.Error())
	assert.Equal(t, 1, auth.unauthorized)
}

func TestListIdeas_FilterQuery(t *testing.T) {
	start := openapi_types.Date{Time: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}
	end := openapi_types.Date{Time: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)}

	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "solar", q.Get("search"))
		assert.Equal(t, "Approved", q.Get("status"))
		assert.Equal(t, "Cost", q.Get("category"))
		assert.Equal(t, "Zuari", q.Get("company"))
		assert.Equal(t, "2025-01-02", q.Get("startDate"))
		assert.Equal(t, "2025-03-04", q.Get("endDate"))
		writeJSON(t, w, http.StatusOK, []map[string]interface{}{{
			"id":                  7,
			"ideaTitle":           "Solar",
			"departmentsImpacted": `["IT","HR"]`,
			"likes":               "2",
			"dislikes":            1,
			"points":              11,
			"user_reaction":       nil,
			"status":              "Approved",
		}})
	})
	defer cleanup()

	ideas, err := client.ListIdeas(context.Background(), IdeaFilter{
		Search: " solar ", Status: "Approved", Category: "Cost", Company: "Zuari",
		StartDate: &start, EndDate: &end,
	})
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, 7, ideas[0].ID)
	assert.Equal(t, models.StringList{"IT", "HR"}, ideas[0].DepartmentsImpacted)
	assert.Equal(t, 1, ideas[0].NetScore())
	assert.Equal(t, models.ReactionNone, ideas[0].UserReaction)
}

func TestIdeaFilter_IsZero(t *testing.T) {
	assert.True(t, IdeaFilter{}.IsZero())
	assert.True(t, IdeaFilter{Search: "   "}.IsZero())
	assert.False(t, IdeaFilter{Company: "Zuari"}.IsZero())
}

func TestCreateIdea_ReturnsServerID(t *testing.T) {
	calls := 0
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ideas", r.URL.Path)
		writeJSON(t, w, http.StatusCreated, map[string]interface{}{"message": "Idea submitted successfully", "id": 42})
	})
	defer cleanup()

	id, err := client.CreateIdea(context.Background(), map[string]interface{}{"ideaTitle": "x"})
	require.NoError(t, err)
	assert.Equal(t, 42, id)
	assert.Equal(t, 1, calls)
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantMessage string
		wantErr     *contextutils.AppError
	}{
		{
			name:        "json error field",
			status:      http.StatusNotFound,
			contentType: "application/json",
			body:        `{"error":"Idea not found"}`,
			wantMessage: "Idea not found",
			wantErr:     contextutils.ErrRecordNotFound,
		},
		{
			name:        "json message field",
			status:      http.StatusForbidden,
			contentType: "application/json; charset=utf-8",
			body:        `{"message":"Unauthorized access"}`,
			wantMessage: "Unauthorized access",
			wantErr:     contextutils.ErrForbidden,
		},
		{
			name:        "non json body",
			status:      http.StatusBadGateway,
			contentType: "text/html",
			body:        "<html>bad gateway</html>",
			wantMessage: "Server returned 502: <html>bad gateway</html>",
			wantErr:     contextutils.ErrServiceUnavailable,
		},
		{
			name:        "duplicate",
			status:      http.StatusConflict,
			contentType: "application/json",
			body:        `{"error":"An account with this email already exists"}`,
			wantMessage: "An account with this email already exists",
			wantErr:     contextutils.ErrRecordExists,
		},
		{
			name:        "bad request",
			status:      http.StatusBadRequest,
			contentType: "application/json",
			body:        `{"error":"Invalid reaction type"}`,
			wantMessage: "Invalid reaction type",
			wantErr:     contextutils.ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			defer cleanup()

			err := client.DeleteIdea(context.Background(), 9)
			require.Error(t, err)
			assert.Equal(t, tt.wantMessage, err.Error())
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestErrorResponse_TruncatesBody(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(long)
	})
	defer cleanup()

	err := client.UpdateStatus(context.Background(), []models.StatusUpdate{{ID: 1, Status: models.StatusApproved}})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Len(t, apiErr.Body, 100)
	assert.Equal(t, "Server returned 500: "+string(long[:100]), apiErr.Message)
}

func TestReact_DecodesResult(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ideas/5/react", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(2), body["userId"])
		assert.Equal(t, "like", body["reactionType"])
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"message": "Reaction removed", "likes": 0, "dislikes": 1, "points": -1, "user_reaction": nil,
		})
	})
	defer cleanup()

	res, err := client.React(context.Background(), 5, 2, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, "Reaction removed", res.Message)
	assert.Equal(t, 1, res.Dislikes)
	assert.Equal(t, -1, res.Points)
	assert.Equal(t, models.ReactionNone, res.UserReaction)
}

func TestComments_ListAndAdd(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ideas/3/comments", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			writeJSON(t, w, http.StatusOK, []map[string]interface{}{
				{"id": 1, "comment": "first", "created_at": "2025-01-01T10:00:00", "email": "a@adventz.com", "role": "admin"},
			})
		case http.MethodPost:
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "hello", body["comment"])
			writeJSON(t, w, http.StatusCreated, map[string]string{"message": "Comment added successfully"})
		}
	})
	defer cleanup()

	comments, err := client.ListComments(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, 3, comments[0].IdeaID)
	assert.Equal(t, "first", comments[0].Comment)

	require.NoError(t, client.AddComment(context.Background(), 3, 1, "hello"))
}

func TestUsers_RoleMessage(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/users/8/role", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]string{"message": "User role updated to admin"})
	})
	defer cleanup()

	msg, err := client.SetUserRole(context.Background(), 8, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "User role updated to admin", msg)
}

func TestSendOTP_RejectsMalformedEmailBeforeSending(t *testing.T) {
	called := false
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	defer cleanup()

	_, err := client.SendOTP(context.Background(), "not-an-email")
	require.Error(t, err)
	assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))
	assert.True(t, errors.Is(err, openapi_types.ErrValidationEmail))
	assert.False(t, called)
}

func TestUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClientWithURL(url, observability.NewNopLogger())
	_, err := client.ListUsers(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, contextutils.ErrServiceUnavailable))
}

func TestNonJSONSuccessIsAnError(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>index</html>"))
	})
	defer cleanup()

	_, err := client.ListUsers(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Server returned 200: <html>index</html>", err.Error())
}
