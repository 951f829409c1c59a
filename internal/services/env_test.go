package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ideaboard/internal/apiclient"
	"ideaboard/internal/apitest"
	"ideaboard/internal/config"
	"ideaboard/internal/models"
	"ideaboard/internal/observability"
)

const testPassword = "Passw0rdOne"

// testEnv wires the services against an in-process backend, with state files under a temp dir
type testEnv struct {
	srv     *apitest.Server
	cfg     *config.Config
	client  *apiclient.Client
	session *SessionService
	board   *IdeaBoard
	logger  *observability.Logger
}

func newTestConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 5 * time.Second
	cfg.Storage.Dir = t.TempDir()
	cfg.Session.PollInterval = time.Hour
	return cfg
}

func newTestEnv(t *testing.T, opts ...SessionOption) *testEnv {
	t.Helper()
	srv := apitest.NewServer(t)
	cfg := newTestConfig(t, srv.URL())
	logger := observability.NewNopLogger()
	client := apiclient.NewClient(&cfg.API, logger)
	session := NewSessionService(cfg, client, logger, append([]SessionOption{WithPolling(false)}, opts...)...)
	t.Cleanup(func() { _ = session.Logout(context.Background()) })
	return &testEnv{
		srv:     srv,
		cfg:     cfg,
		client:  client,
		session: session,
		board:   NewIdeaBoard(client, session, logger),
		logger:  logger,
	}
}

func (e *testEnv) login(t *testing.T, email, password string) models.User {
	t.Helper()
	user, err := e.session.Login(context.Background(), email, password, false)
	require.NoError(t, err)
	return *user
}

// loginNewUser creates an account with testPassword and logs it in
func (e *testEnv) loginNewUser(t *testing.T, email string, role models.Role) models.User {
	t.Helper()
	e.srv.AddUser(email, testPassword, role, "")
	return e.login(t, email, testPassword)
}

func (e *testEnv) loginAdmin(t *testing.T) models.User {
	t.Helper()
	return e.login(t, apitest.AdminEmail, apitest.SeedPassword)
}

func submittedIdea(userID int, title string, status models.IdeaStatus, submitted string) models.Idea {
	return models.Idea{
		UserID:              userID,
		EmployeeName:        "Ann Example",
		Company:             "Simon India Ltd",
		IdeaTitle:           title,
		IdeaCategory:        "Optimization",
		DepartmentsImpacted: models.StringList{"IT"},
		Status:              status,
		SubmissionDate:      submitted,
	}
}
