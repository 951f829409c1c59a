package apitest_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaboard/internal/apiclient"
	"ideaboard/internal/apitest"
	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	contextutils "ideaboard/internal/utils"
)

type staticToken struct {
	token        string
	unauthorized int
}

func (s *staticToken) Token() string                      { return s.token }
func (s *staticToken) HandleUnauthorized(context.Context) { s.unauthorized++ }

func loginAs(t *testing.T, srv *apitest.Server, email, password string) (*apiclient.Client, *models.User) {
	t.Helper()
	auth := &staticToken{}
	client := apiclient.NewClientWithURL(srv.URL(), observability.NewNopLogger(), apiclient.WithAuthenticator(auth))
	resp, err := client.Login(context.Background(), email, password)
	require.NoError(t, err)
	auth.token = resp.Token
	return client, &resp.User
}

func submitIdea(t *testing.T, client *apiclient.Client, userID int, title string, status models.IdeaStatus) int {
	t.Helper()
	id, err := client.CreateIdea(context.Background(), map[string]interface{}{
		"userId":              userID,
		"employeeName":        "Ann",
		"company":             "Zuari",
		"ideaTitle":           title,
		"ideaCategory":        "Cost",
		"departmentsImpacted": []string{"IT"},
		"status":              string(status),
		"submissionDate":      time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	return id
}

func TestSeededAccounts(t *testing.T) {
	srv := apitest.NewServer(t)

	_, admin := loginAs(t, srv, apitest.AdminEmail, apitest.SeedPassword)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	_, ceo := loginAs(t, srv, apitest.CEOEmail, apitest.SeedPassword)
	assert.Equal(t, models.RoleCEO, ceo.Role)
	assert.Equal(t, "Chief Executive Officer", ceo.FullName)
}

func TestMissingAndExpiredTokens(t *testing.T) {
	srv := apitest.NewServer(t)

	anonymous := &staticToken{}
	client := apiclient.NewClientWithURL(srv.URL(), observability.NewNopLogger(), apiclient.WithAuthenticator(anonymous))
	_, err := client.ListIdeas(context.Background(), apiclient.IdeaFilter{})
	require.Error(t, err)
	assert.Equal(t, "Token is missing!", err.Error())
	assert.Equal(t, 1, anonymous.unauthorized)

	adminID, ok := srv.UserID(apitest.AdminEmail)
	require.True(t, ok)
	expired := &staticToken{token: srv.IssueToken(adminID, -time.Minute)}
	client = apiclient.NewClientWithURL(srv.URL(), observability.NewNopLogger(), apiclient.WithAuthenticator(expired))
	_, err = client.ListIdeas(context.Background(), apiclient.IdeaFilter{})
	require.Error(t, err)
	assert.Equal(t, "Token has expired!", err.Error())
	assert.Equal(t, 1, expired.unauthorized)
}

func TestSignupFlow(t *testing.T) {
	srv := apitest.NewServer(t)
	client := apiclient.NewClientWithURL(srv.URL(), observability.NewNopLogger())
	ctx := context.Background()

	_, err := client.SendOTP(ctx, "someone@example.com")
	require.Error(t, err)
	assert.Equal(t, "Only @adventz.com email addresses are allowed", err.Error())

	msg, err := client.SendOTP(ctx, "new@adventz.com")
	require.NoError(t, err)
	assert.Equal(t, "OTP sent successfully to your email.", msg)
	otp, ok := srv.OTP("new@adventz.com")
	require.True(t, ok)

	req := models.SignupRequest{
		Email: "new@adventz.com", FullName: "New Person", Phone: "9876543210",
		Password: "Passw0rd", ConfirmPassword: "Passw0rd", OTP: "000000x",
	}
	_, err = client.Signup(ctx, req)
	require.Error(t, err)
	assert.Equal(t, "Invalid OTP", err.Error())

	req.OTP = otp
	msg, err = client.Signup(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Account created successfully! Please login to continue.", msg)

	_, user := loginAs(t, srv, "new@adventz.com", "Passw0rd")
	assert.Equal(t, models.RoleUser, user.Role)
}

func TestReactionToggleAndPoints(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser("u@adventz.com", "pw123", models.RoleUser, "U")
	user, me := loginAs(t, srv, "u@adventz.com", "pw123")
	ctx := context.Background()

	ideaID := submitIdea(t, user, me.ID, "Solar roofs", models.StatusSubmitted)

	res, err := user.React(ctx, ideaID, me.ID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, "Reaction added", res.Message)
	assert.Equal(t, 1, res.Likes)
	assert.Equal(t, models.ReactionLike, res.UserReaction)

	res, err = user.React(ctx, ideaID, me.ID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, "Reaction removed", res.Message)
	assert.Equal(t, 0, res.Likes)
	assert.Equal(t, models.ReactionNone, res.UserReaction)

	ceo, ceoUser := loginAs(t, srv, apitest.CEOEmail, apitest.SeedPassword)
	res, err = ceo.React(ctx, ideaID, ceoUser.ID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Points)

	idea, ok := srv.Idea(ideaID, me.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusApproved, idea.Status)

	notes := srv.Notifications(me.ID)
	require.NotEmpty(t, notes)
	assert.Equal(t, `The status of your idea "Solar roofs" has been updated to "Approved" by the CEO.`, notes[0].Message)
}

func TestDraftsHiddenFromOthers(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser("u@adventz.com", "pw123", models.RoleUser, "U")
	user, me := loginAs(t, srv, "u@adventz.com", "pw123")
	admin, _ := loginAs(t, srv, apitest.AdminEmail, apitest.SeedPassword)
	ctx := context.Background()

	submitIdea(t, user, me.ID, "Draft one", models.StatusDraft)
	submitIdea(t, user, me.ID, "Live one", models.StatusSubmitted)

	mine, err := user.ListIdeas(ctx, apiclient.IdeaFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := admin.ListIdeas(ctx, apiclient.IdeaFilter{})
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "Live one", theirs[0].IdeaTitle)
	assert.Equal(t, "u@adventz.com", theirs[0].Email)

	filtered, err := admin.ListIdeas(ctx, apiclient.IdeaFilter{Search: "LIVE"})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}

func TestUserManagementRules(t *testing.T) {
	srv := apitest.NewServer(t)
	userID := srv.AddUser("u@adventz.com", "pw123", models.RoleUser, "U")
	admin, adminUser := loginAs(t, srv, apitest.AdminEmail, apitest.SeedPassword)
	user, _ := loginAs(t, srv, "u@adventz.com", "pw123")
	ctx := context.Background()

	_, err := user.ListUsers(ctx)
	assert.True(t, errors.Is(err, contextutils.ErrForbidden))

	users, err := admin.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, userID, users[0].ID)

	_, err = admin.SetUserRole(ctx, adminUser.ID, models.RoleUser)
	require.Error(t, err)
	assert.Equal(t, "Cannot change your own role", err.Error())

	_, err = admin.SetUserRole(ctx, userID, models.RoleSuperadmin)
	require.Error(t, err)
	assert.Equal(t, "Invalid role. Must be one of: user, admin, ceo, hr", err.Error())

	_, err = admin.ResetUserPassword(ctx, userID, "abc")
	assert.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))

	msg, err := admin.DeleteUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "User deleted successfully", msg)
}

func TestFailNext(t *testing.T) {
	srv := apitest.NewServer(t)
	admin, _ := loginAs(t, srv, apitest.AdminEmail, apitest.SeedPassword)

	srv.FailNext(http.MethodGet, "/api/ideas", http.StatusBadGateway, "<html>oops</html>")
	_, err := admin.ListIdeas(context.Background(), apiclient.IdeaFilter{})
	require.Error(t, err)
	assert.Equal(t, "Server returned 502: <html>oops</html>", err.Error())

	_, err = admin.ListIdeas(context.Background(), apiclient.IdeaFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, srv.RequestCount(http.MethodGet, "/api/ideas"))
}
