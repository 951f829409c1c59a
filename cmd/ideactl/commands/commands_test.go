package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaboard/internal/apitest"
	"ideaboard/internal/config"
	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	contextutils "ideaboard/internal/utils"
)

const (
	annEmail    = "ann@adventz.com"
	annPassword = "Passw0rdOne"
	superEmail  = "superadmin@adventz.com"
)

// cliEnv runs ideactl commands against an in-process backend. Every run builds a fresh App,
// so commands share state only through the files under cfg.Storage.Dir, as separate
// processes would.
type cliEnv struct {
	srv *apitest.Server
	cfg *config.Config

	mu        sync.Mutex
	passwords []string
}

type result struct {
	out    string
	errOut string
	err    error
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	srv := apitest.NewServer(t)
	cfg := config.Default()
	cfg.API.BaseURL = srv.URL()
	cfg.API.Timeout = 5 * time.Second
	cfg.Storage.Dir = t.TempDir()
	cfg.Session.PollInterval = 20 * time.Millisecond
	return &cliEnv{srv: srv, cfg: cfg}
}

// withPasswords queues answers for the next password prompts
func (e *cliEnv) withPasswords(passwords ...string) *cliEnv {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passwords = append(e.passwords, passwords...)
	return e
}

func (e *cliEnv) readPassword(string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.passwords) == 0 {
		return "", contextutils.Errorf(contextutils.ErrInvalidInput, "no password queued")
	}
	pw := e.passwords[0]
	e.passwords = e.passwords[1:]
	return pw, nil
}

func (e *cliEnv) newApp(stdin string, out, errOut *syncBuffer) *App {
	return NewApp(e.cfg, observability.NewNopLogger(),
		WithIO(strings.NewReader(stdin), out, errOut),
		WithPasswordReader(e.readPassword),
	)
}

func (e *cliEnv) runWithInput(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut syncBuffer
	app := e.newApp(stdin, &out, &errOut)
	err := Execute(context.Background(), app, args)
	require.NoError(t, app.Close(context.Background()))
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func (e *cliEnv) run(t *testing.T, args ...string) result {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e *cliEnv) login(t *testing.T, email, password string) {
	t.Helper()
	res := e.withPasswords(password).run(t, "login", email)
	require.NoError(t, res.err, res.errOut)
}

func (e *cliEnv) loginAnn(t *testing.T) int {
	t.Helper()
	id := e.srv.AddUser(annEmail, annPassword, models.RoleUser, "Ann Example")
	e.login(t, annEmail, annPassword)
	return id
}

func (e *cliEnv) loginAdmin(t *testing.T) {
	t.Helper()
	e.login(t, apitest.AdminEmail, apitest.SeedPassword)
}

func (e *cliEnv) addIdea(userID int, title string, status models.IdeaStatus, company string) int {
	return e.srv.AddIdea(models.Idea{
		UserID:              userID,
		EmployeeName:        "Ann Example",
		Company:             company,
		IdeaTitle:           title,
		IdeaCategory:        "Optimization",
		DepartmentsImpacted: models.StringList{"IT"},
		Status:              status,
		SubmissionDate:      "2024-03-01T10:00:00Z",
	})
}

// syncBuffer lets a test read output while a command is still writing it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLoginWhoamiLogout(t *testing.T) {
	env := newCLIEnv(t)

	res := env.withPasswords(apitest.SeedPassword).run(t, "login", apitest.AdminEmail)
	require.NoError(t, res.err)
	assert.Equal(t, "Logged in as admin@adventz.com (admin)\n", res.out)

	res = env.run(t, "whoami")
	require.NoError(t, res.err)
	assert.Equal(t, "admin@adventz.com <admin@adventz.com>\nID:   1\nRole: admin\n", res.out)

	res = env.run(t, "logout")
	require.NoError(t, res.err)
	assert.Equal(t, "Logged out\n", res.out)

	res = env.run(t, "whoami")
	require.NoError(t, res.err)
	assert.Equal(t, "Not logged in\n", res.out)
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	env := newCLIEnv(t)

	res := env.withPasswords("wrong").run(t, "login", apitest.AdminEmail)
	require.Error(t, res.err)
	assert.Equal(t, "Error: Invalid email or password\n", res.errOut)
	assert.Empty(t, res.out)

	res = env.run(t, "whoami")
	assert.Equal(t, "Not logged in\n", res.out)
}

func TestLoginUsesRememberedEmail(t *testing.T) {
	env := newCLIEnv(t)

	res := env.withPasswords(apitest.SeedPassword).run(t, "login", "--remember", apitest.AdminEmail)
	require.NoError(t, res.err)
	require.NoError(t, env.run(t, "logout").err)

	res = env.withPasswords(apitest.SeedPassword).runWithInput(t, "\n", "login")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "Email [admin@adventz.com]: ")
	assert.Contains(t, res.out, "Logged in as admin@adventz.com (admin)")
}

func TestCommandsRequireLogin(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run(t, "ideas", "list")
	require.Error(t, res.err)
	assert.Equal(t, "Error: You are not logged in. Run 'ideactl login' first.\n", res.errOut)
}

func TestUnknownFlagIsReported(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run(t, "ideas", "list", "--bogus")
	require.Error(t, res.err)
	assert.Equal(t, "Error: unknown flag: --bogus\n", res.errOut)
}

func TestInvalidIDIsReported(t *testing.T) {
	env := newCLIEnv(t)
	env.loginAdmin(t)

	res := env.run(t, "ideas", "show", "abc")
	require.Error(t, res.err)
	assert.Equal(t, "Error: Invalid idea id \"abc\"\n", res.errOut)
}

func TestIdeasSubmitAndShow(t *testing.T) {
	env := newCLIEnv(t)
	env.loginAnn(t)

	input := strings.Join([]string{
		"",                  // employeeName keeps the prefilled full name
		"1",                 // company
		"Chatbot",           // ideaTitle
		"2",                 // ideaCategory
		"it",                // departmentsImpacted
		"Slow support", ".", // problemStatement
		"A bot", ".", // proposedSolution
		"Savings", ".", // expectedBenefits
		"No",       // availabilityOfData keeps dataSources hidden
		"Low", ".", // estimatedCost
		"1", // implementationTimeline
	}, "\n") + "\n"

	res := env.runWithInput(t, input, "ideas", "submit")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "Employee Name * [Ann Example]")
	assert.Contains(t, res.out, "Idea 1 submitted\n")
	assert.NotContains(t, res.out, "Data Sources")
	assert.Equal(t, 1, env.srv.RequestCount("POST", "/api/ideas"))

	res = env.run(t, "ideas", "show", "1")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "Chatbot")
	assert.Contains(t, res.out, "Simon India Ltd")
	assert.Contains(t, res.out, "Submitted")
	assert.Contains(t, res.out, "\nComments\nNo comments yet.\n")
}

func TestIdeasSubmitDraftNeedsTitle(t *testing.T) {
	env := newCLIEnv(t)
	env.loginAnn(t)

	// every field left blank; the multiline ones end straight away
	input := strings.Join([]string{"", "", "", "", "", ".", ".", ".", "", ".", ""}, "\n") + "\n"

	res := env.runWithInput(t, input, "ideas", "submit", "--draft")
	require.Error(t, res.err)
	assert.Equal(t, "Error: A draft needs: Idea Title\n", res.errOut)
	assert.Zero(t, env.srv.RequestCount("POST", "/api/ideas"))
}

func TestIdeasSubmitInputEnded(t *testing.T) {
	env := newCLIEnv(t)
	env.loginAnn(t)

	res := env.runWithInput(t, "\n1\n", "ideas", "submit")
	require.Error(t, res.err)
	assert.Contains(t, res.errOut, "Error: ")
	assert.Zero(t, env.srv.RequestCount("POST", "/api/ideas"))
}

func TestIdeasListFilters(t *testing.T) {
	env := newCLIEnv(t)
	env.addIdea(1, "Solar roof", models.StatusApproved, "Simon India Ltd")
	env.addIdea(1, "Paperless HR", models.StatusSubmitted, "Zuari Cement")
	env.loginAdmin(t)

	res := env.run(t, "ideas", "list")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "Solar roof")
	assert.Contains(t, res.out, "Paperless HR")

	res = env.run(t, "ideas", "list", "--status", "approved")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "Solar roof")
	assert.NotContains(t, res.out, "Paperless HR")

	res = env.run(t, "ideas", "list", "--status", "maybe")
	require.Error(t, res.err)
	assert.Equal(t, "Error: Unknown status \"maybe\"\n", res.errOut)

	res = env.run(t, "ideas", "list", "--from", "March 1")
	require.Error(t, res.err)
	assert.Contains(t, res.errOut, "expected YYYY-MM-DD")
}

func TestIdeasReactToggles(t *testing.T) {
	env := newCLIEnv(t)
	env.addIdea(1, "Solar roof", models.StatusSubmitted, "Simon India Ltd")
	env.loginAnn(t)

	res := env.run(t, "ideas", "react", "1", "like")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Idea 1: 1 likes, 0 dislikes (your reaction: like)\n", res.out)

	res = env.run(t, "ideas", "react", "1", "dislike")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Idea 1: 0 likes, 1 dislikes (your reaction: dislike)\n", res.out)

	res = env.run(t, "ideas", "react", "1", "dislike")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Idea 1: 0 likes, 0 dislikes (your reaction: none)\n", res.out)

	res = env.run(t, "ideas", "react", "1", "love")
	require.Error(t, res.err)
	assert.Equal(t, "Error: Reaction must be like or dislike\n", res.errOut)

	assert.Equal(t, 3, env.srv.RequestCount("POST", "/api/ideas/:id/react"))
}

func TestIdeasReactRefusedForCEO(t *testing.T) {
	env := newCLIEnv(t)
	env.addIdea(1, "Solar roof", models.StatusSubmitted, "Simon India Ltd")
	env.login(t, apitest.CEOEmail, apitest.SeedPassword)

	res := env.run(t, "ideas", "react", "1", "like")
	require.Error(t, res.err)
	assert.Equal(t, "Error: Reactions are not available to the CEO account\n", res.errOut)
	assert.Zero(t, env.srv.RequestCount("POST", "/api/ideas/:id/react"))
}

func TestIdeasStatusIsAdminOnly(t *testing.T) {
	env := newCLIEnv(t)
	annID := env.srv.AddUser(annEmail, annPassword, models.RoleUser, "Ann Example")
	env.addIdea(annID, "Solar roof", models.StatusSubmitted, "Simon India Ltd")

	env.login(t, annEmail, annPassword)
	res := env.run(t, "ideas", "status", "1", "approved")
	require.Error(t, res.err)
	assert.Equal(t, "Error: This command is only available to admins\n", res.errOut)

	env.loginAdmin(t)
	res = env.run(t, "ideas", "status", "1", "under-review")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Idea 1 is now Under Review\n", res.out)

	idea, ok := env.srv.Idea(1, annID)
	require.True(t, ok)
	assert.Equal(t, models.StatusUnderReview, idea.Status)

	res = env.run(t, "ideas", "status", "1", "Draft")
	require.Error(t, res.err)
	assert.Contains(t, res.errOut, "Invalid status")
}

func TestIdeasDeleteAsksFirst(t *testing.T) {
	env := newCLIEnv(t)
	env.addIdea(1, "Solar roof", models.StatusSubmitted, "Simon India Ltd")
	env.loginAdmin(t)

	res := env.runWithInput(t, "n\n", "ideas", "delete", "1")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "Delete idea 1?")
	assert.Contains(t, res.out, "Cancelled\n")
	_, ok := env.srv.Idea(1, 1)
	assert.True(t, ok)

	res = env.run(t, "ideas", "delete", "1", "-y")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Idea 1 deleted\n", res.out)
	_, ok = env.srv.Idea(1, 1)
	assert.False(t, ok)
}

func TestIdeasDeleteRespectsPolicy(t *testing.T) {
	env := newCLIEnv(t)
	env.addIdea(1, "Solar roof", models.StatusApproved, "Simon India Ltd")
	env.loginAdmin(t)

	res := env.run(t, "ideas", "delete", "1", "-y")
	require.Error(t, res.err)
	assert.Equal(t, "Error: You do not have permission to delete this Approved idea\n", res.errOut)
	assert.Zero(t, env.srv.RequestCount("DELETE", "/api/ideas/:id"))
}

func TestIdeasExport(t *testing.T) {
	env := newCLIEnv(t)
	env.addIdea(1, "Solar roof", models.StatusApproved, "Simon India Ltd")
	env.addIdea(1, "Paperless HR", models.StatusSubmitted, "Zuari Cement")
	env.loginAdmin(t)

	res := env.run(t, "ideas", "export")
	require.NoError(t, res.err, res.errOut)
	lines := strings.Split(strings.TrimSpace(res.out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Title,Submitter,Company,Category,Status,Submission Date", lines[0])

	file := filepath.Join(t.TempDir(), "ideas.csv")
	res = env.run(t, "ideas", "export", "-f", file)
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Exported 2 ideas to "+file+"\n", res.out)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Paperless HR")
}

func TestCommentsAddAndList(t *testing.T) {
	env := newCLIEnv(t)
	env.addIdea(1, "Solar roof", models.StatusSubmitted, "Simon India Ltd")
	env.loginAdmin(t)

	res := env.run(t, "comments", "add", "1", "Looks", "good")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Comment added to idea 1\n", res.out)

	res = env.run(t, "comments", "list", "1")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "admin@adventz.com (admin)")
	assert.Contains(t, res.out, "  Looks good\n")
}

func TestNotificationsListAndRead(t *testing.T) {
	env := newCLIEnv(t)
	annID := env.srv.AddUser(annEmail, annPassword, models.RoleUser, "Ann Example")
	env.addIdea(annID, "Solar roof", models.StatusSubmitted, "Simon India Ltd")

	env.loginAdmin(t)
	require.NoError(t, env.run(t, "ideas", "status", "1", "approved").err)

	env.login(t, annEmail, annPassword)
	res := env.run(t, "notifications", "list")
	require.NoError(t, res.err, res.errOut)
	assert.True(t, strings.HasPrefix(res.out, "1 unread\n"), res.out)
	assert.Contains(t, res.out, "Status Update")

	res = env.run(t, "notif", "read")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "1 notifications marked read\n", res.out)

	res = env.run(t, "notifications", "list")
	require.NoError(t, res.err, res.errOut)
	assert.True(t, strings.HasPrefix(res.out, "0 unread\n"), res.out)
}

func TestNotificationsWatchPrintsNewOnes(t *testing.T) {
	env := newCLIEnv(t)
	annID := env.srv.AddUser(annEmail, annPassword, models.RoleUser, "Ann Example")
	env.addIdea(annID, "Solar roof", models.StatusSubmitted, "Simon India Ltd")
	env.loginAdmin(t)
	require.NoError(t, env.run(t, "ideas", "status", "1", "approved").err)
	env.login(t, annEmail, annPassword)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out, errOut syncBuffer
	app := env.newApp("", &out, &errOut)
	done := make(chan error, 1)
	go func() { done <- Execute(ctx, app, []string{"notifications", "watch"}) }()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Status Update")
	}, 5*time.Second, 10*time.Millisecond)

	// later polls return the same list, which is not printed again
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, strings.Count(out.String(), "Status Update"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	require.NoError(t, app.Close(context.Background()))
	assert.Empty(t, errOut.String())
}

func TestNotificationsWatchPollsOnEnter(t *testing.T) {
	env := newCLIEnv(t)
	env.cfg.Session.PollInterval = time.Hour
	env.srv.AddUser(annEmail, annPassword, models.RoleUser, "Ann Example")
	env.login(t, annEmail, annPassword)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out, errOut syncBuffer
	app := env.newApp("\n", &out, &errOut)
	done := make(chan error, 1)
	go func() { done <- Execute(ctx, app, []string{"notifications", "watch"}) }()

	// one poll on start and one for the Enter press, none from the hour-long ticker
	assert.Eventually(t, func() bool {
		return env.srv.RequestCount("GET", "/api/notifications/user/:id") == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	require.NoError(t, app.Close(context.Background()))
	assert.Equal(t, 2, env.srv.RequestCount("GET", "/api/notifications/user/:id"))
	assert.True(t, strings.HasSuffix(out.String(), "2 recent polls, 0 failed\n"), out.String())
}

func TestDashboard(t *testing.T) {
	env := newCLIEnv(t)
	env.addIdea(1, "Solar roof", models.StatusApproved, "Simon India Ltd")
	env.addIdea(1, "Paperless HR", models.StatusSubmitted, "Zuari Cement")
	env.loginAdmin(t)

	res := env.run(t, "dashboard")
	require.NoError(t, res.err, res.errOut)
	assert.True(t, strings.HasPrefix(res.out, "Total: 2  Approved: 1  Under Review: 0  Rejected: 0\n"), res.out)
	assert.Contains(t, res.out, "\nIdeas by Status (2)\n")
	assert.Contains(t, res.out, "\nIdeas by Company (2)\n")
	assert.NotContains(t, res.out, "Ideas by Category")

	res = env.run(t, "dashboard", "--chart", "category")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "Ideas by Category (2)")
	assert.NotContains(t, res.out, "Ideas by Status")

	res = env.run(t, "dashboard", "--chart", "bogus")
	require.Error(t, res.err)
	assert.Equal(t, "Error: unknown chart \"bogus\"\n", res.errOut)
	res = env.run(t, "dashboard", "--toggle", "company,department")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "Ideas by Status (2)")
	assert.Contains(t, res.out, "Ideas by Department")
	assert.NotContains(t, res.out, "Ideas by Company")

	res = env.run(t, "dashboard", "--toggle", "pie")
	require.Error(t, res.err)
	assert.Equal(t, "Error: unknown chart \"pie\"\n", res.errOut)
}

func TestDashboardIsAdminOnly(t *testing.T) {
	env := newCLIEnv(t)
	env.loginAnn(t)

	res := env.run(t, "dashboard")
	require.Error(t, res.err)
	assert.Equal(t, "Error: This command is only available to admins\n", res.errOut)
}

func TestFormEditingAsSuperadmin(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.AddUser(superEmail, apitest.SeedPassword, models.RoleAdmin, "")
	env.login(t, superEmail, apitest.SeedPassword)

	res := env.run(t, "whoami")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Role: superadmin\n")

	res = env.run(t, "form", "show")
	require.NoError(t, res.err, res.errOut)
	assert.True(t, strings.HasPrefix(res.out, "Revision 0\n"), res.out)
	assert.Contains(t, res.out, "availabilityOfData=Yes")

	res = env.run(t, "form", "add", "--label", "Budget", "--type", "dropdown", "--options", "Low, High")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Added field 13\nForm saved (revision 1)\n", res.out)

	res = env.run(t, "form", "set", "13", "--required")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Form saved (revision 2)\n", res.out)

	res = env.run(t, "form", "show")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "Revision 2\n")
	assert.Contains(t, res.out, "Low, High")

	res = env.run(t, "form", "move", "0", "up")
	require.Error(t, res.err)
	assert.Equal(t, "Error: Field 0 cannot move up\n", res.errOut)

	res = env.run(t, "form", "remove", "13")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Form saved (revision 3)\n", res.out)

	res = env.run(t, "form", "show", "--yaml")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "- id: 1\n")
	assert.NotContains(t, res.out, "Budget")
}

func TestFormSaveAndReset(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.AddUser(superEmail, apitest.SeedPassword, models.RoleAdmin, "")
	env.login(t, superEmail, apitest.SeedPassword)

	file := filepath.Join(t.TempDir(), "form.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`fields:
  - id: 1
    name: employeeName
    label: Employee Name
    type: text
    required: true
  - id: 2
    name: ideaTitle
    label: Idea Title
    type: text
    required: true
`), 0o600))

	res := env.run(t, "form", "save", file)
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Form saved (revision 1, 2 fields)\n", res.out)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("[]\n"), 0o600))
	res = env.run(t, "form", "save", empty)
	require.Error(t, res.err)
	assert.Equal(t, "Error: form file has no fields\n", res.errOut)

	res = env.runWithInput(t, "n\n", "form", "reset")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "Cancelled\n")

	res = env.run(t, "form", "reset", "-y")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Form reset (revision 2)\n", res.out)
}

func TestFormEditingRefusedForAdmins(t *testing.T) {
	env := newCLIEnv(t)
	env.loginAdmin(t)

	res := env.run(t, "form", "add")
	require.Error(t, res.err)
	assert.Equal(t, "Error: Only the superadmin can change the idea form\n", res.errOut)

	// reading the form is open to everyone signed in
	res = env.run(t, "form", "show")
	require.NoError(t, res.err, res.errOut)
}

func TestUsersCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.AddUser(annEmail, annPassword, models.RoleUser, "Ann Example")
	env.loginAdmin(t)

	res := env.run(t, "users", "list")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "ceo@adventz.com")
	assert.Contains(t, res.out, "Ann Example")

	res = env.run(t, "users", "toggle-admin", "3")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "User role updated to admin\n", res.out)

	res = env.run(t, "users", "role", "3", "hr")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "User role updated to hr\n", res.out)

	res = env.run(t, "users", "toggle-admin", "3")
	require.Error(t, res.err)
	assert.Equal(t, "Error: Only user and admin roles can be toggled (user 3 is hr)\n", res.errOut)

	res = env.run(t, "users", "role", "1", "user")
	require.Error(t, res.err)
	assert.Equal(t, "Error: You cannot change your own role\n", res.errOut)

	res = env.run(t, "users", "toggle-admin", "99")
	require.Error(t, res.err)
	assert.Equal(t, "Error: User 99 not found\n", res.errOut)

	res = env.withPasswords("newpass1", "other").run(t, "users", "password", "3")
	require.Error(t, res.err)
	assert.Equal(t, "Error: Passwords do not match\n", res.errOut)

	res = env.withPasswords("newpass1", "newpass1").run(t, "users", "password", "3")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "Password updated successfully\n", res.out)

	res = env.run(t, "users", "delete", "1", "-y")
	require.Error(t, res.err)
	assert.Equal(t, "Error: You cannot delete your own account\n", res.errOut)

	res = env.run(t, "users", "delete", "3", "-y")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, "User deleted successfully\n", res.out)
	_, ok := env.srv.UserID(annEmail)
	assert.False(t, ok)
}

func TestUsersCommandsRefusedForUsers(t *testing.T) {
	env := newCLIEnv(t)
	env.loginAnn(t)

	res := env.run(t, "users", "list")
	require.Error(t, res.err)
	assert.Equal(t, "Error: Only admins can manage users\n", res.errOut)
}

func TestVersion(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run(t, "version")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.out, "ideactl "), res.out)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Idea 4 not found",
		userMessage(contextutils.Errorf(contextutils.ErrRecordNotFound, "Idea %d not found", 4)))
	assert.Equal(t, contextutils.ErrorCodeRecordNotFound,
		errorCode(contextutils.Errorf(contextutils.ErrRecordNotFound, "Idea %d not found", 4)))
}
