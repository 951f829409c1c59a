// Package commands holds the ideactl command tree.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"

	"ideaboard/internal/apiclient"
	"ideaboard/internal/config"
	"ideaboard/internal/di"
	"ideaboard/internal/observability"
	"ideaboard/internal/services"
	contextutils "ideaboard/internal/utils"
	"ideaboard/internal/views"
)

// App carries what every command needs: configuration, logging, terminal streams and the
// lazily built service container.
type App struct {
	cfg           *config.Config
	logger        *observability.Logger
	in            io.Reader
	out           io.Writer
	errOut        io.Writer
	containerOpts []di.ContainerOption
	readPassword  func(prompt string) (string, error)

	once      sync.Once
	container *di.ServiceContainer
	initErr   error
	prompter  *views.Prompter
}

// AppOption configures an App
type AppOption func(*App)

// WithIO replaces stdin, stdout and stderr
func WithIO(in io.Reader, out, errOut io.Writer) AppOption {
	return func(a *App) {
		a.in = in
		a.out = out
		a.errOut = errOut
	}
}

// WithContainerOptions passes options to the service container
func WithContainerOptions(opts ...di.ContainerOption) AppOption {
	return func(a *App) { a.containerOpts = append(a.containerOpts, opts...) }
}

// WithPasswordReader replaces the terminal password prompt
func WithPasswordReader(fn func(prompt string) (string, error)) AppOption {
	return func(a *App) { a.readPassword = fn }
}

// NewApp creates an App for one command run
func NewApp(cfg *config.Config, logger *observability.Logger, opts ...AppOption) *App {
	if cfg == nil {
		panic("NewApp: cfg is nil")
	}
	if logger == nil {
		panic("NewApp: logger is nil")
	}
	a := &App{
		cfg:    cfg,
		logger: logger,
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.prompter = views.NewPrompter(a.in, a.out)
	if a.readPassword == nil {
		a.readPassword = a.terminalPassword
	}
	return a
}

// load builds and initializes the container on first use. Polling stays off unless a
// command starts it.
func (a *App) load(ctx context.Context) (*di.ServiceContainer, error) {
	a.once.Do(func() {
		opts := append([]di.ContainerOption{
			di.WithSessionOptions(services.WithPolling(false)),
		}, a.containerOpts...)
		a.container = di.NewServiceContainer(a.cfg, a.logger, opts...)
		a.initErr = a.container.Initialize(ctx)
	})
	return a.container, a.initErr
}

// Close shuts the container down if one was built
func (a *App) Close(ctx context.Context) error {
	if a.container == nil || a.initErr != nil {
		return nil
	}
	return a.container.Shutdown(ctx)
}

func (a *App) session(ctx context.Context) (*services.SessionService, error) {
	c, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetSessionService()
}

// loggedIn returns the session after checking a user is signed in
func (a *App) loggedIn(ctx context.Context) (*services.SessionService, error) {
	session, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := session.RequireUser(); err != nil {
		return nil, contextutils.Errorf(contextutils.ErrUnauthorized, "You are not logged in. Run 'ideactl login' first.")
	}
	return session, nil
}

func (a *App) board(ctx context.Context) (*services.IdeaBoard, error) {
	if _, err := a.loggedIn(ctx); err != nil {
		return nil, err
	}
	return a.container.GetIdeaBoard()
}

// requireAdmin returns the session when it holds an admin role
func (a *App) requireAdmin(ctx context.Context) (*services.SessionService, error) {
	session, err := a.loggedIn(ctx)
	if err != nil {
		return nil, err
	}
	if !session.IsAdmin() {
		return nil, contextutils.Errorf(contextutils.ErrForbidden, "This command is only available to admins")
	}
	return session, nil
}

// printf writes user-facing output; write errors on a terminal are not actionable
func (a *App) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

// fail logs err with its detail and prints the line a person should see. The returned error
// makes the process exit non-zero. The log entry is a warning so the default error level
// does not repeat the printed line.
func (a *App) fail(ctx context.Context, action string, err error) error {
	a.logger.Warn(ctx, action, map[string]interface{}{
		"code":  string(errorCode(err)),
		"error": err.Error(),
	})
	_, _ = fmt.Fprintf(a.errOut, "Error: %s\n", userMessage(err))
	return reportedError{err}
}

// reportedError marks an error fail has already printed
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

// userMessage prefers the application message, then the server's, then a generic line
func userMessage(err error) string {
	var appErr *contextutils.AppError
	if contextutils.AsError(err, &appErr) {
		return contextutils.UserMessage(err)
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return contextutils.UserMessage(err)
}

func errorCode(err error) contextutils.ErrorCode {
	if _, isApp := err.(*contextutils.AppError); isApp {
		return contextutils.GetErrorCode(err)
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code()
	}
	return contextutils.ErrorCodeInternalError
}

// confirm asks unless skip is set
func (a *App) confirm(skip bool, format string, args ...interface{}) bool {
	if skip {
		return true
	}
	return a.prompter.Confirm(fmt.Sprintf(format, args...))
}

func (a *App) terminalPassword(prompt string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprintf(a.out, "%s: ", prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(a.out)
		if err != nil {
			return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
		}
		return string(b), nil
	}
	return a.prompter.Ask(prompt)
}

// parseID reads a positive integer argument
func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || id <= 0 {
		return 0, contextutils.Errorf(contextutils.ErrInvalidInput, "Invalid %s id %q", what, arg)
	}
	return id, nil
}
