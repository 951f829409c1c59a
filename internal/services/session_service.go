package services

import (
	"context"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"ideaboard/internal/apiclient"
	"ideaboard/internal/config"
	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	"ideaboard/internal/storage"
	contextutils "ideaboard/internal/utils"
	"ideaboard/internal/worker"
)

// sessionState is the persisted {user, token} pair
type sessionState struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// rememberState holds the remembered login email. Passwords are never stored.
type rememberState struct {
	Email string `json:"email"`
}

// SessionService owns the signed-in identity: login, restore, logout, the bearer token used by
// every authenticated call, and the notification list kept fresh by the poller.
type SessionService struct {
	cfg      *config.Config
	client   *apiclient.Client
	store    *storage.JSONFile
	remember *storage.JSONFile
	poller   *worker.NotificationPoller
	logger   *observability.Logger
	autoPoll bool

	mu            sync.RWMutex
	user          *models.User
	token         string
	role          models.Role
	notifications []models.Notification
	listeners     []func()
	watchers      []func([]models.Notification)
}

// SessionOption configures a SessionService
type SessionOption func(*SessionService)

// WithPolling controls whether Init and Login start the notification poller
func WithPolling(enabled bool) SessionOption {
	return func(s *SessionService) { s.autoPoll = enabled }
}

// NewSessionService creates a session bound to client. It installs itself as the client's
// authenticator so that every 401 from an authenticated call ends the session.
func NewSessionService(cfg *config.Config, client *apiclient.Client, logger *observability.Logger, opts ...SessionOption) *SessionService {
	if cfg == nil {
		panic("NewSessionService: cfg is nil")
	}
	if client == nil {
		panic("NewSessionService: client is nil")
	}
	if logger == nil {
		panic("NewSessionService: logger is nil")
	}

	s := &SessionService{
		cfg:      cfg,
		client:   client,
		logger:   logger,
		autoPoll: true,
		store: storage.NewJSONFile(cfg.StatePath(config.SessionFileName),
			storage.WithLockTimeout(cfg.Storage.LockTimeout)),
		remember: storage.NewJSONFile(cfg.StatePath(config.RememberFileName),
			storage.WithLockTimeout(cfg.Storage.LockTimeout)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.poller = worker.NewNotificationPoller(s.fetchNotifications, s.replaceNotifications, cfg.Session.PollInterval, logger)
	client.SetAuthenticator(s)
	return s
}

// Token returns the current bearer token, or "" when signed out
func (s *SessionService) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// HandleUnauthorized is the single reaction to a 401 on an authenticated call: the session ends.
func (s *SessionService) HandleUnauthorized(ctx context.Context) {
	s.logger.Warn(ctx, "Session rejected by server, logging out")
	if err := s.Logout(ctx); err != nil {
		s.logger.Error(ctx, "Failed to clear session after 401", err)
	}
}

// Init restores a persisted session. It reports whether a session was restored.
func (s *SessionService) Init(ctx context.Context) (restored bool, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "init")
	defer observability.FinishSpan(span, &err)

	var state sessionState
	found, err := s.store.Load(ctx, &state)
	if err != nil {
		// A corrupt session file is treated as signed out
		s.logger.Warn(ctx, "Ignoring unreadable session file", map[string]interface{}{
			"path":  s.store.Path(),
			"error": err.Error(),
		})
		return false, nil
	}
	if !found || state.Token == "" {
		return false, nil
	}

	s.establish(ctx, state.User, state.Token)
	span.SetAttributes(observability.AttributeUserID(state.User.ID), observability.AttributeRole(string(s.Role())))
	return true, nil
}

// Login authenticates against the backend and persists the session. With remember set the
// email (only) is saved for the next login prompt; otherwise any remembered email is cleared.
func (s *SessionService) Login(ctx context.Context, email, password string, remember bool) (result0 *models.User, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "login")
	defer observability.FinishSpan(span, &err)

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, contextutils.Errorf(contextutils.ErrMissingRequired, "Email and password are required")
	}

	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, contextutils.Errorf(contextutils.ErrInvalidFormat, "Login response did not include a token")
	}

	if err := s.store.Save(ctx, sessionState{User: resp.User, Token: resp.Token}); err != nil {
		return nil, contextutils.WrapError(err, "failed to persist session")
	}
	if remember {
		if err := s.remember.Save(ctx, rememberState{Email: email}); err != nil {
			s.logger.Warn(ctx, "Failed to remember email", map[string]interface{}{"error": err.Error()})
		}
	} else if err := s.remember.Remove(ctx); err != nil {
		s.logger.Warn(ctx, "Failed to forget remembered email", map[string]interface{}{"error": err.Error()})
	}

	s.establish(ctx, resp.User, resp.Token)
	user, _ := s.CurrentUser()
	span.SetAttributes(observability.AttributeUserID(user.ID), observability.AttributeRole(string(user.Role)))
	s.logger.Info(ctx, "Logged in", map[string]interface{}{
		"user_id": user.ID,
		"role":    string(user.Role),
	})
	return &user, nil
}

// establish installs an authenticated identity and starts polling when enabled
func (s *SessionService) establish(ctx context.Context, user models.User, token string) {
	role := s.ResolveRole(user, token)
	user.Role = role

	s.mu.Lock()
	s.user = &user
	s.token = token
	s.role = role
	s.notifications = nil
	s.mu.Unlock()

	if s.autoPoll {
		// The poller outlives the call that started it; only Logout or StopPolling end it
		s.poller.Start(context.WithoutCancel(ctx))
	}
}

// ResolveRole applies the role rules in order: the server record, then a role claim in the
// session token, then the configured superadmin and CEO email overrides.
func (s *SessionService) ResolveRole(user models.User, token string) models.Role {
	role := models.ParseRole(string(user.Role))
	if claim := roleClaim(token); claim != "" {
		role = models.ParseRole(claim)
	}
	if override := s.cfg.RoleOverride(user.Email); override != "" {
		role = models.Role(override)
	}
	if role == "" {
		role = models.RoleUser
	}
	return role
}

// roleClaim reads the "role" claim without verifying the signature. The backend verifies
// the token on every request; the client only uses the claim to pick what to show.
func roleClaim(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	role, _ := claims["role"].(string)
	return role
}

// Logout ends the session. It is idempotent: listeners fire only on the signed-in to
// signed-out transition, however many callers race here.
func (s *SessionService) Logout(ctx context.Context) (err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "logout")
	defer observability.FinishSpan(span, &err)

	s.mu.Lock()
	wasLoggedIn := s.token != ""
	s.user = nil
	s.token = ""
	s.role = ""
	s.notifications = nil
	var listeners []func()
	if wasLoggedIn {
		listeners = append(listeners, s.listeners...)
	}
	s.mu.Unlock()

	s.poller.Stop()

	if err := s.store.Remove(ctx); err != nil {
		return contextutils.WrapError(err, "failed to remove session file")
	}

	for _, fn := range listeners {
		fn()
	}
	if wasLoggedIn {
		s.logger.Info(ctx, "Logged out")
	}
	return nil
}

// OnLogout registers fn to run once per logout transition
func (s *SessionService) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// RememberedEmail returns the email saved by a remembered login, or ""
func (s *SessionService) RememberedEmail(ctx context.Context) string {
	var state rememberState
	if found, err := s.remember.Load(ctx, &state); err != nil || !found {
		return ""
	}
	return state.Email
}

// CurrentUser returns the signed-in user with the resolved role
func (s *SessionService) CurrentUser() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// RequireUser returns the signed-in user or ErrUnauthorized
func (s *SessionService) RequireUser() (models.User, error) {
	user, ok := s.CurrentUser()
	if !ok {
		return models.User{}, contextutils.Errorf(contextutils.ErrUnauthorized, "You are not logged in")
	}
	return user, nil
}

// IsLoggedIn reports whether a token is held
func (s *SessionService) IsLoggedIn() bool {
	return s.Token() != ""
}

// Role returns the resolved role, or "" when signed out
func (s *SessionService) Role() models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// IsAdmin reports whether the session has the admin views (admin or superadmin)
func (s *SessionService) IsAdmin() bool {
	return s.Role().IsAdmin()
}

// IsSuperadmin reports whether the session may edit the form configuration
func (s *SessionService) IsSuperadmin() bool {
	return s.Role() == models.RoleSuperadmin
}

// IsCEO reports whether the session belongs to the CEO
func (s *SessionService) IsCEO() bool {
	return s.Role() == models.RoleCEO
}

// Signup validates the request locally and then creates the account
func (s *SessionService) Signup(ctx context.Context, req models.SignupRequest) (result0 string, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "signup")
	defer observability.FinishSpan(span, &err)

	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.OTP = strings.TrimSpace(req.OTP)
	if err := s.ValidateSignup(req); err != nil {
		return "", err
	}
	return s.client.Signup(ctx, req)
}

// ValidateSignup applies the signup rules the backend also enforces
func (s *SessionService) ValidateSignup(req models.SignupRequest) error {
	missing := make([]string, 0)
	for _, f := range []struct{ name, value string }{
		{"email", req.Email},
		{"full name", req.FullName},
		{"phone", req.Phone},
		{"password", req.Password},
		{"password confirmation", req.ConfirmPassword},
		{"OTP", req.OTP},
	} {
		if contextutils.IsBlank(f.value) {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return contextutils.Errorf(contextutils.ErrMissingRequired, "Missing required fields: %s", strings.Join(missing, ", "))
	}
	if err := s.validateEmail(req.Email); err != nil {
		return err
	}
	if !contextutils.IsValidPhone(req.Phone) {
		return contextutils.Errorf(contextutils.ErrValidationFailed, "Phone number must be exactly 10 digits")
	}
	if !contextutils.PasswordIsStrong(req.Password) {
		return contextutils.Errorf(contextutils.ErrValidationFailed, "%s", contextutils.PasswordRuleMessage)
	}
	if req.Password != req.ConfirmPassword {
		return contextutils.Errorf(contextutils.ErrValidationFailed, "Passwords do not match")
	}
	return nil
}

func (s *SessionService) validateEmail(email string) error {
	if !contextutils.IsValidEmail(email) {
		return contextutils.Errorf(contextutils.ErrInvalidFormat, "Please enter a valid email address")
	}
	if domain := s.cfg.Auth.AllowedEmailDomain; !contextutils.EmailInDomain(email, domain) {
		return contextutils.Errorf(contextutils.ErrValidationFailed, "Only %s email addresses are allowed", domain)
	}
	return nil
}

// SendOTP requests a signup code for email
func (s *SessionService) SendOTP(ctx context.Context, email string) (result0 string, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "send_otp")
	defer observability.FinishSpan(span, &err)

	email = strings.TrimSpace(email)
	if email == "" {
		return "", contextutils.Errorf(contextutils.ErrMissingRequired, "Email is required")
	}
	if err := s.validateEmail(email); err != nil {
		return "", err
	}
	return s.client.SendOTP(ctx, email)
}

// Poller exposes the notification poller
func (s *SessionService) Poller() *worker.NotificationPoller {
	return s.poller
}

// StartPolling starts the notification poller for the current session
func (s *SessionService) StartPolling(ctx context.Context) error {
	if !s.IsLoggedIn() {
		return contextutils.Errorf(contextutils.ErrUnauthorized, "You are not logged in")
	}
	s.poller.Start(ctx)
	return nil
}

// StopPolling stops the notification poller and waits for it to exit
func (s *SessionService) StopPolling(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, config.PollerShutdownTimeout)
	defer cancel()
	return s.poller.Shutdown(ctx)
}

// Notifications returns a copy of the latest notification list
func (s *SessionService) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount counts unread notifications
func (s *SessionService) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(models.UnreadIDs(s.notifications))
}

// RefreshNotifications fetches the notification list once, outside the poller
func (s *SessionService) RefreshNotifications(ctx context.Context) (result0 []models.Notification, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "refresh_notifications")
	defer observability.FinishSpan(span, &err)

	list, err := s.fetchNotifications(ctx)
	if err != nil {
		return nil, err
	}
	s.replaceNotifications(ctx, list)
	return s.Notifications(), nil
}

func (s *SessionService) fetchNotifications(ctx context.Context) ([]models.Notification, error) {
	user, err := s.RequireUser()
	if err != nil {
		return nil, err
	}
	list, err := s.client.ListNotifications(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	// Tag the result so a late response cannot land in a different session
	for i := range list {
		if list[i].UserID == 0 {
			list[i].UserID = user.ID
		}
	}
	return list, nil
}

// replaceNotifications swaps in a fetched list wholesale, unless the session it was fetched
// for has since ended or changed hands.
func (s *SessionService) replaceNotifications(_ context.Context, list []models.Notification) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	for i := range list {
		if list[i].UserID != s.user.ID {
			s.mu.Unlock()
			return
		}
	}
	s.notifications = list
	watchers := make([]func([]models.Notification), len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()

	for _, fn := range watchers {
		snapshot := make([]models.Notification, len(list))
		copy(snapshot, list)
		fn(snapshot)
	}
}

// OnNotifications registers fn to receive each accepted notification list
func (s *SessionService) OnNotifications(fn func([]models.Notification)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// MarkNotificationsRead marks every unread notification read, on the server and then locally.
// It makes no request when nothing is unread.
func (s *SessionService) MarkNotificationsRead(ctx context.Context) (result0 int, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "mark_notifications_read")
	defer observability.FinishSpan(span, &err)

	s.mu.RLock()
	ids := models.UnreadIDs(s.notifications)
	s.mu.RUnlock()
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.client.MarkNotificationsRead(ctx, ids); err != nil {
		return 0, err
	}

	marked := make(map[int]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	s.mu.Lock()
	for i := range s.notifications {
		if marked[s.notifications[i].ID] {
			s.notifications[i].MarkRead()
		}
	}
	s.mu.Unlock()
	return len(ids), nil
}
