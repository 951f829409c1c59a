// Package di provides the dependency injection container that wires the client services.
package di

import (
	"context"
	"sync"

	"ideaboard/internal/apiclient"
	"ideaboard/internal/config"
	"ideaboard/internal/observability"
	"ideaboard/internal/services"
	contextutils "ideaboard/internal/utils"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetSessionService() (*services.SessionService, error)
	GetIdeaBoard() (*services.IdeaBoard, error)
	GetIdeaSubmitter() (*services.IdeaSubmitter, error)
	GetFormConfigService() (*services.FormConfigService, error)
	GetDashboardService() (*services.DashboardService, error)
	GetCommentService() (*services.CommentService, error)
	GetUserAdminService() (*services.UserAdminService, error)
	GetClient() *apiclient.Client
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Service names in the registry
const (
	ServiceSession    = "session"
	ServiceBoard      = "board"
	ServiceSubmitter  = "submitter"
	ServiceFormConfig = "form_config"
	ServiceDashboard  = "dashboard"
	ServiceComments   = "comments"
	ServiceUsers      = "users"
)

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg            *config.Config
	logger         *observability.Logger
	client         *apiclient.Client
	clientOpts     []apiclient.Option
	sessionOpts    []services.SessionOption
	services       map[string]interface{}
	mu             sync.RWMutex
	shutdownFuncs  []func(context.Context) error
	sessionRestore bool
}

// ContainerOption configures a ServiceContainer
type ContainerOption func(*ServiceContainer)

// WithClientOptions passes options to the API client
func WithClientOptions(opts ...apiclient.Option) ContainerOption {
	return func(sc *ServiceContainer) { sc.clientOpts = append(sc.clientOpts, opts...) }
}

// WithSessionOptions passes options to the session service
func WithSessionOptions(opts ...services.SessionOption) ContainerOption {
	return func(sc *ServiceContainer) { sc.sessionOpts = append(sc.sessionOpts, opts...) }
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger, opts ...ContainerOption) *ServiceContainer {
	sc := &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Initialize builds every service and restores a persisted session, if any
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.cfg == nil || sc.logger == nil {
		return contextutils.ErrorWithContextf("service container needs a config and a logger")
	}

	sc.initializeServices()

	session := sc.services[ServiceSession].(*services.SessionService)
	restored, err := session.Init(ctx)
	if err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to restore session")
	}
	sc.sessionRestore = restored
	sc.logger.Debug(ctx, "Service container initialized", map[string]interface{}{
		"base_url":         sc.client.BaseURL(),
		"session_restored": restored,
	})
	return nil
}

// SessionRestored reports whether Initialize found a saved session
func (sc *ServiceContainer) SessionRestored() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.sessionRestore
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetSessionService returns the session service
func (sc *ServiceContainer) GetSessionService() (*services.SessionService, error) {
	return GetServiceAs[*services.SessionService](sc, ServiceSession)
}

// GetIdeaBoard returns the idea board
func (sc *ServiceContainer) GetIdeaBoard() (*services.IdeaBoard, error) {
	return GetServiceAs[*services.IdeaBoard](sc, ServiceBoard)
}

// GetIdeaSubmitter returns the idea submitter
func (sc *ServiceContainer) GetIdeaSubmitter() (*services.IdeaSubmitter, error) {
	return GetServiceAs[*services.IdeaSubmitter](sc, ServiceSubmitter)
}

// GetFormConfigService returns the form configuration store
func (sc *ServiceContainer) GetFormConfigService() (*services.FormConfigService, error) {
	return GetServiceAs[*services.FormConfigService](sc, ServiceFormConfig)
}

// GetDashboardService returns the dashboard aggregator
func (sc *ServiceContainer) GetDashboardService() (*services.DashboardService, error) {
	return GetServiceAs[*services.DashboardService](sc, ServiceDashboard)
}

// GetCommentService returns the comment service
func (sc *ServiceContainer) GetCommentService() (*services.CommentService, error) {
	return GetServiceAs[*services.CommentService](sc, ServiceComments)
}

// GetUserAdminService returns the user management service
func (sc *ServiceContainer) GetUserAdminService() (*services.UserAdminService, error) {
	return GetServiceAs[*services.UserAdminService](sc, ServiceUsers)
}

// GetClient returns the API client
func (sc *ServiceContainer) GetClient() *apiclient.Client {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.client
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown stops the poller and anything else that was started
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// cleanup runs the shutdown functions in reverse order of registration
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errors []error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err)
			errors = append(errors, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errors) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errors)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices() {
	// The client is shared; the session installs itself as its authenticator
	sc.client = apiclient.NewClient(&sc.cfg.API, sc.logger, sc.clientOpts...)

	session := services.NewSessionService(sc.cfg, sc.client, sc.logger, sc.sessionOpts...)
	sc.services[ServiceSession] = session
	sc.shutdownFuncs = append(sc.shutdownFuncs, session.StopPolling)

	// Everything below acts on behalf of the session
	sc.services[ServiceBoard] = services.NewIdeaBoard(sc.client, session, sc.logger)
	sc.services[ServiceSubmitter] = services.NewIdeaSubmitter(sc.client, session, sc.logger)
	sc.services[ServiceComments] = services.NewCommentService(sc.client, session, sc.logger)
	sc.services[ServiceUsers] = services.NewUserAdminService(sc.client, session, sc.logger)

	// Local-only services
	sc.services[ServiceFormConfig] = services.NewFormConfigService(sc.cfg, sc.logger)
	sc.services[ServiceDashboard] = services.NewDashboardService(sc.logger)
}
