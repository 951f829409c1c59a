package services

import (
	"context"
	"strings"

	"ideaboard/internal/apiclient"
	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	contextutils "ideaboard/internal/utils"
)

// MinAdminPasswordLength is the shortest password an admin may set for another user
const MinAdminPasswordLength = 5

// UserAdminService is the admin-only user management surface
type UserAdminService struct {
	client  *apiclient.Client
	session *SessionService
	logger  *observability.Logger
}

// NewUserAdminService creates a UserAdminService
func NewUserAdminService(client *apiclient.Client, session *SessionService, logger *observability.Logger) *UserAdminService {
	if client == nil {
		panic("NewUserAdminService: client is nil")
	}
	if session == nil {
		panic("NewUserAdminService: session is nil")
	}
	if logger == nil {
		panic("NewUserAdminService: logger is nil")
	}
	return &UserAdminService{client: client, session: session, logger: logger}
}

// requireAdmin returns the acting admin, or ErrForbidden before any request is made
func (s *UserAdminService) requireAdmin() (models.User, error) {
	user, err := s.session.RequireUser()
	if err != nil {
		return models.User{}, err
	}
	if !s.session.IsAdmin() {
		return models.User{}, contextutils.Errorf(contextutils.ErrForbidden, "Only admins can manage users")
	}
	return user, nil
}

// List returns every account, newest first
func (s *UserAdminService) List(ctx context.Context) (result0 []models.User, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "list_users")
	defer observability.FinishSpan(span, &err)

	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}
	return s.client.ListUsers(ctx)
}

// SetRole assigns role to userID. Admins cannot change their own role.
func (s *UserAdminService) SetRole(ctx context.Context, userID int, role models.Role) (result0 string, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "set_user_role",
		observability.AttributeUserID(userID), observability.AttributeRole(string(role)))
	defer observability.FinishSpan(span, &err)

	actor, err := s.requireAdmin()
	if err != nil {
		return "", err
	}
	role = models.ParseRole(string(role))
	if !role.IsAssignable() {
		return "", contextutils.Errorf(contextutils.ErrInvalidInput, "Invalid role %q", role)
	}
	if actor.ID == userID {
		return "", contextutils.Errorf(contextutils.ErrForbidden, "You cannot change your own role")
	}

	msg, err := s.client.SetUserRole(ctx, userID, role)
	if err != nil {
		return "", err
	}
	s.logger.Info(ctx, "User role changed", map[string]interface{}{
		"user_id": userID,
		"role":    role,
		"by":      actor.ID,
	})
	return msg, nil
}

// ToggleAdmin promotes a user to admin or demotes an admin to user
func (s *UserAdminService) ToggleAdmin(ctx context.Context, target models.User) (string, error) {
	switch models.ParseRole(string(target.Role)) {
	case models.RoleUser:
		return s.SetRole(ctx, target.ID, models.RoleAdmin)
	case models.RoleAdmin:
		return s.SetRole(ctx, target.ID, models.RoleUser)
	default:
		return "", contextutils.Errorf(contextutils.ErrInvalidInput,
			"Only user and admin roles can be toggled (user %d is %s)", target.ID, target.Role)
	}
}

// ResetPassword sets a new password for userID
func (s *UserAdminService) ResetPassword(ctx context.Context, userID int, password string) (result0 string, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "reset_user_password", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	actor, err := s.requireAdmin()
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(password)) < MinAdminPasswordLength {
		return "", contextutils.Errorf(contextutils.ErrValidationFailed,
			"Password must be at least %d characters long", MinAdminPasswordLength)
	}

	msg, err := s.client.ResetUserPassword(ctx, userID, password)
	if err != nil {
		return "", err
	}
	s.logger.Info(ctx, "User password reset", map[string]interface{}{"user_id": userID, "by": actor.ID})
	return msg, nil
}

// Delete removes userID. Admins cannot delete themselves.
func (s *UserAdminService) Delete(ctx context.Context, userID int) (result0 string, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "delete_user", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	actor, err := s.requireAdmin()
	if err != nil {
		return "", err
	}
	if actor.ID == userID {
		return "", contextutils.Errorf(contextutils.ErrForbidden, "You cannot delete your own account")
	}

	msg, err := s.client.DeleteUser(ctx, userID)
	if err != nil {
		return "", err
	}
	s.logger.Info(ctx, "User deleted", map[string]interface{}{"user_id": userID, "by": actor.ID})
	return msg, nil
}
