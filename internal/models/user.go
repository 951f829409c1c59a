package models

import "strings"

// Role is a user's authorization role
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
	RoleCEO        Role = "ceo"
	RoleHR         Role = "hr"
)

// AssignableRoles are the roles an admin may set through the user-management API
var AssignableRoles = []Role{RoleUser, RoleAdmin, RoleCEO, RoleHR}

// IsAssignable reports whether r may be set through PUT /users/:id/role
func (r Role) IsAssignable() bool {
	for _, candidate := range AssignableRoles {
		if r == candidate {
			return true
		}
	}
	return false
}

// IsAdmin reports whether r grants the admin views (admin or superadmin)
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// ParseRole normalizes a role string
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// User is the session identity and the row shape of GET /users
type User struct {
	ID       int    `json:"id" yaml:"id"`
	Email    string `json:"email" yaml:"email"`
	Role     Role   `json:"role" yaml:"role"`
	FullName string `json:"fullName" yaml:"fullName"`
}

// DisplayName prefers the full name and falls back to the email
func (u *User) DisplayName() string {
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Email
}

// LoginResponse is the body of a successful POST /login
type LoginResponse struct {
	IsLoggedIn bool   `json:"isLoggedIn"`
	User       User   `json:"user"`
	Token      string `json:"token"`
}

// SignupRequest is the body of POST /signup
type SignupRequest struct {
	Email           string `json:"email"`
	FullName        string `json:"fullName"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	OTP             string `json:"otp"`
}
