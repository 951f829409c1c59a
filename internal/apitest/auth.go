package apitest

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"ideaboard/internal/models"
)

const (
	ctxUserID = "apitest.user_id"
	ctxRole   = "apitest.role"
)

var (
	phonePattern = regexp.MustCompile(`^\d{10}$`)
	upperPattern = regexp.MustCompile(`[A-Z]`)
	lowerPattern = regexp.MustCompile(`[a-z]`)
	digitPattern = regexp.MustCompile(`[0-9]`)
)

// IssueToken signs a session token for userID that expires after ttl
func (s *Server) IssueToken(userID int, ttl time.Duration) string {
	s.mu.Lock()
	u, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		return ""
	}
	return s.sign(u, ttl)
}

func (s *Server) sign(u *userRecord, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"user_id":  u.ID,
		"email":    u.Email,
		"role":     string(u.Role),
		"fullName": u.FullName,
		"exp":      jwt.NewNumericDate(s.now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return token
}

func (s *Server) tokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is missing!"})
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token has expired!"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token!"})
			return
		}

		userID, ok := claims["user_id"].(float64)
		role, roleOK := claims["role"].(string)
		if !ok || !roleOK {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token!"})
			return
		}
		c.Set(ctxUserID, int(userID))
		c.Set(ctxRole, models.Role(role))
		c.Next()
	}
}

func currentUser(c *gin.Context) (int, models.Role) {
	return c.GetInt(ctxUserID), c.MustGet(ctxRole).(models.Role)
}

func (s *Server) sendOTP(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	_ = c.ShouldBindJSON(&body)
	email := strings.TrimSpace(body.Email)
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}
	if !strings.HasSuffix(email, s.domain) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Only %s email addresses are allowed", s.domain)})
		return
	}

	code := fmt.Sprintf("%06d", rand.IntN(1000000))
	s.mu.Lock()
	s.otps[email] = otpRecord{code: code, expiresAt: s.now().Add(otpLifetime)}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully to your email."})
}

func (s *Server) signup(c *gin.Context) {
	var body models.SignupRequest
	_ = c.ShouldBindJSON(&body)
	email := strings.TrimSpace(body.Email)
	fullName := strings.TrimSpace(body.FullName)
	phone := strings.TrimSpace(body.Phone)
	otp := strings.TrimSpace(body.OTP)

	if email == "" || fullName == "" || phone == "" || body.Password == "" || body.ConfirmPassword == "" || otp == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required, including OTP"})
		return
	}
	if !strings.HasSuffix(email, s.domain) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Only %s email addresses are allowed", s.domain)})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.otps[email]
	switch {
	case !ok:
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP not found or expired. Please request a new one."})
		return
	case stored.code != otp:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OTP"})
		return
	case s.now().After(stored.expiresAt):
		delete(s.otps, email)
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP has expired. Please request a new one."})
		return
	}

	if msg := passwordProblem(body.Password, body.ConfirmPassword); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !phonePattern.MatchString(phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number must be exactly 10 digits"})
		return
	}
	if s.userByEmailLocked(email) != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.MinCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account. Please try again."})
		return
	}
	id := s.nextUserID
	s.nextUserID++
	s.users[id] = &userRecord{ID: id, Email: email, PasswordHash: hash, Role: models.RoleUser, FullName: fullName}
	delete(s.otps, email)

	c.JSON(http.StatusCreated, gin.H{"message": "Account created successfully! Please login to continue."})
}

func passwordProblem(password, confirm string) string {
	switch {
	case password != confirm:
		return "Passwords do not match"
	case len(password) < 8:
		return "Password must be at least 8 characters long"
	case !upperPattern.MatchString(password):
		return "Password must contain at least one uppercase letter"
	case !lowerPattern.MatchString(password):
		return "Password must contain at least one lowercase letter"
	case !digitPattern.MatchString(password):
		return "Password must contain at least one number"
	}
	return ""
}

func (s *Server) login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = c.ShouldBindJSON(&body)
	email := strings.TrimSpace(body.Email)
	if email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	s.mu.Lock()
	u := s.userByEmailLocked(email)
	var snapshot userRecord
	if u != nil {
		snapshot = *u
	}
	s.mu.Unlock()

	if u == nil || bcrypt.CompareHashAndPassword(snapshot.PasswordHash, []byte(body.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"isLoggedIn": true,
		"user": models.User{
			ID:       snapshot.ID,
			Email:    snapshot.Email,
			Role:     snapshot.Role,
			FullName: snapshot.FullName,
		},
		"token": s.sign(&snapshot, tokenLifetime),
	})
}
