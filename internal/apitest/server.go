// Package apitest serves the idea backend's REST surface from memory so the client
// library and CLI can be exercised end to end without a real deployment.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"ideaboard/internal/config"
	"ideaboard/internal/models"
	"ideaboard/internal/observability"
)

// timestampLayout matches the backend's naive ISO-8601 timestamps
const timestampLayout = "2006-01-02T15:04:05.000000"

// Default seeded accounts
const (
	AdminEmail    = "admin@adventz.com"
	CEOEmail      = "ceo@adventz.com"
	SeedPassword  = "12345"
	otpLifetime   = 5 * time.Minute
	tokenLifetime = 24 * time.Hour
)

type userRecord struct {
	ID           int
	Email        string
	PasswordHash []byte
	Role         models.Role
	FullName     string
}

type commentRecord struct {
	ID        int
	IdeaID    int
	UserID    int
	Comment   string
	CreatedAt string
}

type otpRecord struct {
	code      string
	expiresAt time.Time
}

type failure struct {
	status int
	body   string
}

// Server is an in-memory idea backend
type Server struct {
	mu sync.Mutex

	users         map[int]*userRecord
	ideas         map[int]*models.Idea
	reactions     map[int]map[int]models.ReactionType
	comments      []commentRecord
	notifications []*models.Notification
	otps          map[string]otpRecord

	nextUserID         int
	nextIdeaID         int
	nextCommentID      int
	nextNotificationID int

	secret   []byte
	now      func() time.Time
	domain   string
	failures map[string][]failure
	requests map[string]int

	logger *observability.Logger
	engine *gin.Engine
	http   *httptest.Server
}

// Option configures a Server
type Option func(*Server)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger sets the request logger
func WithLogger(logger *observability.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithSecret sets the HS256 signing key
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

// New creates a backend seeded with the default admin and CEO accounts. Call Start or use
// Handler directly.
func New(opts ...Option) *Server {
	s := &Server{
		users:         make(map[int]*userRecord),
		ideas:         make(map[int]*models.Idea),
		reactions:     make(map[int]map[int]models.ReactionType),
		otps:          make(map[string]otpRecord),
		failures:      make(map[string][]failure),
		requests:      make(map[string]int),
		secret:        []byte("apitest-secret"),
		now:           time.Now,
		domain:        config.DefaultEmailDomain,
		logger:        observability.NewNopLogger(),
		nextUserID:    1,
		nextIdeaID:    1,
		nextCommentID: 1,
	}
	s.nextNotificationID = 1
	for _, opt := range opts {
		opt(s)
	}

	s.AddUser(AdminEmail, SeedPassword, models.RoleAdmin, "")
	s.AddUser(CEOEmail, SeedPassword, models.RoleCEO, "Chief Executive Officer")

	s.engine = s.newRouter()
	return s
}

// NewServer starts a backend on a loopback listener and closes it when t finishes
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := New(opts...)
	s.Start()
	t.Cleanup(s.Close)
	return s
}

// Start serves the backend on a loopback listener
func (s *Server) Start() {
	s.http = httptest.NewServer(s.engine)
}

// Close stops the listener started by Start
func (s *Server) Close() {
	if s.http != nil {
		s.http.Close()
	}
}

// URL is the API root (with the /api prefix) of a started server
func (s *Server) URL() string {
	return s.http.URL + "/api"
}

// Handler exposes the gin engine
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.RedirectTrailingSlash = false

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug(c.Request.Context(), "HTTP request", map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": c.Writer.Status(),
			"http.latency_ms":  time.Since(start).Milliseconds(),
		})
	})

	router.Use(observability.GinMiddleware("ideaboard-apitest"))
	router.Use(observability.GinErrorAttributes())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.Use(s.countRequests(), s.injectFailures())

	api := router.Group("/api")
	api.POST("/send-otp", s.sendOTP)
	api.POST("/signup", s.signup)
	api.POST("/login", s.login)
	api.POST("/notifications/mark-read", s.markNotificationsRead)

	authed := api.Group("")
	authed.Use(s.tokenRequired())
	authed.GET("/users", s.listUsers)
	authed.PUT("/users/:id/role", s.updateUserRole)
	authed.DELETE("/users/:id", s.deleteUser)
	authed.PUT("/users/:id/password", s.resetUserPassword)
	authed.GET("/ideas", s.listIdeas)
	authed.POST("/ideas", s.createIdea)
	authed.GET("/ideas/user/:id", s.userIdeas)
	authed.PUT("/ideas/:id", s.updateIdea)
	authed.DELETE("/ideas/:id", s.deleteIdea)
	authed.POST("/ideas/update-status", s.updateStatus)
	authed.POST("/ideas/:id/react", s.react)
	authed.GET("/ideas/:id/comments", s.listComments)
	authed.POST("/ideas/:id/comments", s.addComment)
	authed.GET("/notifications/user/:id", s.listNotifications)

	return router
}

// countRequests tallies requests by method and route template, e.g. "POST /api/ideas"
func (s *Server) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + c.FullPath()
		s.mu.Lock()
		s.requests[key]++
		s.mu.Unlock()
		c.Next()
	}
}

// injectFailures answers a request with a queued failure instead of the real handler
func (s *Server) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + c.Request.URL.Path
		s.mu.Lock()
		queue := s.failures[key]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if f == nil {
			c.Next()
			return
		}
		contentType := "text/html; charset=utf-8"
		if strings.HasPrefix(strings.TrimSpace(f.body), "{") {
			contentType = "application/json"
		}
		c.Data(f.status, contentType, []byte(f.body))
		c.Abort()
	}
}

// FailNext makes the next request for method and path (e.g. "/api/ideas/3/react") return
// status with body. Failures queue up per request.
func (s *Server) FailNext(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

// RequestCount returns how many requests matched method and route template, e.g.
// RequestCount("POST", "/api/ideas")
func (s *Server) RequestCount(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+route]
}

// AddUser creates an account and returns its id
func (s *Server) AddUser(email, password string, role models.Role, fullName string) int {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextUserID
	s.nextUserID++
	s.users[id] = &userRecord{ID: id, Email: email, PasswordHash: hash, Role: role, FullName: fullName}
	return id
}

// UserID looks up an account by email
func (s *Server) UserID(email string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByEmailLocked(email)
	if u == nil {
		return 0, false
	}
	return u.ID, true
}

// AddIdea stores idea as-is (its ID and UserID are honoured when set) and returns the id
func (s *Server) AddIdea(idea models.Idea) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idea.ID == 0 {
		idea.ID = s.nextIdeaID
	}
	if idea.ID >= s.nextIdeaID {
		s.nextIdeaID = idea.ID + 1
	}
	if idea.SubmissionDate == "" {
		idea.SubmissionDate = s.timestamp()
	}
	idea.Likes, idea.Dislikes, idea.Points, idea.UserReaction = 0, 0, 0, models.ReactionNone
	stored := idea
	s.ideas[idea.ID] = &stored
	return idea.ID
}

// Idea returns a snapshot of a stored idea with counts computed for viewerID
func (s *Server) Idea(id, viewerID int) (models.Idea, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idea, ok := s.ideas[id]
	if !ok {
		return models.Idea{}, false
	}
	return s.viewLocked(idea, viewerID), true
}

// Notifications returns the stored notifications for userID, newest first
func (s *Server) Notifications(userID int) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notificationsLocked(userID)
}

// OTP returns the pending signup code for email
func (s *Server) OTP(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.otps[email]
	return rec.code, ok
}

func (s *Server) timestamp() string {
	return s.now().Format(timestampLayout)
}

func (s *Server) userByEmailLocked(email string) *userRecord {
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

// viewLocked computes the per-viewer reaction fields the list endpoint joins in
func (s *Server) viewLocked(idea *models.Idea, viewerID int) models.Idea {
	view := *idea
	view.Likes, view.Dislikes, view.Points = 0, 0, 0
	view.UserReaction = models.ReactionNone
	if owner, ok := s.users[idea.UserID]; ok {
		view.Email = owner.Email
	}
	for userID, reaction := range s.reactions[idea.ID] {
		switch reaction {
		case models.ReactionLike:
			view.Likes++
			if u, ok := s.users[userID]; ok && u.Role == models.RoleCEO {
				view.Points += 10
			} else {
				view.Points++
			}
		case models.ReactionDislike:
			view.Dislikes++
			view.Points--
		}
		if userID == viewerID {
			view.UserReaction = reaction
		}
	}
	return view
}

func (s *Server) notifyLocked(userID, ideaID int, message string) {
	s.notifications = append(s.notifications, &models.Notification{
		ID:        s.nextNotificationID,
		UserID:    userID,
		IdeaID:    ideaID,
		Message:   message,
		CreatedAt: s.timestamp(),
	})
	s.nextNotificationID++
}

func (s *Server) notifyRoleLocked(role models.Role, ideaID int, message string, skipUserID int) {
	ids := make([]int, 0)
	for _, u := range s.users {
		if u.Role == role && u.ID != skipUserID {
			ids = append(ids, u.ID)
		}
	}
	sort.Ints(ids)
	for _, id := range ids {
		s.notifyLocked(id, ideaID, message)
	}
}

func (s *Server) notificationsLocked(userID int) []models.Notification {
	out := make([]models.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}
