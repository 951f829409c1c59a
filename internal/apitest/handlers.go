package apitest

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"ideaboard/internal/models"
)

// pathID reads the :id parameter. A non-integer id is a 404, like an unmatched route.
func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return 0, false
	}
	return id, true
}

func requireAdmin(c *gin.Context) bool {
	_, role := currentUser(c)
	if !role.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized access"})
		return false
	}
	return true
}

func (s *Server) listUsers(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	s.mu.Lock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, models.User{ID: u.ID, Email: u.Email, Role: u.Role, FullName: u.FullName})
	}
	s.mu.Unlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	c.JSON(http.StatusOK, users)
}

func (s *Server) updateUserRole(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		Role string `json:"role"`
	}
	_ = c.ShouldBindJSON(&body)

	role := models.Role(body.Role)
	if !role.IsAssignable() {
		names := make([]string, len(models.AssignableRoles))
		for i, r := range models.AssignableRoles {
			names[i] = string(r)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role. Must be one of: " + strings.Join(names, ", ")})
		return
	}
	if callerID, _ := currentUser(c); callerID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot change your own role"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	u.Role = role
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User role updated to %s", role)})
}

func (s *Server) deleteUser(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if callerID, _ := currentUser(c); callerID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if n.UserID != id {
			kept = append(kept, n)
		}
	}
	s.notifications = kept

	comments := s.comments[:0]
	for _, cm := range s.comments {
		if cm.UserID != id {
			comments = append(comments, cm)
		}
	}
	s.comments = comments

	for ideaID, idea := range s.ideas {
		if idea.UserID == id {
			s.deleteIdeaLocked(ideaID)
		}
	}

	if _, found := s.users[id]; !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	delete(s.users, id)
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (s *Server) resetUserPassword(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		Password string `json:"password"`
	}
	_ = c.ShouldBindJSON(&body)
	if len(body.Password) < 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 5 characters long"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.MinCost)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	u.PasswordHash = hash
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (s *Server) listIdeas(c *gin.Context) {
	viewerID, _ := currentUser(c)
	search := strings.ToLower(c.Query("search"))
	status := c.Query("status")
	category := c.Query("category")
	company := c.Query("company")
	startDate := c.Query("startDate")
	endDate := c.Query("endDate")

	s.mu.Lock()
	ids := make([]int, 0, len(s.ideas))
	for id := range s.ideas {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]models.Idea, 0, len(ids))
	for _, id := range ids {
		idea := s.ideas[id]
		if idea.Status == models.StatusDraft && idea.UserID != viewerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(idea.IdeaTitle), search) &&
			!strings.Contains(strings.ToLower(idea.EmployeeName), search) {
			continue
		}
		if status != "" && string(idea.Status) != status {
			continue
		}
		if category != "" && idea.IdeaCategory != category {
			continue
		}
		if company != "" && idea.Company != company {
			continue
		}
		day := models.DateOnly(idea.SubmissionDate)
		if startDate != "" && day < startDate {
			continue
		}
		if endDate != "" && day > endDate {
			continue
		}
		out = append(out, s.viewLocked(idea, viewerID))
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].SubmittedAt().After(out[j].SubmittedAt())
	})
	c.JSON(http.StatusOK, out)
}

// ideaPayload is the body of POST /ideas and PUT /ideas/:id
type ideaPayload struct {
	UserID                 int               `json:"userId"`
	EmployeeName           string            `json:"employeeName"`
	Company                string            `json:"company"`
	IdeaTitle              string            `json:"ideaTitle"`
	IdeaCategory           string            `json:"ideaCategory"`
	ProblemStatement       string            `json:"problemStatement"`
	ProposedSolution       string            `json:"proposedSolution"`
	ExpectedBenefits       string            `json:"expectedBenefits"`
	DepartmentsImpacted    models.StringList `json:"departmentsImpacted"`
	AvailabilityOfData     string            `json:"availabilityOfData"`
	DataSources            *string           `json:"dataSources"`
	EstimatedCost          string            `json:"estimatedCost"`
	ImplementationTimeline string            `json:"implementationTimeline"`
	Status                 models.IdeaStatus `json:"status"`
	SubmissionDate         string            `json:"submissionDate"`
}

func (p *ideaPayload) apply(idea *models.Idea, editedAt string) {
	idea.EmployeeName = p.EmployeeName
	idea.Company = p.Company
	idea.IdeaTitle = p.IdeaTitle
	idea.IdeaCategory = p.IdeaCategory
	idea.ProblemStatement = p.ProblemStatement
	idea.ProposedSolution = p.ProposedSolution
	idea.ExpectedBenefits = p.ExpectedBenefits
	idea.DepartmentsImpacted = p.DepartmentsImpacted
	idea.AvailabilityOfData = p.AvailabilityOfData
	idea.DataSources = p.DataSources
	idea.EstimatedCost = p.EstimatedCost
	idea.ImplementationTimeline = p.ImplementationTimeline
	idea.Status = p.Status
	idea.SubmissionDate = p.SubmissionDate
	idea.LastEditedAt = &editedAt
}

func (s *Server) createIdea(c *gin.Context) {
	var body ideaPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid idea payload"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idea := &models.Idea{ID: s.nextIdeaID, UserID: body.UserID}
	s.nextIdeaID++
	body.apply(idea, s.timestamp())
	s.ideas[idea.ID] = idea

	if body.Status == models.StatusSubmitted {
		message := fmt.Sprintf("New idea submitted by %s: '%s'", body.EmployeeName, body.IdeaTitle)
		s.notifyRoleLocked(models.RoleAdmin, idea.ID, message, 0)
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Idea submitted successfully", "id": idea.ID})
}

func (s *Server) userIdeas(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	out := make([]models.Idea, 0)
	for _, idea := range s.ideas {
		if idea.UserID == userID {
			out = append(out, *idea)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SubmittedAt().Equal(out[j].SubmittedAt()) {
			return out[i].SubmittedAt().After(out[j].SubmittedAt())
		}
		return out[i].ID > out[j].ID
	})
	c.JSON(http.StatusOK, out)
}

func (s *Server) updateIdea(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body ideaPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid idea payload"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idea, found := s.ideas[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Idea not found"})
		return
	}
	body.apply(idea, s.timestamp())
	c.JSON(http.StatusOK, gin.H{"message": "Idea updated successfully"})
}

func (s *Server) deleteIdea(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.deleteIdeaLocked(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Idea not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Idea withdrawn successfully"})
}

func (s *Server) deleteIdeaLocked(id int) bool {
	comments := s.comments[:0]
	for _, cm := range s.comments {
		if cm.IdeaID != id {
			comments = append(comments, cm)
		}
	}
	s.comments = comments

	notifications := s.notifications[:0]
	for _, n := range s.notifications {
		if n.IdeaID != id {
			notifications = append(notifications, n)
		}
	}
	s.notifications = notifications

	delete(s.reactions, id)
	if _, found := s.ideas[id]; !found {
		return false
	}
	delete(s.ideas, id)
	return true
}

func (s *Server) updateStatus(c *gin.Context) {
	var body struct {
		Updates []struct {
			ID     int    `json:"id"`
			Status string `json:"status"`
		} `json:"updates"`
	}
	_ = c.ShouldBindJSON(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, update := range body.Updates {
		if update.ID == 0 || update.Status == "" {
			continue
		}
		idea, found := s.ideas[update.ID]
		if !found {
			continue
		}
		status := models.IdeaStatus(update.Status)
		if idea.Status == status {
			continue
		}
		idea.Status = status
		editedAt := s.timestamp()
		idea.LastEditedAt = &editedAt
		s.notifyLocked(idea.UserID, idea.ID,
			fmt.Sprintf("The status of your idea \"%s\" has been updated to \"%s\".", idea.IdeaTitle, status))
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status changes saved and notifications sent successfully"})
}

func (s *Server) react(c *gin.Context) {
	ideaID, ok := pathID(c)
	if !ok {
		return
	}
	userID, role := currentUser(c)

	var body struct {
		ReactionType string `json:"reactionType"`
	}
	_ = c.ShouldBindJSON(&body)
	reaction := models.ReactionType(body.ReactionType)
	if !reaction.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reaction type"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idea, found := s.ideas[ideaID]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Idea not found"})
		return
	}

	byUser := s.reactions[ideaID]
	if byUser == nil {
		byUser = make(map[int]models.ReactionType)
		s.reactions[ideaID] = byUser
	}

	var message string
	existing, had := byUser[userID]
	switch {
	case had && existing == reaction:
		delete(byUser, userID)
		message = "Reaction removed"
	case had:
		byUser[userID] = reaction
		message = "Reaction updated"
	default:
		byUser[userID] = reaction
		message = "Reaction added"
	}

	if role == models.RoleCEO && message != "Reaction removed" {
		status := models.StatusApproved
		if reaction == models.ReactionDislike {
			status = models.StatusRejected
		}
		if idea.Status != status {
			idea.Status = status
			editedAt := s.timestamp()
			idea.LastEditedAt = &editedAt
			s.notifyLocked(idea.UserID, idea.ID,
				fmt.Sprintf("The status of your idea \"%s\" has been updated to \"%s\" by the CEO.", idea.IdeaTitle, status))
		}
	}

	view := s.viewLocked(idea, userID)
	var userReaction interface{}
	if message != "Reaction removed" {
		userReaction = string(reaction)
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       message,
		"likes":         view.Likes,
		"dislikes":      view.Dislikes,
		"points":        view.Points,
		"user_reaction": userReaction,
	})
}

func (s *Server) listComments(c *gin.Context) {
	ideaID, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	out := make([]gin.H, 0)
	for _, cm := range s.comments {
		if cm.IdeaID != ideaID {
			continue
		}
		entry := gin.H{"id": cm.ID, "comment": cm.Comment, "created_at": cm.CreatedAt}
		if u, found := s.users[cm.UserID]; found {
			entry["email"] = u.Email
			entry["role"] = u.Role
		}
		out = append(out, entry)
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) addComment(c *gin.Context) {
	ideaID, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		UserID  int    `json:"userId"`
		Comment string `json:"comment"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.UserID == 0 || body.Comment == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID and comment text are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idea, found := s.ideas[ideaID]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Idea not found"})
		return
	}
	commenter, found := s.users[body.UserID]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	now := s.timestamp()
	s.comments = append(s.comments, commentRecord{
		ID: s.nextCommentID, IdeaID: ideaID, UserID: body.UserID, Comment: body.Comment, CreatedAt: now,
	})
	s.nextCommentID++
	idea.LastEditedAt = &now

	if commenter.Role == models.RoleAdmin && body.UserID != idea.UserID {
		s.notifyLocked(idea.UserID, ideaID, fmt.Sprintf("An admin commented on your idea: \"%s\".", idea.IdeaTitle))
	}
	s.notifyRoleLocked(models.RoleAdmin, ideaID,
		fmt.Sprintf("%s commented on the idea: \"%s\".", commenter.Email, idea.IdeaTitle), body.UserID)

	c.JSON(http.StatusCreated, gin.H{"message": "Comment added successfully"})
}

func (s *Server) listNotifications(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	out := s.notificationsLocked(userID)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) markNotificationsRead(c *gin.Context) {
	var body struct {
		IDs []int `json:"ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A list of notification IDs is required"})
		return
	}

	wanted := make(map[int]bool, len(body.IDs))
	for _, id := range body.IDs {
		wanted[id] = true
	}
	s.mu.Lock()
	updated := 0
	for _, n := range s.notifications {
		if wanted[n.ID] && !n.Read() {
			n.MarkRead()
			updated++
		}
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%d notifications marked as read", updated)})
}
