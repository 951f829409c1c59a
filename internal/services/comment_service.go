package services

import (
	"context"
	"sort"
	"strings"

	"ideaboard/internal/apiclient"
	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	contextutils "ideaboard/internal/utils"
)

// CommentService reads and writes an idea's comment thread
type CommentService struct {
	client  *apiclient.Client
	session *SessionService
	logger  *observability.Logger
}

// NewCommentService creates a CommentService
func NewCommentService(client *apiclient.Client, session *SessionService, logger *observability.Logger) *CommentService {
	if client == nil {
		panic("NewCommentService: client is nil")
	}
	if session == nil {
		panic("NewCommentService: session is nil")
	}
	if logger == nil {
		panic("NewCommentService: logger is nil")
	}
	return &CommentService{client: client, session: session, logger: logger}
}

// Comments returns the thread for ideaID, oldest first
func (s *CommentService) Comments(ctx context.Context, ideaID int) (result0 []models.Comment, err error) {
	ctx, span := observability.TraceIdeaFunction(ctx, "list_comments", observability.AttributeIdeaID(ideaID))
	defer observability.FinishSpan(span, &err)

	comments, err := s.client.ListComments(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedTime().Before(comments[j].CreatedTime())
	})
	return comments, nil
}

// AddComment posts text on ideaID as the current user. Blank text is rejected locally.
func (s *CommentService) AddComment(ctx context.Context, ideaID int, text string) (err error) {
	ctx, span := observability.TraceIdeaFunction(ctx, "add_comment", observability.AttributeIdeaID(ideaID))
	defer observability.FinishSpan(span, &err)

	text = strings.TrimSpace(text)
	if text == "" {
		return contextutils.Errorf(contextutils.ErrMissingRequired, "Comment cannot be empty")
	}
	user, err := s.session.RequireUser()
	if err != nil {
		return err
	}
	if err := s.client.AddComment(ctx, ideaID, user.ID, text); err != nil {
		return err
	}
	s.logger.Info(ctx, "Comment added", map[string]interface{}{"idea_id": ideaID, "user_id": user.ID})
	return nil
}
