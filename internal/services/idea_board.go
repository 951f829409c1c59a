package services

import (
	"context"
	"sort"
	"sync"

	"ideaboard/internal/apiclient"
	"ideaboard/internal/config"
	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	contextutils "ideaboard/internal/utils"
)

// ViewMode selects how the board orders ideas
type ViewMode string

const (
	// ViewTop is the ten highest net scores, ties in fetch order
	ViewTop ViewMode = "top"
	// ViewAll is every idea, newest submission first
	ViewAll ViewMode = "all"
)

// ErrSuperseded is returned by Refresh when a newer fetch started before this one finished.
// The board keeps the newer result.
var ErrSuperseded = contextutils.NewAppError(contextutils.ErrorCodeConflict, contextutils.SeverityDebug,
	"Idea list fetch superseded by a newer request", "")

// IdeaBoard holds the fetched idea list and runs the reaction, status and delete flows on it
type IdeaBoard struct {
	client  *apiclient.Client
	session *SessionService
	logger  *observability.Logger

	mu         sync.RWMutex
	ideas      []models.Idea
	filter     apiclient.IdeaFilter
	generation uint64
}

// NewIdeaBoard creates an empty board
func NewIdeaBoard(client *apiclient.Client, session *SessionService, logger *observability.Logger) *IdeaBoard {
	if client == nil {
		panic("NewIdeaBoard: client is nil")
	}
	if session == nil {
		panic("NewIdeaBoard: session is nil")
	}
	if logger == nil {
		panic("NewIdeaBoard: logger is nil")
	}
	return &IdeaBoard{client: client, session: session, logger: logger}
}

// Refresh fetches the list for filter and replaces the board's contents. If another Refresh
// starts before this one returns, this result is dropped and ErrSuperseded is returned.
func (b *IdeaBoard) Refresh(ctx context.Context, filter apiclient.IdeaFilter) (result0 []models.Idea, err error) {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.filter = filter
	b.mu.Unlock()

	ctx, span := observability.TraceIdeaFunction(ctx, "refresh",
		observability.AttributeGeneration(gen),
		observability.AttributeSearch(filter.Search),
	)
	defer observability.FinishSpan(span, &err)

	list, err := b.client.ListIdeas(ctx, filter)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if gen != b.generation {
		latest := b.generation
		b.mu.Unlock()
		b.logger.Debug(ctx, "Discarding stale idea list", map[string]interface{}{
			"generation": gen,
			"latest":     latest,
		})
		return nil, ErrSuperseded
	}
	b.ideas = list
	b.mu.Unlock()

	return cloneIdeas(list), nil
}

// Reload refetches with the last filter
func (b *IdeaBoard) Reload(ctx context.Context) ([]models.Idea, error) {
	return b.Refresh(ctx, b.Filter())
}

// Filter returns the filter of the latest fetch
func (b *IdeaBoard) Filter() apiclient.IdeaFilter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter
}

// Ideas returns a copy of the board in fetch order
func (b *IdeaBoard) Ideas() []models.Idea {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneIdeas(b.ideas)
}

// Find returns the idea with id from the current board
func (b *IdeaBoard) Find(id int) (models.Idea, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i := indexOfIdea(b.ideas, id); i >= 0 {
		return b.ideas[i], true
	}
	return models.Idea{}, false
}

// View orders the board for mode
func (b *IdeaBoard) View(mode ViewMode) []models.Idea {
	ideas := b.Ideas()
	if mode == ViewAll {
		return SortByDate(ideas)
	}
	return TopIdeas(ideas, config.TopIdeasLimit)
}

// TopIdeas returns the n highest net scores. The sort is stable, so equal scores keep the
// order they were fetched in.
func TopIdeas(ideas []models.Idea, n int) []models.Idea {
	out := cloneIdeas(ideas)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NetScore() > out[j].NetScore()
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SortByDate orders ideas by submission date, newest first
func SortByDate(ideas []models.Idea) []models.Idea {
	out := cloneIdeas(ideas)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt().After(out[j].SubmittedAt())
	})
	return out
}

// ApplyReaction is the reaction state machine. Repeating the current reaction removes it,
// choosing the other one switches, and choosing one from none adds it.
func ApplyReaction(idea models.Idea, reaction models.ReactionType) models.Idea {
	switch idea.UserReaction {
	case models.ReactionLike:
		idea.Likes--
	case models.ReactionDislike:
		idea.Dislikes--
	}

	if idea.UserReaction == reaction {
		idea.UserReaction = models.ReactionNone
	} else {
		switch reaction {
		case models.ReactionLike:
			idea.Likes++
		case models.ReactionDislike:
			idea.Dislikes++
		}
		idea.UserReaction = reaction
	}

	if idea.Likes < 0 {
		idea.Likes = 0
	}
	if idea.Dislikes < 0 {
		idea.Dislikes = 0
	}
	return idea
}

// React applies reaction to the board immediately and then sends it. On success the server's
// counts replace the local ones. On any failure the whole list is refetched; the reaction
// itself is not retried.
func (b *IdeaBoard) React(ctx context.Context, ideaID int, reaction models.ReactionType) (result0 *models.Idea, err error) {
	ctx, span := observability.TraceIdeaFunction(ctx, "react",
		observability.AttributeIdeaID(ideaID),
		observability.AttributeReaction(reaction.String()),
	)
	defer observability.FinishSpan(span, &err)

	user, err := b.session.RequireUser()
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleCEO {
		return nil, contextutils.Errorf(contextutils.ErrForbidden, "Reactions are not available to the CEO account")
	}
	if !reaction.IsValid() {
		return nil, contextutils.Errorf(contextutils.ErrInvalidInput, "Invalid reaction type")
	}

	b.mu.Lock()
	idx := indexOfIdea(b.ideas, ideaID)
	if idx < 0 {
		b.mu.Unlock()
		return nil, contextutils.Errorf(contextutils.ErrRecordNotFound, "Idea %d is not on the board", ideaID)
	}
	b.ideas[idx] = ApplyReaction(b.ideas[idx], reaction)
	b.mu.Unlock()

	res, err := b.client.React(ctx, ideaID, user.ID, reaction)
	if err != nil {
		observability.RecordReaction(ctx, string(reaction), "failure")
		b.logger.Warn(ctx, "Reaction failed, refetching ideas", map[string]interface{}{
			"idea_id": ideaID,
			"error":   err.Error(),
		})
		b.resync(ctx)
		return nil, err
	}
	observability.RecordReaction(ctx, string(reaction), "success")

	b.mu.Lock()
	defer b.mu.Unlock()
	idx = indexOfIdea(b.ideas, ideaID)
	if idx < 0 {
		return nil, contextutils.Errorf(contextutils.ErrRecordNotFound, "Idea %d is no longer on the board", ideaID)
	}
	b.ideas[idx].Likes = res.Likes
	b.ideas[idx].Dislikes = res.Dislikes
	b.ideas[idx].Points = res.Points
	b.ideas[idx].UserReaction = res.UserReaction
	updated := b.ideas[idx]
	return &updated, nil
}

// resync refetches after a failed mutation. Its own failure is only logged; the caller
// already reports the original error.
func (b *IdeaBoard) resync(ctx context.Context) {
	if _, err := b.Reload(ctx); err != nil && !contextutils.IsError(err, ErrSuperseded) {
		b.logger.Warn(ctx, "Refetch after failed mutation also failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// ChangeStatus sets one idea's status. On success the row is patched in place; on failure the
// list is refetched and the error returned.
func (b *IdeaBoard) ChangeStatus(ctx context.Context, ideaID int, status models.IdeaStatus) (err error) {
	ctx, span := observability.TraceIdeaFunction(ctx, "change_status",
		observability.AttributeIdeaID(ideaID),
		observability.AttributeStatus(string(status)),
	)
	defer observability.FinishSpan(span, &err)

	if !b.session.IsAdmin() {
		return contextutils.Errorf(contextutils.ErrForbidden, "Only admins can change idea status")
	}
	if !status.IsValid() || status == models.StatusDraft {
		return contextutils.Errorf(contextutils.ErrInvalidInput, "Invalid status %q", status)
	}

	if err := b.client.UpdateStatus(ctx, []models.StatusUpdate{{ID: ideaID, Status: status}}); err != nil {
		b.resync(ctx)
		return err
	}

	b.mu.Lock()
	if idx := indexOfIdea(b.ideas, ideaID); idx >= 0 {
		b.ideas[idx].Status = status
	}
	b.mu.Unlock()
	return nil
}

// CanDelete is the delete policy: superadmins may delete anything, admins anything that is not
// Approved or Implemented, everyone else nothing.
func CanDelete(role models.Role, idea models.Idea) bool {
	switch role {
	case models.RoleSuperadmin:
		return true
	case models.RoleAdmin:
		return idea.Status != models.StatusApproved && idea.Status != models.StatusImplemented
	default:
		return false
	}
}

// Delete removes an idea as an admin, subject to CanDelete, and refetches the list
func (b *IdeaBoard) Delete(ctx context.Context, ideaID int) (err error) {
	ctx, span := observability.TraceIdeaFunction(ctx, "delete", observability.AttributeIdeaID(ideaID))
	defer observability.FinishSpan(span, &err)

	idea, ok := b.Find(ideaID)
	if !ok {
		if _, err := b.Reload(ctx); err != nil {
			return err
		}
		if idea, ok = b.Find(ideaID); !ok {
			return contextutils.Errorf(contextutils.ErrRecordNotFound, "Idea not found")
		}
	}

	if !CanDelete(b.session.Role(), idea) {
		return contextutils.Errorf(contextutils.ErrForbidden, "You do not have permission to delete this %s idea", idea.Status)
	}

	if err := b.client.DeleteIdea(ctx, ideaID); err != nil {
		b.resync(ctx)
		return err
	}
	if _, err := b.Reload(ctx); err != nil && !contextutils.IsError(err, ErrSuperseded) {
		return contextutils.WrapError(err, "idea deleted but the list could not be refreshed")
	}
	return nil
}

// MyIdeas fetches the session user's ideas split into submitted ones and drafts
func (b *IdeaBoard) MyIdeas(ctx context.Context) (submitted, drafts []models.Idea, err error) {
	ctx, span := observability.TraceIdeaFunction(ctx, "my_ideas")
	defer observability.FinishSpan(span, &err)

	user, err := b.session.RequireUser()
	if err != nil {
		return nil, nil, err
	}
	list, err := b.client.UserIdeas(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	submitted = make([]models.Idea, 0, len(list))
	drafts = make([]models.Idea, 0)
	for _, idea := range list {
		if idea.IsDraft() {
			drafts = append(drafts, idea)
		} else {
			submitted = append(submitted, idea)
		}
	}
	return submitted, drafts, nil
}

// Withdraw deletes one of the session user's own ideas while it is still a draft or freshly
// submitted.
func (b *IdeaBoard) Withdraw(ctx context.Context, ideaID int) (err error) {
	ctx, span := observability.TraceIdeaFunction(ctx, "withdraw", observability.AttributeIdeaID(ideaID))
	defer observability.FinishSpan(span, &err)

	submitted, drafts, err := b.MyIdeas(ctx)
	if err != nil {
		return err
	}
	mine := append(submitted, drafts...)
	idx := indexOfIdea(mine, ideaID)
	if idx < 0 {
		return contextutils.Errorf(contextutils.ErrForbidden, "You can only withdraw your own ideas")
	}
	if status := mine[idx].Status; status != models.StatusSubmitted && status != models.StatusDraft {
		return contextutils.Errorf(contextutils.ErrForbidden, "Ideas that are %s can no longer be withdrawn", status)
	}

	if err := b.client.DeleteIdea(ctx, ideaID); err != nil {
		b.resync(ctx)
		return err
	}

	b.mu.Lock()
	if i := indexOfIdea(b.ideas, ideaID); i >= 0 {
		b.ideas = append(b.ideas[:i:i], b.ideas[i+1:]...)
	}
	b.mu.Unlock()
	return nil
}

func indexOfIdea(ideas []models.Idea, id int) int {
	for i := range ideas {
		if ideas[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneIdeas(ideas []models.Idea) []models.Idea {
	out := make([]models.Idea, len(ideas))
	copy(out, ideas)
	return out
}
