package commands

import (
	"os"
	"strings"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/spf13/cobra"

	"ideaboard/internal/apiclient"
	"ideaboard/internal/models"
	"ideaboard/internal/services"
	contextutils "ideaboard/internal/utils"
	"ideaboard/internal/views"
)

// IdeaCommands returns the idea commands
func IdeaCommands(app *App) *cobra.Command {
	ideasCmd := &cobra.Command{
		Use:   "ideas",
		Short: "Browse, submit and review ideas",
		Long: `Browse, submit and review ideas.

Available commands:
  list     - List ideas, newest first, with optional filters
  top      - Show the ten ideas with the highest net score
  mine     - List your submitted ideas and drafts
  show     - Show one idea with its comments
  submit   - Fill in the idea form and submit it (or save a draft)
  edit     - Edit one of your drafts or submitted ideas
  withdraw - Withdraw one of your drafts or submitted ideas
  delete   - Delete an idea (admins)
  react    - Like or dislike an idea
  status   - Change an idea's status (admins)
  export   - Export ideas as CSV (admins)`,
	}

	ideasCmd.AddCommand(ideasListCmd(app))
	ideasCmd.AddCommand(ideasTopCmd(app))
	ideasCmd.AddCommand(ideasMineCmd(app))
	ideasCmd.AddCommand(ideasShowCmd(app))
	ideasCmd.AddCommand(ideasSubmitCmd(app))
	ideasCmd.AddCommand(ideasEditCmd(app))
	ideasCmd.AddCommand(ideasWithdrawCmd(app))
	ideasCmd.AddCommand(ideasDeleteCmd(app))
	ideasCmd.AddCommand(ideasReactCmd(app))
	ideasCmd.AddCommand(ideasStatusCmd(app))
	ideasCmd.AddCommand(ideasExportCmd(app))

	return ideasCmd
}

// filterFlags binds the GET /ideas filter to flags
type filterFlags struct {
	search   string
	status   string
	category string
	company  string
	from     string
	to       string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "match title, submitter or problem statement")
	cmd.Flags().StringVar(&f.status, "status", "", "only ideas with this status")
	cmd.Flags().StringVar(&f.category, "category", "", "only ideas in this category")
	cmd.Flags().StringVar(&f.company, "company", "", "only ideas from this company")
	cmd.Flags().StringVar(&f.from, "from", "", "submitted on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "submitted on or before this date (YYYY-MM-DD)")
}

func (f *filterFlags) filter() (apiclient.IdeaFilter, error) {
	filter := apiclient.IdeaFilter{
		Search:   f.search,
		Category: f.category,
		Company:  f.company,
	}
	if f.status != "" {
		status, ok := models.ParseIdeaStatus(f.status)
		if !ok {
			return filter, contextutils.Errorf(contextutils.ErrInvalidInput, "Unknown status %q", f.status)
		}
		filter.Status = string(status)
	}
	var err error
	if filter.StartDate, err = parseDate(f.from); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseDate(f.to); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseDate(s string) (*openapi_types.Date, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(openapi_types.DateFormat, s)
	if err != nil {
		return nil, contextutils.Errorf(contextutils.ErrInvalidFormat, "Invalid date %q, expected YYYY-MM-DD", s)
	}
	return &openapi_types.Date{Time: t}, nil
}

func ideasListCmd(app *App) *cobra.Command {
	var (
		flags filterFlags
		view  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ideas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			mode := services.ViewMode(strings.ToLower(view))
			if mode != services.ViewAll && mode != services.ViewTop {
				return app.fail(ctx, "Invalid view", contextutils.Errorf(contextutils.ErrInvalidInput, "Unknown view %q, use all or top", view))
			}
			filter, err := flags.filter()
			if err != nil {
				return app.fail(ctx, "Invalid filter", err)
			}
			board, err := app.board(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to list ideas", err)
			}
			if _, err := board.Refresh(ctx, filter); err != nil {
				return app.fail(ctx, "Failed to list ideas", err)
			}
			return views.IdeaTable(app.out, board.View(mode))
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&view, "view", string(services.ViewAll), "all (newest first) or top (highest net score)")
	return cmd
}

func ideasTopCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "top",
		Short: "Show the top ideas by net score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			board, err := app.board(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to list ideas", err)
			}
			if _, err := board.Refresh(ctx, apiclient.IdeaFilter{}); err != nil {
				return app.fail(ctx, "Failed to list ideas", err)
			}
			return views.IdeaTable(app.out, board.View(services.ViewTop))
		},
	}
}

func ideasMineCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your ideas and drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			board, err := app.board(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to list your ideas", err)
			}
			submitted, drafts, err := board.MyIdeas(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to list your ideas", err)
			}
			app.printf("Submitted ideas\n")
			if err := views.IdeaTable(app.out, services.SortByDate(submitted)); err != nil {
				return err
			}
			app.printf("\nDrafts\n")
			return views.IdeaTable(app.out, drafts)
		},
	}
}

func ideasShowCmd(app *App) *cobra.Command {
	var noComments bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an idea and its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "idea")
			if err != nil {
				return app.fail(ctx, "Invalid idea id", err)
			}
			board, err := app.board(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to load idea", err)
			}
			if _, err := board.Refresh(ctx, apiclient.IdeaFilter{}); err != nil {
				return app.fail(ctx, "Failed to load idea", err)
			}
			idea, ok := board.Find(id)
			if !ok {
				// own drafts are not on the shared board
				submitted, drafts, err := board.MyIdeas(ctx)
				if err != nil {
					return app.fail(ctx, "Failed to load idea", err)
				}
				idea, ok = findIdea(append(submitted, drafts...), id)
			}
			if !ok {
				return app.fail(ctx, "Idea not found", contextutils.Errorf(contextutils.ErrRecordNotFound, "Idea %d not found", id))
			}
			if err := views.IdeaDetail(app.out, idea); err != nil {
				return err
			}
			if noComments {
				return nil
			}

			comments, err := app.container.GetCommentService()
			if err != nil {
				return app.fail(ctx, "Failed to load comments", err)
			}
			list, err := comments.Comments(ctx, id)
			if err != nil {
				return app.fail(ctx, "Failed to load comments", err)
			}
			app.printf("\nComments\n")
			return views.CommentThread(app.out, list)
		},
	}
	cmd.Flags().BoolVar(&noComments, "no-comments", false, "skip the comment thread")
	return cmd
}

func findIdea(ideas []models.Idea, id int) (models.Idea, bool) {
	for _, idea := range ideas {
		if idea.ID == id {
			return idea, true
		}
	}
	return models.Idea{}, false
}

func ideaStatusFor(draft bool) models.IdeaStatus {
	if draft {
		return models.StatusDraft
	}
	return models.StatusSubmitted
}

// fillAndSubmit prompts for the form over initial and sends it once
func (a *App) fillAndSubmit(cmd *cobra.Command, initial models.FormValues, status models.IdeaStatus, editingID int) error {
	ctx := cmd.Context()
	forms, err := a.container.GetFormConfigService()
	if err != nil {
		return a.fail(ctx, "Failed to load the idea form", err)
	}
	fields, err := forms.Load(ctx)
	if err != nil {
		return a.fail(ctx, "Failed to load the idea form", err)
	}
	renderer := services.NewFormRenderer(fields)

	values, err := a.prompter.Fill(renderer, initial)
	if err != nil {
		return a.fail(ctx, "Failed to read the idea form", err)
	}

	submitter, err := a.container.GetIdeaSubmitter()
	if err != nil {
		return a.fail(ctx, "Failed to submit idea", err)
	}
	result, err := submitter.Submit(ctx, renderer, values, status, editingID)
	if err != nil {
		return a.fail(ctx, "Failed to submit idea", err)
	}

	switch {
	case result.Status == models.StatusDraft:
		a.printf("Draft %d saved\n", result.ID)
	case result.Created:
		a.printf("Idea %d submitted\n", result.ID)
	default:
		a.printf("Idea %d updated\n", result.ID)
	}
	return nil
}

func ideasSubmitCmd(app *App) *cobra.Command {
	var draft bool
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Fill in the idea form and submit it",
		Long: `Fill in the idea form field by field. Fields that depend on an earlier answer are
asked only when they apply. With --draft only the employee name and title are required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session, err := app.loggedIn(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to submit idea", err)
			}
			initial := models.FormValues{}
			if user, ok := session.CurrentUser(); ok && strings.TrimSpace(user.FullName) != "" {
				initial[services.FieldEmployeeName] = user.FullName
			}
			return app.fillAndSubmit(cmd, initial, ideaStatusFor(draft), 0)
		},
	}
	cmd.Flags().BoolVar(&draft, "draft", false, "save as a draft instead of submitting")
	return cmd
}

func ideasEditCmd(app *App) *cobra.Command {
	var draft bool
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit one of your drafts or submitted ideas",
		Long: `Edit one of your ideas while it is a draft or newly submitted. Each answer defaults to
the current value. Without --draft the idea is submitted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "idea")
			if err != nil {
				return app.fail(ctx, "Invalid idea id", err)
			}
			if _, err := app.loggedIn(ctx); err != nil {
				return app.fail(ctx, "Failed to edit idea", err)
			}
			submitter, err := app.container.GetIdeaSubmitter()
			if err != nil {
				return app.fail(ctx, "Failed to edit idea", err)
			}
			idea, err := submitter.Editable(ctx, id)
			if err != nil {
				return app.fail(ctx, "Failed to edit idea", err)
			}
			return app.fillAndSubmit(cmd, models.FormValues(idea.Values()), ideaStatusFor(draft), id)
		},
	}
	cmd.Flags().BoolVar(&draft, "draft", false, "keep it as a draft")
	return cmd
}

func ideasWithdrawCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "withdraw <id>",
		Short: "Withdraw one of your ideas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "idea")
			if err != nil {
				return app.fail(ctx, "Invalid idea id", err)
			}
			board, err := app.board(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to withdraw idea", err)
			}
			if !app.confirm(yes, "Withdraw idea %d? This cannot be undone.", id) {
				app.printf("Cancelled\n")
				return nil
			}
			if err := board.Withdraw(ctx, id); err != nil {
				return app.fail(ctx, "Failed to withdraw idea", err)
			}
			app.printf("Idea %d withdrawn\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func ideasDeleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an idea",
		Long: `Delete an idea. Admins may delete ideas that are not Approved or Implemented; the
superadmin may delete any idea.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "idea")
			if err != nil {
				return app.fail(ctx, "Invalid idea id", err)
			}
			if _, err := app.requireAdmin(ctx); err != nil {
				return app.fail(ctx, "Failed to delete idea", err)
			}
			board, err := app.container.GetIdeaBoard()
			if err != nil {
				return app.fail(ctx, "Failed to delete idea", err)
			}
			if !app.confirm(yes, "Delete idea %d? This cannot be undone.", id) {
				app.printf("Cancelled\n")
				return nil
			}
			if err := board.Delete(ctx, id); err != nil {
				return app.fail(ctx, "Failed to delete idea", err)
			}
			app.printf("Idea %d deleted\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func ideasReactCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "react <id> <like|dislike>",
		Short: "Like or dislike an idea",
		Long: `Like or dislike an idea. Repeating your current reaction removes it; choosing the
other one switches.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "idea")
			if err != nil {
				return app.fail(ctx, "Invalid idea id", err)
			}
			reaction := models.ReactionType(strings.ToLower(strings.TrimSpace(args[1])))
			if reaction != models.ReactionLike && reaction != models.ReactionDislike {
				return app.fail(ctx, "Invalid reaction", contextutils.Errorf(contextutils.ErrInvalidInput, "Reaction must be like or dislike"))
			}
			board, err := app.board(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to react", err)
			}
			if _, err := board.Refresh(ctx, apiclient.IdeaFilter{}); err != nil {
				return app.fail(ctx, "Failed to react", err)
			}
			idea, err := board.React(ctx, id, reaction)
			if err != nil {
				return app.fail(ctx, "Failed to react", err)
			}
			current := "none"
			if idea.UserReaction != models.ReactionNone {
				current = string(idea.UserReaction)
			}
			app.printf("Idea %d: %d likes, %d dislikes (your reaction: %s)\n",
				idea.ID, idea.Likes, idea.Dislikes, current)
			return nil
		},
	}
}

func ideasStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change an idea's status",
		Long: `Change an idea's status. Valid statuses: Submitted, Under Review, Shortlisted,
Approved, Rejected, Implemented. Multi-word statuses may be written as under-review.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "idea")
			if err != nil {
				return app.fail(ctx, "Invalid idea id", err)
			}
			raw := strings.Join(args[1:], " ")
			status, ok := models.ParseIdeaStatus(raw)
			if !ok {
				return app.fail(ctx, "Invalid status", contextutils.Errorf(contextutils.ErrInvalidInput, "Unknown status %q", raw))
			}
			if _, err := app.requireAdmin(ctx); err != nil {
				return app.fail(ctx, "Failed to change status", err)
			}
			board, err := app.container.GetIdeaBoard()
			if err != nil {
				return app.fail(ctx, "Failed to change status", err)
			}
			if err := board.ChangeStatus(ctx, id, status); err != nil {
				return app.fail(ctx, "Failed to change status", err)
			}
			app.printf("Idea %d is now %s\n", id, status)
			return nil
		},
	}
}

func ideasExportCmd(app *App) *cobra.Command {
	var (
		flags filterFlags
		file  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export ideas as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			filter, err := flags.filter()
			if err != nil {
				return app.fail(ctx, "Invalid filter", err)
			}
			if _, err := app.requireAdmin(ctx); err != nil {
				return app.fail(ctx, "Failed to export ideas", err)
			}
			board, err := app.container.GetIdeaBoard()
			if err != nil {
				return app.fail(ctx, "Failed to export ideas", err)
			}
			dashboard, err := app.container.GetDashboardService()
			if err != nil {
				return app.fail(ctx, "Failed to export ideas", err)
			}
			if _, err := board.Refresh(ctx, filter); err != nil {
				return app.fail(ctx, "Failed to export ideas", err)
			}
			ideas := board.View(services.ViewAll)

			if file == "" || file == "-" {
				return dashboard.ExportCSV(app.out, ideas)
			}
			f, err := os.Create(file)
			if err != nil {
				return app.fail(ctx, "Failed to export ideas", contextutils.WrapErrorf(err, "failed to create %s", file))
			}
			defer func() {
				if cerr := f.Close(); cerr != nil && err == nil {
					err = app.fail(ctx, "Failed to export ideas", cerr)
				}
			}()
			if err := dashboard.ExportCSV(f, ideas); err != nil {
				return app.fail(ctx, "Failed to export ideas", err)
			}
			app.printf("Exported %d ideas to %s\n", len(ideas), file)
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "write to this file instead of stdout")
	return cmd
}
