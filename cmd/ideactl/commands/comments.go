package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"ideaboard/internal/views"
)

// CommentCommands returns the comment commands
func CommentCommands(app *App) *cobra.Command {
	commentsCmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and add idea comments",
	}

	commentsCmd.AddCommand(&cobra.Command{
		Use:   "list <idea-id>",
		Short: "List the comments on an idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "idea")
			if err != nil {
				return app.fail(ctx, "Invalid idea id", err)
			}
			if _, err := app.loggedIn(ctx); err != nil {
				return app.fail(ctx, "Failed to load comments", err)
			}
			comments, err := app.container.GetCommentService()
			if err != nil {
				return app.fail(ctx, "Failed to load comments", err)
			}
			list, err := comments.Comments(ctx, id)
			if err != nil {
				return app.fail(ctx, "Failed to load comments", err)
			}
			return views.CommentThread(app.out, list)
		},
	})

	commentsCmd.AddCommand(&cobra.Command{
		Use:   "add <idea-id> <text...>",
		Short: "Comment on an idea",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "idea")
			if err != nil {
				return app.fail(ctx, "Invalid idea id", err)
			}
			if _, err := app.loggedIn(ctx); err != nil {
				return app.fail(ctx, "Failed to add comment", err)
			}
			comments, err := app.container.GetCommentService()
			if err != nil {
				return app.fail(ctx, "Failed to add comment", err)
			}
			if err := comments.AddComment(ctx, id, strings.Join(args[1:], " ")); err != nil {
				return app.fail(ctx, "Failed to add comment", err)
			}
			app.printf("Comment added to idea %d\n", id)
			return nil
		},
	})

	return commentsCmd
}
