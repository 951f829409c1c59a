package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the ideactl command tree over app
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ideactl",
		Short: "Idea board client",
		Long: `Idea board client

Submit and review ideas, react to them, follow notifications and, for admins,
manage statuses, users and the idea form.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		Run: func(cmd *cobra.Command, _ []string) {
			// Show help if no subcommand provided
			_ = cmd.Help()
		},
	}

	rootCmd.SetIn(app.in)
	rootCmd.SetOut(app.out)
	rootCmd.SetErr(app.errOut)

	rootCmd.AddCommand(loginCmd(app))
	rootCmd.AddCommand(logoutCmd(app))
	rootCmd.AddCommand(signupCmd(app))
	rootCmd.AddCommand(whoamiCmd(app))
	rootCmd.AddCommand(IdeaCommands(app))
	rootCmd.AddCommand(CommentCommands(app))
	rootCmd.AddCommand(NotificationCommands(app))
	rootCmd.AddCommand(dashboardCmd(app))
	rootCmd.AddCommand(FormCommands(app))
	rootCmd.AddCommand(UserCommands(app))
	rootCmd.AddCommand(versionCmd(app))

	return rootCmd
}

// Execute runs the command tree with args (nil means os.Args). Errors the commands did not
// already report, such as unknown flags, are printed here.
func Execute(ctx context.Context, app *App, args []string) error {
	rootCmd := NewRootCommand(app)
	if args != nil {
		rootCmd.SetArgs(args)
	}
	err := rootCmd.ExecuteContext(ctx)
	var reported reportedError
	if err != nil && !errors.As(err, &reported) {
		_, _ = fmt.Fprintf(app.errOut, "Error: %s\n", err)
	}
	return err
}
