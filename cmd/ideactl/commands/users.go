package commands

import (
	"context"

	"github.com/spf13/cobra"

	"ideaboard/internal/models"
	"ideaboard/internal/services"
	contextutils "ideaboard/internal/utils"
	"ideaboard/internal/views"
)

// UserCommands returns the user management commands
func UserCommands(app *App) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "User management commands (admins)",
		Long: `User management commands (admins).

Available commands:
  list         - List all users
  role         - Set a user's role (user, admin, ceo, hr)
  toggle-admin - Promote a user to admin or demote an admin to user
  password     - Reset a user's password
  delete       - Delete a user`,
	}

	usersCmd.AddCommand(usersListCmd(app))
	usersCmd.AddCommand(usersRoleCmd(app))
	usersCmd.AddCommand(usersToggleAdminCmd(app))
	usersCmd.AddCommand(usersPasswordCmd(app))
	usersCmd.AddCommand(usersDeleteCmd(app))

	return usersCmd
}

func (a *App) userAdmin(ctx context.Context) (*services.UserAdminService, error) {
	if _, err := a.loggedIn(ctx); err != nil {
		return nil, err
	}
	return a.container.GetUserAdminService()
}

func usersListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			users, err := app.userAdmin(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to list users", err)
			}
			list, err := users.List(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to list users", err)
			}
			app.logger.Info(ctx, "Listed users", map[string]interface{}{"total": len(list)})
			return views.UserTable(app.out, list)
		},
	}
}

func usersRoleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "role <user-id> <role>",
		Short: "Set a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "user")
			if err != nil {
				return app.fail(ctx, "Invalid user id", err)
			}
			users, err := app.userAdmin(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to set role", err)
			}
			msg, err := users.SetRole(ctx, id, models.ParseRole(args[1]))
			if err != nil {
				return app.fail(ctx, "Failed to set role", err)
			}
			app.printf("%s\n", msg)
			return nil
		},
	}
}

func usersToggleAdminCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-admin <user-id>",
		Short: "Promote a user to admin, or demote an admin to user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "user")
			if err != nil {
				return app.fail(ctx, "Invalid user id", err)
			}
			users, err := app.userAdmin(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to toggle admin", err)
			}
			list, err := users.List(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to toggle admin", err)
			}
			var target *models.User
			for i := range list {
				if list[i].ID == id {
					target = &list[i]
					break
				}
			}
			if target == nil {
				return app.fail(ctx, "Failed to toggle admin", contextutils.Errorf(contextutils.ErrRecordNotFound, "User %d not found", id))
			}
			msg, err := users.ToggleAdmin(ctx, *target)
			if err != nil {
				return app.fail(ctx, "Failed to toggle admin", err)
			}
			app.printf("%s\n", msg)
			return nil
		},
	}
}

func usersPasswordCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "password <user-id>",
		Short: "Reset a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "user")
			if err != nil {
				return app.fail(ctx, "Invalid user id", err)
			}
			users, err := app.userAdmin(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to reset password", err)
			}

			password, err := app.readPassword("New password")
			if err != nil {
				return app.fail(ctx, "Failed to read password", err)
			}
			confirm, err := app.readPassword("Confirm new password")
			if err != nil {
				return app.fail(ctx, "Failed to read password", err)
			}
			if password != confirm {
				return app.fail(ctx, "Failed to reset password", contextutils.Errorf(contextutils.ErrValidationFailed, "Passwords do not match"))
			}

			msg, err := users.ResetPassword(ctx, id, password)
			if err != nil {
				return app.fail(ctx, "Failed to reset password", err)
			}
			app.printf("%s\n", msg)
			return nil
		},
	}
}

func usersDeleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "user")
			if err != nil {
				return app.fail(ctx, "Invalid user id", err)
			}
			users, err := app.userAdmin(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to delete user", err)
			}
			if !app.confirm(yes, "Delete user %d? This cannot be undone.", id) {
				app.printf("Cancelled\n")
				return nil
			}
			msg, err := users.Delete(ctx, id)
			if err != nil {
				return app.fail(ctx, "Failed to delete user", err)
			}
			app.printf("%s\n", msg)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
