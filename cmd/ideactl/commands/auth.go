package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ideaboard/internal/models"
	contextutils "ideaboard/internal/utils"
)

// loginCmd returns the login command
func loginCmd(app *App) *cobra.Command {
	var remember bool
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Log in and save the session",
		Long: `Log in with email and password. The session is saved so later commands run as you.
With --remember the email (never the password) is kept for the next login prompt.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := app.session(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to start session", err)
			}

			email := ""
			if len(args) > 0 {
				email = args[0]
			} else {
				prompt := "Email"
				remembered := session.RememberedEmail(ctx)
				if remembered != "" {
					prompt = fmt.Sprintf("Email [%s]", remembered)
				}
				if email, err = app.prompter.Ask(prompt); err != nil {
					return app.fail(ctx, "Failed to read email", err)
				}
				if email == "" {
					email = remembered
				}
			}
			if strings.TrimSpace(email) == "" {
				return app.fail(ctx, "Login rejected", contextutils.Errorf(contextutils.ErrMissingRequired, "Email is required"))
			}

			password, err := app.readPassword("Password")
			if err != nil {
				return app.fail(ctx, "Failed to read password", err)
			}

			user, err := session.Login(ctx, email, password, remember)
			if err != nil {
				return app.fail(ctx, "Login failed", err)
			}
			app.printf("Logged in as %s (%s)\n", user.DisplayName(), session.Role())
			return nil
		},
	}
	cmd.Flags().BoolVar(&remember, "remember", app.cfg.Session.RememberMe, "remember the email for the next login")
	return cmd
}

// logoutCmd returns the logout command
func logoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session, err := app.session(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to start session", err)
			}
			if err := session.Logout(ctx); err != nil {
				return app.fail(ctx, "Logout failed", err)
			}
			app.printf("Logged out\n")
			return nil
		},
	}
}

// signupCmd returns the signup command
func signupCmd(app *App) *cobra.Command {
	var (
		req     models.SignupRequest
		sendOTP bool
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account. Request a one-time code first with --send-otp, then run signup
again with --otp and the code from the email.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session, err := app.session(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to start session", err)
			}

			if sendOTP {
				msg, err := session.SendOTP(ctx, req.Email)
				if err != nil {
					return app.fail(ctx, "Failed to send OTP", err)
				}
				app.printf("%s\n", msg)
				return nil
			}

			if req.Password, err = app.readPassword("Password"); err != nil {
				return app.fail(ctx, "Failed to read password", err)
			}
			if req.ConfirmPassword, err = app.readPassword("Confirm password"); err != nil {
				return app.fail(ctx, "Failed to read password", err)
			}

			msg, err := session.Signup(ctx, req)
			if err != nil {
				return app.fail(ctx, "Signup failed", err)
			}
			app.printf("%s\n", msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&req.OTP, "otp", "", "one-time code from the verification email")
	cmd.Flags().BoolVar(&sendOTP, "send-otp", false, "email a one-time code to --email and exit")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// whoamiCmd returns the whoami command
func whoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session, err := app.session(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to start session", err)
			}
			user, ok := session.CurrentUser()
			if !ok {
				app.printf("Not logged in\n")
				return nil
			}
			app.printf("%s <%s>\nID:   %d\nRole: %s\n", user.DisplayName(), user.Email, user.ID, session.Role())
			return nil
		},
	}
}
