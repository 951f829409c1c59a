package commands

import (
	"bufio"
	"context"
	"sync"

	"github.com/spf13/cobra"

	"ideaboard/internal/models"
	"ideaboard/internal/views"
)

// NotificationCommands returns the notification commands
func NotificationCommands(app *App) *cobra.Command {
	notificationsCmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Read your notifications",
	}

	notificationsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List notifications, unread ones marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session, err := app.loggedIn(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to load notifications", err)
			}
			list, err := session.RefreshNotifications(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to load notifications", err)
			}
			app.printf("%d unread\n", session.UnreadCount())
			return views.NotificationList(app.out, list)
		},
	})

	notificationsCmd.AddCommand(&cobra.Command{
		Use:   "read",
		Short: "Mark all notifications read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session, err := app.loggedIn(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to mark notifications read", err)
			}
			if _, err := session.RefreshNotifications(ctx); err != nil {
				return app.fail(ctx, "Failed to mark notifications read", err)
			}
			n, err := session.MarkNotificationsRead(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to mark notifications read", err)
			}
			app.printf("%d notifications marked read\n", n)
			return nil
		},
	})

	notificationsCmd.AddCommand(notificationsWatchCmd(app))

	return notificationsCmd
}

func notificationsWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll for notifications and print new ones until interrupted",
		Long: `Poll for notifications and print new ones until interrupted.
Press Enter to poll immediately instead of waiting for the next interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session, err := app.loggedIn(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to watch notifications", err)
			}

			var (
				mu   sync.Mutex
				seen = make(map[int]bool)
			)
			session.OnNotifications(func(list []models.Notification) {
				mu.Lock()
				defer mu.Unlock()
				fresh := make([]models.Notification, 0)
				for _, n := range list {
					if !seen[n.ID] {
						seen[n.ID] = true
						fresh = append(fresh, n)
					}
				}
				if len(fresh) > 0 {
					_ = views.NotificationList(app.out, fresh)
				}
			})
			loggedOut := make(chan struct{})
			var once sync.Once
			session.OnLogout(func() { once.Do(func() { close(loggedOut) }) })

			if err := session.StartPolling(ctx); err != nil {
				return app.fail(ctx, "Failed to watch notifications", err)
			}
			app.logger.Info(ctx, "Watching notifications", map[string]interface{}{
				"interval": app.cfg.Session.PollInterval.String(),
			})

			poller := session.Poller()
			go func() {
				scanner := bufio.NewScanner(app.in)
				for scanner.Scan() {
					poller.TriggerNow()
				}
			}()

			select {
			case <-ctx.Done():
			case <-loggedOut:
				app.printf("Session ended\n")
			}
			if err := session.StopPolling(context.WithoutCancel(ctx)); err != nil {
				return err
			}

			failed := 0
			history := poller.GetHistory()
			for _, run := range history {
				if run.Status == "Failure" {
					failed++
				}
			}
			app.printf("%d recent polls, %d failed\n", len(history), failed)
			return nil
		},
	}
}
