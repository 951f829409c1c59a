package commands

import (
	"github.com/spf13/cobra"

	"ideaboard/internal/services"
	"ideaboard/internal/views"
)

// dashboardCmd returns the admin dashboard command
func dashboardCmd(app *App) *cobra.Command {
	var (
		flags   filterFlags
		charts  []string
		toggles []string
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show idea counts and charts (admins)",
		Long: `Show the headline counts and one frequency chart per --chart.
Charts: status, company, category, department. --toggle flips a chart on or off
relative to the --chart selection. Drafts are not counted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			kinds, err := services.ParseChartKinds(charts)
			if err != nil {
				return app.fail(ctx, "Invalid chart", err)
			}
			flipped, err := services.ParseChartKinds(toggles)
			if err != nil {
				return app.fail(ctx, "Invalid chart", err)
			}
			selection := services.NewChartSelection(kinds...)
			for _, kind := range flipped {
				selection.Toggle(kind)
			}
			filter, err := flags.filter()
			if err != nil {
				return app.fail(ctx, "Invalid filter", err)
			}
			if _, err := app.requireAdmin(ctx); err != nil {
				return app.fail(ctx, "Failed to load dashboard", err)
			}

			board, err := app.container.GetIdeaBoard()
			if err != nil {
				return app.fail(ctx, "Failed to load dashboard", err)
			}
			dashboard, err := app.container.GetDashboardService()
			if err != nil {
				return app.fail(ctx, "Failed to load dashboard", err)
			}
			forms, err := app.container.GetFormConfigService()
			if err != nil {
				return app.fail(ctx, "Failed to load dashboard", err)
			}

			ideas, err := board.Refresh(ctx, filter)
			if err != nil {
				return app.fail(ctx, "Failed to load dashboard", err)
			}
			fields, err := forms.Load(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to load dashboard", err)
			}

			if err := views.KPILine(app.out, dashboard.KPIs(ideas)); err != nil {
				return err
			}
			for _, chart := range dashboard.Aggregate(ideas, selection.Kinds(), fields) {
				app.printf("\n")
				if err := views.ChartText(app.out, chart); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringSliceVar(&charts, "chart", nil, "charts to show (default status,company)")
	cmd.Flags().StringSliceVar(&toggles, "toggle", nil, "charts to flip on or off")
	return cmd
}
