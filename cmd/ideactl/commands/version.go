package commands

import (
	"github.com/spf13/cobra"

	"ideaboard/internal/version"
)

func versionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			app.printf("%s\n", version.Get().String())
		},
	}
}
