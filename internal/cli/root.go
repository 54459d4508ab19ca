// internal/cli/root.go
package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/casecrawl/internal/app"
	"github.com/law-makers/casecrawl/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "casecrawl",
	Short: "Collect court judgment records from a paginated listing",
	Long: `Casecrawl drives a headless Chrome through a court document search,
walks the paginated result table and opens every case's detail view.

Records are checkpointed to JSON and CSV as they arrive, and can also be
mirrored to SQLite or archived as Markdown.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI under ctx. The application is initialized lazily in
// PersistentPreRunE and closed here so that failed commands release Chrome.
func Execute(ctx context.Context) error {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if a := GetApp(cmd); a != nil {
		_ = a.Close()
	}
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
	}
	return err
}

func init() {
	// Avoid starting the app for -h/help
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetApp(cmd) != nil {
			return nil
		}

		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}

		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		SetApp(cmd, a)
		log.Debug().Str("command", cmd.Name()).Str("output", cfg.OutputDir).Msg("Configuration loaded")
		return nil
	}

	config.RegisterFlags(rootCmd)

	rootCmd.Flags().BoolP("help", "h", false, "Help for casecrawl")
	rootCmd.Flags().Bool("version", false, "Version for casecrawl")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpFunc(customHelpFunc)
	rootCmd.SetUsageFunc(customUsageFunc)
}
