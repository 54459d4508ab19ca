// internal/cli/inspect.go
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/law-makers/casecrawl/internal/crawler"
	"github.com/law-makers/casecrawl/internal/ui"
)

var inspectSettle time.Duration

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Dump the result page for selector debugging",
	Long: `Submits the search once and saves a full-page screenshot, the page source
and a JSON analysis of its tables, case links and pager into the output
directory. Use it when the listing markup has changed and rows are no longer
found.`,
	Example: `  # Inspect the default listing
  casecrawl inspect

  # Watch the browser and give slow pages longer to render
  casecrawl inspect --headless=false --settle 10s -o debug`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().DurationVar(&inspectSettle, "settle", 5*time.Second, "Wait after submitting the search")
}

func runInspect(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}
	cfg := a.Config

	b, err := a.EnsureBrowser()
	if err != nil {
		return err
	}

	analysis, err := crawler.Inspect(cmd.Context(), b.Listing(), crawler.InspectOptions{
		StartURL:          cfg.StartURL,
		OutputDir:         cfg.OutputDir,
		NavigationTimeout: cfg.NavigationTimeout,
		Settle:            inspectSettle,
	})
	if err != nil {
		return fmt.Errorf("inspection failed: %w", err)
	}

	ui.RenderAnalysis(cmd.OutOrStdout(), analysis)
	return nil
}
