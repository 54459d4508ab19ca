// internal/cli/run.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/law-makers/casecrawl/internal/config"
	"github.com/law-makers/casecrawl/internal/crawler"
	"github.com/law-makers/casecrawl/internal/ui"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl the listing and collect case records",
	Long: `Submits the search form, walks the result pages and opens every case's
detail view until the target number of records has been collected or the
listing runs out of pages.

Exports are rewritten every second record, so an interrupted run keeps what it
has gathered. Press Ctrl+C to stop early.`,
	Example: `  # Collect the default 30 records into ./output
  casecrawl run

  # Collect 200 records with a visible browser
  casecrawl run -n 200 --headless=false

  # Mirror into SQLite and archive Markdown copies of each judgment
  casecrawl run --sqlite output/cases.db --markdown

  # Slow everything down on a flaky connection
  casecrawl run --delay-scale 2 --timeout 60s`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(runCmd)
	config.RegisterCrawlFlags(runCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}
	cfg := a.Config

	opts := a.CrawlOptions()
	sinks, outputs, err := a.Sinks(a.StartedAt())
	if err != nil {
		return err
	}

	b, err := a.EnsureBrowser()
	if err != nil {
		return err
	}

	var observer crawler.Observer
	if cfg.ShowProgress {
		observer = ui.NewProgress(cmd.ErrOrStderr(), opts.TargetCount)
	}

	sess, err := crawler.New(b.Listing(), b, sinks, a.Pacer, observer, opts).Run(cmd.Context())
	if sess != nil && cfg.LogLevel != "error" {
		ui.RenderSummary(cmd.OutOrStdout(), sess, outputs)
	}

	return crawlOutcome(cmd.ErrOrStderr(), err)
}

// crawlOutcome reports how a finished run ended and returns the command error
func crawlOutcome(w io.Writer, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, ui.Warning("Interrupted, partial results saved"))
		return err
	case errors.Is(err, crawler.SurfaceError):
		fmt.Fprintln(w, ui.Warning("The browser failed; run `casecrawl inspect` to check the listing page"))
		return fmt.Errorf("crawl aborted: %w", err)
	default:
		return fmt.Errorf("crawl aborted: %w", err)
	}
}
