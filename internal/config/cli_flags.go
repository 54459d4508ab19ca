package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Log as JSON lines")
	cmd.PersistentFlags().String("config", "", "Path to YAML configuration file (optional)")
	cmd.PersistentFlags().String("url", "", "Listing page to search (default: Shanghai court documents)")
	cmd.PersistentFlags().StringP("output", "o", "", "Directory for exports and diagnostics")
	cmd.PersistentFlags().Bool("headless", DefaultBrowserHeadless, "Run Chrome without a window")
	cmd.PersistentFlags().String("chrome-path", "", "Chrome/Chromium executable")
	cmd.PersistentFlags().String("proxy", "", "Set HTTP/SOCKS5 proxy (e.g., http://localhost:8080)")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().StringArrayP("header", "H", nil, "Extra request header \"Key: Value\" (repeatable)")
	cmd.PersistentFlags().String("timeout", "30s", "Navigation timeout")
}

// RegisterCrawlFlags registers the flags of the crawl command
func RegisterCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("target", "n", DefaultTargetCount, "Number of case records to collect")
	cmd.Flags().String("detail-base", "", "Detail view endpoint the row token is appended to")
	cmd.Flags().String("sqlite", "", "Also mirror records into this SQLite database")
	cmd.Flags().Bool("markdown", false, "Archive each detail document as Markdown")
	cmd.Flags().Float64("delay-scale", DefaultDelayScale, "Multiply all politeness delays")
	cmd.Flags().Bool("no-progress", false, "Disable the progress bar")
}
