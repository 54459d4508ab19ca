package ui

import "strings"

// ANSI SGR sequences used by the CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
)

// Styles for headings, outcomes and help text
var (
	Bold    = paint(ColorBold)
	Heading = paint(ColorBold, ColorWhite)
	Title   = paint(ColorBold, ColorCyan)
	Command = paint(ColorCyan)
	Success = paint(ColorGreen)
	Warning = paint(ColorYellow)
	Muted   = paint(ColorDim)
)

// paint returns a function wrapping its argument in codes and a reset
func paint(codes ...string) func(string) string {
	prefix := strings.Join(codes, "")
	return func(s string) string {
		if s == "" {
			return s
		}
		return prefix + s + ColorReset
	}
}
