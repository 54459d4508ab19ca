package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/law-makers/casecrawl/internal/app"
	"github.com/law-makers/casecrawl/internal/config"
	"github.com/law-makers/casecrawl/internal/crawler"
)

func TestWrapText(t *testing.T) {
	in := "one two three four five\n- keep this bullet as is\n\nsecond paragraph"
	got := wrapText(in, 10)
	want := "one two\nthree four\nfive\n- keep this bullet as is\n\nsecond\nparagraph"
	if got != want {
		t.Errorf("wrapText() =\n%s\nwant\n%s", got, want)
	}
}

func TestAppContextRoundTrip(t *testing.T) {
	cmd := &cobra.Command{}
	if GetApp(cmd) != nil {
		t.Fatal("fresh command carries an app")
	}
	cmd.SetContext(context.Background())

	a, err := app.New(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	SetApp(cmd, a)
	if GetApp(cmd) != a {
		t.Error("GetApp() did not return the stored app")
	}
}

func TestHelpListsCommands(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	defer rootCmd.SetOut(nil)

	customHelpFunc(rootCmd, nil)

	out := buf.String()
	for _, want := range []string{"CASECRAWL", "run", "inspect", "--verbose"} {
		if !strings.Contains(out, want) {
			t.Errorf("help lacks %q", want)
		}
	}
}

func TestPrintFlagsAligns(t *testing.T) {
	var buf bytes.Buffer
	printFlagsTo(&buf, "  -n, --target int   Number of case records\n      --markdown     Archive\n")
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "Number of case records") || !strings.Contains(lines[1], "--markdown") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestCrawlOutcome(t *testing.T) {
	surface := crawler.NewSurfaceError("navigate start", errors.New("target closed"))
	tests := []struct {
		name     string
		err      error
		wantErr  bool
		wantHint string
	}{
		{"success", nil, false, ""},
		{"interrupted", crawler.NewSurfaceError("resolve details", context.Canceled), true, "Interrupted"},
		{"surface failure", fmt.Errorf("run: %w", surface), true, "casecrawl inspect"},
		{"other", errors.New("sink closed"), true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := crawlOutcome(&buf, tt.err)
			if (err != nil) != tt.wantErr {
				t.Fatalf("crawlOutcome() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Errorf("crawlOutcome() = %v, does not wrap %v", err, tt.err)
			}
			if tt.wantHint == "" && buf.Len() != 0 {
				t.Errorf("unexpected output %q", buf.String())
			}
			if !strings.Contains(buf.String(), tt.wantHint) {
				t.Errorf("output %q lacks %q", buf.String(), tt.wantHint)
			}
		})
	}
}
