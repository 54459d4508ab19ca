package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/law-makers/casecrawl/internal/crawler"
	"github.com/law-makers/casecrawl/pkg/models"
)

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		ok, total int
		want      string
	}{
		{0, 0, "n/a"},
		{3, 4, "75.0%"},
		{2, 2, "100.0%"},
	}
	for _, tt := range tests {
		if got := SuccessRate(tt.ok, tt.total); got != tt.want {
			t.Errorf("SuccessRate(%d, %d) = %q, want %q", tt.ok, tt.total, got, tt.want)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	sess := crawler.NewSession(5)
	sess.ProcessedCount = 2
	sess.Stats = models.Stats{DiscoveredTotal: 4, Succeeded: 2, Failed: 1, Skipped: 1, PagesVisited: 1}

	var buf bytes.Buffer
	RenderSummary(&buf, sess, []string{"output/cases_x.json"})

	out := buf.String()
	for _, want := range []string{sess.ID, "Discovered", "66.7%", "output/cases_x.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary lacks %q:\n%s", want, out)
		}
	}
}

func TestRenderAnalysis(t *testing.T) {
	a := &crawler.Analysis{
		Title:     "裁判文书",
		URL:       "https://example.test/list",
		RowCount:  15,
		Tables:    []crawler.TableInfo{{Index: 0, RowCount: 16, HasDataRows: true, ContainsCaseNumber: true}},
		CaseLinks: []crawler.CaseLink{{Text: "（2024）沪01民初1号", Href: "javascript:showone('A')"}},
	}
	var buf bytes.Buffer
	RenderAnalysis(&buf, a)

	out := buf.String()
	for _, want := range []string{"裁判文书", "showone", "not found"} {
		if !strings.Contains(out, want) {
			t.Errorf("analysis lacks %q:\n%s", want, out)
		}
	}
}

func TestProgressObserver(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 3)
	p.PageStarted(1, 15)
	p.RecordStored(models.CaseRecord{}, 1, 3)
	p.ListingFailed(models.CaseListing{}, errors.New("timeout"))
	p.PageStarted(2, 15)
	p.RecordStored(models.CaseRecord{}, 2, 3)
	p.Finished(crawler.NewSession(3))

	if p.failures != 1 || p.page != 2 {
		t.Errorf("failures = %d, page = %d", p.failures, p.page)
	}
}

func TestPaint(t *testing.T) {
	if got := Heading("Usage"); got != ColorBold+ColorWhite+"Usage"+ColorReset {
		t.Errorf("Heading() = %q", got)
	}
	if got := Muted(""); got != "" {
		t.Errorf("Muted(\"\") = %q, want empty", got)
	}
	if got := Command("x"); !strings.HasPrefix(got, ColorCyan) || !strings.HasSuffix(got, ColorReset) {
		t.Errorf("Command() = %q", got)
	}
}
