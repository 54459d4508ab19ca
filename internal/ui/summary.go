// internal/ui/summary.go
package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/law-makers/casecrawl/internal/crawler"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// RenderSummary prints the end-of-run statistics and the files written
func RenderSummary(w io.Writer, sess *crawler.CrawlSession, outputs []string) {
	st := sess.Stats

	t := newTable(w)
	t.SetTitle("Crawl " + sess.ID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Target", sess.TargetCount},
		{"Discovered", st.DiscoveredTotal},
		{"Succeeded", st.Succeeded},
		{"Failed", st.Failed},
		{"Skipped", st.Skipped},
		{"Dropped rows", st.Dropped},
		{"Pages visited", st.PagesVisited},
		{"Last page", sess.CurrentPage},
		{"Duration", sess.Duration().Round(time.Second).String()},
	})
	if sess.ProcessedCount > 0 {
		t.AppendFooter(table.Row{"Success rate", SuccessRate(st.Succeeded, st.Succeeded+st.Failed)})
	}
	t.Render()

	if len(outputs) == 0 {
		return
	}
	files := newTable(w)
	files.AppendHeader(table.Row{"Output"})
	for _, o := range outputs {
		files.AppendRow(table.Row{o})
	}
	files.Render()
}

// RenderAnalysis prints the inspector's view of a result page
func RenderAnalysis(w io.Writer, a *crawler.Analysis) {
	fmt.Fprintf(w, "%s %s\n%s %s\n", Bold("Title:"), a.Title, Bold("URL:"), a.URL)

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Rows", "Case number", "Title", "Candidate"})
	for _, ti := range a.Tables {
		mark := ""
		if ti.Candidate() {
			mark = Success("yes")
		}
		t.AppendRow(table.Row{ti.Index, ti.RowCount, ti.ContainsCaseNumber, ti.ContainsTitle, mark})
	}
	t.AppendFooter(table.Row{"", "", "", "result rows", a.RowCount})
	t.Render()

	if len(a.CaseLinks) > 0 {
		links := newTable(w)
		links.AppendHeader(table.Row{"Link text", "Href"})
		for _, l := range a.CaseLinks {
			links.AppendRow(table.Row{l.Text, l.Href})
		}
		links.Render()
	}

	pager := "not found"
	if a.Pager.Found {
		pager = fmt.Sprintf("%d links, current page %d", len(a.Pager.Links), a.Pager.CurrentPage)
	}
	fmt.Fprintf(w, "%s %s\n", Bold("Pager:"), pager)
	for _, p := range []string{a.ScreenshotPath, a.SourcePath, a.ReportPath} {
		if p != "" {
			fmt.Fprintf(w, "%s %s\n", Success("saved"), p)
		}
	}
}

// SuccessRate formats ok out of total as a percentage
func SuccessRate(ok, total int) string {
	if total == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", float64(ok)*100/float64(total))
}
