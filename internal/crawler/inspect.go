// internal/crawler/inspect.go
package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/casecrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	sampleTextLimit = 200
	linkTextLimit   = 50
	linkHrefLimit   = 100
	maxCaseLinks    = 10
	maxSampleRows   = 3
)

// TableInfo summarizes one table of the result page
type TableInfo struct {
	Index              int        `json:"index"`
	RowCount           int        `json:"row_count"`
	HasDataRows        bool       `json:"has_data_rows"`
	SampleText         string     `json:"sample_text"`
	ContainsCaseNumber bool       `json:"contains_case_number"`
	ContainsTitle      bool       `json:"contains_title"`
	SampleRows         [][]string `json:"sample_rows,omitempty"`
}

// Candidate reports whether the table looks like the case listing
func (t TableInfo) Candidate() bool {
	return t.ContainsCaseNumber && t.HasDataRows
}

// CaseLink is an anchor that looks like it leads to a case document
type CaseLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Analysis is the structural report written by Inspect
type Analysis struct {
	Tables    []TableInfo       `json:"tables"`
	CaseLinks []CaseLink        `json:"potential_case_links"`
	RowCount  int               `json:"row_count"`
	Pager     models.PagerState `json:"pager"`
	Title     string            `json:"page_title"`
	URL       string            `json:"url"`

	ScreenshotPath string `json:"-"`
	SourcePath     string `json:"-"`
	ReportPath     string `json:"-"`
}

// Analyze inspects result page markup for tables and case links
func Analyze(html string) (*Analysis, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	a := &Analysis{
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		RowCount: doc.Find(RowSelector).Length(),
	}

	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		text := table.Text()
		rows := table.Find("tr")
		info := TableInfo{
			Index:    i,
			RowCount: rows.Length(),
			HasDataRows: rows.FilterFunction(func(_ int, tr *goquery.Selection) bool {
				return tr.Find("td").Length() > 0
			}).Length() > 0,
			SampleText:         truncateRunes(text, sampleTextLimit, "..."),
			ContainsCaseNumber: strings.Contains(text, "案号") || strings.Contains(text, "（202"),
			ContainsTitle:      strings.Contains(text, "标题"),
		}
		if info.Candidate() {
			rows.Slice(0, min(maxSampleRows, rows.Length())).Each(func(_ int, tr *goquery.Selection) {
				var cells []string
				tr.Find("td, th").Each(func(_ int, c *goquery.Selection) {
					cells = append(cells, strings.TrimSpace(c.Text()))
				})
				info.SampleRows = append(info.SampleRows, cells)
			})
		}
		a.Tables = append(a.Tables, info)
	})

	doc.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		text := strings.TrimSpace(link.Text())
		looksLikeCase := strings.Contains(href, "flws_view") || strings.Contains(href, "open") || strings.Contains(text, "案")
		if looksLikeCase && len([]rune(text)) > 5 {
			a.CaseLinks = append(a.CaseLinks, CaseLink{
				Text: truncateRunes(text, linkTextLimit, ""),
				Href: truncateRunes(href, linkHrefLimit, ""),
			})
		}
		return len(a.CaseLinks) < maxCaseLinks
	})

	return a, nil
}

// InspectOptions configures a diagnostic pass
type InspectOptions struct {
	StartURL          string
	OutputDir         string
	NavigationTimeout time.Duration
	Settle            time.Duration
}

// Inspect submits the search and dumps a screenshot, the page source and a
// structural analysis of the result page into opts.OutputDir.
func Inspect(ctx context.Context, s Surface, opts InspectOptions) (*Analysis, error) {
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := s.Navigate(ctx, opts.StartURL, opts.NavigationTimeout); err != nil {
		return nil, NewSurfaceError("navigate start", err)
	}
	if err := s.WaitForTimeout(ctx, 3*time.Second); err != nil {
		return nil, err
	}
	var submitted bool
	if err := s.Evaluate(ctx, submitScript, &submitted); err != nil {
		return nil, NewSurfaceError("submit search", err)
	}
	if !submitted {
		log.Warn().Err(ErrSearchNotAccepted).Msg("Inspecting unsubmitted page")
	}
	if err := s.WaitForTimeout(ctx, opts.Settle); err != nil {
		return nil, err
	}

	shot := filepath.Join(opts.OutputDir, "full_page.png")
	if err := s.Screenshot(ctx, shot); err != nil {
		log.Warn().Err(err).Msg("Screenshot failed")
		shot = ""
	}

	html, err := s.Content(ctx)
	if err != nil {
		return nil, NewSurfaceError("read content", err)
	}
	source := filepath.Join(opts.OutputDir, "page_source.html")
	if err := os.WriteFile(source, []byte(html), 0644); err != nil {
		return nil, fmt.Errorf("failed to save page source: %w", err)
	}

	a, err := Analyze(html)
	if err != nil {
		return nil, err
	}
	a.ScreenshotPath = shot
	a.SourcePath = source
	if url, err := s.URL(ctx); err == nil {
		a.URL = url
	}
	adv := NewPaginationAdvancer(s, nil, DefaultAdvancerOptions())
	if state, err := adv.State(ctx); err == nil {
		a.Pager = state
	}

	report := filepath.Join(opts.OutputDir, "analysis.json")
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis: %w", err)
	}
	if err := os.WriteFile(report, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}
	a.ReportPath = report

	log.Info().
		Int("tables", len(a.Tables)).
		Int("case_links", len(a.CaseLinks)).
		Int("rows", a.RowCount).
		Str("dir", opts.OutputDir).
		Msg("Inspection complete")
	return a, nil
}

func truncateRunes(s string, limit int, marker string) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + marker
}
