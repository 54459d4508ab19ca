package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/law-makers/casecrawl/pkg/models"
)

// fakePage is one listing page of a fakeSite
type fakePage struct {
	rows  []Element
	pager models.PagerState
}

// fakeSite simulates the listing site: a listing surface that pages through
// fixed rows and opens detail surfaces when rows are clicked.
type fakeSite struct {
	mu sync.Mutex

	pages      []fakePage
	current    int
	clickOpens bool
	bodies     map[string]string
	// broken detail URLs open no surface on click and fail navigation
	broken map[string]bool
	// redirects maps a constructed detail URL to the one the surface lands on
	redirects map[string]string

	pending  chan Surface
	opened   int
	closed   int
	navs     []string
	clicks   []string
	handlers []string
}

func newFakeSite(pages ...fakePage) *fakeSite {
	return &fakeSite{
		pages:      pages,
		clickOpens: true,
		bodies:     map[string]string{},
		broken:     map[string]bool{},
		redirects:  map[string]string{},
	}
}

func (s *fakeSite) listing() *fakeSurface {
	return &fakeSurface{site: s, isListing: true}
}

func (s *fakeSite) ExpectSurface(ctx context.Context, timeout time.Duration) <-chan Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Surface, 1)
	s.pending = ch
	return ch
}

func (s *fakeSite) OpenSurface(ctx context.Context) (Surface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// a surface nobody delivered by now never will
	if s.pending != nil {
		close(s.pending)
		s.pending = nil
	}
	s.opened++
	return &fakeSurface{site: s}, nil
}

// locate resolves a row selector: tr[id="..."] by id, text="..." by case number
func (s *fakeSite) locate(selector string) (Element, bool) {
	if s.current >= len(s.pages) {
		return Element{}, false
	}
	if text, ok := ParseTextSelector(selector); ok {
		for _, r := range s.pages[s.current].rows {
			if len(r.Cells) > 0 && r.Cells[0] == text {
				return r, true
			}
		}
		return Element{}, false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(selector, `tr[id="`), `"]`)
	return s.rowByID(id)
}

func (s *fakeSite) rowByID(id string) (Element, bool) {
	if s.current >= len(s.pages) {
		return Element{}, false
	}
	for _, r := range s.pages[s.current].rows {
		if r.Attrs["id"] == id {
			return r, true
		}
	}
	return Element{}, false
}

// fakeSurface is either the listing surface or a detail surface of a fakeSite
type fakeSurface struct {
	site      *fakeSite
	isListing bool
	url       string
}

func (f *fakeSurface) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	f.site.navs = append(f.site.navs, url)
	if f.site.broken[url] {
		return errors.New("net::ERR_CONNECTION_RESET")
	}
	f.url = url
	return nil
}

func (f *fakeSurface) Evaluate(ctx context.Context, script string, out interface{}) error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	switch {
	case script == submitScript:
		*out.(*bool) = true
	case strings.Contains(script, "const regions"):
		if f.site.current < len(f.site.pages) {
			*out.(*models.PagerState) = f.site.pages[f.site.current].pager
		}
	default:
		f.site.handlers = append(f.site.handlers, script)
		if calls := PageCalls(script); len(calls) > 0 {
			f.site.current = calls[0] - 1
		}
		if b, ok := out.(*bool); ok {
			*b = true
		}
	}
	return nil
}

func (f *fakeSurface) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	if !f.isListing || selector != RowSelector || f.site.current >= len(f.site.pages) {
		return nil, nil
	}
	rows := f.site.pages[f.site.current].rows
	out := make([]Element, len(rows))
	copy(out, rows)
	return out, nil
}

func (f *fakeSurface) Click(ctx context.Context, selector string) error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()

	row, ok := f.site.locate(selector)
	if !ok {
		return fmt.Errorf("click %s: %w", selector, ErrElementNotFound)
	}
	f.site.clicks = append(f.site.clicks, selector)

	pending := f.site.pending
	f.site.pending = nil
	if pending == nil {
		return nil
	}
	defer close(pending)

	url := DetailURL(DefaultDetailBase, DetailToken(row.Attrs["onclick"]))
	if f.site.clickOpens && !f.site.broken[url] {
		if landed, ok := f.site.redirects[url]; ok {
			url = landed
		}
		pending <- &fakeSurface{site: f.site, url: url}
	}
	return nil
}

func (f *fakeSurface) ClickNth(ctx context.Context, selector string, n int) error {
	return fmt.Errorf("click %s[%d]: %w", selector, n, ErrElementNotFound)
}

func (f *fakeSurface) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}

func (f *fakeSurface) WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (f *fakeSurface) WaitForTimeout(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func (f *fakeSurface) Content(ctx context.Context) (string, error) {
	text, _ := f.Text(ctx, "body")
	return "<html><body>" + text + "</body></html>", nil
}

func (f *fakeSurface) Text(ctx context.Context, selector string) (string, error) {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	if body, ok := f.site.bodies[f.url]; ok {
		return body, nil
	}
	return "detail of " + f.url, nil
}

func (f *fakeSurface) Screenshot(ctx context.Context, path string) error {
	return nil
}

func (f *fakeSurface) URL(ctx context.Context) (string, error) {
	return f.url, nil
}

func (f *fakeSurface) Close(ctx context.Context) error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	f.site.closed++
	return nil
}

// recordingSink remembers the size of every snapshot
type recordingSink struct {
	sizes []int
	last  []models.CaseRecord
}

func (r *recordingSink) Snapshot(ctx context.Context, records []models.CaseRecord) error {
	r.sizes = append(r.sizes, len(records))
	r.last = records
	return nil
}

func row(page, index int, token string) Element {
	attrs := map[string]string{"id": fmt.Sprintf("tr%d_%d", page, index)}
	if token != "" {
		attrs["onclick"] = fmt.Sprintf("showone('%s')", token)
	}
	return Element{
		Attrs: attrs,
		Cells: []string{
			fmt.Sprintf("（2024）沪01民初%d号", page*100+index),
			"title",
			"判决书",
			"合同纠纷&nbsp;",
			"民一庭",
			"一审",
			"2024-05-01",
		},
	}
}

func rows(page, n int) []Element {
	out := make([]Element, n)
	for i := range out {
		out[i] = row(page, i, fmt.Sprintf("P%dR%d", page, i))
	}
	return out
}

func pagerTo(next int) models.PagerState {
	return models.PagerState{
		Found:       true,
		CurrentPage: fmt.Sprint(next - 1),
		Links: []models.PagerLink{
			{Index: 0, OnClick: fmt.Sprintf("goPage(%d)", next), Text: fmt.Sprint(next)},
		},
	}
}
