package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/law-makers/casecrawl/pkg/models"
)

func firstMatch(state models.PagerState, current int) (string, Move, bool) {
	for _, s := range DefaultStrategies() {
		if move, ok := s.Detect(state, current); ok {
			return s.Name, move, true
		}
	}
	return "", Move{}, false
}

func TestStrategyPrecedence(t *testing.T) {
	tests := []struct {
		name         string
		state        models.PagerState
		current      int
		wantStrategy string
		wantPage     int
		wantVia      Via
	}{
		{
			name: "exact number beats last link",
			state: models.PagerState{Links: []models.PagerLink{
				{Index: 0, OnClick: "goPage(1)", Text: "1"},
				{Index: 1, OnClick: "goPage(3)", Text: "3"},
				{Index: 2, OnClick: "goPage(9)", Text: "末页"},
			}},
			current:      2,
			wantStrategy: "exact-number",
			wantPage:     3,
			wantVia:      ViaHandler,
		},
		{
			name: "exact number via href",
			state: models.PagerState{Links: []models.PagerLink{
				{Index: 0, Href: "javascript:goPage('2')", Text: "2"},
			}},
			current:      1,
			wantStrategy: "exact-number",
			wantPage:     2,
			wantVia:      ViaHref,
		},
		{
			name: "next label",
			state: models.PagerState{Links: []models.PagerLink{
				{Index: 0, Href: "#", Text: "下一页"},
			}},
			current:      4,
			wantStrategy: "next-label",
			wantPage:     5,
			wantVia:      ViaPosition,
		},
		{
			name: "next label is case insensitive",
			state: models.PagerState{Links: []models.PagerLink{
				{Index: 0, OnClick: "turn()", Text: "Next »"},
			}},
			current:      1,
			wantStrategy: "next-label",
			wantPage:     2,
			wantVia:      ViaHandler,
		},
		{
			name: "greater than current marker",
			state: models.PagerState{
				CurrentPage: "6",
				Links: []models.PagerLink{
					{Index: 0, OnClick: "goPage(5)", Text: "5"},
					{Index: 1, OnClick: "goPage(8)", Text: "8"},
				},
			},
			current:      6,
			wantStrategy: "greater-than-current",
			wantPage:     8,
			wantVia:      ViaHandler,
		},
		{
			name: "last link",
			state: models.PagerState{Links: []models.PagerLink{
				{Index: 0, OnClick: "goPage(1)", Text: "1"},
				{Index: 1, OnClick: "goPage(4); goPage(10)", Text: "末页"},
			}},
			current:      2,
			wantStrategy: "last-link",
			wantPage:     10,
			wantVia:      ViaHandler,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, move, ok := firstMatch(tt.state, tt.current)
			if !ok {
				t.Fatal("no strategy matched")
			}
			if name != tt.wantStrategy {
				t.Errorf("strategy = %q, want %q", name, tt.wantStrategy)
			}
			if move.Page != tt.wantPage {
				t.Errorf("page = %d, want %d", move.Page, tt.wantPage)
			}
			if move.Via != tt.wantVia {
				t.Errorf("via = %q, want %q", move.Via, tt.wantVia)
			}
		})
	}
}

func TestNoStrategyMatches(t *testing.T) {
	states := []models.PagerState{
		{},
		{Found: true, CurrentPage: "3", Links: []models.PagerLink{
			{Index: 0, OnClick: "goPage(1)", Text: "1"},
			{Index: 1, OnClick: "goPage(2)", Text: "上一页"},
			{Index: 2, OnClick: "goPage(3)", Text: "3"},
		}},
	}

	for i, state := range states {
		if name, _, ok := firstMatch(state, 3); ok {
			t.Errorf("state %d: strategy %q matched, want none", i, name)
		}
	}
}

func TestAdvanceNoMorePages(t *testing.T) {
	site := newFakeSite(fakePage{rows: rows(1, 1)})
	adv := NewPaginationAdvancer(site.listing(), nil, DefaultAdvancerOptions())

	_, err := adv.Advance(context.Background(), 1)
	if !errors.Is(err, ErrNoMorePages) {
		t.Fatalf("Advance() error = %v, want ErrNoMorePages", err)
	}
	if !errors.Is(err, PaginationError) {
		t.Errorf("Advance() error = %v, want PaginationError", err)
	}
}

func TestAdvanceInvokesHandler(t *testing.T) {
	site := newFakeSite(
		fakePage{rows: rows(1, 1), pager: pagerTo(2)},
		fakePage{rows: rows(2, 1)},
	)
	adv := NewPaginationAdvancer(site.listing(), nil, DefaultAdvancerOptions())

	next, err := adv.Advance(context.Background(), 1)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if next != 2 {
		t.Errorf("Advance() = %d, want 2", next)
	}
	if site.current != 1 {
		t.Errorf("site on page index %d, want 1", site.current)
	}
	if len(site.handlers) != 1 {
		t.Errorf("handlers evaluated = %d, want 1", len(site.handlers))
	}
}

func TestHrefSelector(t *testing.T) {
	got := HrefSelector(`javascript:goPage("2")`)
	want := `a[href="javascript:goPage(\"2\")"]`
	if got != want {
		t.Errorf("HrefSelector() = %s, want %s", got, want)
	}
}

func TestAdvanceWithReorderedStrategies(t *testing.T) {
	pager := models.PagerState{Found: true, CurrentPage: "1", Links: []models.PagerLink{
		{Index: 0, OnClick: "goPage(2)", Text: "2"},
		{Index: 1, OnClick: "goPage(5)", Text: "末页"},
	}}
	site := newFakeSite(fakePage{rows: rows(1, 1), pager: pager})

	byName := map[string]Strategy{}
	for _, s := range DefaultStrategies() {
		byName[s.Name] = s
	}
	adv := NewPaginationAdvancer(site.listing(), nil, DefaultAdvancerOptions()).
		WithStrategies([]Strategy{byName["last-link"], byName["exact-number"]})

	next, err := adv.Advance(context.Background(), 1)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if next != 5 || site.current != 4 {
		t.Errorf("Advance() = %d (site index %d), want 5 (index 4)", next, site.current)
	}

	site.current = 0
	empty := NewPaginationAdvancer(site.listing(), nil, DefaultAdvancerOptions()).WithStrategies(nil)
	if _, err := empty.Advance(context.Background(), 1); !errors.Is(err, ErrNoMorePages) {
		t.Errorf("Advance() with no strategies error = %v, want ErrNoMorePages", err)
	}
}
