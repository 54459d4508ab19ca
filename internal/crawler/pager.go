// internal/crawler/pager.go
package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/law-makers/casecrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// PagerRegionSelector lists the pager containers in order of preference
const PagerRegionSelector = "div.meneame, .meneame, center#flws_list_content"

// pagerRegions mirrors PagerRegionSelector for position clicks
var pagerRegions = []string{"div.meneame", ".meneame", "center#flws_list_content"}

// pagerStateScript snapshots the first pager region found
const pagerStateScript = `(() => {
  const regions = %s;
  let region = null;
  for (const sel of regions) {
    region = document.querySelector(sel);
    if (region) break;
  }
  if (!region) return {found: false, links: [], currentPage: "", html: ""};
  const links = Array.from(region.querySelectorAll("a")).map((a, i) => ({
    index: i,
    href: a.getAttribute("href") || "",
    onclick: a.getAttribute("onclick") || "",
    text: (a.textContent || "").trim()
  }));
  const current = region.querySelector("span.current");
  return {
    found: true,
    links: links,
    currentPage: current ? (current.textContent || "").trim() : "",
    html: region.innerHTML.slice(0, 500)
  };
})()`

// Via names how a pager move is performed
type Via string

const (
	ViaHandler  Via = "handler"
	ViaHref     Via = "href"
	ViaPosition Via = "position"
)

// Move is a resolved pagination action
type Move struct {
	Page int
	Link models.PagerLink
	Via  Via
}

// Strategy is one pagination heuristic. Detect inspects the pager snapshot
// and returns the move to perform when it applies.
type Strategy struct {
	Name   string
	Detect func(state models.PagerState, current int) (Move, bool)
}

// DefaultStrategies returns the heuristic chain in precedence order
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "exact-number", Detect: detectExactNumber},
		{Name: "next-label", Detect: detectNextLabel},
		{Name: "greater-than-current", Detect: detectGreaterThanCurrent},
		{Name: "last-link", Detect: detectLastLink},
	}
}

func detectExactNumber(state models.PagerState, current int) (Move, bool) {
	want := current + 1
	for _, link := range state.Links {
		if link.OnClick != "" && hasPage(PageCalls(link.OnClick), want) {
			return Move{Page: want, Link: link, Via: ViaHandler}, true
		}
		if isScriptHref(link.Href) && hasPage(PageCalls(link.Href), want) {
			return Move{Page: want, Link: link, Via: ViaHref}, true
		}
	}
	return Move{}, false
}

func detectNextLabel(state models.PagerState, current int) (Move, bool) {
	for _, link := range state.Links {
		if !strings.Contains(link.Text, "下一页") && !strings.Contains(strings.ToLower(link.Text), "next") {
			continue
		}
		move := Move{Page: current + 1, Link: link, Via: ViaPosition}
		switch {
		case link.OnClick != "":
			move.Via = ViaHandler
		case link.Href != "" && link.Href != "#":
			move.Via = ViaHref
		}
		return move, true
	}
	return Move{}, false
}

func detectGreaterThanCurrent(state models.PagerState, _ int) (Move, bool) {
	marker, err := strconv.Atoi(strings.TrimSpace(state.CurrentPage))
	if err != nil {
		return Move{}, false
	}
	for _, link := range state.Links {
		if link.OnClick == "" {
			continue
		}
		for _, n := range PageCalls(link.OnClick) {
			if n > marker {
				return Move{Page: n, Link: link, Via: ViaHandler}, true
			}
		}
	}
	return Move{}, false
}

func detectLastLink(state models.PagerState, current int) (Move, bool) {
	if len(state.Links) == 0 {
		return Move{}, false
	}
	last := state.Links[len(state.Links)-1]
	calls := PageCalls(last.OnClick)
	if len(calls) == 0 {
		return Move{}, false
	}
	if n := calls[len(calls)-1]; n > current {
		return Move{Page: n, Link: last, Via: ViaHandler}, true
	}
	return Move{}, false
}

// AdvancerOptions tunes the waits around a pager move
type AdvancerOptions struct {
	RegionTimeout time.Duration
	IdleTimeout   time.Duration
	RowsTimeout   time.Duration
	SettleMin     time.Duration
	SettleMax     time.Duration
}

// DefaultAdvancerOptions returns the waits used against the listing site
func DefaultAdvancerOptions() AdvancerOptions {
	return AdvancerOptions{
		RegionTimeout: 5 * time.Second,
		IdleTimeout:   10 * time.Second,
		RowsTimeout:   10 * time.Second,
		SettleMin:     2 * time.Second,
		SettleMax:     3 * time.Second,
	}
}

// PaginationAdvancer moves the listing surface to the next result page
type PaginationAdvancer struct {
	surface    Surface
	pacer      Pacer
	strategies []Strategy
	opts       AdvancerOptions
}

// NewPaginationAdvancer creates an advancer using the default strategy chain
func NewPaginationAdvancer(surface Surface, pacer Pacer, opts AdvancerOptions) *PaginationAdvancer {
	if pacer == nil {
		pacer = nopPacer{}
	}
	return &PaginationAdvancer{
		surface:    surface,
		pacer:      pacer,
		strategies: DefaultStrategies(),
		opts:       opts,
	}
}

// WithStrategies replaces the strategy chain
func (a *PaginationAdvancer) WithStrategies(strategies []Strategy) *PaginationAdvancer {
	a.strategies = strategies
	return a
}

// State snapshots the pager region
func (a *PaginationAdvancer) State(ctx context.Context) (models.PagerState, error) {
	var state models.PagerState
	if err := a.surface.WaitForSelector(ctx, PagerRegionSelector, a.opts.RegionTimeout); err != nil {
		log.Debug().Err(err).Msg("Pager region did not appear")
	}
	regions, _ := json.Marshal(pagerRegions)
	if err := a.surface.Evaluate(ctx, fmt.Sprintf(pagerStateScript, regions), &state); err != nil {
		return state, NewSurfaceError("read pager", err)
	}
	return state, nil
}

// Advance moves from page current to the next page and returns its number.
// ErrNoMorePages is returned when no strategy applies.
func (a *PaginationAdvancer) Advance(ctx context.Context, current int) (int, error) {
	state, err := a.State(ctx)
	if err != nil {
		return 0, err
	}
	log.Debug().
		Bool("found", state.Found).
		Int("links", len(state.Links)).
		Str("current_marker", state.CurrentPage).
		Msg("Pager state")

	for _, s := range a.strategies {
		move, ok := s.Detect(state, current)
		if !ok {
			continue
		}
		log.Info().
			Str("strategy", s.Name).
			Int("from", current).
			Int("to", move.Page).
			Str("via", string(move.Via)).
			Str("text", move.Link.Text).
			Msg("Advancing page")

		if err := a.invoke(ctx, move); err != nil {
			return 0, NewError(ErrCodePagination, "invoke "+s.Name, err).
				WithDetail("page", current).
				WithDetail("strategy", s.Name)
		}
		a.settle(ctx)
		return move.Page, nil
	}

	return 0, NewError(ErrCodePagination, fmt.Sprintf("page %d", current), ErrNoMorePages)
}

func (a *PaginationAdvancer) invoke(ctx context.Context, move Move) error {
	switch move.Via {
	case ViaHandler:
		var done bool
		script := fmt.Sprintf("(() => { (function(){ %s\n })(); return true; })()", move.Link.OnClick)
		return a.surface.Evaluate(ctx, script, &done)
	case ViaHref:
		return a.surface.Click(ctx, HrefSelector(move.Link.Href))
	default:
		return a.clickPosition(ctx, move.Link.Index)
	}
}

func (a *PaginationAdvancer) clickPosition(ctx context.Context, index int) error {
	var lastErr error
	for _, region := range pagerRegions {
		err := a.surface.ClickNth(ctx, region+" a", index)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (a *PaginationAdvancer) settle(ctx context.Context) {
	if err := a.surface.WaitForNetworkIdle(ctx, a.opts.IdleTimeout); err != nil {
		log.Debug().Err(err).Msg("Network did not go idle after page move")
	}
	if err := a.surface.WaitForSelector(ctx, RowSelector, a.opts.RowsTimeout); err != nil {
		log.Warn().Err(err).Msg("Rows did not reappear after page move")
	}
	if err := a.pacer.Pause(ctx, a.opts.SettleMin, a.opts.SettleMax); err != nil {
		return
	}
	if rows, err := a.surface.QueryAll(ctx, RowSelector); err == nil {
		log.Info().Int("rows", len(rows)).Msg("Rows after page move")
	}
}

// HrefSelector builds an attribute selector matching href exactly
func HrefSelector(href string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `a[href="` + r.Replace(href) + `"]`
}
