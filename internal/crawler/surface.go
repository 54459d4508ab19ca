// internal/crawler/surface.go
package crawler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/law-makers/casecrawl/pkg/models"
)

// ErrElementNotFound is returned by surfaces when a selector matches nothing
var ErrElementNotFound = errors.New("element not found")

// Element is a snapshot of one matched DOM element
type Element struct {
	Attrs map[string]string `json:"attrs"`
	Cells []string          `json:"cells"`
	Text  string            `json:"text"`
}

// Attr returns the named attribute of the element
func (e Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Surface is a single browsing context: a tab the crawler can drive.
//
// Selectors are CSS unless prefixed with text=, in which case the remainder is
// a quoted visible-text match (see TextSelector). Implementations return an
// error wrapping ErrElementNotFound when a click target does not exist.
type Surface interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Evaluate(ctx context.Context, script string, out interface{}) error
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	Click(ctx context.Context, selector string) error
	ClickNth(ctx context.Context, selector string, n int) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error
	WaitForTimeout(ctx context.Context, d time.Duration) error
	Content(ctx context.Context) (string, error)
	Text(ctx context.Context, selector string) (string, error)
	Screenshot(ctx context.Context, path string) error
	URL(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// SurfaceOpener creates additional surfaces next to the listing surface.
type SurfaceOpener interface {
	// ExpectSurface arms a subscription for the next surface opened by the
	// page. The channel yields at most one surface and is closed once the
	// timeout elapses or ctx is done.
	ExpectSurface(ctx context.Context, timeout time.Duration) <-chan Surface

	// OpenSurface opens a fresh blank surface.
	OpenSurface(ctx context.Context) (Surface, error)
}

// Sink persists the full record set. Snapshot is an idempotent overwrite.
type Sink interface {
	Snapshot(ctx context.Context, records []models.CaseRecord) error
}

// Pacer produces politeness delays
type Pacer interface {
	Pause(ctx context.Context, min, max time.Duration) error
}

// Observer receives progress notifications from the orchestrator
type Observer interface {
	PageStarted(page, rows int)
	RecordStored(rec models.CaseRecord, processed, target int)
	ListingFailed(listing models.CaseListing, err error)
	Finished(sess *CrawlSession)
}

// TextSelector builds a visible-text selector for s. Parentheses are escaped
// so the text survives selector parsing.
func TextSelector(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "(", `\(`, ")", `\)`)
	return `text="` + r.Replace(s) + `"`
}

// ParseTextSelector reverses TextSelector
func ParseTextSelector(sel string) (string, bool) {
	if !strings.HasPrefix(sel, "text=") {
		return "", false
	}
	body := strings.TrimPrefix(sel, "text=")
	if len(body) >= 2 && body[0] == '"' && body[len(body)-1] == '"' {
		body = body[1 : len(body)-1]
	}
	var b strings.Builder
	escaped := false
	for _, r := range body {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), true
}

type nopObserver struct{}

func (nopObserver) PageStarted(int, int)                     {}
func (nopObserver) RecordStored(models.CaseRecord, int, int) {}
func (nopObserver) ListingFailed(models.CaseListing, error)  {}
func (nopObserver) Finished(*CrawlSession)                   {}

type nopPacer struct{}

func (nopPacer) Pause(ctx context.Context, _, _ time.Duration) error {
	return ctx.Err()
}
