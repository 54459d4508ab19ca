// internal/browser/surface.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/casecrawl/internal/crawler"
	"github.com/rs/zerolog/log"
)

// defaultActionTimeout bounds surface operations that take no explicit timeout
const defaultActionTimeout = 10 * time.Second

// snapshotScript returns an Element snapshot for every match of a selector
const snapshotScript = `((kind, q) => {
  let nodes = [];
  if (kind === "xpath") {
    const r = document.evaluate(q, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    for (let i = 0; i < r.snapshotLength; i++) nodes.push(r.snapshotItem(i));
  } else {
    nodes = Array.from(document.querySelectorAll(q));
  }
  return nodes.map(el => {
    const attrs = {};
    for (const a of Array.from(el.attributes || [])) attrs[a.name] = a.value;
    return {
      attrs: attrs,
      cells: Array.from(el.querySelectorAll("td")).map(td => td.innerText || ""),
      text: el.innerText || el.textContent || ""
    };
  });
})(%s, %s)`

// clickNthScript clicks the n-th match of a CSS selector
const clickNthScript = `((q, n) => {
  const el = document.querySelectorAll(q)[n];
  if (!el) return false;
  el.click();
  return true;
})(%s, %d)`

// textScript returns the rendered text of the first match
const textScript = `((q) => {
  const el = document.querySelector(q);
  return el ? (el.innerText || el.textContent || "") : "";
})(%s)`

// Surface is one Chrome tab driven through chromedp
type Surface struct {
	ctx    context.Context
	cancel context.CancelFunc
	idle   *idleTracker
	name   string

	closeOnce sync.Once
}

var _ crawler.Surface = (*Surface)(nil)

// newSurface wraps a chromedp tab context, enabling network tracking and the
// configured extra headers.
func newSurface(ctx context.Context, cancel context.CancelFunc, name string, headers map[string]string) (*Surface, error) {
	s := &Surface{ctx: ctx, cancel: cancel, idle: newIdleTracker(), name: name}
	chromedp.ListenTarget(ctx, s.idle.observe)

	tasks := chromedp.Tasks{network.Enable()}
	if len(headers) > 0 {
		h := make(network.Headers, len(headers))
		for k, v := range headers {
			h[k] = v
		}
		tasks = append(tasks, network.SetExtraHTTPHeaders(h))
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to prepare %s surface: %w", name, err)
	}
	return s, nil
}

// op derives a context for one chromedp run: it carries the tab, is bounded
// by timeout and is cancelled along with the caller's ctx.
func (s *Surface) op(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	opCtx, cancel := context.WithTimeout(s.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (s *Surface) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := s.op(ctx, timeout)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

// Navigate loads url in the tab
func (s *Surface) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	log.Debug().Str("surface", s.name).Str("url", url).Msg("Navigating")
	return s.run(ctx, timeout, chromedp.Navigate(url))
}

// Evaluate runs script and decodes its JSON result into out
func (s *Surface) Evaluate(ctx context.Context, script string, out interface{}) error {
	return s.run(ctx, 0, chromedp.Evaluate(script, out))
}

// QueryAll snapshots every element matched by selector
func (s *Surface) QueryAll(ctx context.Context, selector string) ([]crawler.Element, error) {
	q := parseSelector(selector)
	kind, _ := json.Marshal(q.kind())
	expr, _ := json.Marshal(q.expr)

	var elements []crawler.Element
	if err := s.Evaluate(ctx, fmt.Sprintf(snapshotScript, kind, expr), &elements); err != nil {
		return nil, err
	}
	return elements, nil
}

// Click clicks the first element matched by selector
func (s *Surface) Click(ctx context.Context, selector string) error {
	found, err := s.QueryAll(ctx, selector)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("click %s: %w", selector, crawler.ErrElementNotFound)
	}
	q := parseSelector(selector)
	return s.run(ctx, 0, chromedp.Click(q.expr, q.by(), chromedp.NodeVisible))
}

// ClickNth clicks the n-th element matched by a CSS selector
func (s *Surface) ClickNth(ctx context.Context, selector string, n int) error {
	q, _ := json.Marshal(selector)
	var clicked bool
	if err := s.Evaluate(ctx, fmt.Sprintf(clickNthScript, q, n), &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("click %s[%d]: %w", selector, n, crawler.ErrElementNotFound)
	}
	return nil
}

// WaitForSelector waits until selector matches an element in the DOM
func (s *Surface) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	q := parseSelector(selector)
	return s.run(ctx, timeout, chromedp.WaitReady(q.expr, q.by()))
}

// WaitForNetworkIdle waits until no request has been in flight for a quiet period
func (s *Surface) WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error {
	opCtx, cancel := s.op(ctx, timeout)
	defer cancel()
	return s.idle.wait(opCtx, quietPeriod)
}

// WaitForTimeout sleeps for d unless ctx is done first
func (s *Surface) WaitForTimeout(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Content returns the serialized document
func (s *Surface) Content(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Text returns the rendered text of the first element matched by selector
func (s *Surface) Text(ctx context.Context, selector string) (string, error) {
	q, _ := json.Marshal(selector)
	var text string
	err := s.Evaluate(ctx, fmt.Sprintf(textScript, q), &text)
	return text, err
}

// Screenshot writes a full-page PNG to path
func (s *Surface) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, 30*time.Second, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// URL returns the current location of the tab
func (s *Surface) URL(ctx context.Context) (string, error) {
	var u string
	err := s.run(ctx, 0, chromedp.Location(&u))
	return u, err
}

// Close closes the tab. It is safe to call more than once.
func (s *Surface) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		err = s.run(ctx, 5*time.Second, page.Close())
		s.cancel()
		log.Debug().Str("surface", s.name).Msg("Surface closed")
	})
	return err
}
