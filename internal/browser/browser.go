// internal/browser/browser.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/casecrawl/internal/crawler"
	"github.com/rs/zerolog/log"
)

// Options configures the Chrome instance
type Options struct {
	Headless   bool
	ChromePath string
	UserAgent  string
	Proxy      string
	Headers    map[string]string
	WindowSize string
	ExtraArgs  []chromedp.ExecAllocatorOption
}

// Browser owns one Chrome process: the listing tab plus the detail tabs
// opened from it.
type Browser struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	listing     *Surface
	listingID   target.ID
	headers     map[string]string

	mu     sync.Mutex
	opened int
	closed bool
}

var _ crawler.SurfaceOpener = (*Browser)(nil)

// Launch starts Chrome and opens the listing tab
func Launch(opts Options) (*Browser, error) {
	if opts.WindowSize == "" {
		opts.WindowSize = "1200,800"
	}
	chromePath := FindChrome(opts.ChromePath)

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("window-size", opts.WindowSize),
	}
	if chromePath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(chromePath)}, allocOpts...)
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false), chromedp.Flag("start-maximized", true))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	allocOpts = append(allocOpts, opts.ExtraArgs...)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	listing, err := newSurface(browserCtx, browserCancel, "listing", opts.Headers)
	if err != nil {
		allocCancel()
		return nil, err
	}

	b := &Browser{
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      browserCancel,
		listing:     listing,
		headers:     opts.Headers,
	}
	if c := chromedp.FromContext(browserCtx); c != nil && c.Target != nil {
		b.listingID = c.Target.TargetID
	}

	log.Info().
		Bool("headless", opts.Headless).
		Str("chrome", ChromeVersion(chromePath)).
		Msg("Browser ready")
	return b, nil
}

// Listing returns the surface the search runs on
func (b *Browser) Listing() crawler.Surface {
	return b.listing
}

// lateSurfaceGrace is how long after an ExpectSurface timeout a tab opened by
// the listing is still watched for, so it can be closed rather than leaked
const lateSurfaceGrace = 10 * time.Second

// ExpectSurface waits for the next tab opened by the listing tab. A tab that
// opens after timeout is closed when it appears.
func (b *Browser) ExpectSurface(ctx context.Context, timeout time.Duration) <-chan crawler.Surface {
	out := make(chan crawler.Surface, 1)

	waitCtx, cancel := context.WithTimeout(b.ctx, timeout+lateSurfaceGrace)
	stop := context.AfterFunc(ctx, cancel)
	created := chromedp.WaitNewTarget(waitCtx, func(info *target.Info) bool {
		return info.Type == "page" && (b.listingID == "" || info.OpenerID == b.listingID)
	})

	go func() {
		defer cancel()
		defer stop()

		id, ok := awaitTarget(waitCtx, created, timeout)
		if ok {
			if s, err := b.attach(id); err != nil {
				log.Warn().Err(err).Str("target", string(id)).Msg("Failed to attach to new tab")
			} else {
				out <- s
			}
			close(out)
			return
		}
		close(out)

		if id, ok := awaitTarget(waitCtx, created, lateSurfaceGrace); ok {
			b.reap(id)
		}
	}()
	return out
}

// awaitTarget returns the first target created within timeout
func awaitTarget(ctx context.Context, created <-chan target.ID, timeout time.Duration) (target.ID, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case id, ok := <-created:
		return id, ok
	case <-t.C:
	case <-ctx.Done():
	}
	return "", false
}

// reap closes a tab nobody is waiting for any more
func (b *Browser) reap(id target.ID) {
	s, err := b.attach(id)
	if err != nil {
		log.Debug().Err(err).Str("target", string(id)).Msg("Late tab already gone")
		return
	}
	if err := s.Close(context.Background()); err != nil {
		log.Debug().Err(err).Str("target", string(id)).Msg("Failed to close late tab")
		return
	}
	log.Debug().Str("target", string(id)).Msg("Closed late tab")
}

// OpenSurface opens a fresh blank tab
func (b *Browser) OpenSurface(ctx context.Context) (crawler.Surface, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	tabCtx, tabCancel := chromedp.NewContext(b.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return newSurface(tabCtx, tabCancel, b.nextName(), b.headers)
}

func (b *Browser) attach(id target.ID) (*Surface, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	tabCtx, tabCancel := chromedp.NewContext(b.ctx, chromedp.WithTargetID(id))
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to attach tab: %w", err)
	}
	return newSurface(tabCtx, tabCancel, b.nextName(), b.headers)
}

func (b *Browser) nextName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened++
	return fmt.Sprintf("detail-%d", b.opened)
}

func (b *Browser) checkOpen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("browser is closed")
	}
	return nil
}

// Close shuts down Chrome
func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.allocCancel()
	log.Info().Int("tabs_opened", b.opened).Msg("Browser closed")
	return nil
}
