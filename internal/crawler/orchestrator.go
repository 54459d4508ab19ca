// internal/crawler/orchestrator.go
package crawler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/law-makers/casecrawl/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultStartURL is the listing page searched when none is configured
const DefaultStartURL = "https://www.hshfy.sh.cn/shfy/gweb2017/flws_list_new.jsp?ajlb=aYWpsYj3QzMrCz"

// checkpointEvery is the number of successes between snapshots
const checkpointEvery = 2

// submitScript submits the first form on the page
const submitScript = `(() => {
  const forms = document.querySelectorAll("form");
  if (forms.length > 0) {
    forms[0].submit();
    return true;
  }
  return false;
})()`

// Options configures a crawl run
type Options struct {
	StartURL    string
	TargetCount int
	DetailBase  string
	DebugDir    string

	NavigationTimeout time.Duration
	IdleTimeout       time.Duration
	RowsTimeout       time.Duration
	SearchSettle      time.Duration

	Detail DetailOptions
	Pager  AdvancerOptions
}

// DefaultOptions returns the timings used against the listing site
func DefaultOptions() Options {
	return Options{
		StartURL:          DefaultStartURL,
		TargetCount:       30,
		DetailBase:        DefaultDetailBase,
		NavigationTimeout: 30 * time.Second,
		IdleTimeout:       15 * time.Second,
		RowsTimeout:       15 * time.Second,
		SearchSettle:      5 * time.Second,
		Detail:            DefaultDetailOptions(),
		Pager:             DefaultAdvancerOptions(),
	}
}

// Orchestrator drives a crawl session over one listing surface
type Orchestrator struct {
	listing  Surface
	sink     Sink
	pacer    Pacer
	observer Observer
	resolver *DetailResolver
	advancer *PaginationAdvancer
	opts     Options
}

// New creates an orchestrator. pacer and observer may be nil.
func New(listing Surface, opener SurfaceOpener, sink Sink, pacer Pacer, observer Observer, opts Options) *Orchestrator {
	if pacer == nil {
		pacer = nopPacer{}
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Orchestrator{
		listing:  listing,
		sink:     sink,
		pacer:    pacer,
		observer: observer,
		resolver: NewDetailResolver(listing, opener, pacer, opts.Detail),
		advancer: NewPaginationAdvancer(listing, pacer, opts.Pager),
		opts:     opts,
	}
}

// Run executes the crawl until the target is met, no page remains or the
// surface fails. The records gathered so far are always snapshotted before
// Run returns.
func (o *Orchestrator) Run(ctx context.Context) (sess *CrawlSession, err error) {
	sess = NewSession(o.opts.TargetCount)
	logger := log.With().Str("session", sess.ID).Logger()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("crawl aborted: %v", r)
			logger.Error().Interface("panic", r).Msg("Crawl aborted")
		}
		o.checkpoint(context.WithoutCancel(ctx), &logger, sess, "final")
		sess.finish()
		o.observer.Finished(sess)
	}()

	logger.Info().
		Str("url", o.opts.StartURL).
		Int("target", sess.TargetCount).
		Msg("Starting crawl")

	if err := o.submitSearch(ctx, &logger); err != nil {
		return sess, err
	}

	for !sess.QuotaReached() {
		listings, err := o.extractPage(ctx, &logger, sess)
		if err != nil {
			return sess, err
		}
		if len(listings) == 0 {
			logger.Warn().Int("page", sess.CurrentPage).Msg("No listings extracted, stopping")
			o.debugScreenshot(ctx, &logger, sess.CurrentPage)
			return sess, nil
		}

		if err := o.resolvePage(ctx, &logger, sess, listings); err != nil {
			return sess, err
		}
		if sess.QuotaReached() {
			logger.Info().Int("target", sess.TargetCount).Msg("Target reached")
			break
		}

		next, err := o.advancer.Advance(ctx, sess.CurrentPage)
		if err != nil {
			if errors.Is(err, ErrNoMorePages) {
				logger.Info().Int("page", sess.CurrentPage).Msg("No further page")
				return sess, nil
			}
			logger.Warn().Err(err).Int("page", sess.CurrentPage).Msg("Page advance failed, stopping")
			if IsSurfaceFailure(err) {
				return sess, err
			}
			return sess, nil
		}
		sess.advanceTo(next)
	}

	return sess, nil
}

func (o *Orchestrator) submitSearch(ctx context.Context, logger *zerolog.Logger) error {
	if err := o.listing.Navigate(ctx, o.opts.StartURL, o.opts.NavigationTimeout); err != nil {
		return NewSurfaceError("navigate start", err)
	}
	if err := o.listing.WaitForNetworkIdle(ctx, o.opts.IdleTimeout); err != nil {
		logger.Debug().Err(err).Msg("Start page network did not go idle")
	}
	if err := o.pacer.Pause(ctx, time.Second, 2*time.Second); err != nil {
		return NewSurfaceError("submit search", err)
	}

	var submitted bool
	if err := o.listing.Evaluate(ctx, submitScript, &submitted); err != nil {
		return NewSurfaceError("submit search", err)
	}
	if submitted {
		logger.Info().Msg("Search form submitted")
	} else {
		logger.Warn().Err(ErrSearchNotAccepted).Msg("Continuing without submission")
	}

	if err := o.listing.WaitForTimeout(ctx, o.opts.SearchSettle); err != nil {
		return NewSurfaceError("submit search", err)
	}
	rows, err := o.listing.QueryAll(ctx, RowSelector)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("Could not check for result rows")
	case len(rows) == 0:
		logger.Warn().Msg("No result rows yet")
	default:
		logger.Info().Int("rows", len(rows)).Msg("Result rows present")
	}
	return nil
}

func (o *Orchestrator) extractPage(ctx context.Context, logger *zerolog.Logger, sess *CrawlSession) ([]models.CaseListing, error) {
	minWait, maxWait := 2*time.Second, 3*time.Second
	if sess.CurrentPage > 1 {
		minWait, maxWait = 3*time.Second, 4*time.Second
	}
	if err := o.pacer.Pause(ctx, minWait, maxWait); err != nil {
		return nil, NewSurfaceError("extract page", err)
	}
	if err := o.listing.WaitForSelector(ctx, RowSelector, o.opts.RowsTimeout); err != nil {
		logger.Warn().Err(err).Int("page", sess.CurrentPage).Msg("Rows did not appear")
	}

	rows, err := o.listing.QueryAll(ctx, RowSelector)
	if err != nil {
		return nil, NewSurfaceError("query rows", err)
	}
	sess.Stats.DiscoveredTotal += len(rows)
	o.observer.PageStarted(sess.CurrentPage, len(rows))
	logger.Info().
		Int("page", sess.CurrentPage).
		Int("rows", len(rows)).
		Int("discovered", sess.Stats.DiscoveredTotal).
		Msg("Extracting page")

	listings := make([]models.CaseListing, 0, len(rows))
	for i, row := range rows {
		l, err := ExtractRow(row, sess.CurrentPage, i, o.opts.DetailBase)
		if err != nil {
			sess.Stats.Dropped++
			logger.Warn().Err(err).Int("page", sess.CurrentPage).Int("index", i).Msg("Dropping row")
			continue
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func (o *Orchestrator) resolvePage(ctx context.Context, logger *zerolog.Logger, sess *CrawlSession, listings []models.CaseListing) error {
	batch := listings
	if remaining := sess.Remaining(); len(batch) > remaining {
		batch = batch[:remaining]
	}

	for i, l := range batch {
		if err := ctx.Err(); err != nil {
			return NewSurfaceError("resolve details", err)
		}

		rec, err := o.resolver.Resolve(ctx, l)
		switch {
		case err == nil:
			sess.store(rec)
			o.observer.RecordStored(rec, sess.ProcessedCount, sess.TargetCount)
			logger.Info().
				Str("case", l.CaseNumber).
				Int("page", l.PageNumber).
				Int("processed", sess.ProcessedCount).
				Int("target", sess.TargetCount).
				Msg("Stored record")
			if sess.ProcessedCount%checkpointEvery == 0 {
				o.checkpoint(ctx, logger, sess, "periodic")
			}
		case errors.Is(err, ErrNoLink):
			sess.Stats.Skipped++
			logger.Warn().Str("case", l.CaseNumber).Str("row", l.RowID).Msg("Skipping listing without detail link")
		default:
			sess.Stats.Failed++
			o.observer.ListingFailed(l, err)
			logger.Warn().Err(err).Str("case", l.CaseNumber).Msg("Detail resolution failed")
		}

		if i < len(batch)-1 && !sess.QuotaReached() {
			if err := o.pacer.Pause(ctx, 2*time.Second, 4*time.Second); err != nil {
				return NewSurfaceError("resolve details", err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) checkpoint(ctx context.Context, logger *zerolog.Logger, sess *CrawlSession, reason string) {
	records := sess.Records()
	if len(records) == 0 || o.sink == nil {
		logger.Debug().Str("reason", reason).Msg("Nothing to snapshot")
		return
	}
	if err := o.sink.Snapshot(ctx, records); err != nil {
		logger.Error().Err(err).Str("reason", reason).Int("records", len(records)).Msg("Snapshot failed")
		return
	}
	sess.releaseMarkup(len(records))
	logger.Info().Str("reason", reason).Int("records", len(records)).Msg("Snapshot written")
}

func (o *Orchestrator) debugScreenshot(ctx context.Context, logger *zerolog.Logger, page int) {
	if o.opts.DebugDir == "" {
		return
	}
	path := filepath.Join(o.opts.DebugDir, fmt.Sprintf("debug_page_%d.png", page))
	if err := o.listing.Screenshot(ctx, path); err != nil {
		logger.Debug().Err(err).Msg("Debug screenshot failed")
		return
	}
	logger.Info().Str("path", path).Msg("Debug screenshot saved")
}
