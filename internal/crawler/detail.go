// internal/crawler/detail.go
package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/law-makers/casecrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// MaxDetailText is the number of characters of detail text kept per record
const MaxDetailText = 5000

// DetailOptions tunes the detail resolver
type DetailOptions struct {
	SurfaceTimeout    time.Duration
	NavigationTimeout time.Duration
	IdleTimeout       time.Duration
	JitterMin         time.Duration
	JitterMax         time.Duration
	Settle            time.Duration
	KeepHTML          bool
}

// DefaultDetailOptions returns the waits used against the detail views
func DefaultDetailOptions() DetailOptions {
	return DetailOptions{
		SurfaceTimeout:    10 * time.Second,
		NavigationTimeout: 30 * time.Second,
		IdleTimeout:       15 * time.Second,
		JitterMin:         500 * time.Millisecond,
		JitterMax:         1500 * time.Millisecond,
		Settle:            2 * time.Second,
	}
}

// DetailResolver obtains and scrapes the detail view of a listing
type DetailResolver struct {
	listing Surface
	opener  SurfaceOpener
	pacer   Pacer
	opts    DetailOptions
	now     func() time.Time
}

// NewDetailResolver creates a resolver clicking rows on the listing surface
func NewDetailResolver(listing Surface, opener SurfaceOpener, pacer Pacer, opts DetailOptions) *DetailResolver {
	if pacer == nil {
		pacer = nopPacer{}
	}
	return &DetailResolver{
		listing: listing,
		opener:  opener,
		pacer:   pacer,
		opts:    opts,
		now:     time.Now,
	}
}

// Resolve fetches the detail view of l. Listings without a detail link fail
// with ErrNoLink; any other failure is a DetailError.
func (r *DetailResolver) Resolve(ctx context.Context, l models.CaseListing) (models.CaseRecord, error) {
	if l.DetailURL == "" {
		return models.CaseRecord{}, NewError(ErrCodeDetail, l.CaseNumber, ErrNoLink).
			WithDetail("row_id", l.RowID)
	}

	detail, how, err := r.obtain(ctx, l)
	if err != nil {
		return models.CaseRecord{}, detailFailed(l, "obtain surface", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := detail.Close(closeCtx); err != nil {
			log.Debug().Err(err).Str("case", l.CaseNumber).Msg("Failed to close detail surface")
		}
	}()

	log.Debug().Str("case", l.CaseNumber).Str("via", how).Msg("Detail surface ready")

	rec, err := r.scrape(ctx, detail, l)
	if err != nil {
		return models.CaseRecord{}, detailFailed(l, "scrape", err)
	}
	return rec, nil
}

// obtain returns the detail surface, opened by clicking the row when possible
// and by navigating a fresh surface otherwise.
func (r *DetailResolver) obtain(ctx context.Context, l models.CaseListing) (Surface, string, error) {
	arrived := r.opener.ExpectSurface(ctx, r.opts.SurfaceTimeout)

	how, clickErr := r.clickRow(ctx, l)
	if clickErr == nil {
		select {
		case s, ok := <-arrived:
			if ok && s != nil {
				return s, how, nil
			}
			clickErr = ErrNoSurface
		case <-ctx.Done():
			go drainSurfaces(arrived)
			return nil, "", ctx.Err()
		}
	} else {
		go drainSurfaces(arrived)
	}
	log.Debug().Err(clickErr).Str("case", l.CaseNumber).Msg("Row click gave no surface, navigating directly")

	s, err := r.opener.OpenSurface(ctx)
	if err != nil {
		return nil, "", NewSurfaceError("open surface", err).WithDetail("click", clickErr.Error())
	}
	if err := s.Navigate(ctx, l.DetailURL, r.opts.NavigationTimeout); err != nil {
		_ = s.Close(context.WithoutCancel(ctx))
		return nil, "", NewSurfaceError("navigate detail", err).WithDetail("click", clickErr.Error())
	}
	return s, "direct", nil
}

// clickRow clicks the row by id, falling back to its case-number text
func (r *DetailResolver) clickRow(ctx context.Context, l models.CaseListing) (string, error) {
	err := r.listing.Click(ctx, fmt.Sprintf(`tr[id="%s"]`, l.RowID))
	if err == nil {
		return "row", nil
	}
	if !errors.Is(err, ErrElementNotFound) || l.CaseNumber == "" {
		return "", err
	}
	if err := r.listing.Click(ctx, TextSelector(l.CaseNumber)); err != nil {
		return "", err
	}
	return "text", nil
}

func (r *DetailResolver) scrape(ctx context.Context, s Surface, l models.CaseListing) (models.CaseRecord, error) {
	if err := s.WaitForNetworkIdle(ctx, r.opts.IdleTimeout); err != nil {
		log.Debug().Err(err).Str("case", l.CaseNumber).Msg("Detail network did not go idle")
	}
	if err := r.pacer.Pause(ctx, r.opts.JitterMin, r.opts.JitterMax); err != nil {
		return models.CaseRecord{}, err
	}
	if err := s.WaitForTimeout(ctx, r.opts.Settle); err != nil {
		return models.CaseRecord{}, err
	}

	html, err := s.Content(ctx)
	if err != nil {
		return models.CaseRecord{}, NewSurfaceError("read content", err)
	}
	text, err := s.Text(ctx, "body")
	if err != nil {
		return models.CaseRecord{}, NewSurfaceError("read text", err)
	}
	url, err := s.URL(ctx)
	if err != nil {
		return models.CaseRecord{}, NewSurfaceError("read url", err)
	}

	rec := models.CaseRecord{
		CaseListing:   l,
		DetailText:    CollapseText(text, MaxDetailText),
		FetchedAt:     r.now(),
		ContentLength: len(html),
	}
	rec.DetailURL = url
	if r.opts.KeepHTML {
		rec.RawHTML = html
	}
	return rec, nil
}

// CollapseText joins whitespace runs into single spaces and caps the result
// at limit characters, marking truncation with "...".
func CollapseText(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func detailFailed(l models.CaseListing, reason string, err error) error {
	return NewError(ErrCodeDetail, reason, err).
		WithDetail("case", l.CaseNumber).
		WithDetail("row_id", l.RowID)
}

// drainSurfaces closes surfaces that arrive after nobody is waiting for them
func drainSurfaces(ch <-chan Surface) {
	for s := range ch {
		if s != nil {
			_ = s.Close(context.Background())
		}
	}
}
