// internal/ui/progress.go
package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/law-makers/casecrawl/internal/crawler"
	"github.com/law-makers/casecrawl/pkg/models"
	"github.com/schollz/progressbar/v3"
)

// Progress renders crawl progress as a terminal bar. It implements
// crawler.Observer.
type Progress struct {
	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	page     int
	failures int
}

var _ crawler.Observer = (*Progress)(nil)

// NewProgress creates a bar counting towards target on w
func NewProgress(w io.Writer, target int) *Progress {
	bar := progressbar.NewOptions(target,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("page 1"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &Progress{bar: bar, page: 1}
}

func (p *Progress) PageStarted(page, rows int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page = page
	p.describe()
}

func (p *Progress) RecordStored(_ models.CaseRecord, processed, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Set(processed)
}

func (p *Progress) ListingFailed(models.CaseListing, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures++
	p.describe()
}

func (p *Progress) Finished(*crawler.CrawlSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Finish()
	_ = p.bar.Clear()
}

func (p *Progress) describe() {
	desc := fmt.Sprintf("page %d", p.page)
	if p.failures > 0 {
		desc += fmt.Sprintf(" (%d failed)", p.failures)
	}
	p.bar.Describe(desc)
}
