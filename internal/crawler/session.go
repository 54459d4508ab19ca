// internal/crawler/session.go
package crawler

import (
	"time"

	"github.com/google/uuid"
	"github.com/law-makers/casecrawl/pkg/models"
)

// CrawlSession is the state of one crawl run. It is owned by the orchestrator;
// sinks only ever see copies of its records.
type CrawlSession struct {
	ID             string
	TargetCount    int
	ProcessedCount int
	CurrentPage    int
	Stats          models.Stats
	StartedAt      time.Time
	FinishedAt     time.Time

	records []models.CaseRecord
}

// NewSession creates a session aiming for target records
func NewSession(target int) *CrawlSession {
	return &CrawlSession{
		ID:          uuid.NewString(),
		TargetCount: target,
		CurrentPage: 1,
		StartedAt:   time.Now(),
	}
}

// Remaining returns how many records are still needed
func (s *CrawlSession) Remaining() int {
	if n := s.TargetCount - s.ProcessedCount; n > 0 {
		return n
	}
	return 0
}

// QuotaReached reports whether the target has been met
func (s *CrawlSession) QuotaReached() bool {
	return s.ProcessedCount >= s.TargetCount
}

// Records returns a copy of the accumulated records
func (s *CrawlSession) Records() []models.CaseRecord {
	out := make([]models.CaseRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Duration returns the elapsed run time
func (s *CrawlSession) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s *CrawlSession) store(rec models.CaseRecord) {
	s.records = append(s.records, rec)
	s.ProcessedCount++
	s.Stats.Succeeded++
}

// releaseMarkup drops the raw detail markup of the first n records once
// every sink has persisted them
func (s *CrawlSession) releaseMarkup(n int) {
	for i := 0; i < n && i < len(s.records); i++ {
		s.records[i].RawHTML = ""
	}
}

func (s *CrawlSession) advanceTo(page int) {
	s.CurrentPage = page
	s.Stats.PagesVisited++
}

func (s *CrawlSession) finish() {
	if s.FinishedAt.IsZero() {
		s.FinishedAt = time.Now()
	}
}
