// internal/sink/multi.go
package sink

import (
	"context"
	"errors"

	"github.com/law-makers/casecrawl/internal/crawler"
	"github.com/law-makers/casecrawl/pkg/models"
)

// Multi fans a snapshot out to several sinks. Every sink is attempted; the
// failures are joined.
type Multi []crawler.Sink

// Snapshot implements crawler.Sink
func (m Multi) Snapshot(ctx context.Context, records []models.CaseRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Snapshot(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
