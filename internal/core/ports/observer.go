package ports

import (
	"time"

	"github.com/TraceApi/storage-adapter/internal/core/domain"
)

// ResolutionObserver records resolution outcomes, e.g. as metrics.
type ResolutionObserver interface {
	ObserveResolution(outcome domain.Outcome, elapsed time.Duration)
	ObservePages(pages int)
}
