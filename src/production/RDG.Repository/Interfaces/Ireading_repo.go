package interfaces

import (
	"context"
	"errors"
	"time"

	rdgmodels "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Models"
)

// ErrDuplicateReading is returned when a reading already exists at the same
// instant for the same dataset. The composite primary key rejects such
// writes outright.
var ErrDuplicateReading = errors.New("reading already exists for this dataset and timestamp")

// ReadingQueryParams carries validated, normalized query values. It is
// constructed once by the HTTP boundary; the stores never re-validate.
type ReadingQueryParams struct {
	Limit         int
	Offset        int
	SortAscending bool
	From          *time.Time
	To            *time.Time
}

type ReadingRepository interface {
	// AddReading inserts the reading and increments the owning dataset's
	// reading_count in one transaction. Both succeed or both roll back.
	AddReading(ctx context.Context, datasetID string, timestamp time.Time, value float64) error

	// GetReadings returns readings ordered by timestamp, filtered to the
	// inclusive [From, To] bounds when present, paginated by Limit/Offset.
	GetReadings(ctx context.Context, datasetID string, params ReadingQueryParams) ([]rdgmodels.Reading, error)

	// CountReadings returns the denormalized reading_count when no bound is
	// supplied, otherwise an exact count over the filtered range.
	CountReadings(ctx context.Context, datasetID string, from, to *time.Time) (int64, error)
}
