// Package store loads health data from Postgres or from the snapshot
// compiled into the binary.
package store

import (
	"context"
	"errors"

	"folio/internal/garmin/models"
)

// ErrNoData is returned when a source holds no activities and no VO2 max
// readings.
var ErrNoData = errors.New("no health data available")

// Source identifies where a Dataset came from; it labels load metrics.
type Source interface {
	Load(ctx context.Context) (*models.Dataset, error)
	Name() string
}
