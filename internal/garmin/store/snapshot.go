package store

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"folio/internal/garmin/models"
)

//go:embed snapshot.json
var snapshotJSON []byte

// Snapshot serves the embedded dataset. Each Load returns a fresh copy.
type Snapshot struct {
	raw []byte
}

func NewSnapshot() *Snapshot {
	return &Snapshot{raw: snapshotJSON}
}

// NewSnapshotFromJSON is used by tests and by deployments that ship their
// own export.
func NewSnapshotFromJSON(raw []byte) *Snapshot {
	return &Snapshot{raw: raw}
}

func (s *Snapshot) Name() string { return "snapshot" }

func (s *Snapshot) Load(ctx context.Context) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(s.raw))
	dec.DisallowUnknownFields()
	var d models.Dataset
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(d.Activities) == 0 && len(d.VO2Max) == 0 {
		return nil, ErrNoData
	}
	models.SortActivities(d.Activities)
	return &d, nil
}
