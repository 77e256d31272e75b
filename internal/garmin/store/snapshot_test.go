package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotLoad(t *testing.T) {
	d, err := NewSnapshot().Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 419, d.TotalActivities)
	assert.Equal(t, "2015-11-15", d.DateRange.Start)
	assert.Equal(t, "2024-12-31", d.DateRange.End)
	require.Len(t, d.Activities, 6)
	assert.Equal(t, "running", d.Activities[0].Type)
	assert.Nil(t, d.Activities[2].AvgHR, "lap swimming has no heart rate")
	assert.Len(t, d.VO2Max, 24)
	assert.InDelta(t, 7.8, d.Sleep.AvgDurationHours, 1e-9)
	require.NotNil(t, d.HeartRateZones)
	assert.Equal(t, 189, d.HeartRateZones.MaxHR)
	assert.Equal(t, "2023-03-20", d.LatestPrediction().Date)
	assert.Equal(t, 1342, d.BestPrediction().FiveK)
}

func TestSnapshotLoadReturnsCopies(t *testing.T) {
	s := NewSnapshot()
	a, err := s.Load(context.Background())
	require.NoError(t, err)
	a.Activities[0].Count = 0

	b, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 156, b.Activities[0].Count)
}

func TestSnapshotErrors(t *testing.T) {
	_, err := NewSnapshotFromJSON([]byte(`{"activities":[],"vo2_max":[]}`)).Load(context.Background())
	assert.ErrorIs(t, err, ErrNoData)

	_, err = NewSnapshotFromJSON([]byte(`{"unexpected":1}`)).Load(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewSnapshot().Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
