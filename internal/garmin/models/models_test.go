package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hr(v float64) *float64 { return &v }

func TestGroupActivities(t *testing.T) {
	start := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	rows := []ActivityRow{
		{Type: "running", DistanceKm: 10, DurationMinutes: 60, AvgHR: hr(150), StartTime: start},
		{Type: "running", DistanceKm: 5, DurationMinutes: 30, AvgHR: hr(0), StartTime: start},
		{Type: "running", DistanceKm: 8, DurationMinutes: 45, AvgHR: hr(161), StartTime: start},
		{Type: "lap_swimming", DistanceKm: 2, DurationMinutes: 45, StartTime: start},
		{Type: "", DistanceKm: 1, DurationMinutes: 15, StartTime: start},
		{Type: "cycling", DistanceKm: 40, DurationMinutes: 90, AvgHR: hr(-1), StartTime: start},
	}

	got := GroupActivities(rows)
	require.Len(t, got, 4)

	assert.Equal(t, "running", got[0].Type)
	assert.Equal(t, 3, got[0].Count)
	assert.InDelta(t, 23, got[0].TotalDistanceKm, 1e-9)
	assert.InDelta(t, 2.25, got[0].TotalDurationHours, 1e-9)
	require.NotNil(t, got[0].AvgHR)
	assert.Equal(t, 156, *got[0].AvgHR)

	// ties break alphabetically
	assert.Equal(t, []string{"cycling", "lap_swimming", "unknown"},
		[]string{got[1].Type, got[2].Type, got[3].Type})
	assert.Nil(t, got[1].AvgHR)
	assert.Nil(t, got[2].AvgHR)
}

func TestGroupActivitiesEmpty(t *testing.T) {
	assert.Empty(t, GroupActivities(nil))
}

func TestZones(t *testing.T) {
	z := &HeartRateZones{MaxHR: 189, LactateThresholdHR: 173, Floors: [5]int{95, 113, 132, 151, 170}}
	zones := z.Zones()
	require.Len(t, zones, 5)
	assert.Equal(t, Zone{Name: "Warm Up", Floor: 95, Ceiling: 112}, zones[0])
	assert.Equal(t, Zone{Name: "Maximum", Floor: 170, Ceiling: 189}, zones[4])

	var none *HeartRateZones
	assert.Nil(t, none.Zones())
}

func TestFormatRaceTime(t *testing.T) {
	assert.Equal(t, "--:--", FormatRaceTime(0))
	assert.Equal(t, "22:22", FormatRaceTime(1342))
	assert.Equal(t, "1:56:07", FormatRaceTime(6967))
	assert.Equal(t, "0:59", FormatRaceTime(59))
}

func TestDatasetTrendAndPredictions(t *testing.T) {
	d := &Dataset{
		VO2Max: []VO2MaxReading{
			{Date: "2016-02-15", Value: 46, Sport: "running"},
			{Date: "2023-10-02", Value: 55, Sport: "running"},
			{Date: "2023-10-08", Value: 54, Sport: "trail"},
		},
		RacePredictions: []RacePrediction{
			{Date: "2023-03-20", FiveK: 1405},
			{Date: "2022-12-20", FiveK: 1342},
			{Date: "2022-11-01"},
		},
	}

	trend := d.Trend()
	require.NotNil(t, trend)
	assert.Equal(t, "2016-02-15", trend.First.Date)
	assert.Equal(t, "2023-10-02", trend.Peak.Date)
	assert.Equal(t, "2023-10-08", trend.Latest.Date)
	assert.InDelta(t, 19.6, trend.ImprovementPct, 1e-9)

	assert.Equal(t, "2022-12-20", d.BestPrediction().Date)
	assert.Equal(t, "2023-03-20", d.LatestPrediction().Date)

	empty := &Dataset{}
	assert.Nil(t, empty.Trend())
	assert.Nil(t, empty.BestPrediction())
	assert.Nil(t, empty.LatestPrediction())
}
