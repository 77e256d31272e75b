//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"folio/internal/garmin/store"
	"folio/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateHealthTables(context.Background()))
}

func (s *PostgresStoreSuite) seed(ctx context.Context) {
	t := s.T()
	day := time.Date(2023, 10, 1, 7, 0, 0, 0, time.UTC)

	s.postgres.Exec(ctx, t, `
		INSERT INTO vo2_max (calendar_date, vo2_max_value, sport) VALUES
		('2023-10-08', 54, 'trail'), ('2016-02-15', 46, 'running'), ('2023-10-02', 55, 'running')
	`)
	s.postgres.Exec(ctx, t, `
		INSERT INTO activities (activity_type, distance_km, duration_minutes, avg_hr, start_time) VALUES
		('running', 10, 60, 150, $1),
		('running', 5, 30, NULL, $2),
		('cycling', 40, 90, 0, $3)
	`, day, day.AddDate(0, 0, 1), day.AddDate(0, 0, 9))
	s.postgres.Exec(ctx, t, `INSERT INTO sleep_summary (avg_duration_hours, nights) VALUES (7.8, 2800)`)
	s.postgres.Exec(ctx, t, `
		INSERT INTO race_predictions (calendar_date, race_time_5k, race_time_10k, race_time_half, race_time_marathon) VALUES
		('2022-12-20', 1342, 3004, 6967, 15473), ('2023-03-20', 1405, 3139, 7305, 16164)
	`)
	s.postgres.Exec(ctx, t, `
		INSERT INTO heart_rate_zones (max_hr, lactate_threshold_hr, zone1_floor, zone2_floor, zone3_floor, zone4_floor, zone5_floor)
		VALUES (189, 173, 95, 113, 132, 151, 170)
	`)
}

func (s *PostgresStoreSuite) TestLoad() {
	ctx := context.Background()
	s.seed(ctx)

	d, err := s.store.Load(ctx)
	s.Require().NoError(err)

	s.Require().Len(d.VO2Max, 3)
	s.Equal("2016-02-15", d.VO2Max[0].Date)
	s.Equal("2023-10-08", d.VO2Max[2].Date)

	s.Equal(3, d.TotalActivities)
	s.Equal(10, d.DaysTracked)
	s.Equal("2023-10-01", d.DateRange.Start)
	s.Equal("2023-10-10", d.DateRange.End)
	s.Require().Len(d.Activities, 2)
	s.Equal("running", d.Activities[0].Type)
	s.Require().NotNil(d.Activities[0].AvgHR)
	s.Equal(150, *d.Activities[0].AvgHR)
	s.Nil(d.Activities[1].AvgHR, "zero heart rate samples are ignored")

	s.InDelta(7.8, d.Sleep.AvgDurationHours, 1e-9)
	s.Equal(2800, d.Sleep.Nights)

	s.Require().Len(d.RacePredictions, 2)
	s.Equal("2023-03-20", d.RacePredictions[0].Date)

	s.Require().NotNil(d.HeartRateZones)
	s.Equal([5]int{95, 113, 132, 151, 170}, d.HeartRateZones.Floors)
}

func (s *PostgresStoreSuite) TestLoadEmpty() {
	_, err := s.store.Load(context.Background())
	s.ErrorIs(err, store.ErrNoData)
}

func (s *PostgresStoreSuite) TestLoadWithoutOptionalTables() {
	ctx := context.Background()
	s.postgres.Exec(ctx, s.T(), `INSERT INTO vo2_max (calendar_date, vo2_max_value, sport) VALUES ('2016-02-15', 46, 'running')`)

	d, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Empty(d.Activities)
	s.Empty(d.RacePredictions)
	s.Nil(d.HeartRateZones)
	s.Zero(d.Sleep.Nights)
}
