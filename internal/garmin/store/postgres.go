package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"folio/internal/garmin/models"
)

const dateLayout = "2006-01-02"

// PostgresStore reads health data from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed health data store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string { return "postgres" }

// Load reads every table. Missing sleep, prediction or zone rows leave the
// matching fields empty; only a database with no activities and no VO2 max
// readings is an error.
func (s *PostgresStore) Load(ctx context.Context) (*models.Dataset, error) {
	d := &models.Dataset{}
	var err error

	if d.VO2Max, err = s.vo2Max(ctx); err != nil {
		return nil, err
	}
	rows, err := s.activities(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 && len(d.VO2Max) == 0 {
		return nil, ErrNoData
	}
	d.Activities = models.GroupActivities(rows)
	d.TotalActivities = len(rows)
	d.DateRange, d.DaysTracked = activityRange(rows)

	if d.Sleep, err = s.sleep(ctx); err != nil {
		return nil, err
	}
	if d.RacePredictions, err = s.racePredictions(ctx); err != nil {
		return nil, err
	}
	if d.HeartRateZones, err = s.heartRateZones(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *PostgresStore) vo2Max(ctx context.Context) ([]models.VO2MaxReading, error) {
	query := `
		SELECT calendar_date, vo2_max_value, sport
		FROM vo2_max
		ORDER BY calendar_date ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query vo2 max: %w", err)
	}
	defer rows.Close()

	var out []models.VO2MaxReading
	for rows.Next() {
		var (
			date time.Time
			r    models.VO2MaxReading
		)
		if err := rows.Scan(&date, &r.Value, &r.Sport); err != nil {
			return nil, fmt.Errorf("scan vo2 max: %w", err)
		}
		r.Date = date.Format(dateLayout)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vo2 max: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) activities(ctx context.Context) ([]models.ActivityRow, error) {
	query := `
		SELECT activity_type, distance_km, duration_minutes, avg_hr, start_time
		FROM activities
		ORDER BY start_time ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var out []models.ActivityRow
	for rows.Next() {
		var (
			r     models.ActivityRow
			avgHR sql.NullFloat64
		)
		if err := rows.Scan(&r.Type, &r.DistanceKm, &r.DurationMinutes, &avgHR, &r.StartTime); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if avgHR.Valid {
			v := avgHR.Float64
			r.AvgHR = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) sleep(ctx context.Context) (models.SleepStats, error) {
	query := `
		SELECT avg_duration_hours, nights
		FROM sleep_summary
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var st models.SleepStats
	err := s.db.QueryRowContext(ctx, query).Scan(&st.AvgDurationHours, &st.Nights)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return st, fmt.Errorf("query sleep summary: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) racePredictions(ctx context.Context) ([]models.RacePrediction, error) {
	query := `
		SELECT calendar_date, race_time_5k, race_time_10k, race_time_half, race_time_marathon
		FROM race_predictions
		ORDER BY calendar_date DESC
		LIMIT 10
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query race predictions: %w", err)
	}
	defer rows.Close()

	var out []models.RacePrediction
	for rows.Next() {
		var (
			date time.Time
			p    models.RacePrediction
		)
		if err := rows.Scan(&date, &p.FiveK, &p.TenK, &p.Half, &p.Marathon); err != nil {
			return nil, fmt.Errorf("scan race prediction: %w", err)
		}
		p.Date = date.Format(dateLayout)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate race predictions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) heartRateZones(ctx context.Context) (*models.HeartRateZones, error) {
	query := `
		SELECT max_hr, lactate_threshold_hr,
		       zone1_floor, zone2_floor, zone3_floor, zone4_floor, zone5_floor
		FROM heart_rate_zones
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var z models.HeartRateZones
	err := s.db.QueryRowContext(ctx, query).Scan(&z.MaxHR, &z.LactateThresholdHR,
		&z.Floors[0], &z.Floors[1], &z.Floors[2], &z.Floors[3], &z.Floors[4])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query heart rate zones: %w", err)
	}
	return &z, nil
}

// activityRange reports the first and last activity dates and the inclusive
// day span between them.
func activityRange(rows []models.ActivityRow) (models.DateRange, int) {
	if len(rows) == 0 {
		return models.DateRange{}, 0
	}
	first, last := rows[0].StartTime.UTC(), rows[0].StartTime.UTC()
	for _, r := range rows[1:] {
		t := r.StartTime.UTC()
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	firstDay := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	days := int(lastDay.Sub(firstDay).Hours()/24) + 1
	return models.DateRange{Start: first.Format(dateLayout), End: last.Format(dateLayout)}, days
}
