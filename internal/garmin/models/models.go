// Package models holds the health data shapes served by the dashboard and
// embedded in the chat prompt.
package models

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"
)

type VO2MaxReading struct {
	Date  string  `json:"calendar_date"`
	Value float64 `json:"vo2_max_value"`
	Sport string  `json:"sport"`
}

// ActivityRow is one recorded activity as stored.
type ActivityRow struct {
	Type            string
	DistanceKm      float64
	DurationMinutes float64
	AvgHR           *float64
	StartTime       time.Time
}

type ActivitySummary struct {
	Type               string  `json:"activity_type"`
	Count              int     `json:"count"`
	TotalDistanceKm    float64 `json:"total_distance_km"`
	TotalDurationHours float64 `json:"total_duration_hours"`
	AvgHR              *int    `json:"avg_hr"`
}

type SleepStats struct {
	AvgDurationHours float64 `json:"avg_duration"`
	Nights           int     `json:"total_nights"`
}

// RacePrediction times are in seconds; zero means no prediction.
type RacePrediction struct {
	Date     string `json:"calendar_date"`
	FiveK    int    `json:"race_time_5k"`
	TenK     int    `json:"race_time_10k"`
	Half     int    `json:"race_time_half"`
	Marathon int    `json:"race_time_marathon"`
}

type HeartRateZones struct {
	MaxHR              int    `json:"max_hr"`
	LactateThresholdHR int    `json:"lactate_threshold_hr"`
	Floors             [5]int `json:"zone_floors"`
}

// Zone is one derived training zone.
type Zone struct {
	Name    string `json:"name"`
	Floor   int    `json:"floor"`
	Ceiling int    `json:"ceiling"`
}

var zoneNames = [5]string{"Warm Up", "Easy", "Aerobic", "Threshold", "Maximum"}

// Zones derives ceilings from the next zone's floor; zone 5 tops out at
// MaxHR.
func (z *HeartRateZones) Zones() []Zone {
	if z == nil {
		return nil
	}
	out := make([]Zone, len(z.Floors))
	for i, floor := range z.Floors {
		ceiling := z.MaxHR
		if i+1 < len(z.Floors) {
			ceiling = z.Floors[i+1] - 1
		}
		out[i] = Zone{Name: zoneNames[i], Floor: floor, Ceiling: ceiling}
	}
	return out
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Dataset is what a store loads. VO2Max is oldest first; RacePredictions
// are newest first.
type Dataset struct {
	VO2Max          []VO2MaxReading   `json:"vo2_max"`
	Activities      []ActivitySummary `json:"activities"`
	TotalActivities int               `json:"total_activities"`
	DaysTracked     int               `json:"days_tracked"`
	DateRange       DateRange         `json:"date_range"`
	Sleep           SleepStats        `json:"sleep"`
	RacePredictions []RacePrediction  `json:"race_predictions"`
	HeartRateZones  *HeartRateZones   `json:"heart_rate_zones"`
}

// Trend returns nil for an empty series. Ties on the peak keep the earliest
// reading.
func (d *Dataset) Trend() *VO2Trend {
	if len(d.VO2Max) == 0 {
		return nil
	}
	t := &VO2Trend{First: d.VO2Max[0], Peak: d.VO2Max[0], Latest: d.VO2Max[len(d.VO2Max)-1]}
	for _, r := range d.VO2Max[1:] {
		if r.Value > t.Peak.Value {
			t.Peak = r
		}
	}
	if t.First.Value > 0 {
		t.ImprovementPct = math.Round((t.Peak.Value-t.First.Value)/t.First.Value*100*10) / 10
	}
	return t
}

// BestPrediction is the prediction with the fastest 5K, or nil.
func (d *Dataset) BestPrediction() *RacePrediction {
	var best *RacePrediction
	for i := range d.RacePredictions {
		p := &d.RacePredictions[i]
		if p.FiveK <= 0 {
			continue
		}
		if best == nil || p.FiveK < best.FiveK {
			best = p
		}
	}
	return best
}

// LatestPrediction is the newest prediction, or nil.
func (d *Dataset) LatestPrediction() *RacePrediction {
	if len(d.RacePredictions) == 0 {
		return nil
	}
	return &d.RacePredictions[0]
}

// VO2Trend summarises the VO2 max series.
type VO2Trend struct {
	First          VO2MaxReading `json:"first"`
	Peak           VO2MaxReading `json:"peak"`
	Latest         VO2MaxReading `json:"latest"`
	ImprovementPct float64       `json:"improvement_pct"`
}

// Summary is the dashboard payload.
type Summary struct {
	VO2Max          []VO2MaxReading   `json:"vo2Max"`
	VO2Trend        *VO2Trend         `json:"vo2Trend,omitempty"`
	Activities      []ActivitySummary `json:"activities"`
	SleepStats      SleepStats        `json:"sleepStats"`
	RacePredictions []RacePrediction  `json:"racePredictions"`
	BestPrediction  *RacePrediction   `json:"bestPrediction,omitempty"`
	HeartRateZones  *HeartRateZones   `json:"heartRateZones"`
	Zones           []Zone            `json:"zones,omitempty"`
	TotalActivities int               `json:"totalActivities"`
	DateRange       DateRange         `json:"dateRange"`
}

// Status is the GET /api/garmin payload.
type Status struct {
	Status          string `json:"status"`
	DataRange       string `json:"dataRange"`
	TotalActivities int    `json:"totalActivities"`
	Message         string `json:"message"`
}

// GroupActivities buckets rows by type. Average heart rate only counts
// positive samples and is nil when a type has none. Groups are ordered by
// count descending, then by type.
func GroupActivities(rows []ActivityRow) []ActivitySummary {
	type acc struct {
		ActivitySummary
		hrSum   float64
		hrCount int
	}
	groups := make(map[string]*acc)
	for _, r := range rows {
		t := r.Type
		if t == "" {
			t = "unknown"
		}
		g, ok := groups[t]
		if !ok {
			g = &acc{ActivitySummary: ActivitySummary{Type: t}}
			groups[t] = g
		}
		g.Count++
		g.TotalDistanceKm += r.DistanceKm
		g.TotalDurationHours += r.DurationMinutes / 60
		if r.AvgHR != nil && *r.AvgHR > 0 {
			g.hrSum += *r.AvgHR
			g.hrCount++
		}
	}

	out := make([]ActivitySummary, 0, len(groups))
	for _, g := range groups {
		s := g.ActivitySummary
		if g.hrCount > 0 {
			avg := int(math.Round(g.hrSum / float64(g.hrCount)))
			s.AvgHR = &avg
		}
		out = append(out, s)
	}
	SortActivities(out)
	return out
}

// SortActivities orders by count descending, then by type.
func SortActivities(s []ActivitySummary) {
	slices.SortFunc(s, func(a, b ActivitySummary) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})
}

// FormatRaceTime renders seconds as h:mm:ss or m:ss, and "--:--" for zero.
func FormatRaceTime(seconds int) string {
	if seconds <= 0 {
		return "--:--"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
