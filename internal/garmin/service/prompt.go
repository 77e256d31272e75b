package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"folio/internal/garmin/models"
)

const recentVO2Readings = 10

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatPrompt renders the dataset as the plain-text block the chat model
// reads. Sections without data are omitted.
func FormatPrompt(d *models.Dataset) string {
	var b strings.Builder

	b.WriteString("GARMIN HEALTH DATA\n")
	b.WriteString("==================\n")
	fmt.Fprintf(&b, "Data Range: %s to %s\n", d.DateRange.Start, d.DateRange.End)
	fmt.Fprintf(&b, "Total Activities: %d\n", d.TotalActivities)
	if d.DaysTracked > 0 {
		fmt.Fprintf(&b, "Days Tracked: %d\n", d.DaysTracked)
	}

	if t := d.Trend(); t != nil {
		b.WriteString("\nVO2 MAX PROGRESSION:\n")
		fmt.Fprintf(&b, "- Starting VO2 Max (%s): %s ml/kg/min\n", t.First.Date, num(t.First.Value))
		fmt.Fprintf(&b, "- Peak VO2 Max (%s): %s ml/kg/min\n", t.Peak.Date, num(t.Peak.Value))
		fmt.Fprintf(&b, "- Latest VO2 Max (%s): %s ml/kg/min\n", t.Latest.Date, num(t.Latest.Value))
		fmt.Fprintf(&b, "- Improvement: %+.1f%%\n", t.ImprovementPct)

		b.WriteString("\nRECENT VO2 MAX READINGS:\n")
		recent := d.VO2Max
		if len(recent) > recentVO2Readings {
			recent = recent[len(recent)-recentVO2Readings:]
		}
		for _, r := range recent {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", r.Date, num(r.Value), r.Sport)
		}
	}

	if len(d.Activities) > 0 {
		b.WriteString("\nACTIVITY BREAKDOWN:\n")
		for _, a := range d.Activities {
			fmt.Fprintf(&b, "- %s: %d activities, %skm, %shrs", a.Type, a.Count,
				num(round1(a.TotalDistanceKm)), num(round1(a.TotalDurationHours)))
			if a.AvgHR != nil {
				fmt.Fprintf(&b, ", avg HR %d", *a.AvgHR)
			}
			b.WriteString("\n")
		}
	}

	if p := d.LatestPrediction(); p != nil {
		fmt.Fprintf(&b, "\nRACE PREDICTIONS (Latest, %s):\n", p.Date)
		writePrediction(&b, p)
	}
	if p := d.BestPrediction(); p != nil {
		fmt.Fprintf(&b, "\nRACE PREDICTIONS (Best, %s):\n", p.Date)
		writePrediction(&b, p)
	}

	if z := d.HeartRateZones; z != nil {
		fmt.Fprintf(&b, "\nHEART RATE ZONES (Max HR: %d, LT: %d):\n", z.MaxHR, z.LactateThresholdHR)
		for i, zone := range z.Zones() {
			fmt.Fprintf(&b, "- Zone %d (%s): %d-%d bpm\n", i+1, zone.Name, zone.Floor, zone.Ceiling)
		}
	}

	if d.Sleep.Nights > 0 {
		fmt.Fprintf(&b, "\nSLEEP: Average %s hours over %d nights\n", num(d.Sleep.AvgDurationHours), d.Sleep.Nights)
	}

	return strings.TrimSpace(b.String())
}

func writePrediction(b *strings.Builder, p *models.RacePrediction) {
	fmt.Fprintf(b, "- 5K: %s\n", models.FormatRaceTime(p.FiveK))
	fmt.Fprintf(b, "- 10K: %s\n", models.FormatRaceTime(p.TenK))
	fmt.Fprintf(b, "- Half Marathon: %s\n", models.FormatRaceTime(p.Half))
	fmt.Fprintf(b, "- Marathon: %s\n", models.FormatRaceTime(p.Marathon))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
