package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"folio/internal/garmin/models"
)

func TestActivityRange(t *testing.T) {
	rows := []models.ActivityRow{
		{StartTime: time.Date(2016, 2, 15, 23, 30, 0, 0, time.UTC)},
		{StartTime: time.Date(2015, 11, 15, 6, 0, 0, 0, time.UTC)},
		{StartTime: time.Date(2015, 11, 17, 6, 0, 0, 0, time.FixedZone("CET", 3600))},
	}
	r, days := activityRange(rows)
	assert.Equal(t, models.DateRange{Start: "2015-11-15", End: "2016-02-15"}, r)
	assert.Equal(t, 93, days)

	r, days = activityRange(nil)
	assert.Equal(t, models.DateRange{}, r)
	assert.Zero(t, days)
}
