package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/apperrors"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

type fakeHolidays struct {
	dates map[string]bool
}

func (f *fakeHolidays) IsHoliday(_ context.Context, date time.Time) (bool, error) {
	return f.dates[clock.FormatDate(date)], nil
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := clock.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestClassify(t *testing.T) {
	holidays := &fakeHolidays{dates: map[string]bool{
		"2026-03-19": true, // Thursday: San José
	}}
	classifier := NewClassifier(holidays)

	tests := []struct {
		name             string
		date             string
		isHoliday        bool
		dayType          models.DayType
		effectiveWeekday int
	}{
		{"plain tuesday", "2026-03-17", false, models.DayTypeWeekday, 2},
		{"friday is weekend-priced", "2026-03-20", false, models.DayTypeWeekend, 5},
		{"saturday", "2026-03-21", false, models.DayTypeWeekend, 6},
		{"sunday", "2026-03-22", false, models.DayTypeWeekend, 0},
		// Holiday on a Thursday: hours come from day 0, pricing is weekend.
		{"holiday thursday", "2026-03-19", true, models.DayTypeWeekend, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := classifier.Classify(context.Background(), mustDate(t, tt.date))
			require.NoError(t, err)
			assert.Equal(t, tt.isHoliday, info.IsHoliday)
			assert.Equal(t, tt.dayType, info.DayType)
			assert.Equal(t, tt.effectiveWeekday, info.EffectiveWeekday)
		})
	}
}

func TestGenerateSlots(t *testing.T) {
	date := mustDate(t, "2026-03-17")

	t.Run("no partial trailing slot", func(t *testing.T) {
		hours := &models.OpeningHours{DayOfWeek: 2, OpenTime: "09:00", CloseTime: "13:00", IsOpen: true}

		starts, err := GenerateSlots(date, hours, 90*time.Minute)
		require.NoError(t, err)

		var got []string
		for _, s := range starts {
			got = append(got, s.Format("15:04"))
		}
		assert.Equal(t, []string{"09:00", "10:30", "12:00"}, got)
	})

	t.Run("exact fit keeps last slot", func(t *testing.T) {
		hours := &models.OpeningHours{OpenTime: "09:00", CloseTime: "12:00", IsOpen: true}

		starts, err := GenerateSlots(date, hours, 90*time.Minute)
		require.NoError(t, err)
		assert.Len(t, starts, 2) // 09:00 and 10:30; 10:30+90m == 12:00 fits
	})

	t.Run("closed day", func(t *testing.T) {
		hours := &models.OpeningHours{OpenTime: "09:00", CloseTime: "13:00", IsOpen: false}

		_, err := GenerateSlots(date, hours, 90*time.Minute)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeDayClosed))
	})

	t.Run("missing hours row", func(t *testing.T) {
		_, err := GenerateSlots(date, nil, 90*time.Minute)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeHoursMissing))
	})

	t.Run("invalid hours row", func(t *testing.T) {
		hours := &models.OpeningHours{OpenTime: "junk", CloseTime: "13:00", IsOpen: true}
		_, err := GenerateSlots(date, hours, 90*time.Minute)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeHoursMissing))

		hours = &models.OpeningHours{OpenTime: "13:00", CloseTime: "09:00", IsOpen: true}
		_, err = GenerateSlots(date, hours, 90*time.Minute)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeHoursMissing))
	})
}
