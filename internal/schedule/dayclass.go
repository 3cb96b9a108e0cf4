// Package schedule resolves what a calendar date means for the venue: which
// opening-hours row applies, how the date is classified for pricing, and
// which slot starts the day's grid contains.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

// HolidayStore answers whether a date is a venue holiday.
type HolidayStore interface {
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
}

// weekendDays are the three high-demand days priced as "weekend".
var weekendDays = map[time.Weekday]bool{
	time.Friday:   true,
	time.Saturday: true,
	time.Sunday:   true,
}

// holidayEffectiveWeekday is the weekday whose opening-hours row applies on
// holidays: day 0 (Sunday), the lightest schedule of the week.
const holidayEffectiveWeekday = 0

// DayInfo is the classification of one date. Hours lookup and pricing use
// two different notions of "which day this is": EffectiveWeekday drives the
// opening-hours row, DayType drives the rate table.
type DayInfo struct {
	IsHoliday        bool
	DayType          models.DayType
	EffectiveWeekday int
}

type Classifier struct {
	holidays HolidayStore
}

func NewClassifier(holidays HolidayStore) *Classifier {
	return &Classifier{holidays: holidays}
}

// Classify resolves a date. A holiday forces the effective weekday to day 0
// but the day type still derives from the actual weekday: holiday OR actual
// weekday in {Friday, Saturday, Sunday} means weekend pricing.
func (c *Classifier) Classify(ctx context.Context, date time.Time) (DayInfo, error) {
	isHoliday, err := c.holidays.IsHoliday(ctx, date)
	if err != nil {
		return DayInfo{}, fmt.Errorf("holiday lookup: %w", err)
	}

	actual := date.Weekday()
	info := DayInfo{
		IsHoliday:        isHoliday,
		EffectiveWeekday: int(actual),
		DayType:          models.DayTypeWeekday,
	}
	if isHoliday {
		info.EffectiveWeekday = holidayEffectiveWeekday
	}
	if isHoliday || weekendDays[actual] {
		info.DayType = models.DayTypeWeekend
	}
	return info, nil
}
