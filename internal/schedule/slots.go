package schedule

import (
	"time"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/apperrors"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

// A closed day and a missing schedule row are distinct failure modes rather
// than an empty grid: the UI tells customers "closed today" but tells
// operators "schedule row missing".
func errDayClosed() error {
	return apperrors.InvalidInputCode(apperrors.CodeDayClosed, "the venue is closed on this date")
}

func errHoursMissing() error {
	return apperrors.InvalidInputCode(apperrors.CodeHoursMissing, "opening hours are not configured for this date")
}

// GenerateSlots produces the ordered grid of bookable start instants for a
// date: stepped from open in duration increments, keeping only slots that
// fit fully before close. [09:00,13:00) with 90-minute sessions yields
// 09:00, 10:30 and 12:00; 13:30 would end past close and is excluded.
func GenerateSlots(date time.Time, hours *models.OpeningHours, duration time.Duration) ([]time.Time, error) {
	if hours == nil {
		return nil, errHoursMissing()
	}
	if !hours.IsOpen {
		return nil, errDayClosed()
	}

	open, err := clock.At(date, hours.OpenTime)
	if err != nil {
		return nil, errHoursMissing()
	}
	close, err := clock.At(date, hours.CloseTime)
	if err != nil {
		return nil, errHoursMissing()
	}
	if !close.After(open) {
		return nil, errHoursMissing()
	}

	var starts []time.Time
	for start := open; !start.Add(duration).After(close); start = start.Add(duration) {
		starts = append(starts, start)
	}
	return starts, nil
}
