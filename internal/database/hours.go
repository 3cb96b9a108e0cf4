package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

// GetOpeningHours returns the weekly schedule row for a weekday (0-6,
// Sunday = 0), or nil when no row is configured.
func (db *DB) GetOpeningHours(ctx context.Context, dayOfWeek int) (*models.OpeningHours, error) {
	var h models.OpeningHours
	err := db.QueryRowContext(ctx, `
        SELECT id, day_of_week, open_time, close_time, is_open
        FROM opening_hours
        WHERE day_of_week = ?
        LIMIT 1`, dayOfWeek,
	).Scan(&h.ID, &h.DayOfWeek, &h.OpenTime, &h.CloseTime, &h.IsOpen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// IsHoliday reports whether the date is marked as a venue holiday.
func (db *DB) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM holidays WHERE date = ?",
		clock.FormatDate(date),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListRates returns the rate table for a day type, smallest party first.
func (db *DB) ListRates(ctx context.Context, dayType models.DayType) ([]models.Rate, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, day_type, players, price_per_person, currency, label, players_range
        FROM rates
        WHERE day_type = ?
        ORDER BY players`, string(dayType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []models.Rate
	for rows.Next() {
		var r models.Rate
		var dt string
		var label, playersRange sql.NullString
		if err := rows.Scan(&r.ID, &dt, &r.Players, &r.PricePerPerson, &r.Currency, &label, &playersRange); err != nil {
			return nil, err
		}
		r.DayType = models.DayType(dt)
		r.Label = label.String
		r.PlayersRange = playersRange.String
		rates = append(rates, r)
	}
	return rates, rows.Err()
}
