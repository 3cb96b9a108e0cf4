package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

const reservationColumns = `r.id, r.room_id, rm.name, r.date, r.start_time, r.end_time,
       r.confirmation_code, r.name, r.email, r.phone, r.players, r.total_price,
       r.currency, r.status, r.reprogrammed, r.source, r.notes, r.created_at, r.updated_at`

// CreateReservation inserts one reservation row and fills in its id. The
// unique constraints translate into ErrDuplicateCode (retryable with a fresh
// code) and ErrSlotTaken (a racing booking won the slot).
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
        INSERT INTO reservations (
            room_id, date, start_time, end_time, confirmation_code,
            name, email, phone, players, total_price, currency,
            status, reprogrammed, source, notes, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RoomID, clock.FormatDate(r.Date), r.StartTime, r.EndTime, r.ConfirmationCode,
		r.Name, r.Email, r.Phone, r.Players, r.TotalPrice, r.Currency,
		string(r.Status), r.Reprogrammed, string(r.Source), r.Notes, now, now,
	)
	if err != nil {
		return classifyUniqueViolation(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

func classifyUniqueViolation(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return err
	}
	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "confirmation_code"):
		return ErrDuplicateCode
	case strings.Contains(msg, "room_id"):
		return ErrSlotTaken
	default:
		return err
	}
}

// ListActiveByDate returns the date's reservations that still occupy their
// slot (everything except CANCELLED), ordered by start time.
func (db *DB) ListActiveByDate(ctx context.Context, date time.Time) ([]models.Reservation, error) {
	return db.listByDate(ctx, date, true)
}

// ListByDate returns all of the date's reservations including cancelled
// ones, for admin listings.
func (db *DB) ListByDate(ctx context.Context, date time.Time) ([]models.Reservation, error) {
	return db.listByDate(ctx, date, false)
}

func (db *DB) listByDate(ctx context.Context, date time.Time, activeOnly bool) ([]models.Reservation, error) {
	query := `
        SELECT ` + reservationColumns + `
        FROM reservations r
        JOIN rooms rm ON rm.id = r.room_id
        WHERE r.date = ?`
	if activeOnly {
		query += ` AND r.status != 'CANCELLED'`
	}
	query += ` ORDER BY r.start_time`

	rows, err := db.QueryContext(ctx, query, clock.FormatDate(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

// GetReservationByID returns one reservation or ErrNotFound.
func (db *DB) GetReservationByID(ctx context.Context, id int64) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `
        SELECT `+reservationColumns+`
        FROM reservations r
        JOIN rooms rm ON rm.id = r.room_id
        WHERE r.id = ?`, id)

	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// GetReservationByCode looks a reservation up by its public confirmation
// code, for unauthenticated lookup.
func (db *DB) GetReservationByCode(ctx context.Context, code string) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `
        SELECT `+reservationColumns+`
        FROM reservations r
        JOIN rooms rm ON rm.id = r.room_id
        WHERE r.confirmation_code = ?`, code)

	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// UpdateReservation writes the mutable fields of r back. Returns whether a
// row actually changed.
func (db *DB) UpdateReservation(ctx context.Context, r *models.Reservation) (bool, error) {
	res, err := db.ExecContext(ctx, `
        UPDATE reservations SET
            room_id = ?, date = ?, start_time = ?, end_time = ?,
            name = ?, email = ?, phone = ?, players = ?, total_price = ?,
            currency = ?, status = ?, reprogrammed = ?, notes = ?, updated_at = ?
        WHERE id = ?`,
		r.RoomID, clock.FormatDate(r.Date), r.StartTime, r.EndTime,
		r.Name, r.Email, r.Phone, r.Players, r.TotalPrice,
		r.Currency, string(r.Status), r.Reprogrammed, r.Notes, time.Now(),
		r.ID,
	)
	if err != nil {
		return false, classifyUniqueViolation(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteReservation removes a reservation. Deletion is always an explicit
// administrative action, never implicit.
func (db *DB) DeleteReservation(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendChangeRecord appends one audit row; audit rows are never updated or
// deleted.
func (db *DB) AppendChangeRecord(ctx context.Context, ch *models.ReservationChange) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
        INSERT INTO reservation_changes (
            reservation_id, prev_room_id, new_room_id, prev_date, new_date,
            prev_start, new_start, prev_end, new_end, changed_by, reason, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.ReservationID, ch.PrevRoomID, ch.NewRoomID,
		clock.FormatDate(ch.PrevDate), clock.FormatDate(ch.NewDate),
		ch.PrevStart, ch.NewStart, ch.PrevEnd, ch.NewEnd,
		ch.ChangedBy, ch.Reason, now,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ch.ID = id
	ch.CreatedAt = now
	return nil
}

// ListReservationsBetween returns reservations with dates in [from, to],
// for the audit export.
func (db *DB) ListReservationsBetween(ctx context.Context, from, to time.Time) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT `+reservationColumns+`
        FROM reservations r
        JOIN rooms rm ON rm.id = r.room_id
        WHERE r.date >= ? AND r.date <= ?
        ORDER BY r.date, r.start_time`,
		clock.FormatDate(from), clock.FormatDate(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

// ListChangesBetween returns audit rows recorded in [from, to].
func (db *DB) ListChangesBetween(ctx context.Context, from, to time.Time) ([]models.ReservationChange, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, reservation_id, prev_room_id, new_room_id, prev_date, new_date,
               prev_start, new_start, prev_end, new_end, changed_by, reason, created_at
        FROM reservation_changes
        WHERE created_at >= ? AND created_at <= ?
        ORDER BY created_at`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []models.ReservationChange
	for rows.Next() {
		var ch models.ReservationChange
		var prevDate, newDate string
		var reason sql.NullString
		if err := rows.Scan(
			&ch.ID, &ch.ReservationID, &ch.PrevRoomID, &ch.NewRoomID, &prevDate, &newDate,
			&ch.PrevStart, &ch.NewStart, &ch.PrevEnd, &ch.NewEnd, &ch.ChangedBy, &reason, &ch.CreatedAt,
		); err != nil {
			return nil, err
		}
		if ch.PrevDate, err = clock.ParseDate(prevDate); err != nil {
			return nil, err
		}
		if ch.NewDate, err = clock.ParseDate(newDate); err != nil {
			return nil, err
		}
		ch.Reason = reason.String
		changes = append(changes, ch)
	}
	return changes, rows.Err()
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var date string
	var phone, notes sql.NullString
	var status, source string
	err := row.Scan(
		&r.ID, &r.RoomID, &r.RoomName, &date, &r.StartTime, &r.EndTime,
		&r.ConfirmationCode, &r.Name, &r.Email, &phone, &r.Players, &r.TotalPrice,
		&r.Currency, &status, &r.Reprogrammed, &source, &notes, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if r.Date, err = clock.ParseDate(date); err != nil {
		return nil, err
	}
	r.Phone = phone.String
	r.Notes = notes.String
	r.Status = models.Status(status)
	r.Source = models.Source(source)
	return &r, nil
}
