package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`INSERT INTO rooms (name, min_players, max_players, duration_minutes, cover_image, is_active)
        VALUES ('The Vault', 2, 6, 90, '/img/the-vault.jpg', 1),
               ('Prison Break', 2, 8, 90, '/img/prison-break.jpg', 0)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO opening_hours (day_of_week, open_time, close_time, is_open)
        VALUES (2, '09:00', '18:00', 1), (3, '09:00', '18:00', 0)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO rates (day_type, players, price_per_person, currency)
        VALUES ('weekday', 4, 60000, 'COP'), ('weekday', 2, 40000, 'COP')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO holidays (date, name) VALUES ('2026-03-19', 'San Jose')`)
	require.NoError(t, err)

	return db
}

func testReservation(t *testing.T, code, start string) *models.Reservation {
	t.Helper()
	date, err := clock.ParseDate("2026-03-17")
	require.NoError(t, err)
	s, err := clock.At(date, start)
	require.NoError(t, err)
	return &models.Reservation{
		RoomID: 1, Date: date, StartTime: s, EndTime: s.Add(90 * time.Minute),
		ConfirmationCode: code, Name: "Ana Torres", Email: "ana@example.com",
		Players: 4, TotalPrice: 240000, Currency: "COP",
		Status: models.StatusPending, Source: models.SourceWeb,
	}
}

func TestRoomQueries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rooms, err := db.ListActiveRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1, "inactive rooms are excluded")
	assert.Equal(t, "The Vault", rooms[0].Name)

	room, err := db.GetRoomByID(ctx, 2)
	require.NoError(t, err, "lookup by id ignores the active flag")
	assert.Equal(t, "Prison Break", room.Name)

	_, err = db.GetRoomByID(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHoursHolidaysRates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	h, err := db.GetOpeningHours(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "09:00", h.OpenTime)
	assert.True(t, h.IsOpen)

	h, err = db.GetOpeningHours(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, h, "missing weekday row is nil, not an error")

	holiday, err := clock.ParseDate("2026-03-19")
	require.NoError(t, err)
	isHoliday, err := db.IsHoliday(ctx, holiday)
	require.NoError(t, err)
	assert.True(t, isHoliday)

	rates, err := db.ListRates(ctx, models.DayTypeWeekday)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, 2, rates[0].Players, "ordered smallest party first")
}

func TestReservationLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := testReservation(t, "ABCD2345", "10:30")
	require.NoError(t, db.CreateReservation(ctx, r))
	assert.NotZero(t, r.ID)

	got, err := db.GetReservationByCode(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "The Vault", got.RoomName)
	assert.Equal(t, "2026-03-17", clock.FormatDate(got.Date))
	assert.Equal(t, "2026-03-17T10:30:00-05:00", clock.FormatInstant(got.StartTime))

	got.Notes = "birthday group"
	got.Status = models.StatusConfirmed
	changed, err := db.UpdateReservation(ctx, got)
	require.NoError(t, err)
	assert.True(t, changed)

	active, err := db.ListActiveByDate(ctx, got.Date)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, db.DeleteReservation(ctx, got.ID))
	assert.ErrorIs(t, db.DeleteReservation(ctx, got.ID), ErrNotFound)
	_, err = db.GetReservationByID(ctx, got.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUniqueViolationClassification(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateReservation(ctx, testReservation(t, "ABCD2345", "10:30")))

	// Same code, different slot.
	err := db.CreateReservation(ctx, testReservation(t, "ABCD2345", "12:00"))
	assert.ErrorIs(t, err, ErrDuplicateCode)

	// Same slot, different code.
	err = db.CreateReservation(ctx, testReservation(t, "WXYZ6789", "10:30"))
	assert.ErrorIs(t, err, ErrSlotTaken)

	// A cancelled row frees the slot for the partial unique index.
	cancelled := testReservation(t, "QRST4567", "14:00")
	require.NoError(t, db.CreateReservation(ctx, cancelled))
	cancelled.Status = models.StatusCancelled
	_, err = db.UpdateReservation(ctx, cancelled)
	require.NoError(t, err)
	assert.NoError(t, db.CreateReservation(ctx, testReservation(t, "JKLM2345", "14:00")))
}

func TestChangeLogAndRangeQueries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := testReservation(t, "ABCD2345", "10:30")
	require.NoError(t, db.CreateReservation(ctx, r))

	ch := &models.ReservationChange{
		ReservationID: r.ID,
		PrevRoomID:    r.RoomID, NewRoomID: r.RoomID,
		PrevDate: r.Date, NewDate: r.Date,
		PrevStart: r.StartTime, NewStart: r.StartTime.Add(90 * time.Minute),
		PrevEnd: r.EndTime, NewEnd: r.EndTime.Add(90 * time.Minute),
		ChangedBy: "gm@venue.test", Reason: "moved by phone",
	}
	require.NoError(t, db.AppendChangeRecord(ctx, ch))
	assert.NotZero(t, ch.ID)

	from, _ := clock.ParseDate("2026-03-16")
	to, _ := clock.ParseDate("2026-03-22")
	reservations, err := db.ListReservationsBetween(ctx, from, to)
	require.NoError(t, err)
	assert.Len(t, reservations, 1)

	changes, err := db.ListChangesBetween(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "gm@venue.test", changes[0].ChangedBy)
}
