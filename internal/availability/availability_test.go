package availability

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/apperrors"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/schedule"
)

type fakeRooms struct{ rooms []models.Room }

func (f *fakeRooms) ListActiveRooms(context.Context) ([]models.Room, error) {
	return f.rooms, nil
}

type fakeHours struct{ byDay map[int]*models.OpeningHours }

func (f *fakeHours) GetOpeningHours(_ context.Context, dayOfWeek int) (*models.OpeningHours, error) {
	return f.byDay[dayOfWeek], nil
}

type fakeReservations struct{ byDate map[string][]models.Reservation }

func (f *fakeReservations) ListActiveByDate(_ context.Context, date time.Time) ([]models.Reservation, error) {
	return f.byDate[clock.FormatDate(date)], nil
}

type fakeRates struct{ rates []models.Rate }

func (f *fakeRates) ListRates(context.Context, models.DayType) ([]models.Rate, error) {
	return f.rates, nil
}

type fakeHolidays struct{ dates map[string]bool }

func (f *fakeHolidays) IsHoliday(_ context.Context, date time.Time) (bool, error) {
	return f.dates[clock.FormatDate(date)], nil
}

type fixture struct {
	svc          *Service
	reservations *fakeReservations
	hours        *fakeHours
}

// newFixture builds a service around a Tuesday 2026-03-17 open 09:00-18:00
// with two rooms and "now" pinned to 2026-03-16 12:00.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	rooms := &fakeRooms{rooms: []models.Room{
		{ID: 1, Name: "The Vault", CoverImage: "/img/the-vault.jpg", MinPlayers: 2, MaxPlayers: 6, DurationMinutes: 90, IsActive: true},
		{ID: 2, Name: "Prison Break", CoverImage: "/img/prison-break.jpg", MinPlayers: 2, MaxPlayers: 8, DurationMinutes: 90, IsActive: true},
	}}
	hours := &fakeHours{byDay: map[int]*models.OpeningHours{
		2: {DayOfWeek: 2, OpenTime: "09:00", CloseTime: "18:00", IsOpen: true},
	}}
	reservations := &fakeReservations{byDate: map[string][]models.Reservation{}}
	rates := &fakeRates{rates: []models.Rate{{Players: 4, PricePerPerson: 60000, Currency: "COP"}}}
	classifier := schedule.NewClassifier(&fakeHolidays{})

	now := time.Date(2026, 3, 16, 12, 0, 0, 0, clock.VenueZone)
	svc := NewService(rooms, hours, reservations, rates, classifier,
		clock.Fixed{Instant: now}, 60*time.Minute, 90*time.Minute, zerolog.Nop())

	return &fixture{svc: svc, reservations: reservations, hours: hours}
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := clock.ParseDate(s)
	require.NoError(t, err)
	return d
}

func instant(t *testing.T, day, tod string) time.Time {
	t.Helper()
	i, err := clock.At(date(t, day), tod)
	require.NoError(t, err)
	return i
}

func TestForDateComposesGrid(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.ForDate(context.Background(), date(t, "2026-03-17"), Options{})
	require.NoError(t, err)

	assert.Equal(t, "2026-03-17", res.Date)
	assert.Equal(t, models.DayTypeWeekday, res.DayType)
	assert.Equal(t, "-05:00", res.Timezone)
	assert.Equal(t, 60, res.MinAdvanceMinutes)
	require.Len(t, res.Rooms, 2)

	// 09:00-18:00 with 90-minute sessions: 09:00 10:30 12:00 13:30 15:00 16:30.
	require.Len(t, res.Rooms[0].Slots, 6)
	assert.Equal(t, "2026-03-17T09:00:00-05:00", res.Rooms[0].Slots[0].Start)
	assert.Equal(t, "2026-03-17T16:30:00-05:00", res.Rooms[0].Slots[5].Start)
	for _, s := range res.Rooms[0].Slots {
		assert.True(t, s.Available)
	}

	// Public keys are slugs.
	assert.Equal(t, "prison-break", res.Rooms[0].RoomID)
	assert.Equal(t, "the-vault", res.Rooms[1].RoomID)
}

func TestForDateMarksBookedExactStartOnly(t *testing.T) {
	f := newFixture(t)
	f.reservations.byDate["2026-03-17"] = []models.Reservation{
		{ID: 10, RoomID: 1, StartTime: instant(t, "2026-03-17", "10:30"), Status: models.StatusPending},
	}

	res, err := f.svc.ForDate(context.Background(), date(t, "2026-03-17"), Options{})
	require.NoError(t, err)

	vault := res.Rooms[1] // sorted by name: prison-break, the-vault
	require.Equal(t, "the-vault", vault.RoomID)
	assert.False(t, vault.Slots[1].Available)
	assert.Equal(t, ReasonBooked, vault.Slots[1].Reason)
	assert.True(t, vault.Slots[0].Available, "other slots stay free")
	assert.True(t, res.Rooms[0].Slots[1].Available, "other rooms stay free")
}

func TestForDateAdvanceNotice(t *testing.T) {
	f := newFixture(t)
	// Same-day request: now is 2026-03-16 12:00, min advance 60m, so the
	// Monday grid (day 1 hours) must mark 09:00-12:00 too_late.
	f.hours.byDay[1] = &models.OpeningHours{DayOfWeek: 1, OpenTime: "09:00", CloseTime: "18:00", IsOpen: true}

	res, err := f.svc.ForDate(context.Background(), date(t, "2026-03-16"), Options{})
	require.NoError(t, err)

	slots := res.Rooms[0].Slots
	require.Len(t, slots, 6)
	assert.Equal(t, ReasonTooLate, slots[0].Reason) // 09:00
	assert.Equal(t, ReasonTooLate, slots[1].Reason) // 10:30
	assert.Equal(t, ReasonTooLate, slots[2].Reason) // 12:00 < 13:00 cutoff
	assert.True(t, slots[3].Available)              // 13:30 clears the cutoff

	// Privileged override sees the full day.
	res, err = f.svc.ForDate(context.Background(), date(t, "2026-03-16"), Options{AllowPast: true})
	require.NoError(t, err)
	for _, s := range res.Rooms[0].Slots {
		assert.True(t, s.Available)
	}
}

func TestForDateIgnoreReservation(t *testing.T) {
	f := newFixture(t)
	f.reservations.byDate["2026-03-17"] = []models.Reservation{
		{ID: 10, RoomID: 1, StartTime: instant(t, "2026-03-17", "10:30"), Status: models.StatusPending},
	}

	res, err := f.svc.ForDate(context.Background(), date(t, "2026-03-17"),
		Options{IgnoreReservationID: 10, NumericRoomIDs: true})
	require.NoError(t, err)

	slot := res.FindSlot("1", "2026-03-17T10:30:00-05:00")
	require.NotNil(t, slot)
	assert.True(t, slot.Available, "the edited reservation does not block itself")
}

func TestForDateClosedAndMissing(t *testing.T) {
	f := newFixture(t)
	f.hours.byDay[3] = &models.OpeningHours{DayOfWeek: 3, OpenTime: "09:00", CloseTime: "18:00", IsOpen: false}

	_, err := f.svc.ForDate(context.Background(), date(t, "2026-03-18"), Options{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDayClosed))

	// Thursday has no hours row at all.
	_, err = f.svc.ForDate(context.Background(), date(t, "2026-03-19"), Options{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeHoursMissing))
}

func TestFindSlotMissing(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.ForDate(context.Background(), date(t, "2026-03-17"), Options{NumericRoomIDs: true})
	require.NoError(t, err)

	assert.Nil(t, res.FindSlot("1", "2026-03-17T09:45:00-05:00"), "off-grid start")
	assert.Nil(t, res.FindSlot("99", "2026-03-17T09:00:00-05:00"), "unknown room")
}
