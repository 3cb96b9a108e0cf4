// Package availability composes the per-room, per-slot availability view:
// the day's slot grid merged with existing reservations and the
// advance-notice rule. The booking flow and the admin reprogram path both
// re-run this compositor right before writing, so neither can commit a slot
// this view would refuse.
package availability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/schedule"
)

// Slot reasons reported to the UI.
const (
	ReasonBooked  = "booked"
	ReasonTooLate = "too_late"
)

type RoomStore interface {
	ListActiveRooms(ctx context.Context) ([]models.Room, error)
}

type HoursStore interface {
	GetOpeningHours(ctx context.Context, dayOfWeek int) (*models.OpeningHours, error)
}

type ReservationStore interface {
	ListActiveByDate(ctx context.Context, date time.Time) ([]models.Reservation, error)
}

type RateStore interface {
	ListRates(ctx context.Context, dayType models.DayType) ([]models.Rate, error)
}

type DayClassifier interface {
	Classify(ctx context.Context, date time.Time) (schedule.DayInfo, error)
}

// Slot is one grid entry for one room.
type Slot struct {
	Start     string `json:"start"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// RoomAvailability is one room's grid for the date. RoomID is the public
// slug for the booking site or the numeric id for internal callers,
// depending on Options.
type RoomAvailability struct {
	RoomID          string `json:"room_id"`
	Name            string `json:"name"`
	MinPlayers      int    `json:"min_players"`
	MaxPlayers      int    `json:"max_players"`
	DurationMinutes int    `json:"duration_minutes"`
	Difficulty      string `json:"difficulty,omitempty"`
	Slots           []Slot `json:"slots"`
}

// Result is the produced availability contract for one date.
type Result struct {
	Date              string             `json:"date"`
	DayType           models.DayType     `json:"day_type"`
	IsHoliday         bool               `json:"is_holiday"`
	Rates             []models.Rate      `json:"rates"`
	Timezone          string             `json:"timezone"`
	ServerNow         string             `json:"server_now"`
	MinAdvanceMinutes int                `json:"min_advance_minutes"`
	Rooms             []RoomAvailability `json:"rooms"`
}

// FindSlot returns the slot with the given room key and start instant, or
// nil when the grid has no such slot.
func (r *Result) FindSlot(roomID, start string) *Slot {
	for i := range r.Rooms {
		if r.Rooms[i].RoomID != roomID {
			continue
		}
		for j := range r.Rooms[i].Slots {
			if r.Rooms[i].Slots[j].Start == start {
				return &r.Rooms[i].Slots[j]
			}
		}
	}
	return nil
}

// Options tune the compositor for its three callers: the public site (slug
// keys, advance-notice enforced), the booking re-check (numeric keys) and
// the admin reprogram re-check (numeric keys, allow past, ignore the edited
// reservation).
type Options struct {
	// IgnoreReservationID excludes one reservation from occupancy, so a
	// reprogram does not collide with the row being moved.
	IgnoreReservationID int64
	// AllowPast disables the advance-notice cutoff for privileged callers.
	AllowPast bool
	// NumericRoomIDs keys rooms by raw id instead of the public slug.
	NumericRoomIDs bool
}

type Service struct {
	rooms        RoomStore
	hours        HoursStore
	reservations ReservationStore
	rates        RateStore
	classifier   DayClassifier
	clock        clock.Clock
	minAdvance   time.Duration
	slotDuration time.Duration
	logger       zerolog.Logger
}

func NewService(
	rooms RoomStore,
	hours HoursStore,
	reservations ReservationStore,
	rates RateStore,
	classifier DayClassifier,
	clk clock.Clock,
	minAdvance, slotDuration time.Duration,
	logger zerolog.Logger,
) *Service {
	return &Service{
		rooms:        rooms,
		hours:        hours,
		reservations: reservations,
		rates:        rates,
		classifier:   classifier,
		clock:        clk,
		minAdvance:   minAdvance,
		slotDuration: slotDuration,
		logger:       logger.With().Str("component", "availability").Logger(),
	}
}

// ForDate builds the availability view for one date.
func (s *Service) ForDate(ctx context.Context, date time.Time, opts Options) (*Result, error) {
	info, err := s.classifier.Classify(ctx, date)
	if err != nil {
		return nil, err
	}

	hours, err := s.hours.GetOpeningHours(ctx, info.EffectiveWeekday)
	if err != nil {
		return nil, fmt.Errorf("opening hours lookup: %w", err)
	}

	starts, err := schedule.GenerateSlots(date, hours, s.slotDuration)
	if err != nil {
		return nil, err
	}

	rooms, err := s.rooms.ListActiveRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	rates, err := s.rates.ListRates(ctx, info.DayType)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}

	occupied, err := s.occupiedStarts(ctx, date, opts.IgnoreReservationID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cutoff := now.Add(s.minAdvance)

	result := &Result{
		Date:              clock.FormatDate(date),
		DayType:           info.DayType,
		IsHoliday:         info.IsHoliday,
		Rates:             rates,
		Timezone:          clock.TimezoneOffset,
		ServerNow:         clock.FormatInstant(now),
		MinAdvanceMinutes: int(s.minAdvance / time.Minute),
		Rooms:             make([]RoomAvailability, 0, len(rooms)),
	}

	for i := range rooms {
		room := &rooms[i]
		key := room.PublicID()
		if opts.NumericRoomIDs {
			key = strconv.FormatInt(room.ID, 10)
		}

		ra := RoomAvailability{
			RoomID:          key,
			Name:            room.Name,
			MinPlayers:      room.MinPlayers,
			MaxPlayers:      room.MaxPlayers,
			DurationMinutes: room.DurationMinutes,
			Difficulty:      room.Difficulty,
			Slots:           make([]Slot, 0, len(starts)),
		}

		for _, start := range starts {
			slot := Slot{Start: clock.FormatInstant(start), Available: true}
			switch {
			case !opts.AllowPast && start.Before(cutoff):
				slot.Available = false
				slot.Reason = ReasonTooLate
			case occupied[room.ID][start.Unix()]:
				// Grid bookings collide on the exact start instant; true
				// interval overlap is the walk-in path's rule.
				slot.Available = false
				slot.Reason = ReasonBooked
			}
			ra.Slots = append(ra.Slots, slot)
		}
		result.Rooms = append(result.Rooms, ra)
	}

	s.logger.Debug().
		Str("date", result.Date).
		Int("rooms", len(result.Rooms)).
		Int("slots", len(starts)).
		Msg("availability composed")
	return result, nil
}

func (s *Service) occupiedStarts(ctx context.Context, date time.Time, ignoreID int64) (map[int64]map[int64]bool, error) {
	reservations, err := s.reservations.ListActiveByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	occupied := make(map[int64]map[int64]bool)
	for i := range reservations {
		r := &reservations[i]
		if ignoreID != 0 && r.ID == ignoreID {
			continue
		}
		if occupied[r.RoomID] == nil {
			occupied[r.RoomID] = make(map[int64]bool)
		}
		occupied[r.RoomID][r.StartTime.Unix()] = true
	}
	return occupied, nil
}
