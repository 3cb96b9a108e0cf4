// Package booking implements the reservation write paths: the public
// booking transaction and the admin reprogram flow. Both re-validate
// availability through the same compositor the public site reads, so neither
// can commit a slot the site would refuse to show.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/apperrors"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/availability"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/database"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/events"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/metrics"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/pricing"
)

// Store is the persistence surface the booking flows need.
type Store interface {
	ListActiveRooms(ctx context.Context) ([]models.Room, error)
	GetRoomByID(ctx context.Context, id int64) (*models.Room, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	ListActiveByDate(ctx context.Context, date time.Time) ([]models.Reservation, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.Reservation, error)
	GetReservationByID(ctx context.Context, id int64) (*models.Reservation, error)
	GetReservationByCode(ctx context.Context, code string) (*models.Reservation, error)
	UpdateReservation(ctx context.Context, r *models.Reservation) (bool, error)
	DeleteReservation(ctx context.Context, id int64) error
	AppendChangeRecord(ctx context.Context, ch *models.ReservationChange) error
}

// AvailabilityService is the compositor both write paths re-check against.
type AvailabilityService interface {
	ForDate(ctx context.Context, date time.Time, opts availability.Options) (*availability.Result, error)
}

// Quoter prices the session; the same picker governs every total.
type Quoter interface {
	Quote(ctx context.Context, date time.Time, attendees int) (*pricing.Quote, error)
}

// Publisher receives lifecycle events after a committed write.
type Publisher interface {
	Publish(event events.Event)
}

type Service struct {
	store        Store
	availability AvailabilityService
	quoter       Quoter
	bus          Publisher
	clock        clock.Clock
	codeLength   int
	codeAttempts int
	logger       zerolog.Logger
}

func NewService(
	store Store,
	avail AvailabilityService,
	quoter Quoter,
	bus Publisher,
	clk clock.Clock,
	codeLength, codeAttempts int,
	logger zerolog.Logger,
) *Service {
	return &Service{
		store:        store,
		availability: avail,
		quoter:       quoter,
		bus:          bus,
		clock:        clk,
		codeLength:   codeLength,
		codeAttempts: codeAttempts,
		logger:       logger.With().Str("component", "booking").Logger(),
	}
}

// CreateRequest is the booking payload. RoomID is the public slug from the
// availability response; numeric ids are accepted for admin callers.
type CreateRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Date       string `json:"date"`
	RoomID     string `json:"room_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Players    int    `json:"players"`
	WalkIn     bool   `json:"walk_in"`
	OutOfHours bool   `json:"out_of_hours"`
	Notes      string `json:"notes"`
}

// Create runs the booking transaction: authorization, the ordered validation
// chain, the availability re-check, pricing, then a PENDING insert with a
// bounded confirmation-code retry.
func (s *Service) Create(ctx context.Context, actor *models.User, req CreateRequest) (*models.Reservation, error) {
	if req.WalkIn || req.OutOfHours {
		if actor == nil {
			return nil, apperrors.Unauthorized("walk-in and out-of-hours bookings require authentication")
		}
		if !actor.Privileged() {
			return nil, apperrors.Forbidden("walk-in and out-of-hours bookings require an admin or game-master role")
		}
	}

	if req.Name == "" || req.Email == "" || req.Date == "" || req.RoomID == "" || req.StartTime == "" {
		return nil, apperrors.InvalidInput("name, email, date, room_id and start_time are required")
	}

	date, err := clock.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if !req.WalkIn && clock.IsPastDate(date, s.clock.Now()) {
		return nil, apperrors.InvalidInput("date is in the past")
	}

	start, err := clock.At(date, req.StartTime)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	room, err := s.resolveRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	end := start.Add(room.Duration())
	if req.EndTime != "" {
		if end, err = clock.At(date, req.EndTime); err != nil {
			return nil, apperrors.InvalidInput(err.Error())
		}
		if !end.After(start) {
			return nil, apperrors.InvalidInput("end_time must be after start_time")
		}
	}

	if req.WalkIn || req.OutOfHours {
		if err = s.checkOverlap(ctx, room.ID, date, start, end, 0); err != nil {
			return nil, err
		}
	} else {
		if err = s.checkGridSlot(ctx, date, room.ID, start, availability.Options{NumericRoomIDs: true}); err != nil {
			return nil, err
		}
	}

	if req.Players < room.MinPlayers || req.Players > room.MaxPlayers {
		return nil, apperrors.InvalidInput(
			fmt.Sprintf("players must be between %d and %d for this room", room.MinPlayers, room.MaxPlayers),
		).WithDetails(map[string]any{"min_players": room.MinPlayers, "max_players": room.MaxPlayers})
	}

	quote, err := s.quoter.Quote(ctx, date, req.Players)
	if err != nil {
		return nil, err
	}

	source := models.SourceWeb
	if req.WalkIn {
		source = models.SourceWalkIn
	}

	reservation := &models.Reservation{
		RoomID:     room.ID,
		RoomName:   room.Name,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Players:    req.Players,
		TotalPrice: quote.Total,
		Currency:   quote.Currency,
		Status:     models.StatusPending,
		Source:     source,
		Notes:      req.Notes,
	}

	if err = s.persistWithCode(ctx, reservation); err != nil {
		return nil, err
	}

	metrics.IncReservationCreated(string(source))
	s.logger.Info().
		Int64("reservation_id", reservation.ID).
		Str("room", room.Name).
		Str("date", req.Date).
		Str("source", string(source)).
		Msg("reservation created")

	s.bus.Publish(events.Event{
		Type:        events.TypeReservationCreated,
		Reservation: *reservation,
		Actor:       actorEmail(actor),
	})
	return reservation, nil
}

// persistWithCode inserts the row, regenerating the confirmation code on a
// collision up to the configured bound. A slot-uniqueness violation is a
// racing booking, not a code problem, and fails immediately.
func (s *Service) persistWithCode(ctx context.Context, r *models.Reservation) error {
	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		code, err := NewConfirmationCode(s.codeLength)
		if err != nil {
			return apperrors.Internal("generate confirmation code", err)
		}
		r.ConfirmationCode = code

		err = s.store.CreateReservation(ctx, r)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, database.ErrDuplicateCode):
			metrics.IncCodeRetry()
			s.logger.Warn().Int("attempt", attempt+1).Msg("confirmation code collision, retrying")
		case errors.Is(err, database.ErrSlotTaken):
			metrics.IncBookingConflict()
			return apperrors.Conflict("slot is no longer available")
		default:
			return fmt.Errorf("create reservation: %w", err)
		}
	}
	return apperrors.Conflict("could not allocate a unique confirmation code")
}

// checkGridSlot re-runs the compositor and requires the requested slot to
// exist and be available, closing the race between display and submission.
func (s *Service) checkGridSlot(ctx context.Context, date time.Time, roomID int64, start time.Time, opts availability.Options) error {
	view, err := s.availability.ForDate(ctx, date, opts)
	if err != nil {
		return err
	}

	slot := view.FindSlot(strconv.FormatInt(roomID, 10), clock.FormatInstant(start))
	if slot == nil {
		return apperrors.InvalidInput("requested time is not a bookable slot")
	}
	if !slot.Available {
		metrics.IncBookingConflict()
		return apperrors.Conflict("slot is no longer available")
	}
	return nil
}

// checkOverlap is the walk-in rule: true interval overlap against the same
// room's active reservations, regardless of grid alignment.
func (s *Service) checkOverlap(ctx context.Context, roomID int64, date time.Time, start, end time.Time, ignoreID int64) error {
	existing, err := s.store.ListActiveByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}
	for i := range existing {
		r := &existing[i]
		if r.RoomID != roomID || (ignoreID != 0 && r.ID == ignoreID) {
			continue
		}
		if start.Before(r.EndTime) && end.After(r.StartTime) {
			metrics.IncBookingConflict()
			return apperrors.Conflict("requested time overlaps an existing reservation")
		}
	}
	return nil
}

// GetByCode is the public, unauthenticated lookup by confirmation code.
func (s *Service) GetByCode(ctx context.Context, code string) (*models.Reservation, error) {
	if code == "" {
		return nil, apperrors.InvalidInput("confirmation code is required")
	}
	r, err := s.store.GetReservationByCode(ctx, code)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound("reservation", code)
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// GetByID returns one reservation for admin callers.
func (s *Service) GetByID(ctx context.Context, actor *models.User, id int64) (*models.Reservation, error) {
	if err := requirePrivileged(actor); err != nil {
		return nil, err
	}
	r, err := s.store.GetReservationByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound("reservation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// ListByDate returns all of a date's reservations, cancelled included, for
// the admin console.
func (s *Service) ListByDate(ctx context.Context, actor *models.User, date time.Time) ([]models.Reservation, error) {
	if err := requirePrivileged(actor); err != nil {
		return nil, err
	}
	reservations, err := s.store.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

// Delete removes a reservation. Always an explicit administrative action.
func (s *Service) Delete(ctx context.Context, actor *models.User, id int64) error {
	if err := requirePrivileged(actor); err != nil {
		return err
	}

	r, err := s.store.GetReservationByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.NotFound("reservation", id)
	}
	if err != nil {
		return fmt.Errorf("get reservation: %w", err)
	}

	if err = s.store.DeleteReservation(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return apperrors.NotFound("reservation", id)
		}
		return fmt.Errorf("delete reservation: %w", err)
	}

	s.logger.Info().Int64("reservation_id", id).Str("actor", actorEmail(actor)).Msg("reservation deleted")
	s.bus.Publish(events.Event{
		Type:        events.TypeReservationCancelled,
		Reservation: *r,
		Actor:       actorEmail(actor),
	})
	return nil
}

func (s *Service) resolveRoom(ctx context.Context, publicID string) (*models.Room, error) {
	rooms, err := s.store.ListActiveRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	for i := range rooms {
		if rooms[i].PublicID() == publicID {
			return &rooms[i], nil
		}
	}
	// Admin callers key rooms by numeric id.
	if id, convErr := strconv.ParseInt(publicID, 10, 64); convErr == nil {
		for i := range rooms {
			if rooms[i].ID == id {
				return &rooms[i], nil
			}
		}
	}
	return nil, apperrors.InvalidInput(fmt.Sprintf("unknown room %q", publicID))
}

func requirePrivileged(actor *models.User) error {
	if actor == nil {
		return apperrors.Unauthorized("authentication required")
	}
	if !actor.Privileged() {
		return apperrors.Forbidden("admin or game-master role required")
	}
	return nil
}

func actorEmail(actor *models.User) string {
	if actor == nil {
		return ""
	}
	return actor.Email
}
