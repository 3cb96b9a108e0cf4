package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/apperrors"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/availability"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/database"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/events"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

// UpdateRequest is the admin edit payload. Nil fields keep stored values.
type UpdateRequest struct {
	RoomID    *int64  `json:"room_id"`
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Players   *int    `json:"players"`
	Status    *string `json:"status"`
	Notes     *string `json:"notes"`
	Reason    string  `json:"reason"`
}

func (r *UpdateRequest) touchesSchedule() bool {
	return r.RoomID != nil || r.Date != nil || r.StartTime != nil || r.EndTime != nil
}

// Update applies an admin edit. Schedule changes are re-validated through
// the same availability rules as the public flow (with this reservation
// excluded from occupancy), marked reprogrammed, and recorded in the
// append-only change log. Edits that touch no schedule field skip both.
func (s *Service) Update(ctx context.Context, actor *models.User, id int64, req UpdateRequest) (*models.Reservation, error) {
	if err := requirePrivileged(actor); err != nil {
		return nil, err
	}

	existing, err := s.store.GetReservationByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound("reservation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}

	roomID := existing.RoomID
	if req.RoomID != nil {
		roomID = *req.RoomID
	}
	room, err := s.store.GetRoomByID(ctx, roomID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown room %d", roomID))
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}

	newDate := existing.Date
	if req.Date != nil {
		if newDate, err = clock.ParseDate(*req.Date); err != nil {
			return nil, apperrors.InvalidInput(err.Error())
		}
	}

	newStart, newEnd, err := s.proposedInterval(existing, room, newDate, req)
	if err != nil {
		return nil, err
	}

	// Stored values are canonicalized the same way the proposal is, so two
	// representations of one wall time never misreport a change.
	prevStart, err := clock.At(existing.Date, timeOfDay(existing.StartTime))
	if err != nil {
		return nil, apperrors.Internal("canonicalize stored start", err)
	}
	prevEnd, err := clock.At(existing.Date, timeOfDay(existing.EndTime))
	if err != nil {
		return nil, apperrors.Internal("canonicalize stored end", err)
	}

	changed := roomID != existing.RoomID ||
		!newDate.Equal(existing.Date) ||
		!newStart.Equal(prevStart) ||
		!newEnd.Equal(prevEnd)

	if changed && !clock.IsPastDate(newDate, s.clock.Now()) {
		if existing.Source == models.SourceWalkIn {
			err = s.checkOverlap(ctx, roomID, newDate, newStart, newEnd, existing.ID)
		} else {
			err = s.checkGridSlot(ctx, newDate, roomID, newStart, availability.Options{
				IgnoreReservationID: existing.ID,
				AllowPast:           true,
				NumericRoomIDs:      true,
			})
		}
		if err != nil {
			return nil, err
		}
	}

	updated := *existing
	updated.RoomID = roomID
	updated.RoomName = room.Name
	updated.Date = newDate
	updated.StartTime = newStart
	updated.EndTime = newEnd

	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Email != nil {
		updated.Email = *req.Email
	}
	if req.Phone != nil {
		updated.Phone = *req.Phone
	}
	if req.Notes != nil {
		updated.Notes = *req.Notes
	}
	if req.Players != nil {
		if *req.Players < room.MinPlayers || *req.Players > room.MaxPlayers {
			return nil, apperrors.InvalidInput(
				fmt.Sprintf("players must be between %d and %d for this room", room.MinPlayers, room.MaxPlayers),
			)
		}
		updated.Players = *req.Players
	}
	if req.Status != nil {
		status := models.Status(*req.Status)
		if !models.ValidStatus(status) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown status %q", *req.Status))
		}
		updated.Status = status
	}

	// A moved date or party size can land on a different rate.
	if req.Players != nil || !newDate.Equal(existing.Date) {
		quote, qErr := s.quoter.Quote(ctx, newDate, updated.Players)
		if qErr != nil {
			return nil, qErr
		}
		updated.TotalPrice = quote.Total
		updated.Currency = quote.Currency
	}

	if changed {
		updated.Reprogrammed = true
	}

	if _, err = s.store.UpdateReservation(ctx, &updated); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			return nil, apperrors.Conflict("slot is no longer available")
		}
		return nil, fmt.Errorf("update reservation: %w", err)
	}

	if changed {
		change := &models.ReservationChange{
			ReservationID: existing.ID,
			PrevRoomID:    existing.RoomID,
			NewRoomID:     roomID,
			PrevDate:      existing.Date,
			NewDate:       newDate,
			PrevStart:     prevStart,
			NewStart:      newStart,
			PrevEnd:       prevEnd,
			NewEnd:        newEnd,
			ChangedBy:     actorEmail(actor),
			Reason:        req.Reason,
		}
		if err = s.store.AppendChangeRecord(ctx, change); err != nil {
			return nil, fmt.Errorf("append change record: %w", err)
		}

		s.logger.Info().
			Int64("reservation_id", existing.ID).
			Str("actor", actorEmail(actor)).
			Msg("reservation reprogrammed")
		s.bus.Publish(events.Event{
			Type:        events.TypeReservationReprogrammed,
			Reservation: updated,
			Prev:        existing,
			Actor:       actorEmail(actor),
		})
	}

	if updated.Status == models.StatusCancelled && existing.Status != models.StatusCancelled {
		s.bus.Publish(events.Event{
			Type:        events.TypeReservationCancelled,
			Reservation: updated,
			Actor:       actorEmail(actor),
		})
	}

	return &updated, nil
}

// proposedInterval resolves the edit's start and end instants on the
// proposed date. An explicit start without an explicit end re-derives the
// end from the room's session length.
func (s *Service) proposedInterval(existing *models.Reservation, room *models.Room, newDate time.Time, req UpdateRequest) (start, end time.Time, err error) {
	startTOD := timeOfDay(existing.StartTime)
	if req.StartTime != nil {
		startTOD = *req.StartTime
	}
	if start, err = clock.At(newDate, startTOD); err != nil {
		return time.Time{}, time.Time{}, apperrors.InvalidInput(err.Error())
	}

	switch {
	case req.EndTime != nil:
		if end, err = clock.At(newDate, *req.EndTime); err != nil {
			return time.Time{}, time.Time{}, apperrors.InvalidInput(err.Error())
		}
	case req.StartTime != nil || req.RoomID != nil:
		end = start.Add(room.Duration())
	default:
		if end, err = clock.At(newDate, timeOfDay(existing.EndTime)); err != nil {
			return time.Time{}, time.Time{}, apperrors.InvalidInput(err.Error())
		}
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("end_time must be after start_time")
	}
	return start, end, nil
}

func timeOfDay(t time.Time) string {
	return t.In(clock.VenueZone).Format("15:04")
}
