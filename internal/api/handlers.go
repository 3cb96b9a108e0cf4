package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/apperrors"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/availability"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/booking"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/cache"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/metrics"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

// handleAvailability serves the per-date availability view.
// GET /api/availability?date=YYYY-MM-DD[&view=admin]
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	date, err := clock.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()))
		return
	}

	opts := availability.Options{}
	mode := cache.ModePublic
	if r.URL.Query().Get("view") == "admin" {
		user := identityFrom(r)
		if err = requirePrivileged(user); err != nil {
			s.writeError(w, r, err)
			return
		}
		opts = availability.Options{AllowPast: true, NumericRoomIDs: true}
		mode = cache.ModeAdmin
	}

	dateStr := clock.FormatDate(date)
	var cached json.RawMessage
	if s.cache.GetAvailability(r.Context(), dateStr, mode, &cached) {
		metrics.IncAvailabilityRequest("hit")
		writeJSON(w, http.StatusOK, cached)
		return
	}

	result, err := s.availability.ForDate(r.Context(), date, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	metrics.IncAvailabilityRequest("miss")
	s.cache.SetAvailability(r.Context(), dateStr, mode, result)
	writeJSON(w, http.StatusOK, result)
}

// handleQuote prices a session.
// GET /api/quote?date=YYYY-MM-DD&players=N
func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	date, err := clock.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()))
		return
	}
	players, err := strconv.Atoi(r.URL.Query().Get("players"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput("players must be a number"))
		return
	}

	quote, err := s.pricing.Quote(r.Context(), date, players)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// handleCreateBooking runs the booking transaction.
// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.CreateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, r, apperrors.InvalidInput("invalid JSON body"))
		return
	}

	reservation, err := s.booking.Create(r.Context(), identityFrom(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservationResponse(reservation))
}

// handleGetByCode is the public lookup by confirmation code.
// GET /api/reservations/code/{code}
func (s *HTTPServer) handleGetByCode(w http.ResponseWriter, r *http.Request) {
	reservation, err := s.booking.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationResponse(reservation))
}

// handleListReservations lists a date's reservations for the admin console.
// GET /api/reservations?date=YYYY-MM-DD
func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	date, err := clock.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()))
		return
	}

	reservations, err := s.booking.ListByDate(r.Context(), identityFrom(r), date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]map[string]any, 0, len(reservations))
	for i := range reservations {
		out = append(out, reservationResponse(&reservations[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":         clock.FormatDate(date),
		"reservations": out,
	})
}

// GET /api/reservations/{id}
func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	reservation, err := s.booking.GetByID(r.Context(), identityFrom(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationResponse(reservation))
}

// handleUpdateReservation is the admin edit/reprogram path.
// PATCH /api/reservations/{id}
func (s *HTTPServer) handleUpdateReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req booking.UpdateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err = decoder.Decode(&req); err != nil {
		s.writeError(w, r, apperrors.InvalidInput("invalid JSON body"))
		return
	}

	reservation, err := s.booking.Update(r.Context(), identityFrom(r), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationResponse(reservation))
}

// DELETE /api/reservations/{id}
func (s *HTTPServer) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err = s.booking.Delete(r.Context(), identityFrom(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport streams the xlsx audit export.
// GET /api/admin/export?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := requirePrivileged(identityFrom(r)); err != nil {
		s.writeError(w, r, err)
		return
	}

	from, err := clock.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()))
		return
	}
	to, err := clock.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()))
		return
	}
	if from.After(to) {
		s.writeError(w, r, apperrors.InvalidInput("from must be before or equal to to"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=reservations_%s_%s.xlsx", clock.FormatDate(from), clock.FormatDate(to)))
	if err = s.exporter.Export(r.Context(), from, to, w); err != nil {
		s.logger.Error().Err(err).Msg("audit export failed")
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("reservation id must be a number")
	}
	return id, nil
}

func requirePrivileged(user *models.User) error {
	if user == nil {
		return apperrors.Unauthorized("authentication required")
	}
	if !user.Privileged() {
		return apperrors.Forbidden("admin or game-master role required")
	}
	return nil
}

// reservationResponse renders a reservation with wire-format dates and
// instants; the struct's time fields deliberately do not marshal themselves.
func reservationResponse(r *models.Reservation) map[string]any {
	out := map[string]any{
		"id":                r.ID,
		"room_id":           r.RoomID,
		"room_name":         r.RoomName,
		"date":              clock.FormatDate(r.Date),
		"start_time":        clock.FormatInstant(r.StartTime),
		"end_time":          clock.FormatInstant(r.EndTime),
		"confirmation_code": r.ConfirmationCode,
		"name":              r.Name,
		"email":             r.Email,
		"players":           r.Players,
		"total_price":       r.TotalPrice,
		"currency":          r.Currency,
		"status":            r.Status,
		"reprogrammed":      r.Reprogrammed,
		"source":            r.Source,
	}
	if r.Phone != "" {
		out["phone"] = r.Phone
	}
	if r.Notes != "" {
		out["notes"] = r.Notes
	}
	return out
}
