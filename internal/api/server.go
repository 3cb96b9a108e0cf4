// Package api is the HTTP/JSON boundary of the reservation engine. Every UI
// (public site, admin console) is an external collaborator; this surface is
// the produced contract.
package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/audit"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/availability"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/booking"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/cache"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/pricing"
)

type HTTPServer struct {
	availability *availability.Service
	booking      *booking.Service
	pricing      *pricing.Service
	cache        *cache.Cache
	exporter     *audit.Exporter
	limiter      *ipLimiter
	logger       zerolog.Logger
}

func NewHTTPServer(
	avail *availability.Service,
	bookingSvc *booking.Service,
	pricingSvc *pricing.Service,
	cacheLayer *cache.Cache,
	exporter *audit.Exporter,
	requestsPerSecond float64,
	burst int,
	logger zerolog.Logger,
) *HTTPServer {
	return &HTTPServer{
		availability: avail,
		booking:      bookingSvc,
		pricing:      pricingSvc,
		cache:        cacheLayer,
		exporter:     exporter,
		limiter:      newIPLimiter(requestsPerSecond, burst),
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// Handler wires routes and middleware. Public endpoints sit behind the
// per-client rate limit; admin endpoints authenticate via gateway headers
// instead.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/availability", s.rateLimited(s.handleAvailability))
	mux.HandleFunc("GET /api/quote", s.rateLimited(s.handleQuote))
	mux.HandleFunc("POST /api/bookings", s.rateLimited(s.handleCreateBooking))
	mux.HandleFunc("GET /api/reservations/code/{code}", s.rateLimited(s.handleGetByCode))

	mux.HandleFunc("GET /api/reservations", s.handleListReservations)
	mux.HandleFunc("GET /api/reservations/{id}", s.handleGetReservation)
	mux.HandleFunc("PATCH /api/reservations/{id}", s.handleUpdateReservation)
	mux.HandleFunc("DELETE /api/reservations/{id}", s.handleDeleteReservation)
	mux.HandleFunc("GET /api/admin/export", s.handleExport)

	return s.withRequestID(s.withLogging(mux))
}
