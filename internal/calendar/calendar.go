// Package calendar publishes committed reservations to the venue's Google
// Calendar. The reservation row is always the source of truth: a failed
// publish is logged and counted, never unwound.
package calendar

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/apperrors"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/events"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/metrics"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

type Config struct {
	CalendarID   string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Client wraps the calendar API. Access tokens are owned by the client's
// token source and carry their own expiry; nothing token-related lives in
// process-wide state.
type Client struct {
	svc        *gcal.Service
	calendarID string
	logger     zerolog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gcal.CalendarEventsScope},
	}
	source := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	svc, err := gcal.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return &Client{
		svc:        svc,
		calendarID: cfg.CalendarID,
		logger:     logger.With().Str("component", "calendar").Logger(),
	}, nil
}

// PublishReservation inserts one event for the reservation.
func (c *Client) PublishReservation(ctx context.Context, r models.Reservation) error {
	event := &gcal.Event{
		Summary: fmt.Sprintf("%s: %s (%d players)", r.RoomName, r.Name, r.Players),
		Description: fmt.Sprintf(
			"Confirmation code: %s\nContact: %s %s\nSource: %s",
			r.ConfirmationCode, r.Email, r.Phone, r.Source,
		),
		Start: &gcal.EventDateTime{DateTime: clock.FormatInstant(r.StartTime)},
		End:   &gcal.EventDateTime{DateTime: clock.FormatInstant(r.EndTime)},
	}

	if _, err := c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do(); err != nil {
		return apperrors.Upstream("calendar publish failed", err)
	}
	return nil
}

// Handler returns the event-bus subscriber for reservation events. Failures
// are counted and left to the bus to log.
func (c *Client) Handler() events.Handler {
	return func(event events.Event) error {
		err := c.PublishReservation(context.Background(), event.Reservation)
		if err != nil {
			metrics.IncCalendarFailure()
			return err
		}
		c.logger.Debug().
			Int64("reservation_id", event.Reservation.ID).
			Str("event", event.Type).
			Msg("reservation published to calendar")
		return nil
	}
}
