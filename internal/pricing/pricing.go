// Package pricing resolves price-per-person from the rate table and builds
// quotes. The same picker governs every price shown and every booking total.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/apperrors"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/schedule"
)

// RateStore lists configured rates for a day type.
type RateStore interface {
	ListRates(ctx context.Context, dayType models.DayType) ([]models.Rate, error)
}

// DayClassifier resolves a date to its pricing classification.
type DayClassifier interface {
	Classify(ctx context.Context, date time.Time) (schedule.DayInfo, error)
}

// Pick selects the rate for a party size. Exact players match wins; else the
// rate with the largest players count not exceeding the requested size; if
// none qualifies, the overall smallest rate. An empty table is a deployment
// defect, not user error.
func Pick(rates []models.Rate, players int) (*models.Rate, error) {
	if len(rates) == 0 {
		return nil, apperrors.Configuration("no rate configured", nil)
	}

	var below, smallest *models.Rate
	for i := range rates {
		r := &rates[i]
		if r.Players == players {
			return r, nil
		}
		if r.Players < players && (below == nil || r.Players > below.Players) {
			below = r
		}
		if smallest == nil || r.Players < smallest.Players {
			smallest = r
		}
	}
	if below != nil {
		return below, nil
	}
	return smallest, nil
}

// Quote is the priced answer for a date and party size.
type Quote struct {
	DayType        models.DayType `json:"day_type"`
	IsHoliday      bool           `json:"is_holiday"`
	PricePerPerson int64          `json:"price_per_person"`
	Total          int64          `json:"total"`
	Currency       string         `json:"currency"`
	Label          string         `json:"label,omitempty"`
	PlayersRange   string         `json:"range,omitempty"`
}

type Service struct {
	rates      RateStore
	classifier DayClassifier
}

func NewService(rates RateStore, classifier DayClassifier) *Service {
	return &Service{rates: rates, classifier: classifier}
}

// Quote prices a session for attendees on a date. Rate lookup uses the day
// type, which on holidays is weekend regardless of the hours schedule used.
func (s *Service) Quote(ctx context.Context, date time.Time, attendees int) (*Quote, error) {
	if attendees <= 0 {
		return nil, apperrors.InvalidInput("attendees must be a positive number")
	}

	info, err := s.classifier.Classify(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("classify date: %w", err)
	}

	rates, err := s.rates.ListRates(ctx, info.DayType)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}

	rate, err := Pick(rates, attendees)
	if err != nil {
		return nil, err
	}

	return &Quote{
		DayType:        info.DayType,
		IsHoliday:      info.IsHoliday,
		PricePerPerson: rate.PricePerPerson,
		Total:          rate.PricePerPerson * int64(attendees),
		Currency:       rate.Currency,
		Label:          rate.Label,
		PlayersRange:   rate.PlayersRange,
	}, nil
}
