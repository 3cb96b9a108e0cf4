// Package audit produces the admin xlsx export: every reservation in a date
// range plus the append-only reprogram log, one sheet each.
package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

type Store interface {
	ListReservationsBetween(ctx context.Context, from, to time.Time) ([]models.Reservation, error)
	ListChangesBetween(ctx context.Context, from, to time.Time) ([]models.ReservationChange, error)
}

type Exporter struct {
	store  Store
	logger zerolog.Logger
}

func NewExporter(store Store, logger zerolog.Logger) *Exporter {
	return &Exporter{store: store, logger: logger.With().Str("component", "audit").Logger()}
}

var reservationColumns = []string{
	"ID", "Room", "Date", "Start", "End", "Code", "Name", "Email", "Phone",
	"Players", "Total", "Currency", "Status", "Reprogrammed", "Source", "Created",
}

var changeColumns = []string{
	"ID", "Reservation", "Prev Room", "New Room", "Prev Date", "New Date",
	"Prev Start", "New Start", "Changed By", "Reason", "Recorded",
}

// Export writes the xlsx workbook for [from, to] to w.
func (e *Exporter) Export(ctx context.Context, from, to time.Time, w io.Writer) error {
	reservations, err := e.store.ListReservationsBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}
	changes, err := e.store.ListChangesBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list changes: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "Reservations")
	rows := make([][]any, 0, len(reservations))
	for i := range reservations {
		r := &reservations[i]
		rows = append(rows, []any{
			r.ID, r.RoomName, clock.FormatDate(r.Date),
			clock.FormatInstant(r.StartTime), clock.FormatInstant(r.EndTime),
			r.ConfirmationCode, r.Name, r.Email, r.Phone,
			r.Players, r.TotalPrice, r.Currency,
			string(r.Status), r.Reprogrammed, string(r.Source),
			clock.FormatInstant(r.CreatedAt),
		})
	}
	if err = writeSheet(f, "Reservations", reservationColumns, rows); err != nil {
		return err
	}

	if _, err = f.NewSheet("Changes"); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	rows = rows[:0]
	for i := range changes {
		ch := &changes[i]
		rows = append(rows, []any{
			ch.ID, ch.ReservationID, ch.PrevRoomID, ch.NewRoomID,
			clock.FormatDate(ch.PrevDate), clock.FormatDate(ch.NewDate),
			clock.FormatInstant(ch.PrevStart), clock.FormatInstant(ch.NewStart),
			ch.ChangedBy, ch.Reason, clock.FormatInstant(ch.CreatedAt),
		})
	}
	if err = writeSheet(f, "Changes", changeColumns, rows); err != nil {
		return err
	}

	e.logger.Info().
		Str("from", clock.FormatDate(from)).
		Str("to", clock.FormatDate(to)).
		Int("reservations", len(reservations)).
		Int("changes", len(changes)).
		Msg("audit export produced")
	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, columns []string, rows [][]any) error {
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		end, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(sheet, "A1", end, style)
	}

	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
