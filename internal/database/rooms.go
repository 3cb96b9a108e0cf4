package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

const roomColumns = `id, name, description, min_players, max_players,
       duration_minutes, difficulty, cover_image, is_active, created_at, updated_at`

// ListActiveRooms returns active rooms ordered by name.
func (db *DB) ListActiveRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT `+roomColumns+`
        FROM rooms
        WHERE is_active = 1
        ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *r)
	}
	return rooms, rows.Err()
}

// GetRoomByID returns a room regardless of active flag; callers decide
// whether inactive rooms are acceptable.
func (db *DB) GetRoomByID(ctx context.Context, id int64) (*models.Room, error) {
	row := db.QueryRowContext(ctx, `
        SELECT `+roomColumns+`
        FROM rooms
        WHERE id = ?`, id)

	r, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*models.Room, error) {
	var r models.Room
	var description, difficulty, coverImage sql.NullString
	err := row.Scan(
		&r.ID, &r.Name, &description, &r.MinPlayers, &r.MaxPlayers,
		&r.DurationMinutes, &difficulty, &coverImage, &r.IsActive,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Description = description.String
	r.Difficulty = difficulty.String
	r.CoverImage = coverImage.String
	return &r, nil
}
