// Package database is the sqlite-backed store behind the collaborator
// contracts: rooms, opening hours, holidays, rates, reservations and the
// reservation change log.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Sentinel errors the services branch on.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateCode = errors.New("confirmation code already exists")
	ErrSlotTaken     = errors.New("slot already reserved")
)

// DB wraps sql.DB for the reservation engine.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT UNIQUE NOT NULL,
            description TEXT,
            min_players INTEGER NOT NULL DEFAULT 2,
            max_players INTEGER NOT NULL DEFAULT 8,
            duration_minutes INTEGER NOT NULL DEFAULT 90,
            difficulty TEXT,
            cover_image TEXT,
            is_active BOOLEAN DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		// One row per weekday (0-6, Sunday = 0).
		`CREATE TABLE IF NOT EXISTS opening_hours (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            day_of_week INTEGER UNIQUE NOT NULL,
            open_time TEXT NOT NULL,
            close_time TEXT NOT NULL,
            is_open BOOLEAN DEFAULT 1
        )`,

		`CREATE TABLE IF NOT EXISTS holidays (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            date TEXT UNIQUE NOT NULL,
            name TEXT
        )`,

		`CREATE TABLE IF NOT EXISTS rates (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            day_type TEXT NOT NULL,
            players INTEGER NOT NULL,
            price_per_person INTEGER NOT NULL,
            currency TEXT NOT NULL DEFAULT 'COP',
            label TEXT,
            players_range TEXT,
            UNIQUE(day_type, players)
        )`,

		`CREATE TABLE IF NOT EXISTS reservations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            room_id INTEGER NOT NULL,
            date TEXT NOT NULL,
            start_time DATETIME NOT NULL,
            end_time DATETIME NOT NULL,
            confirmation_code TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            phone TEXT,
            players INTEGER NOT NULL,
            total_price INTEGER NOT NULL,
            currency TEXT NOT NULL DEFAULT 'COP',
            status TEXT NOT NULL DEFAULT 'PENDING',
            reprogrammed BOOLEAN NOT NULL DEFAULT 0,
            source TEXT NOT NULL DEFAULT 'web',
            notes TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY (room_id) REFERENCES rooms(id)
        )`,

		`CREATE TABLE IF NOT EXISTS reservation_changes (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            reservation_id INTEGER NOT NULL,
            prev_room_id INTEGER NOT NULL,
            new_room_id INTEGER NOT NULL,
            prev_date TEXT NOT NULL,
            new_date TEXT NOT NULL,
            prev_start DATETIME NOT NULL,
            new_start DATETIME NOT NULL,
            prev_end DATETIME NOT NULL,
            new_end DATETIME NOT NULL,
            changed_by TEXT NOT NULL,
            reason TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY (reservation_id) REFERENCES reservations(id)
        )`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_rooms_active ON rooms(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_date ON reservations(date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_code ON reservations(confirmation_code)`,
		`CREATE INDEX IF NOT EXISTS idx_changes_reservation ON reservation_changes(reservation_id)`,

		// Two racing creates for the same grid slot must not both land; the
		// constraint is the backstop behind the pre-write availability check.
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_reservations_room_slot
            ON reservations(room_id, date, start_time)
            WHERE status != 'CANCELLED'`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
