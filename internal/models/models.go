// Package models holds the domain types shared across the reservation
// engine.
package models

import (
	"path"
	"strings"
	"time"
)

// DayType classifies a date for rate lookup. It is distinct from the
// effective weekday used for opening-hours lookup.
type DayType string

const (
	DayTypeWeekday DayType = "weekday"
	DayTypeWeekend DayType = "weekend"
)

// Status is the reservation lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Source records which path created the reservation.
type Source string

const (
	SourceWeb    Source = "web"
	SourceWalkIn Source = "walk_in"
)

// Role is the caller's role as asserted by the external auth collaborator.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleGameMaster Role = "game_master"
)

// User is the authenticated caller identity. The engine never authenticates;
// it only consumes the identity the gateway injects.
type User struct {
	ID    int64
	Email string
	Role  Role
}

// Privileged reports whether the user may take admin-side actions such as
// walk-in bookings, out-of-hours bookings and reservation edits.
func (u *User) Privileged() bool {
	if u == nil {
		return false
	}
	return u.Role == RoleAdmin || u.Role == RoleGameMaster
}

// Room is read-only to this engine; rooms are managed by the admin console.
type Room struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	MinPlayers      int       `json:"min_players"`
	MaxPlayers      int       `json:"max_players"`
	DurationMinutes int       `json:"duration_minutes"`
	Difficulty      string    `json:"difficulty,omitempty"`
	CoverImage      string    `json:"cover_image,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PublicID is the URL-safe slug the public site keys rooms by. It is a
// presentation value derived from the cover image filename (falling back to
// the room name); internally rooms are always keyed by numeric id.
func (r *Room) PublicID() string {
	if r.CoverImage != "" {
		base := path.Base(r.CoverImage)
		if ext := path.Ext(base); ext != "" {
			base = strings.TrimSuffix(base, ext)
		}
		return slugify(base)
	}
	return slugify(r.Name)
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Duration returns the room's session length.
func (r *Room) Duration() time.Duration {
	return time.Duration(r.DurationMinutes) * time.Minute
}

// OpeningHours is the venue's weekly schedule row for one weekday (0-6,
// Sunday = 0).
type OpeningHours struct {
	ID        int64  `json:"id"`
	DayOfWeek int    `json:"day_of_week"`
	OpenTime  string `json:"open_time"`  // "09:00"
	CloseTime string `json:"close_time"` // "22:30"
	IsOpen    bool   `json:"is_open"`
}

// Holiday reclassifies a date's effective weekday and day type.
type Holiday struct {
	ID   int64     `json:"id"`
	Date time.Time `json:"date"`
	Name string    `json:"name,omitempty"`
}

// Rate is a price-per-person entry for a day type and party size.
type Rate struct {
	ID             int64   `json:"-"`
	DayType        DayType `json:"-"`
	Players        int     `json:"players"`
	PricePerPerson int64   `json:"price_per_person"`
	Currency       string  `json:"currency"`
	Label          string  `json:"label,omitempty"`
	PlayersRange   string  `json:"range,omitempty"`
}

// Reservation is a booked session.
type Reservation struct {
	ID               int64     `json:"id"`
	RoomID           int64     `json:"room_id"`
	RoomName         string    `json:"room_name,omitempty"`
	Date             time.Time `json:"-"`
	StartTime        time.Time `json:"-"`
	EndTime          time.Time `json:"-"`
	ConfirmationCode string    `json:"confirmation_code"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	Players          int       `json:"players"`
	TotalPrice       int64     `json:"total_price"`
	Currency         string    `json:"currency"`
	Status           Status    `json:"status"`
	Reprogrammed     bool      `json:"reprogrammed"`
	Source           Source    `json:"source"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Active reports whether the reservation still occupies its slot.
func (r *Reservation) Active() bool {
	return r.Status != StatusCancelled
}

// ReservationChange is an append-only audit row recording a reprogram.
type ReservationChange struct {
	ID            int64     `json:"id"`
	ReservationID int64     `json:"reservation_id"`
	PrevRoomID    int64     `json:"prev_room_id"`
	NewRoomID     int64     `json:"new_room_id"`
	PrevDate      time.Time `json:"prev_date"`
	NewDate       time.Time `json:"new_date"`
	PrevStart     time.Time `json:"prev_start"`
	NewStart      time.Time `json:"new_start"`
	PrevEnd       time.Time `json:"prev_end"`
	NewEnd        time.Time `json:"new_end"`
	ChangedBy     string    `json:"changed_by"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
