package models

import (
	"database/sql"
	"time"
)

// Draw is one persisted draw session.
type Draw struct {
	ID          int            `db:"id" json:"id"`
	DrawID      string         `db:"draw_id" json:"draw_id"`
	Token       string         `db:"token" json:"token"`
	HostName    string         `db:"host_name" json:"host_name"`
	HostPinHash sql.NullString `db:"host_pin_hash" json:"-"`
	WinTarget   int            `db:"win_target" json:"win_target"`
	Status      string         `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	ExpiresAt   time.Time      `db:"expires_at" json:"expires_at"`
	CompletedAt sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
}

// DrawEntry is one name in a draw's pool.
type DrawEntry struct {
	ID        int       `db:"id" json:"id"`
	DrawID    int       `db:"draw_id" json:"-"`
	EntryName string    `db:"entry_name" json:"entry_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DrawWinner is one drawn name with its 1-based draw position.
type DrawWinner struct {
	ID         int       `db:"id" json:"id"`
	DrawID     int       `db:"draw_id" json:"-"`
	WinnerName string    `db:"winner_name" json:"winner_name"`
	Position   int       `db:"position" json:"position"`
	DrawnAt    time.Time `db:"drawn_at" json:"drawn_at"`
}
