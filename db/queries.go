package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

// MaxHistory caps how many rows GetRecentEvents returns.
const MaxHistory = 500

// GetRecentEvents returns up to limit events, newest first.
func GetRecentEvents(db *sql.DB, limit int) ([]model.Event, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}

	rows, err := db.Query(`SELECT occurred_at, kind, pin, enabled, timeout_ms, source FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var (
			ev        model.Event
			at, kind  string
			timeoutMs int64
		)
		if err := rows.Scan(&at, &kind, &ev.Pin, &ev.Enabled, &timeoutMs, &ev.Source); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Time, err = time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("bad occurred_at %q: %w", at, err)
		}
		ev.Kind = model.EventKind(kind)
		ev.Timeout = time.Duration(timeoutMs) * time.Millisecond
		events = append(events, ev)
	}
	return events, rows.Err()
}

func CountEvents(db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}
