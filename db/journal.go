package db

import (
	"database/sql"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

// Journal records every controller event to the events table.
type Journal struct {
	db *sql.DB
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Name() string { return "journal" }

func (j *Journal) Handle(ev model.Event) error {
	return RecordEvent(j.db, ev)
}

// Recent satisfies the history source used by the HTTP API.
func (j *Journal) Recent(limit int) ([]model.Event, error) {
	return GetRecentEvents(j.db, limit)
}
