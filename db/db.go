package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// timeLayout is fixed width so occurred_at sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05.000Z"

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	occurred_at TEXT    NOT NULL,
	kind        TEXT    NOT NULL,
	pin         INTEGER NOT NULL,
	enabled     BOOLEAN NOT NULL,
	timeout_ms  INTEGER NOT NULL DEFAULT 0,
	source      TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events (occurred_at);
`

// Open opens (creating if needed) the event journal at path and applies the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	if err := ApplySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("Event journal opened")
	return db, nil
}

func ApplySchema(db *sql.DB) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(schema); err != nil {
		RollbackTransaction(tx)
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return CommitTransaction(tx)
}
