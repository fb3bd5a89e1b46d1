package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

func RecordEvent(db *sql.DB, ev model.Event) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	if err := RecordEventWithTx(tx, ev); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

func RecordEventWithTx(tx *sql.Tx, ev model.Event) error {
	_, err := tx.Exec(`INSERT INTO events (occurred_at, kind, pin, enabled, timeout_ms, source) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Time.UTC().Format(timeLayout), string(ev.Kind), ev.Pin, ev.Enabled, ev.Timeout.Milliseconds(), ev.Source)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// PruneEventsBefore deletes journal rows older than cutoff and reports how many went.
func PruneEventsBefore(db *sql.DB, cutoff time.Time) (int64, error) {
	tx, err := StartTransaction(db)
	if err != nil {
		return 0, err
	}
	result, err := tx.Exec(`DELETE FROM events WHERE occurred_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		RollbackTransaction(tx)
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, CommitTransaction(tx)
}
