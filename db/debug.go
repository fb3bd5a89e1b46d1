package db

import (
	"fmt"
	"io"
	"time"
)

// PrintHistoryCLI writes the newest limit journal entries to w, one per line.
func PrintHistoryCLI(w io.Writer, dbPath string, limit int) error {
	db, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	events, err := GetRecentEvents(db, limit)
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Fprintf(w, "%s  %-10s pin=%-3d enabled=%-5t timeout=%s source=%s\n",
			ev.Time.Local().Format(time.RFC3339), ev.Kind, ev.Pin, ev.Enabled, ev.Timeout, ev.Source)
	}
	return nil
}

func PruneCLI(w io.Writer, dbPath string, olderThan time.Duration) error {
	db, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := PruneEventsBefore(db, time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Pruned %d events older than %s\n", n, olderThan)
	return nil
}
