package events

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/compton.report/internal/monitoring"
)

// Store persists interaction records in sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the interaction archive at path and
// applies any pending schema migrations. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle so sibling stores (runs) can share the
// same database file.
func (s *Store) DB() *sql.DB { return s.db }

// InsertInteractions writes a batch of interaction records in one
// transaction.
func (s *Store) InsertInteractions(ins []Interaction) error {
	if len(ins) == 0 {
		return nil
	}
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		stmt, err := tx.Prepare(`
			INSERT INTO interactions (event_id, seq, x_mm, y_mm, z_mm, energy_kev)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, in := range ins {
			if _, err := stmt.Exec(in.EventID, in.Seq, in.XMm, in.YMm, in.ZMm, in.EnergyKeV); err != nil {
				tx.Rollback()
				return fmt.Errorf("insert interaction (event %d seq %d): %w", in.EventID, in.Seq, err)
			}
		}
		return tx.Commit()
	})
}

// ListEvents returns stored events grouped by event ID with interactions in
// sequence order. limit bounds the number of events returned; 0 means all.
func (s *Store) ListEvents(limit int) ([]Event, error) {
	query := `
		SELECT event_id, seq, x_mm, y_mm, z_mm, energy_kev
		FROM interactions
		ORDER BY event_id, seq`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.EventID, &in.Seq, &in.XMm, &in.YMm, &in.ZMm, &in.EnergyKeV); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		if len(events) == 0 || events[len(events)-1].ID != in.EventID {
			if limit > 0 && len(events) == limit {
				break
			}
			events = append(events, Event{ID: in.EventID})
		}
		last := &events[len(events)-1]
		last.Interactions = append(last.Interactions, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}

	monitoring.Logf("loaded %d events from archive", len(events))
	return events, nil
}

// EventCount returns the number of distinct events in the archive.
func (s *Store) EventCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(DISTINCT event_id) FROM interactions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// isSQLiteBusy reports whether err is a transient sqlite lock contention
// error worth retrying.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// retryOnBusy runs fn, retrying with linear backoff while it fails with a
// busy/locked error.
func retryOnBusy(fn func() error) error {
	const maxRetries = 5
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = fn()
		if !isSQLiteBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return err
}
