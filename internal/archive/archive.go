// Package archive keeps an append-only sqlite record of completed
// turns for operator review. It is a write-only log: sessions are
// never restored from it.
package archive

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"Naqqal/internal/story"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Archive records story turns into sqlite, keyed by a per-process run
// id. Appends are idempotent via a fingerprint of the history prefix.
type Archive struct {
	db     *sql.DB
	runID  string
	logger *slog.Logger
}

// Open opens (creating if needed) the transcript database at path.
func Open(path string, logger *slog.Logger) (*Archive, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript database: %w", err)
	}

	createTurnsTable := `
	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		user_id TEXT,
		speaker TEXT,
		content TEXT,
		fingerprint TEXT UNIQUE,
		recorded_at DATETIME
	);`

	if _, err := db.Exec(createTurnsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create turns table: %w", err)
	}

	return &Archive{
		db:     db,
		runID:  uuid.NewString(),
		logger: logger,
	}, nil
}

// Fingerprint hashes a history prefix; identical prefixes for the same
// user fingerprint identically, so re-recording a turn is a no-op.
// Fields are length-prefixed so differently split histories cannot
// collide by concatenation.
func Fingerprint(userID string, turns []story.Turn) string {
	h := sha256.New()
	field := func(s string) {
		fmt.Fprintf(h, "%d:", len(s))
		h.Write([]byte(s))
	}
	field(userID)
	for _, turn := range turns {
		field(string(turn.Speaker))
		field(turn.Text)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// RecordHistory appends every turn of the given history that has not
// been recorded yet.
func (a *Archive) RecordHistory(userID string, history []story.Turn) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for i, turn := range history {
		_, err := tx.Exec(
			"INSERT OR IGNORE INTO turns (run_id, user_id, speaker, content, fingerprint, recorded_at) VALUES (?, ?, ?, ?, ?, ?)",
			a.runID, userID, string(turn.Speaker), turn.Text, Fingerprint(userID, history[:i+1]), now,
		)
		if err != nil {
			return fmt.Errorf("failed to record turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transcript: %w", err)
	}

	a.logger.Info("transcript recorded", "user", userID, "turns", len(history))
	return nil
}

// TurnCount reports the number of recorded turns for one user.
func (a *Archive) TurnCount(userID string) (int, error) {
	var n int
	err := a.db.QueryRow("SELECT COUNT(*) FROM turns WHERE user_id = ?", userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}
