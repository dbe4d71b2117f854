package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	trip_id       TEXT NOT NULL,
	captured_at   TEXT NOT NULL,
	snapshot_hash TEXT NOT NULL,
	chain_hash    TEXT NOT NULL,
	payload       BLOB NOT NULL,
	PRIMARY KEY (trip_id, captured_at)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_trip ON snapshots(trip_id, captured_at);
`

// SQLiteStore persists snapshots in a SQLite database. The primary key on
// (trip_id, captured_at) enforces write-once identities at the storage
// layer, and the previous-hash check runs inside the insert transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite database path is required")
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize snapshot schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts a snapshot after verifying its previous hash against the
// trip's latest chain link, all within one transaction.
func (s *SQLiteStore) Append(snap *Snapshot) (string, error) {
	serialized, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("serialize snapshot: %w", err)
	}
	if len(serialized) > MaxSnapshotBytes {
		return "", ErrSnapshotTooLarge
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	var latest string
	err = tx.QueryRow(
		`SELECT chain_hash FROM snapshots WHERE trip_id = ? ORDER BY captured_at DESC LIMIT 1`,
		snap.TripID,
	).Scan(&latest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("read latest chain link: %w", err)
	}
	if snap.PreviousHash != latest {
		return "", ErrChainConflict
	}

	// Fixed-width layout so lexicographic ORDER BY matches time order.
	capturedAt := snap.Timestamp.UTC().Format(timestampLayout)
	_, err = tx.Exec(
		`INSERT INTO snapshots (trip_id, captured_at, snapshot_hash, chain_hash, payload) VALUES (?, ?, ?, ?, ?)`,
		snap.TripID, capturedAt, snap.SnapshotHash, snap.ChainHash, serialized,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return "", fmt.Errorf("%w: %s at %s", ErrSnapshotExists, snap.TripID, capturedAt)
		}
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit snapshot: %w", err)
	}
	return fmt.Sprintf("%s/%s", snap.TripID, capturedAt), nil
}

// LastChainHash returns the latest chain hash for the trip, or empty.
func (s *SQLiteStore) LastChainHash(tripID string) (string, error) {
	var latest string
	err := s.db.QueryRow(
		`SELECT chain_hash FROM snapshots WHERE trip_id = ? ORDER BY captured_at DESC LIMIT 1`,
		tripID,
	).Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read latest chain link: %w", err)
	}
	return latest, nil
}

// LoadTripSnapshots returns the trip's snapshots in capture order.
func (s *SQLiteStore) LoadTripSnapshots(tripID string) ([]*Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT payload FROM snapshots WHERE trip_id = ? ORDER BY captured_at ASC`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		var serialized []byte
		if err := rows.Scan(&serialized); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		var snap Snapshot
		if err := json.Unmarshal(serialized, &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot payload: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}
