// Package history persists classification outcomes for downstream analytics.
// Only fingerprints and verdict metadata are stored, never raw text.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one persisted classification outcome.
type Record struct {
	Fingerprint string
	AppID       string
	Productive  bool
	Confidence  float64
	Rationale   string
	LatencyMs   int
	CreatedAt   time.Time
}

type Store struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	s := &Store{readDB: readDB, writeDB: writeDB}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS verdicts (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			fingerprint TEXT NOT NULL,
			app_id      TEXT NOT NULL DEFAULT '',
			productive  INTEGER NOT NULL,
			confidence  REAL NOT NULL,
			rationale   TEXT NOT NULL,
			latency_ms  INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_verdicts_created ON verdicts(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_verdicts_app ON verdicts(app_id);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.writeDB != nil {
		errs = append(errs, s.writeDB.Close())
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// Append records one verdict.
func (s *Store) Append(r Record) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.writeDB.Exec(`
		INSERT INTO verdicts (fingerprint, app_id, productive, confidence, rationale, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.Fingerprint, r.AppID, r.Productive, r.Confidence, r.Rationale, r.LatencyMs, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending verdict %s: %w", r.Fingerprint, err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.readDB.Query(`
		SELECT fingerprint, app_id, productive, confidence, rationale, latency_ms, created_at
		FROM verdicts ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying verdicts: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Fingerprint, &r.AppID, &r.Productive, &r.Confidence, &r.Rationale, &r.LatencyMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning verdict: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune deletes records older than the retention period and returns how many
// were removed.
func (s *Store) Prune(retention time.Duration) (int64, error) {
	res, err := s.writeDB.Exec(`DELETE FROM verdicts WHERE created_at < ?`, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("pruning verdicts: %w", err)
	}
	return res.RowsAffected()
}

// Stats summarizes the stored history.
type Stats struct {
	Total        int64
	Unproductive int64
	AvgLatencyMs float64
	SizeBytes    int64
}

func (s *Store) Stats(dbPath string) (Stats, error) {
	var st Stats
	err := s.readDB.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN productive = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(latency_ms), 0)
		FROM verdicts
	`).Scan(&st.Total, &st.Unproductive, &st.AvgLatencyMs)
	if err != nil {
		return st, fmt.Errorf("reading stats: %w", err)
	}
	if info, err := os.Stat(dbPath); err == nil {
		st.SizeBytes = info.Size()
	}
	return st, nil
}
