// Package hirlog persists HIRRecords to SQLite. The table is append-only:
// one row per (cluster, window), inserted once and never updated, so the log
// doubles as an audit trail for every classification the engine ever made.
package hirlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/newslens/hypetrack/internal/domain/model"
	"github.com/newslens/hypetrack/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS hir_records (
	id             TEXT PRIMARY KEY,
	cluster_id     TEXT NOT NULL,
	entity         TEXT NOT NULL,
	window_start   INTEGER NOT NULL,
	window_end     INTEGER NOT NULL,
	coverage       REAL NOT NULL,
	impact         REAL,
	hir            REAL,
	hir_infinite   INTEGER NOT NULL DEFAULT 0,
	classification TEXT NOT NULL,
	evidence       TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	UNIQUE (cluster_id, window_start)
);
CREATE INDEX IF NOT EXISTS idx_hir_entity ON hir_records (entity, window_start);
CREATE INDEX IF NOT EXISTS idx_hir_cluster ON hir_records (cluster_id);
`

// Store is the SQLite-backed record log.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// Open opens (or creates) the log at path. Pass ":memory:" for an ephemeral
// in-process log.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{log: logger.Named("hirlog")}
	for _, opt := range opts {
		opt(s)
	}

	dsn := path
	if path == ":memory:" {
		// Shared cache keeps the pool's connections on one in-memory db.
		dsn = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open hir log: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("hir log pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("hir log schema: %w", err)
	}
	s.db = db
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts one record. Inserting a second record for the same
// (cluster, window) fails with ErrDuplicateRecord; records are facts and
// are never overwritten.
func (s *Store) Append(ctx context.Context, rec *model.HIRRecord) error {
	evidence, err := json.Marshal(rec.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	var impact any
	if rec.ImpactDefined {
		impact = rec.Impact
	}
	var hir any
	infinite := 0
	switch {
	case !rec.HIRDefined:
	case math.IsInf(rec.HIR, 1):
		infinite = 1
	default:
		hir = rec.HIR
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO hir_records
			(id, cluster_id, entity, window_start, window_end,
			 coverage, impact, hir, hir_infinite, classification, evidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ClusterID, rec.Entity,
		rec.Window.Start.UTC().Unix(), rec.Window.End.UTC().Unix(),
		rec.Coverage, impact, hir, infinite,
		string(rec.Classification), string(evidence),
		rec.CreatedAt.UTC().Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: cluster %s window %s", ErrDuplicateRecord, rec.ClusterID, rec.Window.Key())
		}
		return fmt.Errorf("append hir record: %w", err)
	}
	return nil
}

// Query selects records. Zero-valued filter fields are ignored.
type Query struct {
	Entity    string
	ClusterID string
	From      time.Time // inclusive lower bound on window start
	To        time.Time // exclusive upper bound on window start
	Limit     int
}

// Find returns records matching the query, newest window first.
func (s *Store) Find(ctx context.Context, q Query) ([]model.HIRRecord, error) {
	var (
		where []string
		args  []any
	)
	if q.Entity != "" {
		where = append(where, "entity = ?")
		args = append(args, q.Entity)
	}
	if q.ClusterID != "" {
		where = append(where, "cluster_id = ?")
		args = append(args, q.ClusterID)
	}
	if !q.From.IsZero() {
		where = append(where, "window_start >= ?")
		args = append(args, q.From.UTC().Unix())
	}
	if !q.To.IsZero() {
		where = append(where, "window_start < ?")
		args = append(args, q.To.UTC().Unix())
	}

	sqlText := `SELECT id, cluster_id, entity, window_start, window_end,
		coverage, impact, hir, hir_infinite, classification, evidence, created_at
		FROM hir_records`
	if len(where) > 0 {
		sqlText += " WHERE " + strings.Join(where, " AND ")
	}
	sqlText += " ORDER BY window_start DESC, created_at DESC"
	if q.Limit > 0 {
		sqlText += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query hir records: %w", err)
	}
	defer rows.Close()

	var out []model.HIRRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the total number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM hir_records").Scan(&n)
	return n, err
}

func scanRecord(rows *sql.Rows) (model.HIRRecord, error) {
	var (
		rec            model.HIRRecord
		windowStart    int64
		windowEnd      int64
		impact         sql.NullFloat64
		hir            sql.NullFloat64
		infinite       int
		classification string
		evidence       string
		createdAt      int64
	)
	err := rows.Scan(&rec.ID, &rec.ClusterID, &rec.Entity, &windowStart, &windowEnd,
		&rec.Coverage, &impact, &hir, &infinite, &classification, &evidence, &createdAt)
	if err != nil {
		return rec, fmt.Errorf("scan hir record: %w", err)
	}
	rec.Window = model.Window{
		Start: time.Unix(windowStart, 0).UTC(),
		End:   time.Unix(windowEnd, 0).UTC(),
	}
	if impact.Valid {
		rec.Impact = impact.Float64
		rec.ImpactDefined = true
	}
	switch {
	case infinite == 1:
		rec.HIR = math.Inf(1)
		rec.HIRDefined = true
	case hir.Valid:
		rec.HIR = hir.Float64
		rec.HIRDefined = true
	}
	rec.Classification = model.Classification(classification)
	if err := json.Unmarshal([]byte(evidence), &rec.Evidence); err != nil {
		return rec, fmt.Errorf("decode evidence for %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	return rec, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var raw interface{ Code() int }
	// modernc.org/sqlite errors expose the sqlite result code; 2067 is
	// SQLITE_CONSTRAINT_UNIQUE and 1555 SQLITE_CONSTRAINT_PRIMARYKEY.
	if errors.As(err, &raw) {
		switch raw.Code() {
		case 2067, 1555:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
