// Package store persists completed practice records in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/osa030/stillpoint/internal/domain/practice"
)

//go:embed schema.sql
var schema string

// DefaultListLimit is the number of records List returns when limit is not positive.
const DefaultListLimit = 20

// Store is a SQLite-backed practice log. It implements completion.Sink.
type Store struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens the practice log at path, creating it if needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite db")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping sqlite db")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to apply schema")
	}
	zlog.Debug().Msgf("store: opened: path=%s", path)
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OnComplete appends rec to the log. A record for an already logged
// session is ignored.
func (s *Store) OnComplete(ctx context.Context, rec practice.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.SessionID == "" {
		return errors.New("session id is required")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO practice_log (session_id, timeline_id, total_elapsed_ms, completed_at)
		 VALUES (?, ?, ?, ?)`,
		rec.SessionID,
		rec.TimelineID,
		rec.TotalElapsed.Milliseconds(),
		toMillis(rec.CompletedAt),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to insert record for session %s", rec.SessionID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		zlog.Warn().Msgf("store: duplicate record ignored: session=%s", rec.SessionID)
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]practice.Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, timeline_id, total_elapsed_ms, completed_at
		 FROM practice_log
		 ORDER BY completed_at DESC, session_id
		 LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query records")
	}
	defer rows.Close()

	var records []practice.Record
	for rows.Next() {
		var (
			rec         practice.Record
			elapsedMs   int64
			completedAt int64
		)
		if err := rows.Scan(&rec.SessionID, &rec.TimelineID, &elapsedMs, &completedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan record")
		}
		rec.TotalElapsed = time.Duration(elapsedMs) * time.Millisecond
		rec.CompletedAt = fromMillis(completedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate records")
	}
	return records, nil
}

// Count returns the number of logged records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM practice_log`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count records")
	}
	return n, nil
}

// TotalElapsed returns the summed practice time, optionally for one timeline.
func (s *Store) TotalElapsed(ctx context.Context, timelineID string) (time.Duration, error) {
	var ms sql.NullInt64
	query := `SELECT SUM(total_elapsed_ms) FROM practice_log`
	args := []any{}
	if timelineID != "" {
		query += ` WHERE timeline_id = ?`
		args = append(args, timelineID)
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&ms); err != nil {
		return 0, errors.Wrap(err, "failed to sum practice time")
	}
	return time.Duration(ms.Int64) * time.Millisecond, nil
}
