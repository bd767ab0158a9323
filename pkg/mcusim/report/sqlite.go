package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists reports to SQLite.
// It is suitable for single-process use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (or creates) a report database and applies the
// schema migrations. The path is a file path or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: ":memory:" databases are per connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	interrupts := r.Interrupts
	if interrupts == nil {
		interrupts = map[string]uint64{}
	}
	encoded, err := json.Marshal(interrupts)
	if err != nil {
		return fmt.Errorf("encode interrupts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (run_id, seq, kind, tick_count, interrupts, missed, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO UPDATE SET
			kind = excluded.kind,
			tick_count = excluded.tick_count,
			interrupts = excluded.interrupts,
			missed = excluded.missed,
			at = excluded.at
	`, r.RunID, int64(r.Seq), string(r.Kind), int64(r.TickCount), string(encoded),
		int64(r.Missed), r.At.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, runID string) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, tick_count, interrupts, missed, at
		FROM reports
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// Latest implements Store.
func (s *SQLiteStore) Latest(ctx context.Context, runID string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Report{}, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, seq, kind, tick_count, interrupts, missed, at
		FROM reports
		WHERE run_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, runID)

	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	return r, err
}

// Runs implements Store.
func (s *SQLiteStore) Runs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT run_id FROM reports ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		runs = append(runs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// DeleteRun implements Store.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run reports: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(sc scanner) (Report, error) {
	var (
		r          Report
		seq        int64
		kind       string
		ticks      int64
		interrupts string
		missed     int64
		at         string
	)
	if err := sc.Scan(&r.RunID, &seq, &kind, &ticks, &interrupts, &missed, &at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Report{}, err
		}
		return Report{}, fmt.Errorf("scan report: %w", err)
	}

	r.Seq = uint64(seq)
	r.Kind = Kind(kind)
	r.TickCount = uint64(ticks)
	r.Missed = uint64(missed)
	r.At, _ = time.Parse(time.RFC3339Nano, at)

	if err := json.Unmarshal([]byte(interrupts), &r.Interrupts); err != nil {
		return Report{}, fmt.Errorf("decode interrupts: %w", err)
	}
	if r.Interrupts == nil {
		r.Interrupts = map[string]uint64{}
	}
	return r, nil
}
