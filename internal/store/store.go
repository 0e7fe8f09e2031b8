// Package store handles SQLite persistence of weekly timetable snapshots.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/jikanwari/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when no snapshot matches.
var ErrNotFound = errors.New("snapshot not found")

// Store wraps SQLite access for archived timetables.
type Store struct {
	db *sql.DB
}

// WeekInfo summarizes one archived snapshot.
type WeekInfo struct {
	Week       string
	Source     string
	ImportedAt time.Time
	Lessons    int
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY,
			week TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			imported_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS lessons (
			snapshot_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			class TEXT NOT NULL,
			weekday TEXT NOT NULL,
			period TEXT NOT NULL,
			subject TEXT NOT NULL,
			teacher TEXT NOT NULL,
			room TEXT NOT NULL,
			PRIMARY KEY (snapshot_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lessons_class ON lessons(snapshot_id, class);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot archives snap, replacing any earlier snapshot of the same week.
// Record order is preserved.
func (s *Store) SaveSnapshot(ctx context.Context, snap model.Snapshot, importedAt time.Time) (err error) {
	if snap.Week == "" {
		return fmt.Errorf("snapshot week is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM lessons WHERE snapshot_id IN (SELECT id FROM snapshots WHERE week = ?)`, snap.Week); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM snapshots WHERE week = ?`, snap.Week); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (week, source, imported_at) VALUES (?, ?, ?)`,
		snap.Week, snap.Source, importedAt.Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if len(snap.Records) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO lessons (snapshot_id, seq, class, weekday, period, subject, teacher, room)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, r := range snap.Records {
			if _, err = stmt.ExecContext(ctx, id, i, r.Class, r.Weekday, r.Period, r.Subject, r.Teacher, r.Room); err != nil {
				return err
			}
		}
	}

	err = tx.Commit()
	return err
}

// LoadSnapshot returns the snapshot for week, or the most recent week when
// week is empty.
func (s *Store) LoadSnapshot(ctx context.Context, week string) (model.Snapshot, error) {
	query := `SELECT id, week, source FROM snapshots WHERE week = ?`
	args := []any{week}
	if week == "" {
		query = `SELECT id, week, source FROM snapshots ORDER BY week DESC LIMIT 1`
		args = nil
	}
	var id int64
	var snap model.Snapshot
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id, &snap.Week, &snap.Source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Snapshot{}, ErrNotFound
		}
		return model.Snapshot{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT class, weekday, period, subject, teacher, room
		 FROM lessons WHERE snapshot_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return model.Snapshot{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	snap.Records = []model.RawRecord{}
	for rows.Next() {
		var r model.RawRecord
		if err := rows.Scan(&r.Class, &r.Weekday, &r.Period, &r.Subject, &r.Teacher, &r.Room); err != nil {
			return model.Snapshot{}, err
		}
		snap.Records = append(snap.Records, r)
	}
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// ListWeeks returns archived weeks, most recent first.
func (s *Store) ListWeeks(ctx context.Context) ([]WeekInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.week, s.source, s.imported_at, COUNT(l.seq)
		 FROM snapshots s
		 LEFT JOIN lessons l ON l.snapshot_id = s.id
		 GROUP BY s.id
		 ORDER BY s.week DESC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var weeks []WeekInfo
	for rows.Next() {
		var info WeekInfo
		var importedAt string
		if err := rows.Scan(&info.Week, &info.Source, &importedAt, &info.Lessons); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, importedAt)
		if err != nil {
			return nil, err
		}
		info.ImportedAt = parsed
		weeks = append(weeks, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return weeks, nil
}
