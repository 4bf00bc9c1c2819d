// Package sqlite stores the script library in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AaronLay10/StoryLoom/internal/storage"
)

// Store is a ScriptStore backed by SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.ScriptStore = (*Store)(nil)

// Open opens path, creating the file and schema if needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{sqlDB: sqlDB}
	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS scripts (
		name       TEXT PRIMARY KEY,
		source     TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create scripts table: %w", err)
	}
	return s, nil
}

func (s *Store) Get(ctx context.Context, name string) (storage.Script, error) {
	var sc storage.Script
	var updated int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT name, source, updated_at FROM scripts WHERE name = ?`, name,
	).Scan(&sc.Name, &sc.Source, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Script{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Script{}, fmt.Errorf("get script: %w", err)
	}
	sc.UpdatedAt = unixMillisToTime(updated)
	return sc, nil
}

func (s *Store) Put(ctx context.Context, sc storage.Script) error {
	if err := storage.ValidateName(sc.Name); err != nil {
		return err
	}
	if sc.UpdatedAt.IsZero() {
		sc.UpdatedAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO scripts (name, source, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET source = excluded.source, updated_at = excluded.updated_at`,
		sc.Name, sc.Source, sc.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put script: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]storage.Script, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name, updated_at FROM scripts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	defer rows.Close()

	out := []storage.Script{}
	for rows.Next() {
		var sc storage.Script
		var updated int64
		if err := rows.Scan(&sc.Name, &updated); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		sc.UpdatedAt = unixMillisToTime(updated)
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM scripts WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete script: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func unixMillisToTime(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}
