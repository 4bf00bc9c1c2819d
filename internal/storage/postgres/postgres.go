// Package postgres stores the script library in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/AaronLay10/StoryLoom/internal/storage"
)

// Store is a ScriptStore backed by a scripts table.
type Store struct {
	db *sql.DB
}

var _ storage.ScriptStore = (*Store)(nil)

// Open connects using dsn and creates the table if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create scripts table: %w", err)
	}
	return s, nil
}

func (s *Store) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS scripts (
			name       TEXT PRIMARY KEY,
			source     TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *Store) Get(ctx context.Context, name string) (storage.Script, error) {
	var sc storage.Script
	err := s.db.QueryRowContext(ctx,
		`SELECT name, source, updated_at FROM scripts WHERE name = $1`, name,
	).Scan(&sc.Name, &sc.Source, &sc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Script{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Script{}, err
	}
	return sc, nil
}

// Put inserts or replaces a script.
func (s *Store) Put(ctx context.Context, sc storage.Script) error {
	if err := storage.ValidateName(sc.Name); err != nil {
		return err
	}
	if sc.UpdatedAt.IsZero() {
		sc.UpdatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO scripts (name, source, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET source = EXCLUDED.source, updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, sc.Name, sc.Source, sc.UpdatedAt)
	return err
}

func (s *Store) List(ctx context.Context) ([]storage.Script, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, updated_at FROM scripts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []storage.Script{}
	for rows.Next() {
		var sc storage.Script
		if err := rows.Scan(&sc.Name, &sc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scripts WHERE name = $1`, name)
	if err != nil {
		return err
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

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
