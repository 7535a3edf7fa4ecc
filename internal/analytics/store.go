// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ManuGH/imgflash/internal/persistence/sqlite"
)

// Kind separates plain events from reported exceptions.
type Kind string

const (
	KindEvent     Kind = "event"
	KindException Kind = "exception"
)

// Record is one persisted analytics entry.
type Record struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	Image     string    `json:"image,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analytics_events (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		ts     INTEGER NOT NULL,
		kind   TEXT NOT NULL,
		name   TEXT NOT NULL,
		code   TEXT NOT NULL DEFAULT '',
		image  TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analytics_events_ts ON analytics_events (ts)`,
}

// Store persists analytics records in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) the analytics database at path.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Insert appends a record.
func (s *Store) Insert(ctx context.Context, r Record) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analytics_events (ts, kind, name, code, image, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		r.Timestamp.UnixMilli(), string(r.Kind), r.Name, r.Code, r.Image, r.Detail)
	if err != nil {
		return fmt.Errorf("insert analytics record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, kind, name, code, image, detail FROM analytics_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query analytics records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			ts   int64
			kind string
		)
		if err := rows.Scan(&r.ID, &ts, &kind, &r.Name, &r.Code, &r.Image, &r.Detail); err != nil {
			return nil, fmt.Errorf("scan analytics record: %w", err)
		}
		r.Timestamp = time.UnixMilli(ts)
		r.Kind = Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Check verifies the database is readable and structurally sound.
func (s *Store) Check(ctx context.Context) error {
	problems, err := sqlite.QuickCheck(ctx, s.db)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return fmt.Errorf("analytics database corrupt: %v", problems)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
