// Package repository provides SQL persistence for durable front-end storage.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/gophtodo/internal/client/storage"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	// Postgres uses $1-style placeholders.
	Postgres Dialect = iota
	// SQLite uses ?-style placeholders.
	SQLite
)

type queries struct {
	get    string
	upsert string
	remove string
	purge  string
}

var dialectQueries = map[Dialect]queries{
	Postgres: {
		get: `SELECT value FROM storage_entries WHERE namespace = $1 AND key = $2`,
		upsert: `INSERT INTO storage_entries (namespace, key, value, updated_at)
		         VALUES ($1, $2, $3, $4)
		         ON CONFLICT (namespace, key) DO UPDATE
		         SET value = excluded.value, updated_at = excluded.updated_at`,
		remove: `DELETE FROM storage_entries WHERE namespace = $1 AND key = $2`,
		purge:  `DELETE FROM storage_entries WHERE updated_at < $1`,
	},
	SQLite: {
		get: `SELECT value FROM storage_entries WHERE namespace = ? AND key = ?`,
		upsert: `INSERT INTO storage_entries (namespace, key, value, updated_at)
		         VALUES (?, ?, ?, ?)
		         ON CONFLICT (namespace, key) DO UPDATE
		         SET value = excluded.value, updated_at = excluded.updated_at`,
		remove: `DELETE FROM storage_entries WHERE namespace = ? AND key = ?`,
		purge:  `DELETE FROM storage_entries WHERE updated_at < ?`,
	},
}

var _ storage.Storage = (*SQLStorage)(nil)

// SQLStorage implements storage.Storage on a storage_entries table.
type SQLStorage struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
	q  queries
}

// NewSQLStorage creates a SQLStorage issuing queries in the given dialect.
func NewSQLStorage(db *sql.DB, d Dialect) *SQLStorage {
	return &SQLStorage{DB: db, q: dialectQueries[d]}
}

// Get returns the value stored under namespace/key.
func (s *SQLStorage) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, s.q.get, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s failed: %w", namespace, key, err)
	}
	return value, true, nil
}

// Set upserts the value and refreshes its timestamp.
func (s *SQLStorage) Set(ctx context.Context, namespace, key, value string) error {
	if _, err := s.DB.ExecContext(ctx, s.q.upsert, namespace, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("set %s/%s failed: %w", namespace, key, err)
	}
	return nil
}

// Remove deletes all keys in one transaction.
func (s *SQLStorage) Remove(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.q.remove)
	if err != nil {
		return fmt.Errorf("prepare remove: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, namespace, k); err != nil {
			return fmt.Errorf("remove %s/%s failed: %w", namespace, k, err)
		}
	}
	return tx.Commit()
}

// Purge deletes entries not updated since cutoff.
func (s *SQLStorage) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, s.q.purge, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge failed: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
