// Package store is the persistent account/keyword store shared by both
// workers. Workers only read from it; rows are maintained out of band
// (seeding scripts, manual SQL). Each worker opens its own handle.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Relations for tracked accounts. The stream worker follows one relation
// per run, chosen by its configured identity.
const (
	RelationPrimary = "primary"
	RelationAdmin   = "admin"
)

type Store struct {
	conn *sql.DB
}

func Open(dbPath string) (*Store, error) {
	slog.Info("opening account store", "path", dbPath)

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", dbPath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &Store{conn: conn}, nil
}

func runMigrations(conn *sql.DB) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetBaseFS(migrations)
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Accounts returns the tracked account identifiers for a relation, in
// insertion order.
func (s *Store) Accounts(ctx context.Context, relation string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT did FROM accounts WHERE relation = ? ORDER BY rowid`, relation)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var did string
		if err := rows.Scan(&did); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, did)
	}
	return accounts, rows.Err()
}

// NextKeyword returns the least recently used keyword and stamps it, so
// repeated calls rotate through the whole set.
func (s *Store) NextKeyword(ctx context.Context) (string, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	var word string
	err = tx.QueryRowContext(ctx,
		`SELECT id, word FROM keywords
		 ORDER BY last_used_at IS NOT NULL, last_used_at, id
		 LIMIT 1`).Scan(&id, &word)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("keyword store is empty")
	}
	if err != nil {
		return "", fmt.Errorf("failed to pick keyword: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE keywords SET last_used_at = CURRENT_TIMESTAMP WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("failed to stamp keyword: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return word, nil
}

// AddAccount and AddKeyword exist for seeding; the workers never write.

func (s *Store) AddAccount(ctx context.Context, did, relation string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO accounts (did, relation) VALUES (?, ?)
		 ON CONFLICT(did) DO UPDATE SET relation = excluded.relation`, did, relation)
	if err != nil {
		return fmt.Errorf("failed to add account: %w", err)
	}
	return nil
}

func (s *Store) AddKeyword(ctx context.Context, word string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO keywords (word) VALUES (?) ON CONFLICT(word) DO NOTHING`, word)
	if err != nil {
		return fmt.Errorf("failed to add keyword: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}
