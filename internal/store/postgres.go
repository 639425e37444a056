package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// DefaultTable is the key-value table used when none is configured
const DefaultTable = "client_kv"

// PostgresStore keeps client state in a single key-value table
type PostgresStore struct {
	db     *pgxpool.Pool
	table  string // quoted identifier
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore using table, creating it if missing
func NewPostgresStore(ctx context.Context, db *pgxpool.Pool, table string, logger *zap.Logger) (*PostgresStore, error) {
	if table == "" {
		table = DefaultTable
	}

	s := &PostgresStore{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		logger: logger,
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`, s.table)

	if _, err := db.Exec(ctx, query); err != nil {
		logger.Error("failed to create key-value table", zap.String("table", table), zap.Error(err))
		return nil, fmt.Errorf("failed to create key-value table: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table)

	var value string
	err := s.db.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		s.logger.Error("failed to read key", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to read key %s: %w", key, err)
	}

	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, s.table)

	if _, err := s.db.Exec(ctx, query, key, value); err != nil {
		s.logger.Error("failed to write key", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}

	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)

	if _, err := s.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}

	return nil
}

func (s *PostgresStore) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO NOTHING
	`, s.table)

	tag, err := s.db.Exec(ctx, query, key, value)
	if err != nil {
		return false, fmt.Errorf("failed to write key %s: %w", key, err)
	}

	return tag.RowsAffected() == 1, nil
}

var _ ConditionalStore = (*PostgresStore)(nil)
