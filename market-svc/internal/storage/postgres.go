package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Schema is the single table backing PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key   TEXT PRIMARY KEY,
	value JSONB NOT NULL
)`

// PostgresStore is the KV contract on top of one JSONB table. Indices are JSONB
// arrays and counters are JSONB objects, each mutated by a single statement.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, Schema)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO kv_store (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	return err
}

func (s *PostgresStore) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO kv_store (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, key, value)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	return err
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE kv_store SET value = $3
		WHERE key = $1 AND value = $2::jsonb
	`, key, old, value)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 1 {
		return true, nil
	}

	if _, err := s.Get(ctx, key); err != nil {
		return false, err
	}
	return false, nil
}

func (s *PostgresStore) GetByPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT value FROM kv_store
		WHERE key LIKE $1 ESCAPE '\'
		ORDER BY key
	`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values [][]byte
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

const (
	addMemberSQL = `
		INSERT INTO kv_store (key, value) VALUES ($1, jsonb_build_array($2::text))
		ON CONFLICT (key) DO UPDATE
		SET value = kv_store.value || jsonb_build_array($2::text)
		WHERE NOT (kv_store.value ? $2::text)`

	incrFieldSQL = `
		INSERT INTO kv_store (key, value) VALUES ($1, jsonb_build_object($2::text, $3::bigint))
		ON CONFLICT (key) DO UPDATE
		SET value = jsonb_set(
			kv_store.value,
			ARRAY[$2::text],
			to_jsonb(COALESCE((kv_store.value->>$2::text)::bigint, 0) + $3::bigint)
		)
		RETURNING (value->>$2::text)::bigint`
)

func (s *PostgresStore) AddToIndex(ctx context.Context, key string, members ...string) (int64, error) {
	var added int64
	for _, member := range members {
		res, err := s.DB.ExecContext(ctx, addMemberSQL, key, member)
		if err != nil {
			return added, fmt.Errorf("add %s to %s: %w", member, key, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return added, err
		}
		added += rows
	}
	return added, nil
}

func (s *PostgresStore) RemoveFromIndex(ctx context.Context, key string, members ...string) error {
	for _, member := range members {
		if _, err := s.DB.ExecContext(ctx, `
			UPDATE kv_store SET value = value - $2::text
			WHERE key = $1
		`, key, member); err != nil {
			return fmt.Errorf("remove %s from %s: %w", member, key, err)
		}
	}
	return nil
}

func (s *PostgresStore) IndexMembers(ctx context.Context, key string) ([]string, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var members []string
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", key, err)
	}
	return members, nil
}

func (s *PostgresStore) IncrCounter(ctx context.Context, key, field string, delta int64) (int64, error) {
	var value int64
	err := s.DB.QueryRowContext(ctx, incrFieldSQL, key, field, delta).Scan(&value)
	return value, err
}

// IncrCounterOnce records the marker and increments the field in one
// transaction.
func (s *PostgresStore) IncrCounterOnce(ctx context.Context, markerKey, marker, key, field string, delta int64) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, addMemberSQL, markerKey, marker)
	if err != nil {
		return false, fmt.Errorf("add %s to %s: %w", marker, markerKey, err)
	}
	added, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if added == 0 {
		return false, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, incrFieldSQL, key, field, delta); err != nil {
		return false, fmt.Errorf("increment %s/%s: %w", key, field, err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) Counters(ctx context.Context, key string) (map[string]int64, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, err
	}

	counters := map[string]int64{}
	if err := json.Unmarshal(raw, &counters); err != nil {
		return nil, fmt.Errorf("decode counters %s: %w", key, err)
	}
	return counters, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
