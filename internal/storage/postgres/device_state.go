package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdg312/stay-hub/internal/storage"
)

type PostgresDeviceStateStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresDeviceStateStorage(pool *pgxpool.Pool) *PostgresDeviceStateStorage {
	return &PostgresDeviceStateStorage{pool: pool}
}

func (s *PostgresDeviceStateStorage) Get(ctx context.Context, deviceID, key string) ([]byte, error) {
	query := `
		SELECT value
		FROM device_state
		WHERE device_id = $1 AND key = $2
	`

	var value []byte
	err := s.pool.QueryRow(ctx, query, deviceID, key).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrKeyNotFound
	}

	if err != nil {
		return nil, err
	}

	return value, nil
}

func (s *PostgresDeviceStateStorage) Set(ctx context.Context, deviceID, key string, value []byte) error {
	query := `
		INSERT INTO device_state (device_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_id, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query, deviceID, key, value, time.Now().UTC())
	return err
}

func (s *PostgresDeviceStateStorage) Delete(ctx context.Context, deviceID, key string) error {
	query := `DELETE FROM device_state WHERE device_id = $1 AND key = $2`

	result, err := s.pool.Exec(ctx, query, deviceID, key)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return storage.ErrKeyNotFound
	}

	return nil
}

func (s *PostgresDeviceStateStorage) List(ctx context.Context, deviceID string) ([]storage.StateEntry, error) {
	query := `
		SELECT device_id, key, value, updated_at
		FROM device_state
		WHERE device_id = $1
		ORDER BY key ASC
	`

	rows, err := s.pool.Query(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []storage.StateEntry{}
	for rows.Next() {
		var entry storage.StateEntry
		err := rows.Scan(
			&entry.DeviceID,
			&entry.Key,
			&entry.Value,
			&entry.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
