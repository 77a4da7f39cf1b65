package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdg312/stay-hub/internal/storage"
)

// PostgresStorage is the Postgres implementation of storage.Storage.
type PostgresStorage struct {
	pool        *pgxpool.Pool
	deviceState *PostgresDeviceStateStorage
	exports     *PostgresExportsStorage
}

func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStorage{
		pool:        pool,
		deviceState: NewPostgresDeviceStateStorage(pool),
		exports:     NewPostgresExportsStorage(pool),
	}, nil
}

func (p *PostgresStorage) GetDeviceStateStorage() storage.DeviceStateStorage {
	return p.deviceState
}

func (p *PostgresStorage) GetExportsStorage() storage.ExportsStorage {
	return p.exports
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}
