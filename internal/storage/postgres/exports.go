package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdg312/stay-hub/internal/storage"
)

type PostgresExportsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresExportsStorage(pool *pgxpool.Pool) *PostgresExportsStorage {
	return &PostgresExportsStorage{pool: pool}
}

func (s *PostgresExportsStorage) CreateExport(ctx context.Context, meta *storage.ExportMeta) error {
	if meta.ID == uuid.Nil {
		meta.ID = uuid.New()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO report_exports (id, establishment_id, year, month, filename, size_bytes, object_key, created_at, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		meta.ID,
		meta.EstablishmentID,
		meta.Year,
		meta.Month,
		meta.Filename,
		meta.SizeBytes,
		meta.ObjectKey,
		meta.CreatedAt,
		meta.Data,
	)

	return err
}

func (s *PostgresExportsStorage) GetExport(ctx context.Context, id uuid.UUID) (*storage.ExportMeta, error) {
	query := `
		SELECT id, establishment_id, year, month, filename, size_bytes, object_key, created_at, data
		FROM report_exports
		WHERE id = $1
	`

	var meta storage.ExportMeta
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&meta.ID,
		&meta.EstablishmentID,
		&meta.Year,
		&meta.Month,
		&meta.Filename,
		&meta.SizeBytes,
		&meta.ObjectKey,
		&meta.CreatedAt,
		&meta.Data,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrExportNotFound
	}

	if err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *PostgresExportsStorage) ListExports(ctx context.Context, establishmentID int64, limit int) ([]storage.ExportMeta, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, establishment_id, year, month, filename, size_bytes, object_key, created_at
		FROM report_exports
		WHERE establishment_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, establishmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exports := []storage.ExportMeta{}
	for rows.Next() {
		var meta storage.ExportMeta
		err := rows.Scan(
			&meta.ID,
			&meta.EstablishmentID,
			&meta.Year,
			&meta.Month,
			&meta.Filename,
			&meta.SizeBytes,
			&meta.ObjectKey,
			&meta.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		exports = append(exports, meta)
	}

	return exports, rows.Err()
}

func (s *PostgresExportsStorage) DeleteExport(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM report_exports WHERE id = $1`

	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return storage.ErrExportNotFound
	}

	return nil
}
