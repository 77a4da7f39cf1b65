package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/stay-hub/internal/blob"
	"github.com/fdg312/stay-hub/internal/storage"
)

var (
	ErrExportNotFound = errors.New("export not found")
	ErrInvalidPeriod  = errors.New("invalid export period")
)

// ExportService generates PDF exports of report pages and stores them via
// the blob store (S3 mode) or inline in the metadata record (local mode).
type ExportService struct {
	service    *Service
	generator  *Generator
	exports    storage.ExportsStorage
	blobStore  blob.Store
	presignTTL int
	localMode  bool
	maxMonths  int
}

func NewExportService(service *Service, exports storage.ExportsStorage, blobStore blob.Store, presignTTL, maxMonths int) *ExportService {
	return &ExportService{
		service:    service,
		generator:  NewGenerator(),
		exports:    exports,
		blobStore:  blobStore,
		presignTTL: presignTTL,
		localMode:  blobStore == nil,
		maxMonths:  maxMonths,
	}
}

// CreateExport fetches the full record set for the requested period,
// renders it to PDF, and persists the result.
func (s *ExportService) CreateExport(ctx context.Context, req ExportRequest) (*Export, error) {
	if req.EstablishmentID <= 0 || req.Year < 2000 || req.Year > 2100 {
		return nil, ErrInvalidPeriod
	}
	if req.Month != nil && (*req.Month < 1 || *req.Month > 12) {
		return nil, ErrInvalidPeriod
	}

	counts, err := s.service.FetchAggregateCounts(ctx, req.EstablishmentID, req.Year)
	if err != nil {
		return nil, err
	}

	page, err := s.service.FetchPage(ctx, ReportQuery{
		EstablishmentID: req.EstablishmentID,
		Year:            req.Year,
		Month:           req.Month,
		Page:            1,
		PageSize:        pageSizeForMonths(s.maxMonths),
	})
	if err != nil {
		return nil, err
	}

	data, err := s.generator.GeneratePDF(req, page.Records, counts)
	if err != nil {
		return nil, err
	}

	meta := &storage.ExportMeta{
		ID:              uuid.New(),
		EstablishmentID: req.EstablishmentID,
		Year:            req.Year,
		Month:           req.Month,
		Filename:        exportFilename(req),
		SizeBytes:       int64(len(data)),
		CreatedAt:       time.Now().UTC(),
	}

	if s.localMode {
		meta.Data = data
	} else {
		objectKey := fmt.Sprintf("exports/%d/%s_%s.pdf", req.EstablishmentID, periodKey(req), meta.ID)
		if _, err := s.blobStore.PutObject(ctx, objectKey, data, "application/pdf"); err != nil {
			return nil, fmt.Errorf("upload export: %w", err)
		}
		meta.ObjectKey = &objectKey
	}

	if err := s.exports.CreateExport(ctx, meta); err != nil {
		return nil, fmt.Errorf("save export metadata: %w", err)
	}

	return s.toExport(meta), nil
}

// GetExport returns the export metadata.
func (s *ExportService) GetExport(ctx context.Context, id uuid.UUID) (*Export, error) {
	meta, err := s.exports.GetExport(ctx, id)
	if err != nil {
		return nil, ErrExportNotFound
	}
	return s.toExport(meta), nil
}

// ListExports returns the establishment's exports, newest first.
func (s *ExportService) ListExports(ctx context.Context, establishmentID int64, limit int) ([]Export, error) {
	metas, err := s.exports.ListExports(ctx, establishmentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}

	out := make([]Export, len(metas))
	for i := range metas {
		out[i] = *s.toExport(&metas[i])
	}
	return out, nil
}

// DeleteExport removes the export and its stored object.
func (s *ExportService) DeleteExport(ctx context.Context, id uuid.UUID) error {
	meta, err := s.exports.GetExport(ctx, id)
	if err != nil {
		return ErrExportNotFound
	}

	if !s.localMode && meta.ObjectKey != nil {
		// Metadata removal matters more than the orphaned object.
		_ = s.blobStore.DeleteObject(ctx, *meta.ObjectKey)
	}

	if err := s.exports.DeleteExport(ctx, id); err != nil {
		return fmt.Errorf("delete export metadata: %w", err)
	}
	return nil
}

// DownloadURL resolves where the client should fetch the bytes: a direct
// endpoint in local mode, a presigned S3 URL otherwise.
func (s *ExportService) DownloadURL(ctx context.Context, id uuid.UUID, baseURL string) (string, error) {
	meta, err := s.exports.GetExport(ctx, id)
	if err != nil {
		return "", ErrExportNotFound
	}

	if s.localMode {
		return fmt.Sprintf("%s/v1/reports/export/%s/download", strings.TrimSuffix(baseURL, "/"), id), nil
	}

	if meta.ObjectKey == nil {
		return "", fmt.Errorf("export %s has no object key", id)
	}
	url, err := s.blobStore.PresignGet(ctx, *meta.ObjectKey, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("presign export: %w", err)
	}
	return url, nil
}

// Data returns the raw PDF bytes for local-mode downloads. In S3 mode the
// handler redirects to the presigned URL instead.
func (s *ExportService) Data(ctx context.Context, id uuid.UUID) ([]byte, error) {
	meta, err := s.exports.GetExport(ctx, id)
	if err != nil {
		return nil, ErrExportNotFound
	}
	if !s.localMode {
		return nil, fmt.Errorf("export data is served via presigned URL")
	}
	return meta.Data, nil
}

// LocalMode reports whether exports are stored in-process.
func (s *ExportService) LocalMode() bool { return s.localMode }

func (s *ExportService) toExport(meta *storage.ExportMeta) *Export {
	return &Export{
		ID:              meta.ID,
		EstablishmentID: meta.EstablishmentID,
		Year:            meta.Year,
		Month:           meta.Month,
		Filename:        meta.Filename,
		SizeBytes:       meta.SizeBytes,
		CreatedAt:       meta.CreatedAt.Format(time.RFC3339),
	}
}

func exportFilename(req ExportRequest) string {
	return fmt.Sprintf("report_%d_%s.pdf", req.EstablishmentID, periodKey(req))
}

func periodKey(req ExportRequest) string {
	if req.Month != nil {
		return fmt.Sprintf("%04d-%02d", req.Year, *req.Month)
	}
	return fmt.Sprintf("%04d", req.Year)
}

// pageSizeForMonths caps the export at roughly maxMonths of daily periods.
func pageSizeForMonths(maxMonths int) int {
	if maxMonths <= 0 {
		maxMonths = 12
	}
	return maxMonths * 31
}
