package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fdg312/stay-hub/internal/storage"
)

type ExportsStorage struct {
	mu      sync.RWMutex
	exports map[uuid.UUID]storage.ExportMeta
}

func NewExportsStorage() *ExportsStorage {
	return &ExportsStorage{exports: make(map[uuid.UUID]storage.ExportMeta)}
}

func (s *ExportsStorage) CreateExport(_ context.Context, meta *storage.ExportMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exports[meta.ID] = *meta
	return nil
}

func (s *ExportsStorage) GetExport(_ context.Context, id uuid.UUID) (*storage.ExportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.exports[id]
	if !ok {
		return nil, storage.ErrExportNotFound
	}
	out := meta
	return &out, nil
}

func (s *ExportsStorage) ListExports(_ context.Context, establishmentID int64, limit int) ([]storage.ExportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.ExportMeta, 0)
	for _, meta := range s.exports {
		if meta.EstablishmentID == establishmentID {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ExportsStorage) DeleteExport(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.exports[id]; !ok {
		return storage.ErrExportNotFound
	}
	delete(s.exports, id)
	return nil
}
