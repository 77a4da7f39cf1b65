package memory

import (
	"github.com/fdg312/stay-hub/internal/storage"
)

// MemoryStorage keeps all data in process memory. Used in tests and when
// DATABASE_URL is not configured.
type MemoryStorage struct {
	deviceState *DeviceStateStorage
	exports     *ExportsStorage
}

func New() *MemoryStorage {
	return &MemoryStorage{
		deviceState: NewDeviceStateStorage(),
		exports:     NewExportsStorage(),
	}
}

func (s *MemoryStorage) GetDeviceStateStorage() storage.DeviceStateStorage {
	return s.deviceState
}

func (s *MemoryStorage) GetExportsStorage() storage.ExportsStorage {
	return s.exports
}

func (s *MemoryStorage) Close() error { return nil }
