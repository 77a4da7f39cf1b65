package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/stay-hub/internal/storage"
)

type DeviceStateStorage struct {
	mu      sync.RWMutex
	entries map[string]map[string]storage.StateEntry // deviceID -> key -> entry
}

func NewDeviceStateStorage() *DeviceStateStorage {
	return &DeviceStateStorage{entries: make(map[string]map[string]storage.StateEntry)}
}

func (s *DeviceStateStorage) Get(_ context.Context, deviceID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[deviceID][key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	out := make([]byte, len(entry.Value))
	copy(out, entry.Value)
	return out, nil
}

func (s *DeviceStateStorage) Set(_ context.Context, deviceID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries[deviceID] == nil {
		s.entries[deviceID] = make(map[string]storage.StateEntry)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries[deviceID][key] = storage.StateEntry{
		DeviceID:  deviceID,
		Key:       key,
		Value:     stored,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *DeviceStateStorage) Delete(_ context.Context, deviceID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[deviceID][key]; !ok {
		return storage.ErrKeyNotFound
	}
	delete(s.entries[deviceID], key)
	return nil
}

func (s *DeviceStateStorage) List(_ context.Context, deviceID string) ([]storage.StateEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.StateEntry, 0, len(s.entries[deviceID]))
	for _, entry := range s.entries[deviceID] {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
