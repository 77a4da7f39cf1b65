package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fdg312/stay-hub/internal/storage"
	"github.com/fdg312/stay-hub/internal/upstream"
)

// Client is the upstream reference-data dependency.
type Client interface {
	GetNationalities(ctx context.Context) ([]upstream.Nationality, error)
	GetRoomTypes(ctx context.Context) ([]upstream.RoomType, error)
}

// cached wraps a reference list with its fetch time for TTL checks.
type cached[T any] struct {
	Items     []T       `json:"items"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Service is a per-device read-through cache for slow-changing reference
// lists. Reads hit the stored copy first; refreshes overwrite it wholesale,
// never merge. A stale copy still serves when the network fails.
type Service struct {
	client Client
	states storage.DeviceStateStorage
	ttl    time.Duration
}

func NewService(client Client, states storage.DeviceStateStorage, ttl time.Duration) *Service {
	return &Service{client: client, states: states, ttl: ttl}
}

// Nationalities returns the nationality reference list for the device.
func (s *Service) Nationalities(ctx context.Context, deviceID string) ([]upstream.Nationality, error) {
	return readThrough(ctx, s, deviceID, storage.KeyNationalities, s.client.GetNationalities)
}

// RoomTypes returns the room type reference list for the device.
func (s *Service) RoomTypes(ctx context.Context, deviceID string) ([]upstream.RoomType, error) {
	return readThrough(ctx, s, deviceID, storage.KeyRoomTypes, s.client.GetRoomTypes)
}

func readThrough[T any](ctx context.Context, s *Service, deviceID, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	var entry cached[T]
	haveCache := false

	if raw, err := s.states.Get(ctx, deviceID, key); err == nil {
		if err := json.Unmarshal(raw, &entry); err == nil {
			haveCache = true
		}
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("read %s cache: %w", key, err)
	}

	if haveCache && time.Since(entry.FetchedAt) < s.ttl {
		return entry.Items, nil
	}

	items, err := fetch(ctx)
	if err != nil {
		if haveCache {
			// Stale beats unavailable for reference data.
			log.Printf("refdata: refresh %s failed, serving cached copy: %v", key, err)
			return entry.Items, nil
		}
		return nil, err
	}

	fresh := cached[T]{Items: items, FetchedAt: time.Now().UTC()}
	if raw, err := json.Marshal(fresh); err == nil {
		if err := s.states.Set(ctx, deviceID, key, raw); err != nil {
			log.Printf("refdata: persist %s failed: %v", key, err)
		}
	}
	return items, nil
}
