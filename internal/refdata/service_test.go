package refdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fdg312/stay-hub/internal/storage/memory"
	"github.com/fdg312/stay-hub/internal/upstream"
)

type mockClient struct {
	nationalityCalls int
	roomTypeCalls    int
	fail             bool
}

func (m *mockClient) GetNationalities(context.Context) ([]upstream.Nationality, error) {
	m.nationalityCalls++
	if m.fail {
		return nil, errors.New("network down")
	}
	return []upstream.Nationality{{ID: 1, Name: "Japanese"}, {ID: 2, Name: "Korean"}}, nil
}

func (m *mockClient) GetRoomTypes(context.Context) ([]upstream.RoomType, error) {
	m.roomTypeCalls++
	if m.fail {
		return nil, errors.New("network down")
	}
	return []upstream.RoomType{{ID: 1, Name: "Standard", Count: 10}}, nil
}

func TestNationalities_CachesAfterFirstFetch(t *testing.T) {
	client := &mockClient{}
	svc := NewService(client, memory.NewDeviceStateStorage(), time.Hour)

	ctx := context.Background()
	first, err := svc.Nationalities(ctx, "dev1")
	if err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 nationalities, got %d", len(first))
	}

	// Second read inside the TTL must come from the cache.
	if _, err := svc.Nationalities(ctx, "dev1"); err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if client.nationalityCalls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", client.nationalityCalls)
	}
}

func TestNationalities_StaleCacheServedOnFailure(t *testing.T) {
	client := &mockClient{}
	states := memory.NewDeviceStateStorage()
	svc := NewService(client, states, time.Nanosecond) // everything is stale

	ctx := context.Background()
	if _, err := svc.Nationalities(ctx, "dev1"); err != nil {
		t.Fatalf("seed fetch failed: %v", err)
	}

	client.fail = true
	items, err := svc.Nationalities(ctx, "dev1")
	if err != nil {
		t.Fatalf("stale cache must serve when refresh fails: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected cached items, got %d", len(items))
	}
}

func TestNationalities_NoCacheAndFailure(t *testing.T) {
	client := &mockClient{fail: true}
	svc := NewService(client, memory.NewDeviceStateStorage(), time.Hour)

	if _, err := svc.Nationalities(context.Background(), "dev1"); err == nil {
		t.Fatal("expected error with no cache and failing network")
	}
}

func TestRoomTypes_OverwrittenWholesale(t *testing.T) {
	client := &mockClient{}
	states := memory.NewDeviceStateStorage()
	svc := NewService(client, states, time.Nanosecond)

	ctx := context.Background()
	if _, err := svc.RoomTypes(ctx, "dev1"); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	items, err := svc.RoomTypes(ctx, "dev1")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if client.roomTypeCalls != 2 {
		t.Fatalf("expected refresh past TTL, got %d calls", client.roomTypeCalls)
	}
	if len(items) != 1 {
		t.Fatalf("refresh must replace, not merge: got %d items", len(items))
	}
}

func TestCacheIsPerDevice(t *testing.T) {
	client := &mockClient{}
	svc := NewService(client, memory.NewDeviceStateStorage(), time.Hour)

	ctx := context.Background()
	if _, err := svc.Nationalities(ctx, "dev1"); err != nil {
		t.Fatalf("dev1 fetch failed: %v", err)
	}
	if _, err := svc.Nationalities(ctx, "dev2"); err != nil {
		t.Fatalf("dev2 fetch failed: %v", err)
	}
	if client.nationalityCalls != 2 {
		t.Fatalf("each device fills its own cache, expected 2 calls, got %d", client.nationalityCalls)
	}
}
