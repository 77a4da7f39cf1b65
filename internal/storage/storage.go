package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrKeyNotFound is returned when the requested device key has no stored value.
	ErrKeyNotFound = errors.New("storage: key not found")
	// ErrExportNotFound is returned when the requested export does not exist.
	ErrExportNotFound = errors.New("storage: export not found")
)

// Well-known device state keys. Clients may store arbitrary keys; these are
// the ones the server itself reads or writes.
const (
	KeyAccessToken       = "ACCESS_TOKEN"
	KeyThemeMode         = "APP_THEME_MODE"
	KeyResetEmail        = "reset_email"
	KeyRegistrationDraft = "ae-registration-form"
	KeyNationalities     = "cached_nationalities"
	KeyRoomTypes         = "cached_room_types"
	KeyLogoutInProgress  = "logout_in_progress"
)

// StateEntry is one persisted key-value pair for a device.
type StateEntry struct {
	DeviceID  string    `json:"device_id"`
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExportMeta describes a generated report export file.
type ExportMeta struct {
	ID              uuid.UUID `json:"id"`
	EstablishmentID int64     `json:"establishment_id"`
	Year            int       `json:"year"`
	Month           *int      `json:"month,omitempty"`
	Filename        string    `json:"filename"`
	SizeBytes       int64     `json:"size_bytes"`
	ObjectKey       *string   `json:"object_key,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Data            []byte    `json:"-"` // inline bytes in local blob mode
}

// DeviceStateStorage persists the per-device key-value state.
type DeviceStateStorage interface {
	Get(ctx context.Context, deviceID, key string) ([]byte, error)
	Set(ctx context.Context, deviceID, key string, value []byte) error
	Delete(ctx context.Context, deviceID, key string) error
	List(ctx context.Context, deviceID string) ([]StateEntry, error)
}

// ExportsStorage tracks generated report exports.
type ExportsStorage interface {
	CreateExport(ctx context.Context, meta *ExportMeta) error
	GetExport(ctx context.Context, id uuid.UUID) (*ExportMeta, error)
	ListExports(ctx context.Context, establishmentID int64, limit int) ([]ExportMeta, error)
	DeleteExport(ctx context.Context, id uuid.UUID) error
}

// Storage aggregates the persistence backends behind one handle.
type Storage interface {
	GetDeviceStateStorage() DeviceStateStorage
	GetExportsStorage() ExportsStorage
	Close() error
}
