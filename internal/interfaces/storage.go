package interfaces

import (
	"context"
	"time"

	"github.com/liuyingduo/stock-news/internal/models"
)

// ListEventsOptions narrows and pages an event listing. Zero values mean
// "no filter".
type ListEventsOptions struct {
	Category  models.EventCategory
	EventType models.EventType
	Search    string
	StartDate time.Time
	EndDate   time.Time
	Skip      int
	Limit     int
}

// EventStorage - interface for normalized event persistence
type EventStorage interface {
	// SaveEvent upserts by event ID, stamping CreatedAt on first write.
	SaveEvent(ctx context.Context, event *models.Event) error

	// GetEventByID returns ErrEventNotFound when missing.
	GetEventByID(ctx context.Context, id string) (*models.Event, error)

	// GetEventByTitleDate is the dedup-gate lookup: exact title, announcement
	// date truncated to the day, and the stock code when non-empty.
	GetEventByTitleDate(ctx context.Context, title string, date time.Time, stockCode string) (*models.Event, error)

	// ListEvents returns events sorted by announcement date descending,
	// plus the total count matching the filter.
	ListEvents(ctx context.Context, opts ListEventsOptions) ([]*models.Event, int, error)

	// ListPendingAnalysis returns events with no analysis yet, newest first.
	// A non-zero cutoff restricts to events announced after it.
	ListPendingAnalysis(ctx context.Context, cutoff time.Time, limit int) ([]*models.Event, error)

	CountEvents(ctx context.Context) (int, error)
}

// EntityStorage - interface for sector/stock reference entities, upserted by code
type EntityStorage interface {
	UpsertSector(ctx context.Context, name, code string) error
	UpsertStock(ctx context.Context, name, code string) error
	ListSectors(ctx context.Context) ([]*models.Sector, error)
	ListStocks(ctx context.Context) ([]*models.Stock, error)
}

// KeyValueStorage holds small operational state (monitor cursors, processed-ID
// sets). Keys are case-insensitive.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	EventStorage() EventStorage
	EntityStorage() EntityStorage
	KVStorage() KeyValueStorage
	Close() error
}
