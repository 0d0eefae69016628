package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/liuyingduo/stock-news/internal/interfaces"
	"github.com/liuyingduo/stock-news/internal/models"
)

// EventStorage implements the EventStorage interface for Badger
type EventStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEventStorage creates a new EventStorage instance
func NewEventStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EventStorage {
	return &EventStorage{
		db:     db,
		logger: logger,
	}
}

// SaveEvent upserts by event ID. CreatedAt is stamped on first write and
// preserved on updates.
func (s *EventStorage) SaveEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		return fmt.Errorf("event ID is required")
	}

	now := time.Now()
	var existing models.Event
	err := s.db.Store().Get(event.ID, &existing)
	switch {
	case err == nil:
		event.CreatedAt = existing.CreatedAt
	case errors.Is(err, badgerhold.ErrNotFound):
		if event.CreatedAt.IsZero() {
			event.CreatedAt = now
		}
	default:
		return fmt.Errorf("failed to check event existence: %w", err)
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = now
	}

	if err := s.db.Store().Upsert(event.ID, event); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// GetEventByID returns ErrEventNotFound when missing
func (s *EventStorage) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := s.db.Store().Get(id, &event)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

// GetEventByTitleDate is the dedup gate: exact title, announcement date
// truncated to the calendar day, and the stock code when non-empty.
func (s *EventStorage) GetEventByTitleDate(ctx context.Context, title string, date time.Time, stockCode string) (*models.Event, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	query := badgerhold.Where("Title").Eq(title).Index("Title").
		And("AnnouncementDate").Ge(dayStart).
		And("AnnouncementDate").Lt(dayEnd)
	if stockCode != "" {
		query = query.And("StockCode").Eq(stockCode)
	}

	var event models.Event
	err := s.db.Store().FindOne(&event, query)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query event by title/date: %w", err)
	}
	return &event, nil
}

// ListEvents returns events sorted by announcement date descending plus the
// total count matching the filter. Category uses the index; type, search, and
// date bounds are applied in memory.
func (s *EventStorage) ListEvents(ctx context.Context, opts interfaces.ListEventsOptions) ([]*models.Event, int, error) {
	var query *badgerhold.Query
	if opts.Category != "" {
		query = badgerhold.Where("Category").Eq(opts.Category).Index("Category")
	}

	var all []models.Event
	if err := s.db.Store().Find(&all, query); err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}

	filtered := make([]*models.Event, 0, len(all))
	searchLower := strings.ToLower(opts.Search)
	for i := range all {
		event := &all[i]
		if opts.EventType != "" && !hasType(event, opts.EventType) {
			continue
		}
		if !opts.StartDate.IsZero() && event.AnnouncementDate.Before(opts.StartDate) {
			continue
		}
		if !opts.EndDate.IsZero() && event.AnnouncementDate.After(opts.EndDate) {
			continue
		}
		if searchLower != "" && !strings.Contains(strings.ToLower(event.Title), searchLower) {
			continue
		}
		filtered = append(filtered, event)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].AnnouncementDate.After(filtered[j].AnnouncementDate)
	})

	total := len(filtered)
	if opts.Skip > 0 {
		if opts.Skip >= len(filtered) {
			return []*models.Event{}, total, nil
		}
		filtered = filtered[opts.Skip:]
	}
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}

	return filtered, total, nil
}

// ListPendingAnalysis returns unenriched events, newest first.
func (s *EventStorage) ListPendingAnalysis(ctx context.Context, cutoff time.Time, limit int) ([]*models.Event, error) {
	query := badgerhold.Where("Analysis").IsNil()
	if !cutoff.IsZero() {
		query = query.And("AnnouncementDate").Ge(cutoff)
	}
	query = query.SortBy("AnnouncementDate").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var events []models.Event
	if err := s.db.Store().Find(&events, query); err != nil {
		return nil, fmt.Errorf("failed to list pending events: %w", err)
	}

	result := make([]*models.Event, len(events))
	for i := range events {
		result[i] = &events[i]
	}
	return result, nil
}

// CountEvents returns the total number of stored events
func (s *EventStorage) CountEvents(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Event{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return int(count), nil
}

func hasType(event *models.Event, t models.EventType) bool {
	for _, et := range event.Types {
		if et == t {
			return true
		}
	}
	return false
}
