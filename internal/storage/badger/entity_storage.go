package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/liuyingduo/stock-news/internal/interfaces"
	"github.com/liuyingduo/stock-news/internal/models"
)

// EntityStorage implements the EntityStorage interface for Badger. Sectors
// and stocks are upserted by code; the first write's CreatedAt survives.
type EntityStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEntityStorage creates a new EntityStorage instance
func NewEntityStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EntityStorage {
	return &EntityStorage{
		db:     db,
		logger: logger,
	}
}

// UpsertSector inserts or updates a sector keyed by code
func (s *EntityStorage) UpsertSector(ctx context.Context, name, code string) error {
	if code == "" {
		code = name
	}
	now := time.Now()

	sector := models.Sector{
		Code:      code,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var existing models.Sector
	err := s.db.Store().Get(code, &existing)
	if err == nil {
		sector.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to check sector existence: %w", err)
	}

	if err := s.db.Store().Upsert(code, &sector); err != nil {
		return fmt.Errorf("failed to upsert sector: %w", err)
	}
	return nil
}

// UpsertStock inserts or updates a stock keyed by code
func (s *EntityStorage) UpsertStock(ctx context.Context, name, code string) error {
	if code == "" {
		code = name
	}
	now := time.Now()

	stock := models.Stock{
		Code:      code,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var existing models.Stock
	err := s.db.Store().Get(code, &existing)
	if err == nil {
		stock.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to check stock existence: %w", err)
	}

	if err := s.db.Store().Upsert(code, &stock); err != nil {
		return fmt.Errorf("failed to upsert stock: %w", err)
	}
	return nil
}

// ListSectors returns all sectors sorted by name
func (s *EntityStorage) ListSectors(ctx context.Context) ([]*models.Sector, error) {
	var sectors []models.Sector
	if err := s.db.Store().Find(&sectors, badgerhold.Where("Code").Ne("").SortBy("Name")); err != nil {
		return nil, fmt.Errorf("failed to list sectors: %w", err)
	}

	result := make([]*models.Sector, len(sectors))
	for i := range sectors {
		result[i] = &sectors[i]
	}
	return result, nil
}

// ListStocks returns all stocks sorted by code
func (s *EntityStorage) ListStocks(ctx context.Context) ([]*models.Stock, error) {
	var stocks []models.Stock
	if err := s.db.Store().Find(&stocks, badgerhold.Where("Code").Ne("").SortBy("Code")); err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}

	result := make([]*models.Stock, len(stocks))
	for i := range stocks {
		result[i] = &stocks[i]
	}
	return result, nil
}
