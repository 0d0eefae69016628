package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/liuyingduo/stock-news/internal/interfaces"
	"github.com/liuyingduo/stock-news/internal/models"
	"github.com/liuyingduo/stock-news/internal/services/classify"
	"github.com/liuyingduo/stock-news/internal/services/quotes"
)

// HotStockSource selects the securities whose news gets pulled.
type HotStockSource interface {
	HotStocks(ctx context.Context, limit int) []string
}

// NewsSource fetches recent news for one security.
type NewsSource interface {
	FetchNews(ctx context.Context, stockCode string) ([]quotes.NewsItem, error)
}

// UpdateFromNews pulls news for the highest-turnover securities and persists
// new items behind the dedup gate. Per-security failures are isolated.
func (s *Service) UpdateFromNews(ctx context.Context, hot HotStockSource, news NewsSource, numStocks int) (*Summary, error) {
	started := time.Now()
	if numStocks <= 0 {
		numStocks = 10
	}

	summary := &Summary{}
	codes := hot.HotStocks(ctx, numStocks)
	s.logger.Info().Int("stocks", len(codes)).Msg("Fetching news for hot stocks")

	for _, code := range codes {
		items, err := news.FetchNews(ctx, code)
		if err != nil {
			s.logger.Warn().Str("stock", code).Err(err).Msg("News fetch failed")
			continue
		}
		summary.Fetched += len(items)

		for _, item := range items {
			s.ingestNewsItem(ctx, code, item, summary)
		}
	}

	summary.Duration = time.Since(started)
	s.logger.Info().
		Int("fetched", summary.Fetched).
		Int("saved", summary.Saved).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("News update finished")

	return summary, nil
}

func (s *Service) ingestNewsItem(ctx context.Context, stockCode string, item quotes.NewsItem, summary *Summary) {
	if item.Title == "" {
		summary.Skipped++
		return
	}

	events := s.storage.EventStorage()
	_, err := events.GetEventByTitleDate(ctx, item.Title, item.PublishedAt, stockCode)
	if err == nil {
		summary.Skipped++
		return
	}
	if !errors.Is(err, interfaces.ErrEventNotFound) {
		summary.Failed++
		s.logger.Warn().Str("title", item.Title).Err(err).Msg("Dedup lookup failed")
		return
	}

	now := time.Now()
	event := &models.Event{
		ID:               uuid.NewString(),
		Title:            item.Title,
		Content:          item.Content,
		Category:         models.CategoryCompany,
		Types:            []models.EventType{classify.ClassifyTitle(item.Title)},
		AnnouncementDate: item.PublishedAt,
		StockCode:        stockCode,
		Source:           item.Source,
		OriginalURL:      item.URL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := events.SaveEvent(ctx, event); err != nil {
		summary.Failed++
		s.logger.Warn().Str("title", item.Title).Err(err).Msg("Failed to save news event")
		return
	}
	summary.Saved++
}
