// Package ingest drives the backfill pipeline: fetch raw notices from every
// enabled disclosure source, resolve detail-page content where a source
// publishes one, classify, and persist behind the title/date dedup gate.
package ingest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/interfaces"
	"github.com/liuyingduo/stock-news/internal/models"
	"github.com/liuyingduo/stock-news/internal/services/classify"
	"github.com/liuyingduo/stock-news/internal/services/content"
	"github.com/liuyingduo/stock-news/internal/services/exchange"
)

// Summary reports one backfill run.
type Summary struct {
	Fetched  int
	Saved    int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// Service runs the ingestion pipeline over a set of named sources.
type Service struct {
	clients  map[string]exchange.Client
	resolver *content.BatchResolver
	storage  interfaces.StorageManager
	rules    *SourceRules
	logger   arbor.ILogger
}

// NewService wires the pipeline. Clients are keyed by the short source names
// used in the source-definitions file (sse, szse, bse).
func NewService(clients map[string]exchange.Client, resolver *content.BatchResolver, storage interfaces.StorageManager, rules *SourceRules, logger arbor.ILogger) *Service {
	if rules == nil {
		rules = DefaultSourceRules()
	}
	return &Service{
		clients:  clients,
		resolver: resolver,
		storage:  storage,
		rules:    rules,
		logger:   logger,
	}
}

// Backfill fetches every enabled source over the last `days` days and
// persists new events. Item failures are isolated; the run always completes
// with counts.
func (s *Service) Backfill(ctx context.Context, days int) (*Summary, error) {
	started := time.Now()
	if days <= 0 {
		days = s.rules.DefaultDays
	}
	window := models.NewDateWindow(days, started)

	summary := &Summary{}

	names := make([]string, 0, len(s.clients))
	for name := range s.clients {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rule := s.rules.ruleFor(name)
		if !rule.Enabled {
			s.logger.Info().Str("source", name).Msg("Source disabled, skipping")
			continue
		}

		client := s.clients[name]
		notices, err := client.FetchAll(ctx, window)
		if err != nil {
			s.logger.Warn().Str("source", name).Err(err).Msg("Source fetch failed")
			continue
		}

		summary.Fetched += len(notices)
		s.logger.Info().
			Str("source", name).
			Int("notices", len(notices)).
			Msg("Fetched notices")

		contents := s.resolveContents(ctx, notices)
		for i := range notices {
			s.ingestNotice(ctx, &notices[i], contents, rule, summary)
		}
	}

	summary.Duration = time.Since(started)
	s.logger.Info().
		Int("fetched", summary.Fetched).
		Int("saved", summary.Saved).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Backfill finished")

	return summary, nil
}

// resolveContents fetches detail-page text for notices whose URL points at an
// HTML page. Attachment links (PDFs) have no inline content to resolve.
func (s *Service) resolveContents(ctx context.Context, notices []models.Notice) map[string]string {
	if s.resolver == nil {
		return nil
	}

	var urls []string
	for _, notice := range notices {
		if isResolvableURL(notice.DetailURL) {
			urls = append(urls, notice.DetailURL)
		}
	}
	if len(urls) == 0 {
		return nil
	}
	return s.resolver.ResolveBatch(ctx, urls)
}

func isResolvableURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, ".html") || strings.Contains(lower, ".shtml")
}

// ingestNotice classifies one notice and persists it unless the dedup gate
// already holds an event with the same title, day, and stock code.
func (s *Service) ingestNotice(ctx context.Context, notice *models.Notice, contents map[string]string, rule SourceRule, summary *Summary) {
	eventType := classify.MapType(notice.Source, notice.RawType)
	if eventType == models.TypeOther {
		if fromTitle := classify.ClassifyTitle(notice.Title); fromTitle != models.TypeOther {
			eventType = fromTitle
		}
	}

	if !rule.allows(eventType) {
		summary.Skipped++
		return
	}

	events := s.storage.EventStorage()
	_, err := events.GetEventByTitleDate(ctx, notice.Title, notice.PublishedAt, notice.StockCode)
	if err == nil {
		// First write wins.
		summary.Skipped++
		return
	}
	if !errors.Is(err, interfaces.ErrEventNotFound) {
		summary.Failed++
		s.logger.Warn().Str("title", notice.Title).Err(err).Msg("Dedup lookup failed")
		return
	}

	body := contents[notice.DetailURL]
	if body == "" {
		body = notice.Title
	}

	now := time.Now()
	event := &models.Event{
		ID:               uuid.NewString(),
		Title:            notice.Title,
		Content:          body,
		Category:         models.CategoryCompany,
		Types:            []models.EventType{eventType},
		AnnouncementDate: notice.PublishedAt,
		StockCode:        notice.StockCode,
		StockName:        notice.StockName,
		Source:           notice.Source,
		OriginalURL:      notice.DetailURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := events.SaveEvent(ctx, event); err != nil {
		summary.Failed++
		s.logger.Warn().Str("title", notice.Title).Err(err).Msg("Failed to save event")
		return
	}
	summary.Saved++
}
