// Package monitor runs the continuous ingestion loops: a fast poll over the
// telegraph wire feed and a cron-scheduled sweep of the exchange bulletin
// feed. Both persist behind the same dedup gate the backfill uses and hand
// new events to the batch analyzer.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/interfaces"
	"github.com/liuyingduo/stock-news/internal/models"
	"github.com/liuyingduo/stock-news/internal/services/analyzer"
	"github.com/liuyingduo/stock-news/internal/services/classify"
	"github.com/liuyingduo/stock-news/internal/services/exchange"
)

const (
	// telegraphWindow bounds how old a wire item may be and still count as
	// new. The poll interval is far shorter, so the window only matters on
	// startup.
	telegraphWindow = time.Hour

	// titleRingCap bounds the in-memory telegraph seen-set.
	titleRingCap = 1000

	// processedIDCap bounds the persisted exchange seen-set.
	processedIDCap = 5000

	kvTelegraphCursor  = "monitor:telegraph:last_poll"
	kvExchangeSeenKey  = "monitor:exchange:processed"
	defaultPollSpacing = 10 * time.Second
)

// Service drives both monitor loops.
type Service struct {
	storage   interfaces.StorageManager
	analyzer  *analyzer.Service
	telegraph TelegraphFetcher
	sse       exchange.Client
	cfg       common.MonitorConfig
	logger    arbor.ILogger

	ring *titleRing
}

// NewService wires the monitor loops
func NewService(storage interfaces.StorageManager, batchAnalyzer *analyzer.Service, telegraph TelegraphFetcher, sse exchange.Client, cfg common.MonitorConfig, logger arbor.ILogger) *Service {
	return &Service{
		storage:   storage,
		analyzer:  batchAnalyzer,
		telegraph: telegraph,
		sse:       sse,
		cfg:       cfg,
		logger:    logger,
		ring:      newTitleRing(titleRingCap),
	}
}

// Run blocks until the context is cancelled, polling the telegraph feed at
// the configured interval and sweeping the exchange feed on the cron
// schedule.
func (s *Service) Run(ctx context.Context) error {
	interval := s.cfg.TelegraphInterval
	if interval <= 0 {
		interval = defaultPollSpacing
	}

	scheduler := cron.New(cron.WithSeconds())
	cronSpec := s.cfg.ExchangeCron
	if cronSpec == "" {
		cronSpec = "0 0 * * * *"
	}
	if _, err := scheduler.AddFunc(cronSpec, func() {
		if err := s.SweepExchange(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Exchange sweep failed")
		}
	}); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	s.logger.Info().
		Str("exchange_cron", cronSpec).
		Dur("telegraph_interval", interval).
		Msg("Monitor started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.PollTelegraph(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("Telegraph poll failed")
			}
		}
	}
}

// PollTelegraph runs one telegraph cycle: fetch the latest page, keep items
// inside the freshness window that the ring has not seen, persist the ones
// the dedup gate admits, then enrich a bounded batch.
func (s *Service) PollTelegraph(ctx context.Context) error {
	items, err := s.telegraph.FetchLatest(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	saved := 0
	for _, item := range items {
		if now.Sub(item.PublishedAt) > telegraphWindow {
			continue
		}
		if s.ring.Contains(item.Title) {
			continue
		}
		s.ring.Add(item.Title)

		if s.saveTelegraph(ctx, item) {
			saved++
		}
	}

	if kv := s.storage.KVStorage(); kv != nil {
		if err := kv.Set(ctx, kvTelegraphCursor, now.Format(time.RFC3339)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to persist telegraph cursor")
		}
	}

	if saved == 0 {
		return nil
	}

	s.logger.Info().Int("saved", saved).Msg("New telegraph events saved")

	batch := s.cfg.AnalyzeBatch
	if batch <= 0 {
		batch = 10
	}
	if _, err := s.analyzer.ProcessPending(ctx, analyzer.Options{Limit: batch}); err != nil {
		s.logger.Warn().Err(err).Msg("Telegraph analysis batch failed")
	}
	return nil
}

// saveTelegraph persists one wire item unless the dedup gate already holds
// it. The category is provisional; enrichment re-classifies.
func (s *Service) saveTelegraph(ctx context.Context, item Telegraph) bool {
	events := s.storage.EventStorage()

	_, err := events.GetEventByTitleDate(ctx, item.Title, item.PublishedAt, "")
	if err == nil {
		return false
	}
	if !errors.Is(err, interfaces.ErrEventNotFound) {
		s.logger.Warn().Str("title", item.Title).Err(err).Msg("Dedup lookup failed")
		return false
	}

	now := time.Now()
	event := &models.Event{
		ID:               uuid.NewString(),
		Title:            item.Title,
		Content:          item.Content,
		Category:         models.CategoryGlobalMacro,
		Types:            []models.EventType{models.TypeOther},
		AnnouncementDate: item.PublishedAt,
		Source:           SourceTelegraph,
		OriginalURL:      item.URL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := events.SaveEvent(ctx, event); err != nil {
		s.logger.Warn().Str("title", item.Title).Err(err).Msg("Failed to save telegraph event")
		return false
	}
	return true
}

// SweepExchange fetches the last day of exchange bulletins and persists the
// ones not yet seen. The seen-set survives restarts via the KV store.
func (s *Service) SweepExchange(ctx context.Context) error {
	window := models.NewDateWindow(1, time.Now())
	notices, err := s.sse.FetchAll(ctx, window)
	if err != nil {
		return err
	}

	seen := s.loadProcessedIDs(ctx)
	seenSet := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		seenSet[id] = struct{}{}
	}

	saved := 0
	for i := range notices {
		notice := &notices[i]
		id := notice.DetailURL
		if id == "" {
			id = notice.Title
		}
		if _, ok := seenSet[id]; ok {
			continue
		}
		seenSet[id] = struct{}{}
		seen = append(seen, id)

		if s.saveNotice(ctx, notice) {
			saved++
		}
	}

	if len(seen) > processedIDCap {
		seen = seen[len(seen)-processedIDCap:]
	}
	s.storeProcessedIDs(ctx, seen)

	if saved > 0 {
		s.logger.Info().Int("saved", saved).Msg("Exchange sweep saved new events")
	}
	return nil
}

func (s *Service) saveNotice(ctx context.Context, notice *models.Notice) bool {
	eventType := classify.MapType(notice.Source, notice.RawType)
	if eventType == models.TypeOther {
		if fromTitle := classify.ClassifyTitle(notice.Title); fromTitle != models.TypeOther {
			eventType = fromTitle
		}
	}

	events := s.storage.EventStorage()
	_, err := events.GetEventByTitleDate(ctx, notice.Title, notice.PublishedAt, notice.StockCode)
	if err == nil {
		return false
	}
	if !errors.Is(err, interfaces.ErrEventNotFound) {
		s.logger.Warn().Str("title", notice.Title).Err(err).Msg("Dedup lookup failed")
		return false
	}

	now := time.Now()
	event := &models.Event{
		ID:               uuid.NewString(),
		Title:            notice.Title,
		Content:          notice.Title,
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
		s.logger.Warn().Str("title", notice.Title).Err(err).Msg("Failed to save notice")
		return false
	}
	return true
}

func (s *Service) loadProcessedIDs(ctx context.Context) []string {
	kv := s.storage.KVStorage()
	if kv == nil {
		return nil
	}
	raw, err := kv.Get(ctx, kvExchangeSeenKey)
	if err != nil {
		if !errors.Is(err, interfaces.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Msg("Failed to load processed-ID set")
		}
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		s.logger.Warn().Err(err).Msg("Corrupt processed-ID set, resetting")
		return nil
	}
	return ids
}

func (s *Service) storeProcessedIDs(ctx context.Context, ids []string) {
	kv := s.storage.KVStorage()
	if kv == nil {
		return
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := kv.Set(ctx, kvExchangeSeenKey, string(raw)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist processed-ID set")
	}
}
