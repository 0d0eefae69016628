// Package analyzer drives batch AI enrichment of stored events with bounded
// concurrency, rate-limited model calls, and consistent progress accounting.
package analyzer

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/interfaces"
	"github.com/liuyingduo/stock-news/internal/models"
)

// Options controls one enrichment batch.
type Options struct {
	Days          int  // Lookback window for candidates; 0 means no cutoff
	Limit         int  // Max events to process; 0 means no limit
	Force         bool // Re-analyze events that already carry an analysis
	MaxConcurrent int  // Worker bound; defaults from config
}

// Summary reports a finished batch.
type Summary struct {
	Attempted int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// entityKey dedups sector/stock upserts across a whole batch.
type entityKey struct {
	name string
	code string
}

// Service orchestrates enrichment over the event store.
type Service struct {
	storage  interfaces.StorageManager
	analysis interfaces.AnalysisService
	limiter  *rate.Limiter
	maxConc  int
	logger   arbor.ILogger
}

// NewService creates the batch analyzer
func NewService(storage interfaces.StorageManager, analysis interfaces.AnalysisService, cfg common.AIConfig, logger arbor.ILogger) *Service {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 5
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if spacing, err := time.ParseDuration(cfg.RateLimit); err == nil && spacing > 0 {
		limiter = rate.NewLimiter(rate.Every(spacing), 1)
	}

	return &Service{
		storage:  storage,
		analysis: analysis,
		limiter:  limiter,
		maxConc:  maxConc,
		logger:   logger,
	}
}

// ProcessPending enriches events that have no analysis yet (or all matching
// events when Force is set). Progress counters are updated under one mutex;
// sector/stock upserts are deduplicated by (name, code) across the batch and
// applied once per pair after all enrichments finish.
func (s *Service) ProcessPending(ctx context.Context, opts Options) (*Summary, error) {
	started := time.Now()

	candidates, err := s.selectCandidates(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		s.logger.Info().Msg("No events pending analysis")
		return &Summary{Duration: time.Since(started)}, nil
	}

	maxConc := opts.MaxConcurrent
	if maxConc <= 0 {
		maxConc = s.maxConc
	}

	s.logger.Info().
		Int("candidates", len(candidates)).
		Int("max_concurrent", maxConc).
		Msg("Starting analysis batch")

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConc)

	summary := &Summary{}
	sectors := make(map[entityKey]struct{})
	stocks := make(map[entityKey]struct{})

	for _, event := range candidates {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(event *models.Event) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.limiter.Wait(ctx); err != nil {
				mu.Lock()
				summary.Attempted++
				summary.Failed++
				mu.Unlock()
				return
			}

			analysis := s.analysis.Analyze(ctx, event.Title, event.Content)
			event.Analysis = analysis
			event.Category = analysis.Category
			event.Types = analysis.Types
			event.UpdatedAt = time.Now()

			saveErr := s.storage.EventStorage().SaveEvent(ctx, event)

			mu.Lock()
			summary.Attempted++
			if saveErr != nil {
				summary.Failed++
			} else {
				summary.Succeeded++
				for _, sector := range analysis.AffectedSectors {
					sectors[entityKey{sector.Name, sector.Code}] = struct{}{}
				}
				for _, stock := range analysis.AffectedStocks {
					stocks[entityKey{stock.Name, stock.Code}] = struct{}{}
				}
			}
			processed := summary.Attempted
			mu.Unlock()

			if saveErr != nil {
				s.logger.Warn().Str("event_id", event.ID).Err(saveErr).Msg("Failed to save analyzed event")
				return
			}

			if processed%10 == 0 {
				elapsed := time.Since(started)
				perEvent := elapsed / time.Duration(processed)
				remaining := time.Duration(len(candidates)-processed) * perEvent
				s.logger.Info().
					Int("processed", processed).
					Int("total", len(candidates)).
					Dur("eta", remaining).
					Msg("Analysis progress")
			}
		}(event)
	}

	wg.Wait()

	s.applyEntityUpserts(ctx, sectors, stocks)

	summary.Duration = time.Since(started)
	s.logger.Info().
		Int("attempted", summary.Attempted).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Analysis batch finished")

	return summary, nil
}

func (s *Service) selectCandidates(ctx context.Context, opts Options) ([]*models.Event, error) {
	var cutoff time.Time
	if opts.Days > 0 {
		cutoff = time.Now().AddDate(0, 0, -opts.Days)
	}

	if !opts.Force {
		return s.storage.EventStorage().ListPendingAnalysis(ctx, cutoff, opts.Limit)
	}

	events, _, err := s.storage.EventStorage().ListEvents(ctx, interfaces.ListEventsOptions{
		StartDate: cutoff,
		Limit:     opts.Limit,
	})
	return events, err
}

// applyEntityUpserts writes each unique (name, code) pair once.
func (s *Service) applyEntityUpserts(ctx context.Context, sectors, stocks map[entityKey]struct{}) {
	entityStorage := s.storage.EntityStorage()

	for key := range sectors {
		if key.name == "" {
			continue
		}
		if err := entityStorage.UpsertSector(ctx, key.name, key.code); err != nil {
			s.logger.Warn().Str("sector", key.name).Err(err).Msg("Sector upsert failed")
		}
	}
	for key := range stocks {
		if key.name == "" {
			continue
		}
		if err := entityStorage.UpsertStock(ctx, key.name, key.code); err != nil {
			s.logger.Warn().Str("stock", key.name).Err(err).Msg("Stock upsert failed")
		}
	}

	if len(sectors) > 0 || len(stocks) > 0 {
		s.logger.Info().
			Int("sectors", len(sectors)).
			Int("stocks", len(stocks)).
			Msg("Applied entity upserts")
	}
}
