// Package llm implements AI enrichment of ingested events. A completion
// provider wraps one vendor SDK; the analysis service turns raw model text
// into a validated AIAnalysis. Failures never cross the enrichment boundary
// as errors: the caller always receives a fully valid, possibly degraded,
// analysis.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/interfaces"
	"github.com/liuyingduo/stock-news/internal/models"
)

// AnalysisService implements interfaces.AnalysisService on top of a
// CompletionProvider.
type AnalysisService struct {
	provider interfaces.CompletionProvider
	logger   arbor.ILogger
}

var _ interfaces.AnalysisService = (*AnalysisService)(nil)

// NewAnalysisService creates the enrichment service. Provider may be nil
// when no API key is configured; Analyze then returns degraded results.
func NewAnalysisService(provider interfaces.CompletionProvider, logger arbor.ILogger) *AnalysisService {
	return &AnalysisService{
		provider: provider,
		logger:   logger,
	}
}

// Analyze enriches one event. Any failure (unconfigured provider, network,
// malformed output) yields a degraded analysis, never an error.
func (s *AnalysisService) Analyze(ctx context.Context, title, content string) *models.AIAnalysis {
	if s.provider == nil {
		return degradedAnalysis(interfaces.ErrNotConfigured)
	}

	raw, err := s.provider.Complete(ctx, buildAnalysisPrompt(title, content))
	if err != nil {
		s.logger.Warn().Str("title", title).Err(err).Msg("AI completion failed")
		return degradedAnalysis(err)
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		s.logger.Warn().Str("title", title).Err(err).Msg("AI output unparsable")
		return degradedAnalysis(err)
	}

	s.logger.Debug().
		Str("title", title).
		Str("category", string(analysis.Category)).
		Float64("impact", analysis.ImpactScore).
		Float64("sentiment", analysis.SentimentScore).
		Msg("Event analyzed")

	return analysis
}

// ClassifyCategory asks the model for category/types only. Failures fall
// back to (company, [other]).
func (s *AnalysisService) ClassifyCategory(ctx context.Context, title, content string) (models.EventCategory, []models.EventType) {
	if s.provider == nil {
		return models.CategoryCompany, []models.EventType{models.TypeOther}
	}

	raw, err := s.provider.Complete(ctx, buildClassifyPrompt(title, content))
	if err != nil {
		s.logger.Debug().Str("title", title).Err(err).Msg("Category classification failed")
		return models.CategoryCompany, []models.EventType{models.TypeOther}
	}

	jsonText, err := extractJSON(raw)
	if err != nil {
		return models.CategoryCompany, []models.EventType{models.TypeOther}
	}

	var payload struct {
		EventCategory string   `json:"event_category"`
		EventTypes    []string `json:"event_types"`
	}
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return models.CategoryCompany, []models.EventType{models.TypeOther}
	}

	return normalizeCategory(payload.EventCategory), normalizeTypes(payload.EventTypes)
}

// IsAvailable reports whether a provider is configured.
func (s *AnalysisService) IsAvailable() bool {
	return s.provider != nil
}

// HealthCheck verifies the provider can handle requests.
func (s *AnalysisService) HealthCheck(ctx context.Context) error {
	if s.provider == nil {
		return fmt.Errorf("analysis service: %w", interfaces.ErrNotConfigured)
	}
	return s.provider.HealthCheck(ctx)
}
