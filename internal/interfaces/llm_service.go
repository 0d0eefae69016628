package interfaces

import (
	"context"

	"github.com/liuyingduo/stock-news/internal/models"
)

// AnalysisService defines the enrichment boundary. Implementations call a
// language model and normalize its output into the closed event taxonomy.
//
// Analyze never returns an error for a failed model call: any failure on the
// enrichment path (network, timeout, malformed JSON, schema violation) is
// converted into a fully valid degraded AIAnalysis whose reason embeds the
// underlying error. The returned category/types are always drawn from the
// closed enums and the numeric fields are always in range.
type AnalysisService interface {
	// Analyze enriches one event's title and content.
	Analyze(ctx context.Context, title, content string) *models.AIAnalysis

	// ClassifyCategory asks the model for category/types only; used for
	// wire-feed items that arrive without a source category.
	ClassifyCategory(ctx context.Context, title, content string) (models.EventCategory, []models.EventType)

	// IsAvailable reports whether the underlying provider is configured.
	IsAvailable() bool

	// HealthCheck verifies the provider can handle requests.
	HealthCheck(ctx context.Context) error
}

// CompletionProvider is the raw model boundary behind AnalysisService.
// Implementations wrap one vendor SDK.
type CompletionProvider interface {
	// Complete sends a single prompt and returns the model's raw text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Name identifies the provider ("claude", "gemini").
	Name() string

	HealthCheck(ctx context.Context) error
}
