package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/interfaces"
)

// NewProvider builds the configured completion provider.
func NewProvider(cfg common.AIConfig, logger arbor.ILogger) (interfaces.CompletionProvider, error) {
	switch cfg.Provider {
	case common.AIProviderClaude, "":
		return NewClaudeProvider(cfg, logger)
	case common.AIProviderGemini:
		return NewGeminiProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
