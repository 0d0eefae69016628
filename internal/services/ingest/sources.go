package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/liuyingduo/stock-news/internal/models"
)

// SourceRule enables one source and optionally narrows the event types kept
// from it. An empty Types list keeps everything.
type SourceRule struct {
	Name    string   `yaml:"name"`
	Enabled bool     `yaml:"enabled"`
	Types   []string `yaml:"types"`
}

// SourceRules is the parsed source-definitions file.
type SourceRules struct {
	DefaultDays int          `yaml:"default_days"`
	Sources     []SourceRule `yaml:"sources"`
}

// DefaultSourceRules enables every source with no type filter.
func DefaultSourceRules() *SourceRules {
	return &SourceRules{DefaultDays: 7}
}

// LoadSourceRules reads a YAML source-definitions file. An empty path returns
// the defaults.
func LoadSourceRules(path string) (*SourceRules, error) {
	if path == "" {
		return DefaultSourceRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}

	rules := DefaultSourceRules()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}
	if rules.DefaultDays <= 0 {
		rules.DefaultDays = 7
	}
	return rules, nil
}

// ruleFor returns the rule matching a source key. Sources without an explicit
// rule are enabled with no filter.
func (r *SourceRules) ruleFor(name string) SourceRule {
	for _, rule := range r.Sources {
		if rule.Name == name {
			return rule
		}
	}
	return SourceRule{Name: name, Enabled: true}
}

// allows reports whether the rule keeps an event of the given type.
func (rule SourceRule) allows(t models.EventType) bool {
	if len(rule.Types) == 0 {
		return true
	}
	for _, allowed := range rule.Types {
		if models.EventType(allowed) == t {
			return true
		}
	}
	return false
}
