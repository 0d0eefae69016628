package models

import "time"

// AffectedEntity is a stock or sector an analysis says the event touches.
type AffectedEntity struct {
	Name   string `json:"name"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// KeyMaterial is a commodity or input material with an expected price trend.
type KeyMaterial struct {
	Name  string `json:"name"`
	Trend string `json:"trend,omitempty"`
}

// AIAnalysis is the enrichment payload embedded in an Event. Every numeric
// field is clamped to its declared range before storage; the pipeline never
// persists an out-of-range value.
type AIAnalysis struct {
	Category        EventCategory    `json:"event_category"`
	Types           []EventType      `json:"event_types"`
	ImpactScore     float64          `json:"impact_score"`     // [0, 1]
	SentimentScore  float64          `json:"sentiment_score"`  // [-1, 1]
	ConfidenceScore float64          `json:"confidence_score"` // [0, 1]
	IsHype          bool             `json:"is_hype"`
	ImpactReason    string           `json:"impact_reason"`
	AffectedSectors []AffectedEntity `json:"affected_sectors"`
	AffectedStocks  []AffectedEntity `json:"affected_stocks"`
	KeyMaterials    []KeyMaterial    `json:"key_materials"`
	AnalyzedAt      time.Time        `json:"analyzed_at"`
}

// Clamp forces every numeric field back into its declared range.
func (a *AIAnalysis) Clamp() {
	a.ImpactScore = clampFloat(a.ImpactScore, 0, 1)
	a.SentimentScore = clampFloat(a.SentimentScore, -1, 1)
	a.ConfidenceScore = clampFloat(a.ConfidenceScore, 0, 1)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
