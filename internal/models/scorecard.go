package models

// Direction classifies an event's scored sentiment.
type Direction string

const (
	DirectionOpportunity Direction = "opportunity"
	DirectionRisk        Direction = "risk"
	DirectionNeutral     Direction = "neutral"
)

// ScoreMethod records which scoring path produced a card.
type ScoreMethod string

const (
	MethodLLM       ScoreMethod = "llm"
	MethodHeuristic ScoreMethod = "heuristic"
)

// ScoreCard is the derived radar view of one event. It is never persisted;
// it is always recomputable from the Event and the current wall clock.
// Impact, Confidence, Freshness and Relevance are on a 0-100 scale,
// Sentiment on -100..100.
type ScoreCard struct {
	EventID    string      `json:"event_id"`
	Impact     float64     `json:"impact"`
	Sentiment  float64     `json:"sentiment"`
	Confidence float64     `json:"confidence"`
	Freshness  float64     `json:"freshness"`
	Relevance  float64     `json:"relevance"`
	Direction  Direction   `json:"direction"`
	HasAI      bool        `json:"has_ai"`
	Method     ScoreMethod `json:"method"`
}
