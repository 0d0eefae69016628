package radar

import (
	"math"
	"sort"
	"time"

	"github.com/liuyingduo/stock-news/internal/models"
)

// Overview summarizes a window of scored events.
type Overview struct {
	WindowHours      int       `json:"window_hours"`
	SampleSize       int       `json:"sample_size"`
	MarketIndex      float64   `json:"market_index"`
	AvgConfidence    float64   `json:"avg_confidence"`
	OpportunityCount int       `json:"opportunity_count"`
	RiskCount        int       `json:"risk_count"`
	NeutralCount     int       `json:"neutral_count"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EventCard pairs an event with its computed scores for report rendering.
type EventCard struct {
	Event *models.Event
	Card  models.ScoreCard
}

// BuildCards scores every event at the given instant.
func (e *Engine) BuildCards(events []*models.Event, now time.Time) []EventCard {
	cards := make([]EventCard, 0, len(events))
	for _, event := range events {
		cards = append(cards, EventCard{Event: event, Card: e.Score(event, now)})
	}
	return cards
}

// BuildOverview aggregates cards into the market summary.
func BuildOverview(cards []EventCard, windowHours int, now time.Time) Overview {
	overview := Overview{
		WindowHours: windowHours,
		SampleSize:  len(cards),
		UpdatedAt:   now,
	}
	if len(cards) == 0 {
		return overview
	}

	scoreCards := make([]models.ScoreCard, len(cards))
	var confidenceSum float64
	for i, c := range cards {
		scoreCards[i] = c.Card
		confidenceSum += c.Card.Confidence
		switch c.Card.Direction {
		case models.DirectionOpportunity:
			overview.OpportunityCount++
		case models.DirectionRisk:
			overview.RiskCount++
		default:
			overview.NeutralCount++
		}
	}

	overview.MarketIndex = MarketIndex(scoreCards)
	overview.AvgConfidence = math.Round(confidenceSum/float64(len(cards))*100) / 100
	return overview
}

// Signals filters cards to one direction and orders them by |sentiment|,
// then relevance, strongest first.
func Signals(cards []EventCard, direction models.Direction, limit int) []EventCard {
	filtered := make([]EventCard, 0, len(cards))
	for _, c := range cards {
		if c.Card.Direction == direction {
			filtered = append(filtered, c)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		si, sj := math.Abs(filtered[i].Card.Sentiment), math.Abs(filtered[j].Card.Sentiment)
		if si != sj {
			return si > sj
		}
		return filtered[i].Card.Relevance > filtered[j].Card.Relevance
	})

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}

// TopEvents filters cards to a minimum relevance and orders by relevance
// descending.
func TopEvents(cards []EventCard, minRelevance float64, limit int) []EventCard {
	filtered := make([]EventCard, 0, len(cards))
	for _, c := range cards {
		if c.Card.Relevance >= minRelevance {
			filtered = append(filtered, c)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Card.Relevance > filtered[j].Card.Relevance
	})

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}
