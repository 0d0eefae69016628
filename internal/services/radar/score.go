// Package radar computes deterministic relevance scores and
// opportunity/risk classification for events. Scoring is a pure function of
// the event and the current wall clock; AI-derived scores are used when an
// analysis is present, a content/source heuristic otherwise.
package radar

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/models"
)

// sourceConfidence maps known authoritative sources to a confidence score by
// substring match, in declaration order. Unknown sources get the default.
var sourceConfidence = []struct {
	substr string
	value  float64
}{
	{"上海证券交易所", 0.95},
	{"深圳证券交易所", 0.95},
	{"北京证券交易所", 0.95},
	{"上交所", 0.95},
	{"深交所", 0.95},
	{"北交所", 0.95},
	{"证监会", 0.92},
	{"财联社", 0.82},
	{"reuters", 0.9},
	{"bloomberg", 0.9},
}

const defaultSourceConfidence = 0.65

// categoryImpactBase is the heuristic impact floor per event category.
var categoryImpactBase = map[models.EventCategory]float64{
	models.CategoryGlobalMacro: 0.82,
	models.CategoryPolicy:      0.75,
	models.CategoryIndustry:    0.65,
	models.CategoryCompany:     0.55,
}

var positiveKeywords = []string{
	"增长", "超预期", "突破", "中标", "回购", "降息", "放松",
	"improve", "beat", "upgrade",
}

var negativeKeywords = []string{
	"下滑", "低于预期", "亏损", "违约", "处罚", "诉讼", "减持",
	"war", "downgrade", "risk",
}

// Engine scores events against a configurable freshness window.
type Engine struct {
	freshnessWindow time.Duration
	logger          arbor.ILogger
}

// NewEngine creates a scoring engine
func NewEngine(cfg common.RadarConfig, logger arbor.ILogger) *Engine {
	hours := cfg.FreshnessWindowHours
	if hours <= 0 {
		hours = 72
	}
	return &Engine{
		freshnessWindow: time.Duration(hours * float64(time.Hour)),
		logger:          logger,
	}
}

// Score computes the radar card for one event at the given instant.
func (e *Engine) Score(event *models.Event, now time.Time) models.ScoreCard {
	var impactRaw, sentimentRaw, confidenceRaw float64
	var method models.ScoreMethod

	if event.HasAnalysis() {
		impactRaw = clamp(event.Analysis.ImpactScore, 0, 1)
		sentimentRaw = clamp(event.Analysis.SentimentScore, -1, 1)
		confidenceRaw = clamp(event.Analysis.ConfidenceScore, 0, 1)
		method = models.MethodLLM
	} else {
		impactRaw = heuristicImpact(event)
		sentimentRaw = heuristicSentiment(event)
		confidenceRaw = heuristicConfidence(event)
		method = models.MethodHeuristic
	}

	freshness := e.freshnessScore(event.AnnouncementDate, now)
	impact := impactRaw * 100
	sentiment := sentimentRaw * 100
	confidence := confidenceRaw * 100

	relevance := clamp(
		impact*0.45+math.Abs(sentiment)*0.30+confidence*0.15+freshness*0.10,
		0, 100,
	)

	direction := models.DirectionNeutral
	switch {
	case sentiment >= 20:
		direction = models.DirectionOpportunity
	case sentiment <= -20:
		direction = models.DirectionRisk
	}

	return models.ScoreCard{
		EventID:    event.ID,
		Impact:     round2(impact),
		Sentiment:  round2(sentiment),
		Confidence: round2(confidence),
		Freshness:  round2(freshness),
		Relevance:  round2(relevance),
		Direction:  direction,
		HasAI:      event.HasAnalysis(),
		Method:     method,
	}
}

// MarketIndex aggregates cards into one market-wide signal: the mean of each
// card's sentiment weighted by (0.5 + confidence/200), clamped to ±100.
func MarketIndex(cards []models.ScoreCard) float64 {
	if len(cards) == 0 {
		return 0
	}
	var sum float64
	for _, card := range cards {
		sum += card.Sentiment * (0.5 + card.Confidence/200)
	}
	return round2(clamp(sum/float64(len(cards)), -100, 100))
}

// freshnessScore decays linearly from 100 at age zero to 0 at the window.
func (e *Engine) freshnessScore(announcedAt time.Time, now time.Time) float64 {
	if announcedAt.IsZero() {
		return 0
	}
	age := now.Sub(announcedAt)
	if age < 0 {
		age = 0
	}
	if age >= e.freshnessWindow {
		return 0
	}
	return 100 - (age.Hours()/e.freshnessWindow.Hours())*100
}

func heuristicImpact(event *models.Event) float64 {
	base, ok := categoryImpactBase[event.Category]
	if !ok {
		base = 0.5
	}
	lenBoost := math.Min(float64(utf8.RuneCountInString(event.Content))/2000, 1) * 0.15
	typeBoost := math.Min(float64(len(event.Types)), 3) * 0.05
	return clamp(base+lenBoost+typeBoost, 0, 1)
}

func heuristicSentiment(event *models.Event) float64 {
	base := keywordSentiment(event.Title + "\n" + event.Content)

	typeTokens := make([]string, len(event.Types))
	for i, t := range event.Types {
		typeTokens[i] = string(t)
	}
	typeBoost := keywordSentiment(strings.Join(typeTokens, " ")) * 0.2

	return clamp(base+typeBoost, -1, 1)
}

func heuristicConfidence(event *models.Event) float64 {
	lengthFactor := math.Min(float64(utf8.RuneCountInString(event.Content))/1200, 1) * 0.15
	return clamp(sourceConfidenceFor(event.Source)*0.85+lengthFactor, 0, 1)
}

func sourceConfidenceFor(source string) float64 {
	if source == "" {
		return defaultSourceConfidence
	}
	s := strings.ToLower(strings.TrimSpace(source))
	for _, entry := range sourceConfidence {
		if strings.Contains(s, strings.ToLower(entry.substr)) {
			return entry.value
		}
	}
	return defaultSourceConfidence
}

// keywordSentiment is a signed keyword-frequency scan normalized to [-1, 1].
func keywordSentiment(text string) float64 {
	t := strings.ToLower(text)
	var pos, neg int
	for _, word := range positiveKeywords {
		pos += strings.Count(t, strings.ToLower(word))
	}
	for _, word := range negativeKeywords {
		neg += strings.Count(t, strings.ToLower(word))
	}
	if pos == 0 && neg == 0 {
		return 0
	}
	return clamp(float64(pos-neg)/float64(pos+neg+1), -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
