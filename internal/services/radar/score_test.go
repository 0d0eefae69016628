package radar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/models"
)

func testEngine() *Engine {
	return NewEngine(common.RadarConfig{FreshnessWindowHours: 72}, common.GetLogger())
}

func aiEvent(impact, sentiment, confidence float64, age time.Duration, now time.Time) *models.Event {
	return &models.Event{
		ID:               "evt-1",
		Title:            "测试事件",
		Category:         models.CategoryCompany,
		Types:            []models.EventType{models.TypeFinPerf},
		AnnouncementDate: now.Add(-age),
		Source:           "上海证券交易所",
		Analysis: &models.AIAnalysis{
			ImpactScore:     impact,
			SentimentScore:  sentiment,
			ConfidenceScore: confidence,
		},
	}
}

func TestScore_WorkedExample(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	// 36h of a 72h window puts freshness at exactly 50.
	event := aiEvent(0.8, 0.6, 0.9, 36*time.Hour, now)

	card := testEngine().Score(event, now)

	assert.Equal(t, 80.0, card.Impact)
	assert.Equal(t, 60.0, card.Sentiment)
	assert.Equal(t, 90.0, card.Confidence)
	assert.Equal(t, 50.0, card.Freshness)
	assert.Equal(t, 72.5, card.Relevance)
	assert.Equal(t, models.DirectionOpportunity, card.Direction)
	assert.True(t, card.HasAI)
	assert.Equal(t, models.MethodLLM, card.Method)
}

func TestScore_Idempotent(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	event := aiEvent(0.42, -0.3, 0.7, 10*time.Hour, now)
	engine := testEngine()

	first := engine.Score(event, now)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, engine.Score(event, now))
	}
}

func TestScore_DirectionThresholds(t *testing.T) {
	now := time.Now()
	engine := testEngine()

	assert.Equal(t, models.DirectionOpportunity, engine.Score(aiEvent(0.5, 0.2, 0.5, 0, now), now).Direction)
	assert.Equal(t, models.DirectionRisk, engine.Score(aiEvent(0.5, -0.2, 0.5, 0, now), now).Direction)
	assert.Equal(t, models.DirectionNeutral, engine.Score(aiEvent(0.5, 0.19, 0.5, 0, now), now).Direction)
	assert.Equal(t, models.DirectionNeutral, engine.Score(aiEvent(0.5, -0.19, 0.5, 0, now), now).Direction)
}

func TestFreshness_Boundaries(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	engine := testEngine()

	assert.Equal(t, 100.0, engine.Score(aiEvent(0, 0, 0, 0, now), now).Freshness)
	assert.Equal(t, 0.0, engine.Score(aiEvent(0, 0, 0, 72*time.Hour, now), now).Freshness)
	assert.Equal(t, 0.0, engine.Score(aiEvent(0, 0, 0, 200*time.Hour, now), now).Freshness)

	// Strictly decreasing inside the window.
	prev := 101.0
	for _, age := range []time.Duration{0, 6 * time.Hour, 24 * time.Hour, 48 * time.Hour, 71 * time.Hour} {
		freshness := engine.Score(aiEvent(0, 0, 0, age, now), now).Freshness
		assert.Less(t, freshness, prev)
		prev = freshness
	}
}

func TestRelevance_MonotoneInEachFactor(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	engine := testEngine()

	base := engine.Score(aiEvent(0.4, 0.3, 0.5, 24*time.Hour, now), now).Relevance

	assert.GreaterOrEqual(t, engine.Score(aiEvent(0.6, 0.3, 0.5, 24*time.Hour, now), now).Relevance, base)
	assert.GreaterOrEqual(t, engine.Score(aiEvent(0.4, 0.5, 0.5, 24*time.Hour, now), now).Relevance, base)
	assert.GreaterOrEqual(t, engine.Score(aiEvent(0.4, -0.5, 0.5, 24*time.Hour, now), now).Relevance, base, "|sentiment| drives relevance")
	assert.GreaterOrEqual(t, engine.Score(aiEvent(0.4, 0.3, 0.8, 24*time.Hour, now), now).Relevance, base)
	assert.GreaterOrEqual(t, engine.Score(aiEvent(0.4, 0.3, 0.5, 2*time.Hour, now), now).Relevance, base)
}

func TestScore_AIValuesReclamped(t *testing.T) {
	now := time.Now()
	card := testEngine().Score(aiEvent(5, -3, 2, 0, now), now)

	assert.Equal(t, 100.0, card.Impact)
	assert.Equal(t, -100.0, card.Sentiment)
	assert.Equal(t, 100.0, card.Confidence)
}

func TestScore_HeuristicPath(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	event := &models.Event{
		ID:               "evt-h",
		Title:            "订单超预期增长",
		Content:          strings.Repeat("公司中标重大项目，业绩增长。", 20),
		Category:         models.CategoryPolicy,
		Types:            []models.EventType{models.TypeOrderContract, models.TypeFinPerf},
		AnnouncementDate: now,
		Source:           "财联社电报",
	}

	card := testEngine().Score(event, now)

	assert.False(t, card.HasAI)
	assert.Equal(t, models.MethodHeuristic, card.Method)
	// Policy base rate dominates the impact estimate.
	assert.GreaterOrEqual(t, card.Impact, 75.0)
	assert.Greater(t, card.Sentiment, 0.0, "positive keywords must push sentiment up")
	assert.Greater(t, card.Confidence, 0.0)
}

func TestScore_HeuristicNegativeKeywords(t *testing.T) {
	now := time.Now()
	event := &models.Event{
		ID:               "evt-n",
		Title:            "公司收到处罚决定并面临诉讼",
		Content:          "公司因违约被处罚，且存在亏损风险，股东减持。",
		Category:         models.CategoryCompany,
		Types:            []models.EventType{models.TypeRegulatory},
		AnnouncementDate: now,
		Source:           "未知来源",
	}

	card := testEngine().Score(event, now)
	assert.Less(t, card.Sentiment, 0.0)
}

func TestSourceConfidence(t *testing.T) {
	assert.Equal(t, 0.95, sourceConfidenceFor("上海证券交易所"))
	assert.Equal(t, 0.95, sourceConfidenceFor("深交所上市公司公告"))
	assert.Equal(t, 0.92, sourceConfidenceFor("中国证监会"))
	assert.Equal(t, 0.82, sourceConfidenceFor("财联社电报"))
	assert.Equal(t, 0.9, sourceConfidenceFor("Reuters News"))
	assert.Equal(t, defaultSourceConfidence, sourceConfidenceFor("某自媒体"))
	assert.Equal(t, defaultSourceConfidence, sourceConfidenceFor(""))
}

func TestMarketIndex(t *testing.T) {
	assert.Equal(t, 0.0, MarketIndex(nil))

	cards := []models.ScoreCard{
		{Sentiment: 60, Confidence: 100},
		{Sentiment: -40, Confidence: 50},
	}
	// 60*(0.5+0.5)=60; -40*(0.5+0.25)=-30; mean=15.
	assert.Equal(t, 15.0, MarketIndex(cards))
}

func TestMarketIndex_Clamped(t *testing.T) {
	cards := []models.ScoreCard{{Sentiment: 100, Confidence: 100}, {Sentiment: 100, Confidence: 100}}
	assert.Equal(t, 100.0, MarketIndex(cards))
}

func TestBuildOverviewAndSignals(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	engine := testEngine()

	events := []*models.Event{
		aiEvent(0.8, 0.6, 0.9, time.Hour, now),
		aiEvent(0.7, -0.5, 0.8, 2*time.Hour, now),
		aiEvent(0.3, 0.0, 0.5, 3*time.Hour, now),
		aiEvent(0.9, 0.9, 0.9, 4*time.Hour, now),
	}
	events[1].ID = "evt-2"
	events[2].ID = "evt-3"
	events[3].ID = "evt-4"

	cards := engine.BuildCards(events, now)
	require.Len(t, cards, 4)

	overview := BuildOverview(cards, 72, now)
	assert.Equal(t, 4, overview.SampleSize)
	assert.Equal(t, 2, overview.OpportunityCount)
	assert.Equal(t, 1, overview.RiskCount)
	assert.Equal(t, 1, overview.NeutralCount)
	assert.NotZero(t, overview.AvgConfidence)

	opportunities := Signals(cards, models.DirectionOpportunity, 10)
	require.Len(t, opportunities, 2)
	assert.Equal(t, "evt-4", opportunities[0].Event.ID, "strongest |sentiment| first")

	top := TopEvents(cards, 50, 2)
	require.Len(t, top, 2)
	assert.GreaterOrEqual(t, top[0].Card.Relevance, top[1].Card.Relevance)
}

func TestRenderReport(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	engine := testEngine()

	events := []*models.Event{aiEvent(0.8, 0.6, 0.9, time.Hour, now)}
	events[0].OriginalURL = "https://static.sse.com.cn/a.pdf"
	cards := engine.BuildCards(events, now)
	overview := BuildOverview(cards, 72, now)

	md := RenderMarkdown(overview, Signals(cards, models.DirectionOpportunity, 10), nil)
	assert.Contains(t, md, "# 市场机会雷达")
	assert.Contains(t, md, "市场指数")
	assert.Contains(t, md, "测试事件")

	html, err := RenderHTML(md)
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<!DOCTYPE html>")
}
