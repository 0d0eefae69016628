package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/interfaces"
	"github.com/liuyingduo/stock-news/internal/models"
)

func testManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := NewManager(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir() + "/db"})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func testEvent(title string, date time.Time) *models.Event {
	return &models.Event{
		ID:               uuid.NewString(),
		Title:            title,
		Content:          title,
		Category:         models.CategoryCompany,
		Types:            []models.EventType{models.TypeOther},
		AnnouncementDate: date,
		Source:           "上海证券交易所",
	}
}

func TestEventStorage_SaveAndGet(t *testing.T) {
	manager := testManager(t)
	events := manager.EventStorage()
	ctx := context.Background()

	event := testEvent("测试公告", time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, events.SaveEvent(ctx, event))
	assert.False(t, event.CreatedAt.IsZero(), "first save stamps CreatedAt")

	loaded, err := events.GetEventByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.Title, loaded.Title)
	assert.Equal(t, event.Category, loaded.Category)

	_, err = events.GetEventByID(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrEventNotFound)
}

func TestEventStorage_UpsertPreservesCreatedAt(t *testing.T) {
	manager := testManager(t)
	events := manager.EventStorage()
	ctx := context.Background()

	event := testEvent("更新公告", time.Now())
	require.NoError(t, events.SaveEvent(ctx, event))
	created := event.CreatedAt

	updated := *event
	updated.Content = "新的正文"
	updated.CreatedAt = time.Time{}
	require.NoError(t, events.SaveEvent(ctx, &updated))

	loaded, err := events.GetEventByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "新的正文", loaded.Content)
	assert.Equal(t, created.Unix(), loaded.CreatedAt.Unix())

	count, err := events.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEventStorage_DedupGate(t *testing.T) {
	manager := testManager(t)
	events := manager.EventStorage()
	ctx := context.Background()

	morning := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 6, 2, 21, 30, 0, 0, time.UTC)
	nextDay := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	saved := testEvent("年度报告", morning)
	require.NoError(t, events.SaveEvent(ctx, saved))

	// Same title anywhere on the same calendar day is a hit.
	hit, err := events.GetEventByTitleDate(ctx, "年度报告", evening, "")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, hit.ID)

	// Different day or different title misses.
	_, err = events.GetEventByTitleDate(ctx, "年度报告", nextDay, "")
	assert.ErrorIs(t, err, interfaces.ErrEventNotFound)
	_, err = events.GetEventByTitleDate(ctx, "别的公告", morning, "")
	assert.ErrorIs(t, err, interfaces.ErrEventNotFound)
}

func TestEventStorage_DedupGateStockCode(t *testing.T) {
	manager := testManager(t)
	events := manager.EventStorage()
	ctx := context.Background()

	date := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	event := testEvent("关于股份回购的公告", date)
	event.StockCode = "600519"
	require.NoError(t, events.SaveEvent(ctx, event))

	// Two companies can publish the same title on the same day.
	_, err := events.GetEventByTitleDate(ctx, "关于股份回购的公告", date, "000001")
	assert.ErrorIs(t, err, interfaces.ErrEventNotFound)

	hit, err := events.GetEventByTitleDate(ctx, "关于股份回购的公告", date, "600519")
	require.NoError(t, err)
	assert.Equal(t, event.ID, hit.ID)
}

func TestEventStorage_ListEvents(t *testing.T) {
	manager := testManager(t)
	events := manager.EventStorage()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		event := testEvent(fmt.Sprintf("公告 %d", i), base.AddDate(0, 0, i))
		if i%2 == 0 {
			event.Category = models.CategoryPolicy
			event.Types = []models.EventType{models.TypeRegulatory}
		}
		require.NoError(t, events.SaveEvent(ctx, event))
	}

	all, total, err := events.ListEvents(ctx, interfaces.ListEventsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, all, 5)
	assert.Equal(t, "公告 4", all[0].Title, "newest first")

	policy, total, err := events.ListEvents(ctx, interfaces.ListEventsOptions{Category: models.CategoryPolicy})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, policy, 3)

	typed, _, err := events.ListEvents(ctx, interfaces.ListEventsOptions{EventType: models.TypeRegulatory})
	require.NoError(t, err)
	assert.Len(t, typed, 3)

	paged, total, err := events.ListEvents(ctx, interfaces.ListEventsOptions{Skip: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total, "total ignores paging")
	require.Len(t, paged, 2)
	assert.Equal(t, "公告 3", paged[0].Title)

	searched, _, err := events.ListEvents(ctx, interfaces.ListEventsOptions{Search: "公告 2"})
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, "公告 2", searched[0].Title)

	windowed, _, err := events.ListEvents(ctx, interfaces.ListEventsOptions{
		StartDate: base.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	assert.Len(t, windowed, 2)
}

func TestEventStorage_ListPendingAnalysis(t *testing.T) {
	manager := testManager(t)
	events := manager.EventStorage()
	ctx := context.Background()

	now := time.Now()
	pending := testEvent("待分析", now)
	require.NoError(t, events.SaveEvent(ctx, pending))

	analyzed := testEvent("已分析", now)
	analyzed.Analysis = &models.AIAnalysis{ConfidenceScore: 0.8, AnalyzedAt: now}
	require.NoError(t, events.SaveEvent(ctx, analyzed))

	old := testEvent("过期待分析", now.AddDate(0, 0, -30))
	require.NoError(t, events.SaveEvent(ctx, old))

	got, err := events.ListPendingAnalysis(ctx, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	recent, err := events.ListPendingAnalysis(ctx, now.AddDate(0, 0, -7), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "待分析", recent[0].Title)

	limited, err := events.ListPendingAnalysis(ctx, time.Time{}, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestEntityStorage_UpsertByCode(t *testing.T) {
	manager := testManager(t)
	entities := manager.EntityStorage()
	ctx := context.Background()

	require.NoError(t, entities.UpsertSector(ctx, "有色金属", "BK0478"))
	require.NoError(t, entities.UpsertSector(ctx, "有色金属板块", "BK0478"))
	require.NoError(t, entities.UpsertSector(ctx, "银行", "BK0475"))

	sectors, err := entities.ListSectors(ctx)
	require.NoError(t, err)
	require.Len(t, sectors, 2)

	byCode := map[string]*models.Sector{}
	for _, sector := range sectors {
		byCode[sector.Code] = sector
	}
	assert.Equal(t, "有色金属板块", byCode["BK0478"].Name, "later upsert renames")

	require.NoError(t, entities.UpsertStock(ctx, "贵州茅台", "600519"))
	require.NoError(t, entities.UpsertStock(ctx, "贵州茅台", "600519"))
	stocks, err := entities.ListStocks(ctx)
	require.NoError(t, err)
	assert.Len(t, stocks, 1)
}

func TestKVStorage_RoundTrip(t *testing.T) {
	manager := testManager(t)
	kv := manager.KVStorage()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "Monitor:Cursor", "2025-06-02T10:00:00Z"))

	// Keys are case-insensitive.
	value, err := kv.Get(ctx, "monitor:cursor")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02T10:00:00Z", value)

	require.NoError(t, kv.Set(ctx, "monitor:cursor", "updated"))
	value, err = kv.Get(ctx, "MONITOR:CURSOR")
	require.NoError(t, err)
	assert.Equal(t, "updated", value)

	require.NoError(t, kv.Delete(ctx, "monitor:cursor"))
	_, err = kv.Get(ctx, "monitor:cursor")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	assert.ErrorIs(t, kv.Delete(ctx, "monitor:cursor"), interfaces.ErrKeyNotFound)
}
