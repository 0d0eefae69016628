package quotes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuyingduo/stock-news/internal/common"
)

func testHTTPConfig() common.HTTPConfig {
	return common.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test-agent"}
}

func TestQuoteClient_FetchAllPaginates(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		page, _ := strconv.Atoi(r.URL.Query().Get("pn"))

		// 150 rows over two pages of 100.
		start := (page - 1) * quotePageSize
		var rows string
		for i := start; i < start+quotePageSize && i < 150; i++ {
			if rows != "" {
				rows += ","
			}
			rows += fmt.Sprintf(`{"f12":"%06d","f14":"股票%d","f2":1230,"f6":%d}`, i, i, (150-i)*1000)
		}
		fmt.Fprintf(w, `{"data":{"total":150,"diff":[%s]}}`, rows)
	}))
	defer server.Close()

	client := NewQuoteClient(testHTTPConfig(), common.GetLogger())
	client.baseURL = server.URL

	quotes, err := client.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, quotes, 150)
	assert.Equal(t, 2, requests)
	assert.Equal(t, "000000", quotes[0].Code)
	assert.Equal(t, 1230.0, quotes[0].Price)
	assert.Equal(t, 150000.0, quotes[0].Turnover)
}

func TestQuoteClient_SuspendedSecurityDashFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"total":1,"diff":[{"f12":"000001","f14":"平安银行","f2":"-","f6":"-"}]}}`)
	}))
	defer server.Close()

	client := NewQuoteClient(testHTTPConfig(), common.GetLogger())
	client.baseURL = server.URL

	quotes, err := client.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Zero(t, quotes[0].Price)
	assert.Zero(t, quotes[0].Turnover)
}

func TestHotStocks_SortedByTurnover(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"total":3,"diff":[
			{"f12":"000001","f14":"平安银行","f2":1000,"f6":500},
			{"f12":"600519","f14":"贵州茅台","f2":160000,"f6":9000},
			{"f12":"300750","f14":"宁德时代","f2":20000,"f6":3000}
		]}}`)
	}))
	defer server.Close()

	client := NewQuoteClient(testHTTPConfig(), common.GetLogger())
	client.baseURL = server.URL

	codes := client.HotStocks(context.Background(), 2)
	assert.Equal(t, []string{"600519", "300750"}, codes)
}

func TestHotStocks_FallbackOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewQuoteClient(testHTTPConfig(), common.GetLogger())
	client.baseURL = server.URL

	codes := client.HotStocks(context.Background(), 10)
	assert.Equal(t, fallbackHotStocks, codes)

	assert.Len(t, client.HotStocks(context.Background(), 3), 3)
}

func TestNewsClient_FetchNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("param"), "600519")
		fmt.Fprint(w, `{"result":{"cmsArticleWebOld":[
			{"title":"<em>贵州茅台</em>发布年报","content":"公司<em>业绩</em>稳健增长。","date":"2025-06-02 09:30:00","mediaName":"证券时报","url":"https://finance.eastmoney.com/a/1.html"},
			{"title":"","content":"无标题条目被丢弃","date":"2025-06-02 09:31:00"},
			{"title":"另一条新闻","content":"","date":"bad-date"}
		]}}`)
	}))
	defer server.Close()

	client := NewNewsClient(testHTTPConfig(), common.GetLogger())
	client.baseURL = server.URL

	items, err := client.FetchNews(context.Background(), "600519")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "贵州茅台发布年报", items[0].Title)
	assert.Equal(t, "公司业绩稳健增长。", items[0].Content)
	assert.Equal(t, "证券时报", items[0].Source)
	assert.Equal(t, "https://finance.eastmoney.com/a/1.html", items[0].URL)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC), items[0].PublishedAt)

	// Empty content falls back to the title, missing publisher to the
	// default, and an unparseable date to now.
	assert.Equal(t, "另一条新闻", items[1].Content)
	assert.Equal(t, SourceEastmoney, items[1].Source)
	assert.WithinDuration(t, time.Now(), items[1].PublishedAt, time.Minute)
}

func TestNewsClient_FetchArticleBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div id="ContentBody"><p>第一段。</p><p><strong>重点</strong>第二段。</p></div>
		</body></html>`)
	}))
	defer server.Close()

	client := NewNewsClient(testHTTPConfig(), common.GetLogger())

	body := client.FetchArticleBody(context.Background(), server.URL)
	assert.Contains(t, body, "第一段。")
	assert.Contains(t, body, "**重点**")
}

func TestNewsClient_FetchArticleBody_NoContainer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="nav">导航</div></body></html>`)
	}))
	defer server.Close()

	client := NewNewsClient(testHTTPConfig(), common.GetLogger())
	assert.Empty(t, client.FetchArticleBody(context.Background(), server.URL))
}
