package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuyingduo/stock-news/internal/common"
)

func TestSZSEClient_FetchAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/disc/announcement/annList", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("random"))
		assert.Equal(t, "ajax", r.Header.Get("X-Request-Type"))

		var payload szseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []string{"2025-06-02", "2025-06-02"}, payload.SeDate)
		assert.Equal(t, []string{"listedNotice_disc"}, payload.ChannelCode)
		require.Len(t, payload.BigCategoryID, 1)

		// Only the annual-report channel has records in this fixture.
		if payload.BigCategoryID[0] != "010301" {
			fmt.Fprint(w, `{"announceCount":0,"data":[]}`)
			return
		}

		fmt.Fprint(w, `{"announceCount":1,"data":[`+
			`{"title":"2024年年度报告","attachPath":"/disc/fin.pdf","secCode":["000001"],"secName":["平安银行"],"publishTime":"2025-06-02 08:30:00","annId":12345}]}`)
	}))
	defer server.Close()

	client := NewSZSEClient(testSourceConfig(server.URL, 50), testHTTPConfig(), common.GetLogger())

	notices, err := client.FetchAll(context.Background(), singleDayWindow())
	require.NoError(t, err)
	require.Len(t, notices, 1)

	n := notices[0]
	assert.Equal(t, "2024年年度报告", n.Title)
	assert.Equal(t, "https://disc.static.szse.cn/download/disc/fin.pdf", n.DetailURL)
	assert.Equal(t, "000001", n.StockCode)
	assert.Equal(t, "平安银行", n.StockName)
	assert.Equal(t, "年度报告", n.RawType)
	assert.Equal(t, "深圳证券交易所", n.Source)
	assert.Equal(t, 8, n.PublishedAt.Hour())
}

func TestSZSEClient_BadPublishTimeFallsBackToQueryDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload szseRequest
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload.BigCategoryID[0] != "0123" {
			fmt.Fprint(w, `{"announceCount":0,"data":[]}`)
			return
		}
		fmt.Fprint(w, `{"announceCount":1,"data":[`+
			`{"title":"重大事项公告","attachPath":"/disc/x.pdf","secCode":["300750"],"secName":["宁德时代"],"publishTime":"not-a-date"}]}`)
	}))
	defer server.Close()

	client := NewSZSEClient(testSourceConfig(server.URL, 50), testHTTPConfig(), common.GetLogger())

	notices, err := client.FetchAll(context.Background(), singleDayWindow())
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, singleDayWindow().Start, notices[0].PublishedAt)
}

func TestSZSEClient_ServerErrorSkipsCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewSZSEClient(testSourceConfig(server.URL, 50), testHTTPConfig(), common.GetLogger())

	// Every category fails; the sweep still completes with no notices.
	notices, err := client.FetchAll(context.Background(), singleDayWindow())
	require.NoError(t, err)
	assert.Empty(t, notices)
}

func TestParsePublishTime(t *testing.T) {
	def := singleDayWindow().Start

	parsed := parsePublishTime("2025-06-02 14:05:06", def)
	assert.Equal(t, 14, parsed.Hour())

	assert.Equal(t, 2, parsePublishTime("2025-06-02", def).Day())
	assert.Equal(t, 2, parsePublishTime("20250602", def).Day())
	assert.Equal(t, 2, parsePublishTime("2025/06/02", def).Day())
	assert.Equal(t, def, parsePublishTime("garbage", def))
	assert.Equal(t, def, parsePublishTime("", def))
}
