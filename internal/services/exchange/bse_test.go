package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuyingduo/stock-news/internal/common"
)

func TestBSEClient_FetchAll(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/disclosureInfoController/companyAnnouncement.do", r.URL.Path)

		callback := r.URL.Query().Get("callback")
		require.True(t, strings.HasPrefix(callback, "jQuery"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		form := string(raw)
		assert.Contains(t, form, "startTime=2025-06-02")
		assert.Contains(t, form, "endTime=2025-06-02")
		assert.Contains(t, form, "xxfcbj%5B%5D=2")
		assert.Contains(t, form, "needFields%5B%5D=disclosureTitle")

		var payload string
		if strings.Contains(form, "page=0") {
			payload = `{"listInfo":{"totalElements":2,"totalPages":2,"content":[` +
				`{"disclosureTitle":"权益分派实施公告","destFilePath":"/upload/a.pdf","companyCd":"832000","companyName":"测试股份","publishDate":"2025-06-02 09:00:00","xxzrlx":"9504-0603"}]}}`
		} else {
			payload = `{"listInfo":{"totalElements":2,"totalPages":2,"content":[` +
				`{"disclosureTitle":"第三届董事会决议","destFilePath":"http://www.bse.cn/b.pdf","companyCd":"832001","companyName":"另一家","publishDate":"2025-06-02","xxzrlx":"9504-0401"}]}}`
		}

		fmt.Fprintf(w, "%s([%s])", callback, payload)
	}))
	defer server.Close()

	client := NewBSEClient(testSourceConfig(server.URL, 20), testHTTPConfig(), common.GetLogger())

	notices, err := client.FetchAll(context.Background(), singleDayWindow())
	require.NoError(t, err)
	require.Len(t, notices, 2)
	assert.Equal(t, 2, requests, "totalPages of 2 must stop after the second page")

	first := notices[0]
	assert.Equal(t, "权益分派实施公告", first.Title)
	assert.Equal(t, server.URL+"/upload/a.pdf", first.DetailURL)
	assert.Equal(t, "832000", first.StockCode)
	assert.Equal(t, "权益分派", first.RawType, "subtype code resolves to its category name")
	assert.Equal(t, "北京证券交易所", first.Source)

	second := notices[1]
	assert.Equal(t, "http://www.bse.cn/b.pdf", second.DetailURL, "absolute paths pass through")
	assert.Equal(t, "董事会决议", second.RawType)
}

func TestBSEClient_PageZeroFailureReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewBSEClient(testSourceConfig(server.URL, 20), testHTTPConfig(), common.GetLogger())

	notices, err := client.FetchAll(context.Background(), singleDayWindow())
	require.NoError(t, err)
	assert.Empty(t, notices)
}

func TestBSEClient_BareObjectPayload(t *testing.T) {
	// Some responses skip the array wrapper; the parser falls back to a
	// bare object.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callback := r.URL.Query().Get("callback")
		payload := `{"listInfo":{"totalElements":1,"totalPages":1,"content":[` +
			`{"disclosureTitle":"补充公告","destFilePath":"/c.pdf","companyCd":"832002","companyName":"测三","publishDate":"2025-06-02","xxzrlx":"unknown-code"}]}}`
		fmt.Fprintf(w, "%s(%s)", callback, payload)
	}))
	defer server.Close()

	client := NewBSEClient(testSourceConfig(server.URL, 20), testHTTPConfig(), common.GetLogger())

	notices, err := client.FetchAll(context.Background(), singleDayWindow())
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "unknown-code", notices[0].RawType, "unmapped subtype codes stay verbatim")
}

func TestBSEClient_RecordsWithoutTitleOrPathDropped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callback := r.URL.Query().Get("callback")
		payload := `{"listInfo":{"totalElements":3,"totalPages":1,"content":[` +
			`{"disclosureTitle":"","destFilePath":"/a.pdf"},` +
			`{"disclosureTitle":"没有附件","destFilePath":""},` +
			`{"disclosureTitle":"完整记录","destFilePath":"/ok.pdf","companyCd":"832003"}]}}`
		fmt.Fprintf(w, "%s([%s])", callback, payload)
	}))
	defer server.Close()

	client := NewBSEClient(testSourceConfig(server.URL, 20), testHTTPConfig(), common.GetLogger())

	notices, err := client.FetchAll(context.Background(), singleDayWindow())
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "完整记录", notices[0].Title)
}
