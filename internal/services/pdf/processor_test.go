package pdf

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/services/exchange"
)

// pdfFixture renders one page per line of text.
func pdfFixture(t *testing.T, lines ...string) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	for _, line := range lines {
		doc.AddPage()
		doc.SetFont("Arial", "", 12)
		doc.Cell(40, 10, line)
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func testProcessor(t *testing.T, cleanup bool) *Processor {
	t.Helper()
	cfg := common.PDFConfig{
		StorageDir:    t.TempDir(),
		MaxConcurrent: 2,
		Timeout:       10 * time.Second,
		Cleanup:       cleanup,
	}
	httpCfg := common.HTTPConfig{Timeout: 10 * time.Second, UserAgent: "test-agent", MaxAttempts: 1}

	p, err := NewProcessor(cfg, httpCfg, common.GetLogger())
	require.NoError(t, err)
	return p
}

func TestProcessor_DownloadAndExtract(t *testing.T) {
	fixture := pdfFixture(t, "annual report")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
	}))
	defer server.Close()

	p := testProcessor(t, false)
	url := server.URL + "/a.pdf"

	results := p.ProcessBatch(context.Background(), []string{url}, nil)
	require.Len(t, results, 1)

	res := results[url]
	require.NoError(t, res.Err)
	assert.FileExists(t, res.LocalPath)
}

func TestProcessor_CachedFileNotRedownloaded(t *testing.T) {
	fixture := pdfFixture(t, "cached")
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write(fixture)
	}))
	defer server.Close()

	p := testProcessor(t, false)
	url := server.URL + "/b.pdf"

	first := p.ProcessBatch(context.Background(), []string{url}, nil)
	require.NoError(t, first[url].Err)
	second := p.ProcessBatch(context.Background(), []string{url}, nil)
	require.NoError(t, second[url].Err)

	assert.Equal(t, 1, requests, "cached attachment must not be downloaded again")
	assert.Equal(t, first[url].LocalPath, second[url].LocalPath)
}

func TestProcessor_ChallengeSolvedAndRetriedOnce(t *testing.T) {
	fixture := pdfFixture(t, "protected")
	challenge := "<script>var arg1='6A1BD91A326E6D59624B3D30A11D8797179D2ABF';</script>"

	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if cookie, err := r.Cookie(exchange.WAFCookieName); err == nil && cookie.Value != "" {
			w.Write(fixture)
			return
		}
		fmt.Fprint(w, challenge)
	}))
	defer server.Close()

	p := testProcessor(t, false)
	url := server.URL + "/c.pdf"

	results := p.ProcessBatch(context.Background(), []string{url}, nil)
	res := results[url]
	require.NoError(t, res.Err)
	assert.Equal(t, 2, requests, "challenge must trigger exactly one retry")
	assert.FileExists(t, res.LocalPath)
}

func TestProcessor_PersistentChallengeFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<script>var arg1='6A1BD91A326E6D59624B3D30A11D8797179D2ABF';</script>")
	}))
	defer server.Close()

	p := testProcessor(t, false)
	url := server.URL + "/d.pdf"

	results := p.ProcessBatch(context.Background(), []string{url}, nil)
	assert.Error(t, results[url].Err)
}

func TestProcessor_CleanupRemovesBinary(t *testing.T) {
	fixture := pdfFixture(t, "ephemeral")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
	}))
	defer server.Close()

	p := testProcessor(t, true)
	url := server.URL + "/e.pdf"

	results := p.ProcessBatch(context.Background(), []string{url}, nil)
	res := results[url]
	require.NoError(t, res.Err)
	assert.Empty(t, res.LocalPath)

	entries, err := os.ReadDir(p.storageDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "binary must be deleted after extraction")
}

func TestProcessor_PartialFailureContinuesBatch(t *testing.T) {
	fixture := pdfFixture(t, "good")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.pdf" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(fixture)
	}))
	defer server.Close()

	p := testProcessor(t, false)
	good := server.URL + "/good.pdf"
	bad := server.URL + "/missing.pdf"

	results := p.ProcessBatch(context.Background(), []string{good, bad}, nil)
	require.Len(t, results, 2)
	assert.NoError(t, results[good].Err)
	assert.Error(t, results[bad].Err)
}

func TestProcessor_CustomHeadersForwarded(t *testing.T) {
	fixture := pdfFixture(t, "headers")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://www.szse.cn/", r.Header.Get("Referer"))
		w.Write(fixture)
	}))
	defer server.Close()

	p := testProcessor(t, false)
	url := server.URL + "/f.pdf"

	results := p.ProcessBatch(context.Background(), []string{url}, map[string]string{"Referer": "https://www.szse.cn/"})
	assert.NoError(t, results[url].Err)
}
