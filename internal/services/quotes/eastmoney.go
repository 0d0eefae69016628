// Package quotes pulls A-share market data from the Eastmoney push service:
// the full quote list for hot-stock selection and per-security news used to
// supplement the disclosure feeds.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/httpclient"
)

const (
	defaultQuoteBaseURL = "https://push2.eastmoney.com"
	quoteListPath       = "/api/qt/clist/get"
	quoteReferer        = "https://quote.eastmoney.com/center/gridlist.html"
	quotePageSize       = 100
)

// fallbackHotStocks is served when the quote list is unreachable.
var fallbackHotStocks = []string{"000001", "600519", "300750", "601318", "000858"}

// Quote is one security row from the list endpoint.
type Quote struct {
	Code     string
	Name     string
	Price    float64
	Turnover float64
}

// QuoteClient fetches the Eastmoney quote list.
type QuoteClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewQuoteClient creates the quote-list client
func NewQuoteClient(cfg common.HTTPConfig, logger arbor.ILogger) *QuoteClient {
	return &QuoteClient{
		baseURL:    defaultQuoteBaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: httpclient.NewDefaultHTTPClient(cfg.Timeout),
		logger:     logger,
	}
}

// quoteRow matches the push2 diff entries. Numeric fields arrive as numbers
// or the string "-" for suspended securities, so they are decoded loosely.
type quoteRow struct {
	Code     string          `json:"f12"`
	Name     string          `json:"f14"`
	Price    json.RawMessage `json:"f2"`
	Turnover json.RawMessage `json:"f6"`
}

type quoteListResponse struct {
	Data struct {
		Total int        `json:"total"`
		Diff  []quoteRow `json:"diff"`
	} `json:"data"`
}

// FetchAll pages through the full A-share quote list.
func (c *QuoteClient) FetchAll(ctx context.Context) ([]Quote, error) {
	var quotes []Quote

	for page := 1; ; page++ {
		rows, total, err := c.fetchPage(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			c.logger.Warn().Int("page", page).Err(err).Msg("Quote page fetch failed, stopping pagination")
			break
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			quotes = append(quotes, Quote{
				Code:     row.Code,
				Name:     row.Name,
				Price:    looseFloat(row.Price),
				Turnover: looseFloat(row.Turnover),
			})
		}

		if len(quotes) >= total || len(rows) < quotePageSize {
			break
		}
	}

	c.logger.Info().Int("quotes", len(quotes)).Msg("Fetched quote list")
	return quotes, nil
}

func (c *QuoteClient) fetchPage(ctx context.Context, page int) ([]quoteRow, int, error) {
	query := url.Values{}
	query.Set("pn", strconv.Itoa(page))
	query.Set("pz", strconv.Itoa(quotePageSize))
	query.Set("po", "1")
	query.Set("np", "1")
	query.Set("fltt", "1")
	query.Set("invt", "2")
	query.Set("fid", "f3")
	query.Set("fs", "m:0 t:6 f:!2,m:0 t:80 f:!2,m:1 t:2 f:!2,m:1 t:23 f:!2,m:0 t:81 s:262144 f:!2")
	query.Set("fields", "f2,f6,f12,f14")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+quoteListPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", quoteReferer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("quote request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read quote response: %w", err)
	}

	var payload quoteListResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, 0, fmt.Errorf("failed to parse quote response: %w", err)
	}

	return payload.Data.Diff, payload.Data.Total, nil
}

// HotStocks returns the codes of the securities with the highest turnover.
// A fixed liquid-stock list stands in when the quote service is unreachable.
func (c *QuoteClient) HotStocks(ctx context.Context, limit int) []string {
	if limit <= 0 {
		limit = 10
	}

	quotes, err := c.FetchAll(ctx)
	if err != nil || len(quotes) == 0 {
		c.logger.Warn().Err(err).Msg("Quote list unavailable, serving fallback hot stocks")
		if limit < len(fallbackHotStocks) {
			return fallbackHotStocks[:limit]
		}
		return fallbackHotStocks
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Turnover > quotes[j].Turnover
	})

	if limit > len(quotes) {
		limit = len(quotes)
	}
	codes := make([]string, 0, limit)
	for _, quote := range quotes[:limit] {
		codes = append(codes, quote.Code)
	}
	return codes
}

// looseFloat decodes a push2 numeric cell, which is either a number or the
// string "-".
func looseFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}
