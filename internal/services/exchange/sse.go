package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/httpclient"
	"github.com/liuyingduo/stock-news/internal/models"
)

const (
	sseSourceName = "上海证券交易所"
	sseStaticHost = "https://static.sse.com.cn"
)

// SSEClient queries the Shanghai exchange bulletin API. Responses arrive in
// a JSONP envelope; the result payload is a two-dimensional array of record
// objects that gets flattened per page.
type SSEClient struct {
	baseURL    string
	staticHost string
	pageSize   int
	userAgent  string
	httpClient *http.Client
	retry      *httpclient.RetryPolicy
	delay      *httpclient.PolitenessDelay
	logger     arbor.ILogger
}

var _ Client = (*SSEClient)(nil)

// NewSSEClient creates a Shanghai exchange client
func NewSSEClient(cfg common.SourceConfig, httpCfg common.HTTPConfig, logger arbor.ILogger) *SSEClient {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	return &SSEClient{
		baseURL:    cfg.BaseURL,
		staticHost: sseStaticHost,
		pageSize:   pageSize,
		userAgent:  httpCfg.UserAgent,
		httpClient: httpclient.NewDefaultHTTPClient(httpCfg.Timeout),
		retry:      httpclient.NewRetryPolicy(httpCfg.MaxAttempts),
		delay:      httpclient.NewPolitenessDelay(cfg.DelayMin, cfg.DelayMax),
		logger:     logger,
	}
}

// Name returns the source label used on persisted events.
func (c *SSEClient) Name() string { return sseSourceName }

type ssePage struct {
	PageHelp struct {
		Total int             `json:"total"`
		Data  json.RawMessage `json:"data"`
	} `json:"pageHelp"`
	Result json.RawMessage `json:"result"`
}

type sseRecord struct {
	Title            string `json:"TITLE"`
	URL              string `json:"URL"`
	SecurityCode     string `json:"SECURITY_CODE"`
	SecurityName     string `json:"SECURITY_NAME"`
	BulletinTypeDesc string `json:"BULLETIN_TYPE_DESC"`
}

// FetchAll walks the window one day at a time; the bulletin API is queried
// with equal START_DATE and END_DATE.
func (c *SSEClient) FetchAll(ctx context.Context, window models.DateWindow) ([]models.Notice, error) {
	var all []models.Notice

	for day := window.Start; !day.After(window.End); day = day.AddDate(0, 0, 1) {
		notices, err := c.fetchDay(ctx, day)
		if err != nil {
			// Context cancellation is the only error that stops the sweep.
			return all, err
		}
		all = append(all, notices...)
	}

	return all, nil
}

func (c *SSEClient) fetchDay(ctx context.Context, day time.Time) ([]models.Notice, error) {
	dateStr := day.Format("2006-01-02")
	var notices []models.Notice
	pageNo := 1
	total := 0

	for {
		records, pageTotal, err := c.fetchPage(ctx, dateStr, pageNo)
		if err != nil {
			if ctx.Err() != nil {
				return notices, ctx.Err()
			}
			if pageNo == 1 {
				// Page-1 failure means no results for this window, not an error.
				c.logger.Debug().Str("date", dateStr).Err(err).Msg("SSE page 1 failed, treating as empty day")
				return nil, nil
			}
			// Later pages failing ends the pagination; keep what we have.
			c.logger.Debug().Str("date", dateStr).Int("page", pageNo).Err(err).Msg("SSE pagination ended early")
			break
		}

		if total == 0 {
			total = pageTotal
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			if rec.Title == "" || rec.URL == "" {
				continue
			}
			notices = append(notices, models.Notice{
				Title:       rec.Title,
				DetailURL:   resolveURL(c.staticHost, rec.URL),
				StockCode:   rec.SecurityCode,
				StockName:   rec.SecurityName,
				PublishedAt: day,
				RawType:     rec.BulletinTypeDesc,
				Source:      sseSourceName,
			})
		}

		if total > 0 && len(notices) >= total {
			break
		}
		if len(records) < c.pageSize {
			break
		}
		pageNo++
	}

	c.logger.Info().Str("date", dateStr).Int("count", len(notices)).Msg("Fetched SSE notices")
	return notices, nil
}

func (c *SSEClient) fetchPage(ctx context.Context, dateStr string, pageNo int) ([]sseRecord, int, error) {
	if err := c.delay.Wait(ctx); err != nil {
		return nil, 0, err
	}

	now := time.Now().UnixMilli()
	params := url.Values{}
	params.Set("jsonCallBack", newSSECallback())
	params.Set("isPagination", "true")
	params.Set("pageHelp.pageSize", strconv.Itoa(c.pageSize))
	params.Set("pageHelp.cacheSize", "1")
	params.Set("START_DATE", dateStr)
	params.Set("END_DATE", dateStr)
	params.Set("SECURITY_CODE", "")
	params.Set("TITLE", "")
	params.Set("BULLETIN_TYPE", "")
	params.Set("stockType", "")
	params.Set("pageHelp.pageNo", strconv.Itoa(pageNo))
	params.Set("pageHelp.beginPage", strconv.Itoa(pageNo))
	params.Set("pageHelp.endPage", strconv.Itoa(pageNo))
	params.Set("_", strconv.FormatInt(now, 10))

	reqURL := c.baseURL + "/security/stock/queryCompanyBulletinNew.do?" + params.Encode()

	var body []byte
	status, err := c.retry.ExecuteWithRetry(ctx, c.logger, func() (int, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if reqErr != nil {
			return 0, reqErr
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "*/*")
		req.Header.Set("Referer", "https://www.sse.com.cn/")

		resp, respErr := c.httpClient.Do(req)
		if respErr != nil {
			return 0, respErr
		}
		defer resp.Body.Close()

		body, reqErr = io.ReadAll(resp.Body)
		return resp.StatusCode, reqErr
	})
	if err != nil {
		return nil, 0, err
	}
	if status != http.StatusOK {
		return nil, 0, fmt.Errorf("unexpected status %d", status)
	}

	var page ssePage
	if err := json.Unmarshal([]byte(stripJSONP(string(body))), &page); err != nil {
		return nil, 0, fmt.Errorf("failed to parse SSE response: %w", err)
	}

	records := flattenSSERecords(page.Result)
	if len(records) == 0 {
		records = flattenSSERecords(page.PageHelp.Data)
	}

	return records, page.PageHelp.Total, nil
}

// flattenSSERecords handles the API's two result shapes: a flat array of
// records or an array of arrays.
func flattenSSERecords(raw json.RawMessage) []sseRecord {
	if len(raw) == 0 {
		return nil
	}

	var nested [][]sseRecord
	if err := json.Unmarshal(raw, &nested); err == nil {
		var out []sseRecord
		for _, inner := range nested {
			out = append(out, inner...)
		}
		return out
	}

	var flat []sseRecord
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat
	}

	return nil
}
