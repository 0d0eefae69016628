package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/httpclient"
	"github.com/liuyingduo/stock-news/internal/models"
)

const (
	szseSourceName   = "深圳证券交易所"
	szseDownloadHost = "https://disc.static.szse.cn/download"
	szseMaxPages     = 50
)

// szseCategories maps the exchange's bigCategoryId codes to their display
// names. The client sweeps each category separately so every notice carries
// an accurate category label.
var szseCategories = map[string]string{
	"010301":   "年度报告",
	"010303":   "半年度报告",
	"010305":   "一季度报告",
	"010307":   "三季度报告",
	"0102":     "首次公开发行及上市",
	"0105":     "配股",
	"0107":     "增发",
	"0109":     "可转换债券",
	"0110":     "权证相关公告",
	"0111":     "其它融资",
	"0113":     "权益分派与限制出售股份上市",
	"0115":     "股权变动",
	"0117":     "交易",
	"0119":     "股东会",
	"0121":     "澄清、风险提示、业绩预告事项",
	"0125":     "特别处理和退市",
	"0127":     "补充及更正",
	"0129":     "中介机构报告",
	"0131":     "上市公司制度",
	"0139":     "债券公告",
	"0123":     "其它重大事项",
	"01239901": "董事会公告",
	"01239910": "监事会公告",
}

// SZSEClient queries the Shenzhen exchange disclosure list API with a JSON
// POST body per category and page.
type SZSEClient struct {
	baseURL    string
	pageSize   int
	maxPages   int
	userAgent  string
	httpClient *http.Client
	retry      *httpclient.RetryPolicy
	delay      *httpclient.PolitenessDelay
	logger     arbor.ILogger
}

var _ Client = (*SZSEClient)(nil)

// NewSZSEClient creates a Shenzhen exchange client
func NewSZSEClient(cfg common.SourceConfig, httpCfg common.HTTPConfig, logger arbor.ILogger) *SZSEClient {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = szseMaxPages
	}
	return &SZSEClient{
		baseURL:    cfg.BaseURL,
		pageSize:   pageSize,
		maxPages:   maxPages,
		userAgent:  httpCfg.UserAgent,
		httpClient: httpclient.NewDefaultHTTPClient(httpCfg.Timeout),
		retry:      httpclient.NewRetryPolicy(httpCfg.MaxAttempts),
		delay:      httpclient.NewPolitenessDelay(cfg.DelayMin, cfg.DelayMax),
		logger:     logger,
	}
}

// Name returns the source label used on persisted events.
func (c *SZSEClient) Name() string { return szseSourceName }

type szseRequest struct {
	SeDate        []string `json:"seDate"`
	ChannelCode   []string `json:"channelCode"`
	PageSize      int      `json:"pageSize"`
	PageNum       int      `json:"pageNum"`
	BigCategoryID []string `json:"bigCategoryId,omitempty"`
}

type szseResponse struct {
	AnnounceCount int          `json:"announceCount"`
	Data          []szseRecord `json:"data"`
}

type szseRecord struct {
	Title       string   `json:"title"`
	AttachPath  string   `json:"attachPath"`
	SecCode     []string `json:"secCode"`
	SecName     []string `json:"secName"`
	PublishTime string   `json:"publishTime"`
	AnnID       int64    `json:"annId"`
}

// FetchAll sweeps every category over each day of the window.
func (c *SZSEClient) FetchAll(ctx context.Context, window models.DateWindow) ([]models.Notice, error) {
	var all []models.Notice

	for day := window.Start; !day.After(window.End); day = day.AddDate(0, 0, 1) {
		dateStr := day.Format("2006-01-02")

		for categoryID, categoryName := range szseCategories {
			notices, err := c.fetchCategory(ctx, day, dateStr, categoryID, categoryName)
			if err != nil {
				if ctx.Err() != nil {
					return all, ctx.Err()
				}
				// One category failing never aborts the sweep.
				c.logger.Debug().Str("date", dateStr).Str("category", categoryName).Err(err).Msg("SZSE category fetch failed")
				continue
			}
			all = append(all, notices...)
		}

		c.logger.Info().Str("date", dateStr).Int("count", len(all)).Msg("Fetched SZSE notices")
	}

	return all, nil
}

func (c *SZSEClient) fetchCategory(ctx context.Context, day time.Time, dateStr, categoryID, categoryName string) ([]models.Notice, error) {
	var notices []models.Notice
	pageNo := 1

	for {
		records, err := c.fetchPage(ctx, dateStr, pageNo, categoryID)
		if err != nil {
			if pageNo == 1 {
				return nil, err
			}
			break
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			if rec.Title == "" || rec.AttachPath == "" {
				continue
			}

			var stockCode, stockName string
			if len(rec.SecCode) > 0 {
				stockCode = rec.SecCode[0]
			}
			if len(rec.SecName) > 0 {
				stockName = rec.SecName[0]
			}

			notices = append(notices, models.Notice{
				Title:       rec.Title,
				DetailURL:   resolveURL(szseDownloadHost, rec.AttachPath),
				StockCode:   stockCode,
				StockName:   stockName,
				PublishedAt: parsePublishTime(rec.PublishTime, day),
				RawType:     categoryName,
				Source:      szseSourceName,
			})
		}

		if len(records) < c.pageSize {
			break
		}
		if pageNo >= c.maxPages {
			break
		}
		pageNo++
	}

	return notices, nil
}

func (c *SZSEClient) fetchPage(ctx context.Context, dateStr string, pageNo int, categoryID string) ([]szseRecord, error) {
	if err := c.delay.Wait(ctx); err != nil {
		return nil, err
	}

	payload := szseRequest{
		SeDate:        []string{dateStr, dateStr},
		ChannelCode:   []string{"listedNotice_disc"},
		PageSize:      c.pageSize,
		PageNum:       pageNo,
		BigCategoryID: []string{categoryID},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	reqURL := c.baseURL + "/api/disc/announcement/annList?random=" + strconv.FormatFloat(rand.Float64(), 'f', -1, 64)

	var body []byte
	status, err := c.retry.ExecuteWithRetry(ctx, c.logger, func() (int, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payloadBytes))
		if reqErr != nil {
			return 0, reqErr
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
		req.Header.Set("Origin", "https://www.szse.cn")
		req.Header.Set("Referer", "https://www.szse.cn/disclosure/listed/notice/index.html")
		req.Header.Set("X-Request-Type", "ajax")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")

		resp, respErr := c.httpClient.Do(req)
		if respErr != nil {
			return 0, respErr
		}
		defer resp.Body.Close()

		body, reqErr = io.ReadAll(resp.Body)
		return resp.StatusCode, reqErr
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", status)
	}

	var page szseResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse SZSE response: %w", err)
	}

	return page.Data, nil
}
