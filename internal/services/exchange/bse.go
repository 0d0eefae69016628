package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/httpclient"
	"github.com/liuyingduo/stock-news/internal/models"
)

const bseSourceName = "北京证券交易所"

// bseCategories groups the exchange's disclosureSubtype codes under display
// names. The reverse map resolves a record's raw type code to its category.
var bseCategories = map[string][]string{
	"年度报告":  {"9503-1001", "9503-1005"},
	"半年度报告": {"9503-1002", "9503-1006"},
	"一季度报告": {"9503-1003", "9504-8001"},
	"三季度报告": {"9503-1004", "9504-2106"},
	"业绩预告、业绩快报类": {"9504-0301", "9504-0302", "9504-0303", "9504-0304"},
	"公开发行类": {
		"9504-2006", "9504-2007", "9504-2008", "9504-2722", "9504-2723",
		"9504-4003", "9504-4004", "9504-4005",
		"9533-1001", "9533-1002", "9533-1005", "9533-1006", "9533-1007",
		"9533-1008", "9533-1003", "9533-1004", "9533-1018", "9533-1010",
		"9533-1011", "9533-1012", "9533-1013", "9533-1014", "9533-1015",
		"9533-1016", "9533-1017", "9533-1019", "9533-1020", "9533-1021",
		"9533-1022", "9533-1023", "9533-1024", "9533-9998", "9533-9999",
	},
	"董事会决议":  {"9504-0401"},
	"监事会决议":  {"9504-0402"},
	"股东大会决议": {"9504-0404"},
	"权益分派":   {"9504-0603", "9504-0604"},
	"股权激励类": {
		"9504-1301", "9504-1302", "9504-1303", "9504-1304", "9504-1305",
		"9504-1306", "9504-1307", "9504-1308", "9504-1309", "9504-1310",
		"9504-1311", "9504-1312", "9504-1314", "9504-1315", "9504-1316",
		"9504-3399",
	},
	"员工持股计划类": {"9504-1401", "9504-1402", "9504-1403", "9504-3499"},
	"募集资金管理类": {
		"9504-4401", "9504-4402", "9504-4403", "9504-4404", "9504-4405",
		"9504-4406", "9504-4407", "9504-4408", "9504-4409", "9504-4410",
		"9504-4411", "9504-4412", "9504-4413", "9504-4414", "9504-4415",
		"9504-4416", "9504-4417", "9504-4418", "9504-4499",
	},
	"股份回购类": {
		"9504-3501", "9504-3502", "9504-3503", "9504-3504", "9504-3505",
		"9504-3506", "9504-3507", "9504-3508", "9504-3509", "9504-3510",
		"9504-3511", "9504-3512", "9504-3513", "9504-3539", "9504-3599",
	},
	"公司经营类": {
		"9504-0503", "9504-0502", "9504-0504", "9504-2404", "9504-2405",
		"9504-2406", "9504-2407", "9504-2408", "9504-2409", "9504-0501",
		"9504-2411", "9504-2412", "9504-2413", "9504-2414", "9504-2471",
		"9504-2472", "9504-2473", "9504-2474", "9504-2499",
	},
}

// bseCodeToCategory is the reverse lookup built from bseCategories.
var bseCodeToCategory = func() map[string]string {
	m := make(map[string]string)
	for category, codes := range bseCategories {
		for _, code := range codes {
			m[code] = category
		}
	}
	return m
}()

// BSEClient queries the Beijing exchange announcement controller. Requests
// are form posts with repeated array keys; responses come in a jQuery-style
// JSONP envelope whose payload is a single-element array.
type BSEClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	retry      *httpclient.RetryPolicy
	delay      *httpclient.PolitenessDelay
	logger     arbor.ILogger
}

var _ Client = (*BSEClient)(nil)

// NewBSEClient creates a Beijing exchange client
func NewBSEClient(cfg common.SourceConfig, httpCfg common.HTTPConfig, logger arbor.ILogger) *BSEClient {
	return &BSEClient{
		baseURL:    cfg.BaseURL,
		userAgent:  httpCfg.UserAgent,
		httpClient: httpclient.NewDefaultHTTPClient(httpCfg.Timeout),
		retry:      httpclient.NewRetryPolicy(httpCfg.MaxAttempts),
		delay:      httpclient.NewPolitenessDelay(cfg.DelayMin, cfg.DelayMax),
		logger:     logger,
	}
}

// Name returns the source label used on persisted events.
func (c *BSEClient) Name() string { return bseSourceName }

type bseResponse struct {
	ListInfo struct {
		TotalElements int         `json:"totalElements"`
		TotalPages    int         `json:"totalPages"`
		Content       []bseRecord `json:"content"`
	} `json:"listInfo"`
}

type bseRecord struct {
	DisclosureTitle string `json:"disclosureTitle"`
	DestFilePath    string `json:"destFilePath"`
	CompanyCd       string `json:"companyCd"`
	CompanyName     string `json:"companyName"`
	PublishDate     string `json:"publishDate"`
	XXZRLX          string `json:"xxzrlx"`
	FileExt         string `json:"fileExt"`
}

// FetchAll walks the window one day at a time. BSE pages are numbered from
// zero and termination comes from the reported totalPages.
func (c *BSEClient) FetchAll(ctx context.Context, window models.DateWindow) ([]models.Notice, error) {
	var all []models.Notice

	for day := window.Start; !day.After(window.End); day = day.AddDate(0, 0, 1) {
		notices, err := c.fetchDay(ctx, day)
		if err != nil {
			return all, err
		}
		all = append(all, notices...)
	}

	return all, nil
}

func (c *BSEClient) fetchDay(ctx context.Context, day time.Time) ([]models.Notice, error) {
	dateStr := day.Format("2006-01-02")
	var notices []models.Notice
	pageNo := 0

	for {
		result, err := c.fetchPage(ctx, dateStr, pageNo)
		if err != nil {
			if ctx.Err() != nil {
				return notices, ctx.Err()
			}
			if pageNo == 0 {
				c.logger.Debug().Str("date", dateStr).Err(err).Msg("BSE page 0 failed, treating as empty day")
				return nil, nil
			}
			break
		}

		records := result.ListInfo.Content
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			if rec.DisclosureTitle == "" || rec.DestFilePath == "" {
				continue
			}

			rawType := rec.XXZRLX
			if name, ok := bseCodeToCategory[rawType]; ok {
				rawType = name
			}

			notices = append(notices, models.Notice{
				Title:       rec.DisclosureTitle,
				DetailURL:   resolveURL(c.baseURL, rec.DestFilePath),
				StockCode:   rec.CompanyCd,
				StockName:   rec.CompanyName,
				PublishedAt: parsePublishTime(rec.PublishDate, day),
				RawType:     rawType,
				Source:      bseSourceName,
			})
		}

		if pageNo >= result.ListInfo.TotalPages-1 {
			break
		}
		pageNo++
	}

	c.logger.Info().Str("date", dateStr).Int("count", len(notices)).Msg("Fetched BSE notices")
	return notices, nil
}

func (c *BSEClient) fetchPage(ctx context.Context, dateStr string, pageNo int) (*bseResponse, error) {
	if err := c.delay.Wait(ctx); err != nil {
		return nil, err
	}

	// The controller expects repeated array keys, so the form body is built
	// as ordered pairs rather than url.Values.
	pairs := [][2]string{
		{"startTime", dateStr},
		{"endTime", dateStr},
		{"isNewThree", "1"},
		{"page", strconv.Itoa(pageNo)},
		{"companyCd", ""},
		{"keyword", ""},
		{"sortfield", "xxssdq"},
		{"sorttype", "asc"},
		{"xxfcbj[]", "2"},
	}
	for _, field := range []string{
		"companyCd", "companyName", "disclosureTitle",
		"disclosurePostTitle", "destFilePath", "publishDate",
		"xxfcbj", "fileExt", "xxzrlx",
	} {
		pairs = append(pairs, [2]string{"needFields[]", field})
	}

	var form strings.Builder
	for i, p := range pairs {
		if i > 0 {
			form.WriteByte('&')
		}
		form.WriteString(url.QueryEscape(p[0]))
		form.WriteByte('=')
		form.WriteString(url.QueryEscape(p[1]))
	}

	reqURL := c.baseURL + "/disclosureInfoController/companyAnnouncement.do?callback=" + newBSECallback()

	var body []byte
	status, err := c.retry.ExecuteWithRetry(ctx, c.logger, func() (int, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.String()))
		if reqErr != nil {
			return 0, reqErr
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		req.Header.Set("Accept", "text/javascript, application/javascript, */*; q=0.01")
		req.Header.Set("Origin", "https://www.bse.cn")
		req.Header.Set("Referer", "https://www.bse.cn/disclosure/announcement.html")
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

	// The payload is a single-element array wrapping the result object.
	inner := stripJSONP(string(body))
	var wrapped []bseResponse
	if err := json.Unmarshal([]byte(inner), &wrapped); err != nil {
		var single bseResponse
		if err2 := json.Unmarshal([]byte(inner), &single); err2 != nil {
			return nil, fmt.Errorf("failed to parse BSE response: %w", err)
		}
		return &single, nil
	}
	if len(wrapped) == 0 {
		return nil, fmt.Errorf("empty BSE response")
	}

	return &wrapped[0], nil
}
