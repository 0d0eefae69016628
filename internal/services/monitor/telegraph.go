package monitor

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/httpclient"
)

// SourceTelegraph is the source label stamped on telegraph events.
const SourceTelegraph = "财联社电报"

const defaultTelegraphBaseURL = "https://www.cls.cn"

// Telegraph is one wire item from the feed.
type Telegraph struct {
	Title       string
	Content     string
	PublishedAt time.Time
	URL         string
}

// TelegraphFetcher pulls the latest page of wire items.
type TelegraphFetcher interface {
	FetchLatest(ctx context.Context) ([]Telegraph, error)
}

// TelegraphClient fetches the CLS telegraph roll. The API signs its query
// string with md5(sha1(sorted params)).
type TelegraphClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
}

var _ TelegraphFetcher = (*TelegraphClient)(nil)

// NewTelegraphClient creates the wire-feed client
func NewTelegraphClient(cfg common.HTTPConfig, logger arbor.ILogger) *TelegraphClient {
	return &TelegraphClient{
		baseURL:    defaultTelegraphBaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: httpclient.NewDefaultHTTPClient(cfg.Timeout),
		logger:     logger,
	}
}

type telegraphItem struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Brief    string `json:"brief"`
	CTime    int64  `json:"ctime"`
	ShareURL string `json:"shareurl"`
}

type telegraphResponse struct {
	Data struct {
		RollData []telegraphItem `json:"roll_data"`
	} `json:"data"`
}

// FetchLatest returns the newest page of telegraph items, newest first as the
// feed serves them.
func (c *TelegraphClient) FetchLatest(ctx context.Context) ([]Telegraph, error) {
	params := map[string]string{
		"app":          "CailianpressWeb",
		"category":     "",
		"lastTime":     "",
		"os":           "web",
		"refresh_type": "1",
		"rn":           "20",
		"sv":           "8.4.6",
	}
	params["sign"] = signTelegraphParams(params)

	query := url.Values{}
	for key, value := range params {
		query.Set(key, value)
	}

	reqURL := c.baseURL + "/nodeapi/updateTelegraphList?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build telegraph request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", "https://www.cls.cn/telegraph")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegraph request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegraph request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read telegraph response: %w", err)
	}

	var payload telegraphResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse telegraph response: %w", err)
	}

	items := make([]Telegraph, 0, len(payload.Data.RollData))
	for _, item := range payload.Data.RollData {
		title := strings.TrimSpace(item.Title)
		content := strings.TrimSpace(item.Content)
		if content == "" {
			content = strings.TrimSpace(item.Brief)
		}
		if title == "" {
			title = telegraphTitleFromContent(content)
		}
		if title == "" {
			continue
		}
		if content == "" {
			content = title
		}

		items = append(items, Telegraph{
			Title:       title,
			Content:     content,
			PublishedAt: time.Unix(item.CTime, 0),
			URL:         item.ShareURL,
		})
	}

	return items, nil
}

// signTelegraphParams computes the feed's query signature: the params sorted
// by key and joined k=v&..., run through sha1 then md5, hex-encoded.
func signTelegraphParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}
	joined := strings.Join(pairs, "&")

	sha := sha1.Sum([]byte(joined))
	shaHex := hex.EncodeToString(sha[:])
	sum := md5.Sum([]byte(shaHex))
	return hex.EncodeToString(sum[:])
}

// telegraphTitleFromContent derives a title for untitled wire flashes.
func telegraphTitleFromContent(content string) string {
	runes := []rune(content)
	if len(runes) == 0 {
		return ""
	}
	if len(runes) > 40 {
		runes = runes[:40]
	}
	return string(runes)
}
