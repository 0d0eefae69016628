package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/httpclient"
	"github.com/liuyingduo/stock-news/internal/services/classify"
)

const (
	defaultNewsBaseURL = "https://search-api-web.eastmoney.com"
	newsSearchPath     = "/search/jam"
	newsPageSize       = 20

	// SourceEastmoney is stamped on news items whose article carries no
	// publisher name.
	SourceEastmoney = "东方财富网"
)

// NewsItem is one news article reference for a security.
type NewsItem struct {
	Title       string
	Content     string
	PublishedAt time.Time
	Source      string
	URL         string
}

// NewsClient fetches per-security news from the Eastmoney search API and can
// pull full article bodies as markdown.
type NewsClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	converter  *md.Converter
	logger     arbor.ILogger
}

// NewNewsClient creates the news client
func NewNewsClient(cfg common.HTTPConfig, logger arbor.ILogger) *NewsClient {
	return &NewsClient{
		baseURL:    defaultNewsBaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: httpclient.NewDefaultHTTPClient(cfg.Timeout),
		converter:  md.NewConverter("", true, nil),
		logger:     logger,
	}
}

type newsSearchParam struct {
	UID     string   `json:"uid"`
	Keyword string   `json:"keyword"`
	Type    []string `json:"type"`
	Client  string   `json:"client"`
	Param   struct {
		CmsArticleWebOld struct {
			SearchScope string `json:"searchScope"`
			Sort        string `json:"sort"`
			PageIndex   int    `json:"pageIndex"`
			PageSize    int    `json:"pageSize"`
			PreTag      string `json:"preTag"`
			PostTag     string `json:"postTag"`
		} `json:"cmsArticleWebOld"`
	} `json:"param"`
}

type newsArticle struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Date      string `json:"date"`
	MediaName string `json:"mediaName"`
	URL       string `json:"url"`
}

type newsSearchResponse struct {
	Result struct {
		CmsArticleWebOld []newsArticle `json:"cmsArticleWebOld"`
	} `json:"result"`
}

// FetchNews returns recent news for one security code, newest first as the
// search API serves them.
func (c *NewsClient) FetchNews(ctx context.Context, stockCode string) ([]NewsItem, error) {
	param := newsSearchParam{
		Keyword: stockCode,
		Type:    []string{"cmsArticleWebOld"},
		Client:  "web",
	}
	param.Param.CmsArticleWebOld.SearchScope = "default"
	param.Param.CmsArticleWebOld.Sort = "default"
	param.Param.CmsArticleWebOld.PageIndex = 1
	param.Param.CmsArticleWebOld.PageSize = newsPageSize
	param.Param.CmsArticleWebOld.PreTag = "<em>"
	param.Param.CmsArticleWebOld.PostTag = "</em>"

	encoded, err := json.Marshal(param)
	if err != nil {
		return nil, fmt.Errorf("failed to encode news query: %w", err)
	}

	query := url.Values{}
	query.Set("param", string(encoded))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+newsSearchPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build news request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read news response: %w", err)
	}

	var payload newsSearchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse news response: %w", err)
	}

	now := time.Now()
	items := make([]NewsItem, 0, len(payload.Result.CmsArticleWebOld))
	for _, article := range payload.Result.CmsArticleWebOld {
		title := stripEmphasisTags(article.Title)
		if title == "" {
			continue
		}
		content := stripEmphasisTags(article.Content)
		if content == "" {
			content = title
		}
		source := article.MediaName
		if source == "" {
			source = SourceEastmoney
		}

		items = append(items, NewsItem{
			Title:       title,
			Content:     content,
			PublishedAt: classify.ParseDate(article.Date, now),
			Source:      source,
			URL:         article.URL,
		})
	}

	return items, nil
}

// articleBodySelectors is tried in order on article pages.
var articleBodySelectors = []string{"#ContentBody", ".article-content", "article"}

// FetchArticleBody pulls one article page and returns its body as markdown.
// Empty string when no recognizable body container exists.
func (c *NewsClient) FetchArticleBody(ctx context.Context, articleURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Str("url", articleURL).Err(err).Msg("Article fetch failed")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	for _, selector := range articleBodySelectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		html, err := sel.First().Html()
		if err != nil {
			continue
		}
		markdown, err := c.converter.ConvertString(html)
		if err != nil {
			c.logger.Debug().Str("url", articleURL).Err(err).Msg("Article markdown conversion failed")
			return ""
		}
		return strings.TrimSpace(markdown)
	}

	return ""
}

// stripEmphasisTags removes the search highlighter's <em> markers.
func stripEmphasisTags(s string) string {
	s = strings.ReplaceAll(s, "<em>", "")
	s = strings.ReplaceAll(s, "</em>", "")
	return strings.TrimSpace(s)
}
