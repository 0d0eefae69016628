package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/httpclient"
)

// docCodeRe captures the alphanumeric document code immediately preceding
// ".html" in a detail URL.
var docCodeRe = regexp.MustCompile(`([A-Za-z0-9]+)\.html`)

// ExtractDocCode pulls the document code out of a detail URL. Empty string
// when the URL does not carry one.
func ExtractDocCode(detailURL string) string {
	m := docCodeRe.FindStringSubmatch(detailURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// DocCodeResolver resolves content through a paged document-content API
// keyed by the code embedded in the detail URL. Fragments are concatenated
// in page order; any failure yields empty content.
type DocCodeResolver struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
}

var _ Resolver = (*DocCodeResolver)(nil)

// NewDocCodeResolver creates a document-code content resolver
func NewDocCodeResolver(baseURL string, cfg common.ContentConfig, httpCfg common.HTTPConfig, logger arbor.ILogger) *DocCodeResolver {
	return &DocCodeResolver{
		baseURL:    baseURL,
		userAgent:  httpCfg.UserAgent,
		httpClient: httpclient.NewDefaultHTTPClient(cfg.Timeout),
		logger:     logger,
	}
}

type docContentPage struct {
	Content   string `json:"content"`
	TotalPage int    `json:"totalPage"`
}

// Resolve extracts the document code and walks the content endpoint page by
// page, concatenating the fragments. Empty string when the code cannot be
// extracted or any page request fails.
func (r *DocCodeResolver) Resolve(ctx context.Context, detailURL string) string {
	code := ExtractDocCode(detailURL)
	if code == "" {
		return ""
	}

	var fragments []string
	page := 1

	for {
		fragment, totalPages, err := r.fetchPage(ctx, code, page)
		if err != nil {
			r.logger.Debug().Str("code", code).Int("page", page).Err(err).Msg("Document content page failed")
			return ""
		}

		fragments = append(fragments, fragment)

		if totalPages <= 0 || page >= totalPages {
			break
		}
		page++
	}

	return strings.Join(fragments, "")
}

func (r *DocCodeResolver) fetchPage(ctx context.Context, code string, page int) (string, int, error) {
	reqURL := r.baseURL + "/api/notice/content?docCode=" + url.QueryEscape(code) + "&page=" + strconv.Itoa(page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}

	var payload docContentPage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, fmt.Errorf("failed to parse content page: %w", err)
	}

	return payload.Content, payload.TotalPage, nil
}
