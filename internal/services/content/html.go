package content

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/httpclient"
)

// noticeContentSelector locates the announcement body on exchange detail
// pages.
const noticeContentSelector = "#notice_content"

// HTMLResolver extracts the announcement body from a detail page by joining
// the trimmed text nodes under the content container.
type HTMLResolver struct {
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
}

var _ Resolver = (*HTMLResolver)(nil)

// NewHTMLResolver creates a detail-page text extractor
func NewHTMLResolver(cfg common.ContentConfig, httpCfg common.HTTPConfig, logger arbor.ILogger) *HTMLResolver {
	return &HTMLResolver{
		userAgent:  httpCfg.UserAgent,
		httpClient: httpclient.NewDefaultHTTPClient(cfg.Timeout),
		logger:     logger,
	}
}

// Resolve fetches the detail page and pulls the text under the content
// container. Empty string when the page is unreachable or the container is
// absent.
func (r *HTMLResolver) Resolve(ctx context.Context, detailURL string) string {
	if detailURL == "" {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, detailURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Debug().Str("url", detailURL).Err(err).Msg("Detail page fetch failed")
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

	container := doc.Find(noticeContentSelector)
	if container.Length() == 0 {
		return ""
	}

	return joinTextNodes(container)
}

// joinTextNodes walks every text node under the selection, trims each, and
// joins the non-empty ones with single spaces.
func joinTextNodes(sel *goquery.Selection) string {
	var parts []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, node := range sel.Nodes {
		walk(node)
	}

	return strings.Join(parts, " ")
}
