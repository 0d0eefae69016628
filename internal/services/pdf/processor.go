package pdf

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/liuyingduo/stock-news/internal/common"
	"github.com/liuyingduo/stock-news/internal/httpclient"
	"github.com/liuyingduo/stock-news/internal/services/exchange"
)

// Result holds the outcome for one attachment URL. LocalPath is empty when
// cleanup removed the binary after extraction. Err records a per-URL failure
// without aborting the batch.
type Result struct {
	LocalPath string
	Text      string
	Err       error
}

// Processor downloads announcement attachments into a content-addressed
// cache and extracts their text. Downloads behind an anti-bot challenge are
// retried once with the derived cookie.
type Processor struct {
	storageDir    string
	maxConcurrent int
	cleanup       bool
	userAgent     string
	httpClient    *http.Client
	extractor     *Extractor
	logger        arbor.ILogger
}

// NewProcessor creates an attachment processor
func NewProcessor(cfg common.PDFConfig, httpCfg common.HTTPConfig, logger arbor.ILogger) (*Processor, error) {
	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create attachment dir: %w", err)
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}

	return &Processor{
		storageDir:    cfg.StorageDir,
		maxConcurrent: maxConcurrent,
		cleanup:       cfg.Cleanup,
		userAgent:     httpCfg.UserAgent,
		httpClient:    httpclient.NewDefaultHTTPClient(cfg.Timeout),
		extractor:     NewExtractor(logger),
		logger:        logger,
	}, nil
}

// cachePath addresses the local file by the md5 of its URL so re-polls of
// the same attachment never download twice.
func (p *Processor) cachePath(url string) string {
	sum := md5.Sum([]byte(url))
	return filepath.Join(p.storageDir, hex.EncodeToString(sum[:])+".pdf")
}

// ProcessBatch downloads and extracts every URL with bounded concurrency.
// Each URL gets a Result; failures are recorded per URL and the batch
// continues.
func (p *Processor) ProcessBatch(ctx context.Context, urls []string, headers map[string]string) map[string]Result {
	results := make(map[string]Result, len(urls))
	if len(urls) == 0 {
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.maxConcurrent)

	for _, u := range urls {
		if u == "" {
			continue
		}
		mu.Lock()
		_, dup := results[u]
		if !dup {
			results[u] = Result{} // claim before the goroutine runs
		}
		mu.Unlock()
		if dup {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(url string) {
			defer wg.Done()
			defer func() { <-sem }()

			result := p.process(ctx, url, headers)

			mu.Lock()
			results[url] = result
			mu.Unlock()
		}(u)
	}

	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.logger.Info().
		Int("attempted", len(results)).
		Int("succeeded", len(results)-failed).
		Int("failed", failed).
		Msg("Processed attachment batch")

	return results
}

func (p *Processor) process(ctx context.Context, url string, headers map[string]string) Result {
	localPath := p.cachePath(url)

	if _, err := os.Stat(localPath); err != nil {
		if err := p.download(ctx, url, localPath, headers); err != nil {
			return Result{Err: fmt.Errorf("download failed: %w", err)}
		}
	}

	text, err := p.extractor.ExtractFile(ctx, localPath)
	if err != nil {
		return Result{LocalPath: localPath, Err: fmt.Errorf("extraction failed: %w", err)}
	}

	if p.cleanup {
		if err := os.Remove(localPath); err != nil {
			p.logger.Warn().Str("path", localPath).Err(err).Msg("Failed to remove attachment after extraction")
		}
		return Result{Text: text}
	}

	return Result{LocalPath: localPath, Text: text}
}

// download fetches the attachment. A challenge page in place of the binary
// is solved and the request retried once with the derived cookie.
func (p *Processor) download(ctx context.Context, url, localPath string, headers map[string]string) error {
	body, err := p.fetch(ctx, url, headers, "")
	if err != nil {
		return err
	}

	if exchange.IsWAFChallenge(string(body)) {
		cookie := exchange.SolveWAFChallenge(string(body))
		if cookie == "" {
			return fmt.Errorf("unsolvable anti-bot challenge")
		}
		p.logger.Debug().Str("url", url).Msg("Solved anti-bot challenge, retrying download")

		body, err = p.fetch(ctx, url, headers, cookie)
		if err != nil {
			return err
		}
		if exchange.IsWAFChallenge(string(body)) {
			return fmt.Errorf("anti-bot challenge persisted after retry")
		}
	}

	tmpPath := localPath + ".part"
	if err := os.WriteFile(tmpPath, body, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, localPath)
}

func (p *Processor) fetch(ctx context.Context, url string, headers map[string]string, wafCookie string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if wafCookie != "" {
		req.AddCookie(&http.Cookie{Name: exchange.WAFCookieName, Value: wafCookie})
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
