package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kommuneai/crawler/internal/domain"
	"github.com/kommuneai/crawler/internal/kommune"
	"github.com/kommuneai/crawler/internal/logger"
)

// HTMLFetcher retrieves the HTML of one page. The rendered implementation is
// browser.Browser; the static implementation is the colly-based fetcher.
type HTMLFetcher interface {
	HTML(ctx context.Context, pageURL string, timeout time.Duration) (string, error)
}

// WebCrawler crawls rendered web pages and extracts structured raw items.
type WebCrawler struct {
	fetcher  HTMLFetcher
	settings kommune.Settings
	logger   logger.Interface
}

// NewWebCrawler creates a web crawler on top of the given fetcher.
func NewWebCrawler(fetcher HTMLFetcher, settings kommune.Settings, log logger.Interface) *WebCrawler {
	return &WebCrawler{
		fetcher:  fetcher,
		settings: settings,
		logger:   log.WithComponent("web_crawler"),
	}
}

// Crawl fetches one page and returns its extracted raw items.
func (c *WebCrawler) Crawl(ctx context.Context, pageURL string) ([]domain.RawItem, error) {
	c.logger.Debug("Crawling URL", "url", pageURL)

	html, err := c.fetcher.HTML(ctx, pageURL, c.settings.NavigationTimeout())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	items := extractStructuredData(doc, pageURL)
	c.logger.Info("Crawled URL", "url", pageURL, "items", len(items))
	return items, nil
}
