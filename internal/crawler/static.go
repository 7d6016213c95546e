package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	colly "github.com/gocolly/colly/v2"

	"github.com/kommuneai/crawler/internal/kommune"
	"github.com/kommuneai/crawler/internal/logger"
)

// ErrEmptyResponse indicates a fetch completed without a response body.
var ErrEmptyResponse = errors.New("empty response")

// StaticFetcher fetches pages without rendering, for sites that do not need
// JavaScript. One collector is shared across calls so the politeness delay
// applies between consecutive requests to the same domain.
type StaticFetcher struct {
	mu        sync.Mutex
	collector *colly.Collector
	logger    logger.Interface
}

// NewStaticFetcher creates a rate-limited colly collector for static fetches.
func NewStaticFetcher(settings kommune.Settings, log logger.Interface) (*StaticFetcher, error) {
	collector := colly.NewCollector(
		colly.UserAgent(settings.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	collector.SetRequestTimeout(settings.NavigationTimeout())

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob: "*",
		Delay:      settings.RequestDelay(),
	}); err != nil {
		return nil, fmt.Errorf("failed to configure rate limit: %w", err)
	}

	return &StaticFetcher{
		collector: collector,
		logger:    log.WithComponent("static_fetcher"),
	}, nil
}

// HTML fetches the page body. The timeout parameter is accepted for interface
// compatibility; the collector's request timeout already bounds the fetch.
func (f *StaticFetcher) HTML(ctx context.Context, pageURL string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		body     string
		fetchErr error
	)

	collector := f.collector.Clone()
	collector.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(pageURL); err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, fetchErr)
	}
	if body == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyResponse, pageURL)
	}
	return body, nil
}
