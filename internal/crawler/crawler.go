// Package crawler implements the per-source-type crawlers: rendered and
// static web pages, local files, and PDF documents. All crawlers share one
// capability contract and emit untyped RawItems for the processor.
package crawler

import (
	"context"

	"github.com/kommuneai/crawler/internal/domain"
)

// Source is the capability contract every crawler implements. A locator is a
// URL for web sources and a filesystem path for file and PDF sources.
// Implementations return an error for a failed fetch; the caller decides
// whether to retry and always degrades a persistent failure to an empty
// result so one bad source cannot abort an agent's crawl.
type Source interface {
	Crawl(ctx context.Context, locator string) ([]domain.RawItem, error)
}

// minContentLength is the minimum extracted text length for a content item.
// Shorter pages and documents yield no content record.
const minContentLength = 100
