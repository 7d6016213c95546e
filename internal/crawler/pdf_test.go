package crawler_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kommuneai/crawler/internal/crawler"
	"github.com/kommuneai/crawler/internal/logger"
)

func TestPDFCrawler_MissingFile(t *testing.T) {
	_, err := crawler.NewPDFCrawler(logger.NewNoOp()).
		Crawl(context.Background(), filepath.Join(t.TempDir(), "fehlt.pdf"))
	assert.ErrorIs(t, err, crawler.ErrFileNotFound)
}

func TestPDFCrawler_WrongExtension(t *testing.T) {
	path := writeTempFile(t, "doc.txt", "kein PDF")

	_, err := crawler.NewPDFCrawler(logger.NewNoOp()).Crawl(context.Background(), path)
	assert.ErrorIs(t, err, crawler.ErrNotPDF)
}

func TestPDFCrawler_CorruptFile(t *testing.T) {
	path := writeTempFile(t, "kaputt.pdf", "das ist kein gültiges PDF")

	_, err := crawler.NewPDFCrawler(logger.NewNoOp()).Crawl(context.Background(), path)
	assert.Error(t, err)
}
