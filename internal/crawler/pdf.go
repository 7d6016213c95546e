package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kommuneai/crawler/internal/domain"
	"github.com/kommuneai/crawler/internal/logger"
)

// ErrNotPDF indicates a PDF source does not carry the .pdf extension.
var ErrNotPDF = errors.New("not a PDF file")

// documentInfoKeys are the PDF info dictionary entries carried into the
// content item's metadata.
var documentInfoKeys = []string{"Title", "Author", "Subject", "Creator", "Producer"}

// PDFCrawler extracts text, contacts and form signals from PDF documents.
type PDFCrawler struct {
	logger logger.Interface
}

// NewPDFCrawler creates a PDF crawler.
func NewPDFCrawler(log logger.Interface) *PDFCrawler {
	return &PDFCrawler{logger: log.WithComponent("pdf_crawler")}
}

// Crawl parses one PDF document and returns its extracted raw items.
func (c *PDFCrawler) Crawl(ctx context.Context, path string) ([]domain.RawItem, error) {
	c.logger.Debug("Crawling PDF", "path", path)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, ext)
	}

	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer file.Close()

	text, err := readPlainText(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", path, err)
	}

	items := c.extractStructuredData(text, reader, path)
	c.logger.Info("Crawled PDF", "path", path, "items", len(items))
	return items, nil
}

// extractStructuredData applies the contact regexes, the form keyword
// detection, and the minimum-length content rule to the document text.
func (c *PDFCrawler) extractStructuredData(text string, reader *pdf.Reader, path string) []domain.RawItem {
	items := extractContacts(text, path)

	if formKeywordPattern.MatchString(text) {
		items = append(items, domain.RawItem{
			Type:   domain.ItemTypeForm,
			URL:    path,
			Title:  fmt.Sprintf("Formular in %s", filepath.Base(path)),
			Source: path,
		})
	}

	if len(text) > minContentLength {
		base := filepath.Base(path)
		items = append(items, domain.RawItem{
			Type:      domain.ItemTypeContent,
			URL:       path,
			Title:     strings.TrimSuffix(base, filepath.Ext(base)),
			Content:   text,
			PlainText: text,
			Source:    path,
			Pages:     reader.NumPage(),
			Info:      documentInfo(reader),
		})
	}

	return items
}

// readPlainText drains the reader's plain text stream.
func readPlainText(reader *pdf.Reader) (string, error) {
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(textReader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// documentInfo collects the string entries of the PDF info dictionary.
func documentInfo(reader *pdf.Reader) map[string]string {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return nil
	}

	out := make(map[string]string)
	for _, key := range documentInfoKeys {
		value := info.Key(key)
		if value.Kind() == pdf.String {
			if text := strings.TrimSpace(value.Text()); text != "" {
				out[strings.ToLower(key)] = text
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
