package crawler

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kommuneai/crawler/internal/domain"
	"github.com/kommuneai/crawler/internal/logger"
)

var (
	// ErrFileNotFound indicates the configured file source does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnsupportedFormat indicates the file extension is not crawlable.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// supportedFileExtensions lists the formats the file crawler accepts.
var supportedFileExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".xml":  true,
}

// csv column headers recognized as contact fields, lowercased.
var (
	csvEmailHeaders = map[string]bool{"email": true, "e-mail": true, "mail": true}
	csvPhoneHeaders = map[string]bool{"phone": true, "telefon": true, "tel": true}
)

// FileCrawler reads local text-based files and extracts contact and content
// items via the same pattern matching the web crawler uses.
type FileCrawler struct {
	logger logger.Interface
}

// NewFileCrawler creates a file crawler.
func NewFileCrawler(log logger.Interface) *FileCrawler {
	return &FileCrawler{logger: log.WithComponent("file_crawler")}
}

// Crawl reads one local file and returns its extracted raw items.
func (c *FileCrawler) Crawl(ctx context.Context, path string) ([]domain.RawItem, error) {
	c.logger.Debug("Crawling file", "path", path)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedFileExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	content := string(data)

	var items []domain.RawItem
	if ext == ".csv" {
		items = append(items, c.extractFromCSV(content, path)...)
	} else {
		items = append(items, extractContacts(content, path)...)
	}
	items = append(items, fileContentItem(content, path)...)

	c.logger.Info("Crawled file", "path", path, "items", len(items))
	return items, nil
}

// extractFromCSV emits a contact item per row for columns whose header names
// a contact field, and falls back to plain text scanning when the file has no
// such columns.
func (c *FileCrawler) extractFromCSV(content, path string) []domain.RawItem {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil || len(rows) < 2 {
		return extractContacts(content, path)
	}

	type contactColumn struct {
		index       int
		contactType string
	}
	var columns []contactColumn
	for i, header := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(header))
		switch {
		case csvEmailHeaders[name]:
			columns = append(columns, contactColumn{i, domain.ContactTypeEmail})
		case csvPhoneHeaders[name]:
			columns = append(columns, contactColumn{i, domain.ContactTypePhone})
		}
	}
	if len(columns) == 0 {
		return extractContacts(content, path)
	}

	var items []domain.RawItem
	for _, row := range rows[1:] {
		for _, col := range columns {
			if col.index >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[col.index])
			if value == "" {
				continue
			}
			items = append(items, domain.RawItem{
				Type:        domain.ItemTypeContact,
				ContactType: col.contactType,
				Value:       value,
				Source:      path,
			})
		}
	}
	return items
}

// fileContentItem emits one content item for the whole file when its text
// exceeds the minimum length. The title is the file name without extension.
func fileContentItem(content, path string) []domain.RawItem {
	if len(content) <= minContentLength {
		return nil
	}

	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))

	return []domain.RawItem{{
		Type:      domain.ItemTypeContent,
		URL:       path,
		Title:     title,
		Content:   content,
		PlainText: content,
		Source:    path,
	}}
}
