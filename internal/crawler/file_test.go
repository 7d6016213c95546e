package crawler_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kommuneai/crawler/internal/crawler"
	"github.com/kommuneai/crawler/internal/domain"
	"github.com/kommuneai/crawler/internal/logger"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileCrawler_TextFile(t *testing.T) {
	content := "Ansprechpartner: herr.meyer@landkreis.de, Telefon 04431 85-0.\n" +
		strings.Repeat("Weitere Informationen zur Abfallentsorgung im Landkreis. ", 3)
	path := writeTempFile(t, "abfall.txt", content)

	items, err := crawler.NewFileCrawler(logger.NewNoOp()).Crawl(context.Background(), path)
	require.NoError(t, err)

	contacts := itemsOfType(items, domain.ItemTypeContact)
	require.NotEmpty(t, contacts)
	assert.Equal(t, "herr.meyer@landkreis.de", contacts[0].Value)

	contentItems := itemsOfType(items, domain.ItemTypeContent)
	require.Len(t, contentItems, 1)
	assert.Equal(t, "abfall", contentItems[0].Title)
	assert.Equal(t, path, contentItems[0].Source)
}

func TestFileCrawler_CSVWithContactColumns(t *testing.T) {
	csvData := "name,email,telefon\n" +
		"Meyer,meyer@landkreis.de,04431 85-100\n" +
		"Schmidt,schmidt@landkreis.de,\n"
	path := writeTempFile(t, "kontakte.csv", csvData)

	items, err := crawler.NewFileCrawler(logger.NewNoOp()).Crawl(context.Background(), path)
	require.NoError(t, err)

	var emails, phones []string
	for _, item := range itemsOfType(items, domain.ItemTypeContact) {
		switch item.ContactType {
		case domain.ContactTypeEmail:
			emails = append(emails, item.Value)
		case domain.ContactTypePhone:
			phones = append(phones, item.Value)
		}
	}
	assert.Equal(t, []string{"meyer@landkreis.de", "schmidt@landkreis.de"}, emails)
	assert.Equal(t, []string{"04431 85-100"}, phones)
}

func TestFileCrawler_CSVWithoutContactColumnsFallsBackToScan(t *testing.T) {
	csvData := "spalte1,spalte2\nfoo,kontakt@example.de\n"
	path := writeTempFile(t, "daten.csv", csvData)

	items, err := crawler.NewFileCrawler(logger.NewNoOp()).Crawl(context.Background(), path)
	require.NoError(t, err)

	contacts := itemsOfType(items, domain.ItemTypeContact)
	require.Len(t, contacts, 1)
	assert.Equal(t, "kontakt@example.de", contacts[0].Value)
}

func TestFileCrawler_ShortFileYieldsNoContentItem(t *testing.T) {
	path := writeTempFile(t, "kurz.txt", "zu wenig Text")

	items, err := crawler.NewFileCrawler(logger.NewNoOp()).Crawl(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, itemsOfType(items, domain.ItemTypeContent))
}

func TestFileCrawler_MissingFile(t *testing.T) {
	_, err := crawler.NewFileCrawler(logger.NewNoOp()).
		Crawl(context.Background(), filepath.Join(t.TempDir(), "fehlt.txt"))
	assert.ErrorIs(t, err, crawler.ErrFileNotFound)
}

func TestFileCrawler_UnsupportedFormat(t *testing.T) {
	path := writeTempFile(t, "bild.png", "not really a png")

	_, err := crawler.NewFileCrawler(logger.NewNoOp()).Crawl(context.Background(), path)
	assert.ErrorIs(t, err, crawler.ErrUnsupportedFormat)
}
