package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kommuneai/crawler/internal/domain"
	"github.com/kommuneai/crawler/internal/logger"
)

func newTestProcessor() *Processor {
	p := New(logger.NewNoOp())
	p.now = func() time.Time {
		return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	}
	return p
}

func TestProcessAll_ContentItem(t *testing.T) {
	p := newTestProcessor()

	results := map[string]domain.AgentResult{
		"buergerservice": {Items: []domain.RawItem{{
			Type:        domain.ItemTypeContent,
			URL:         "https://example.de/info",
			Title:       "Öffnungszeiten",
			Content:     "Mo  bis   Fr\n\n\n8 bis 16 Uhr",
			SectionType: "main",
		}}},
	}

	processed := p.ProcessAll(results)
	require.Len(t, processed["buergerservice"], 1)

	record := processed["buergerservice"][0]
	assert.Equal(t, "Öffnungszeiten", record.Title)
	assert.Equal(t, "Mo bis Fr 8 bis 16 Uhr", record.Content)
	assert.Equal(t, "buergerservice", record.Metadata.Agent)
	assert.Equal(t, "main", record.Metadata.SectionType)
	assert.Equal(t, "2026-03-15T12:00:00Z", record.Metadata.Timestamp)
}

func TestProcessAll_ContactValueBecomesContent(t *testing.T) {
	p := newTestProcessor()

	results := map[string]domain.AgentResult{
		"rathaus": {Items: []domain.RawItem{{
			Type:        domain.ItemTypeContact,
			ContactType: domain.ContactTypeEmail,
			Value:       "a@b.de",
			Source:      "https://example.de/kontakt",
		}}},
	}

	processed := p.ProcessAll(results)
	require.Len(t, processed["rathaus"], 1)

	record := processed["rathaus"][0]
	assert.Equal(t, "a@b.de", record.Content)
	assert.Equal(t, "a@b.de", record.PlainText)
	require.Len(t, record.Contacts, 1)
	assert.Equal(t, domain.ContactTypeEmail, record.Contacts[0].Type)
	assert.Equal(t, "a@b.de", record.Contacts[0].Value)
}

func TestProcessAll_FormDefaults(t *testing.T) {
	p := newTestProcessor()

	results := map[string]domain.AgentResult{
		"ordnungsamt": {Items: []domain.RawItem{{
			Type: domain.ItemTypeForm,
			URL:  "https://example.de/antrag.html",
		}}},
	}

	record := p.ProcessAll(results)["ordnungsamt"][0]
	require.Len(t, record.Forms, 1)
	assert.Equal(t, "form", record.Forms[0].Type)
	assert.Equal(t, "Formular", record.Forms[0].Title)
	assert.Equal(t, "Formular", record.Content)
}

func TestProcessAll_PDFDefaults(t *testing.T) {
	p := newTestProcessor()

	results := map[string]domain.AgentResult{
		"bauamt": {Items: []domain.RawItem{{
			Type: domain.ItemTypePDF,
			URL:  "https://example.de/plan.pdf",
		}}},
	}

	record := p.ProcessAll(results)["bauamt"][0]
	require.Len(t, record.Forms, 1)
	assert.Equal(t, "pdf", record.Forms[0].Type)
	assert.Equal(t, "PDF-Dokument", record.Forms[0].Title)
}

func TestProcessAll_LinkInlineContentThreshold(t *testing.T) {
	p := newTestProcessor()

	long := "Dieser Verweis hat genug umgebenden Kontext im Fließtext."
	results := map[string]domain.AgentResult{
		"agent": {Items: []domain.RawItem{
			{
				Type:    domain.ItemTypeLink,
				URL:     "https://example.de/a",
				Title:   "Kurz",
				Content: "zu kurz",
			},
			{
				Type:    domain.ItemTypeLink,
				URL:     "https://example.de/b",
				Title:   "Lang",
				Content: long,
			},
		}},
	}

	records := p.ProcessAll(results)["agent"]
	require.Len(t, records, 2)

	// Short inline context is dropped; the title fills the content instead.
	assert.Equal(t, "Kurz", records[0].Content)
	assert.Equal(t, long, records[1].Content)
	require.Len(t, records[0].Links, 1)
	assert.Equal(t, "https://example.de/a", records[0].Links[0].URL)
}

func TestProcessAll_ContentNeverEmpty(t *testing.T) {
	p := newTestProcessor()

	results := map[string]domain.AgentResult{
		"agent": {Items: []domain.RawItem{
			{Type: domain.ItemTypeContent, URL: "https://example.de/leer"},
			{Type: domain.ItemTypeLink, URL: "https://example.de/nur-url"},
			{Type: domain.ItemTypeContent},
		}},
	}

	for _, record := range p.ProcessAll(results)["agent"] {
		assert.NotEmpty(t, record.Content, "record %q", record.URL)
		assert.NotEmpty(t, record.PlainText, "record %q", record.URL)
	}
}

func TestProcessAll_TitleFallsBackToURLSegment(t *testing.T) {
	p := newTestProcessor()

	results := map[string]domain.AgentResult{
		"agent": {Items: []domain.RawItem{
			{Type: domain.ItemTypeContent, URL: "https://example.de/amt/termine"},
			{Type: domain.ItemTypeContent},
		}},
	}

	records := p.ProcessAll(results)["agent"]
	require.Len(t, records, 2)
	assert.Equal(t, "termine", records[0].Title)
	assert.Equal(t, "Unbekannt", records[1].Title)
}

func TestProcessAll_DeduplicatesFirstWins(t *testing.T) {
	p := newTestProcessor()

	results := map[string]domain.AgentResult{
		"agent": {Items: []domain.RawItem{
			{Type: domain.ItemTypeContent, URL: "https://example.de/x", Title: "Seite", Content: "erste Fassung"},
			{Type: domain.ItemTypeContent, URL: "https://example.de/x", Title: "Seite", Content: "zweite Fassung"},
			{Type: domain.ItemTypeContent, URL: "https://example.de/x", Title: "Andere Seite", Content: "bleibt"},
		}},
	}

	records := p.ProcessAll(results)["agent"]
	require.Len(t, records, 2)
	assert.Equal(t, "erste Fassung", records[0].Content)
	assert.Equal(t, "Andere Seite", records[1].Title)
}

func TestProcessAll_SkipsFailedAgents(t *testing.T) {
	p := newTestProcessor()

	results := map[string]domain.AgentResult{
		"gut":    {Items: []domain.RawItem{{Type: domain.ItemTypeContent, Title: "A", Content: "Inhalt"}}},
		"kaputt": {Err: "browser crashed"},
	}

	processed := p.ProcessAll(results)
	assert.Contains(t, processed, "gut")
	assert.NotContains(t, processed, "kaputt")
}

func TestProcessAll_Idempotent(t *testing.T) {
	p := newTestProcessor()

	results := map[string]domain.AgentResult{
		"agent": {Items: []domain.RawItem{
			{Type: domain.ItemTypeContent, URL: "https://example.de/x", Title: "Seite", Content: "Text  mit\n\nLücken"},
			{Type: domain.ItemTypeContact, ContactType: domain.ContactTypePhone, Value: "0441 235-0"},
		}},
	}

	first := p.ProcessAll(results)

	// Feed the normalized records back in as content items.
	again := map[string]domain.AgentResult{"agent": {}}
	for _, record := range first["agent"] {
		again["agent"] = domain.AgentResult{Items: append(again["agent"].Items, domain.RawItem{
			Type:    domain.ItemTypeContent,
			URL:     record.URL,
			Title:   record.Title,
			Content: record.Content,
		})}
	}
	second := p.ProcessAll(again)

	require.Len(t, second["agent"], len(first["agent"]))
	for i, record := range second["agent"] {
		assert.Equal(t, first["agent"][i].Content, record.Content)
		assert.Equal(t, first["agent"][i].Title, record.Title)
	}
}

func TestCleanContent(t *testing.T) {
	assert.Equal(t, "", CleanContent(""))
	assert.Equal(t, "a b", CleanContent("  a \t b  "))
	assert.Equal(t, CleanContent("a  b"), CleanContent(CleanContent("a  b")))
}
