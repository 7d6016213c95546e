// Package processor normalizes the crawlers' raw items into canonical records,
// removes duplicates, and optionally validates outbound links.
package processor

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kommuneai/crawler/internal/domain"
	"github.com/kommuneai/crawler/internal/logger"
)

// minLinkContentLength is the minimum inline content length for a link item.
// Shorter snippets are discarded to avoid noise.
const minLinkContentLength = 30

// Whitespace normalization rules shared with the compressor: runs of
// whitespace collapse to one space, blank lines collapse to one newline.
var (
	multiSpacePattern = regexp.MustCompile(`\s+`)
	blankLinePattern  = regexp.MustCompile(`\n\s*\n`)
)

// CleanContent applies the whitespace normalization rules.
func CleanContent(content string) string {
	if content == "" {
		return ""
	}
	content = multiSpacePattern.ReplaceAllString(content, " ")
	content = blankLinePattern.ReplaceAllString(content, "\n")
	return strings.TrimSpace(content)
}

// Processor turns raw agent results into deduplicated canonical records.
type Processor struct {
	logger logger.Interface
	// now is injectable so normalization is reproducible in tests.
	now func() time.Time
}

// New creates a processor.
func New(log logger.Interface) *Processor {
	return &Processor{
		logger: log.WithComponent("processor"),
		now:    time.Now,
	}
}

// ProcessAll normalizes every agent's raw items. Agents whose crawl failed
// are skipped with a log line and excluded from the output; retrying them is
// the orchestrator's concern, not the processor's.
func (p *Processor) ProcessAll(results map[string]domain.AgentResult) map[string][]domain.Record {
	p.logger.Info("Processing agent data", "agents", len(results))

	processed := make(map[string][]domain.Record, len(results))
	for _, agent := range sortedKeys(results) {
		result := results[agent]
		if result.Failed() {
			p.logger.Error("Skipping agent due to crawl error", "agent", agent, "error", result.Err)
			continue
		}

		records := p.processAgentData(agent, result.Items)
		processed[agent] = records
		p.logger.Info("Agent processed", "agent", agent, "records", len(records))
	}
	return processed
}

// processAgentData normalizes one agent's items and removes duplicates,
// preserving insertion order. An unexpected panic yields an empty result for
// this agent only.
func (p *Processor) processAgentData(agent string, items []domain.RawItem) (records []domain.Record) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Processing panicked, substituting empty result", "agent", agent, "panic", r)
			records = []domain.Record{}
		}
	}()

	records = make([]domain.Record, 0, len(items))
	for _, item := range items {
		records = append(records, p.processItem(item, agent))
	}
	return removeDuplicates(records)
}

// processItem builds the canonical record shell and merges the item's
// type-specific data into it. The content fallback chain guarantees the
// record never ends up with empty content: body text, then the contact value
// or form title, then the record title, then the URL.
func (p *Processor) processItem(item domain.RawItem, agent string) domain.Record {
	title := item.Title
	if title == "" {
		title = generateTitle(item)
	}

	record := domain.Record{
		URL:       firstNonEmpty(item.URL, item.Source),
		Title:     title,
		Content:   firstNonEmpty(item.Content, item.PlainText),
		PlainText: firstNonEmpty(item.PlainText, item.Content),
		Contacts:  []domain.Contact{},
		Forms:     []domain.Form{},
		Links:     []domain.Link{},
		Metadata: domain.Metadata{
			Agent:     agent,
			Type:      item.Type,
			Source:    firstNonEmpty(item.Source, item.URL),
			Timestamp: p.now().UTC().Format(time.RFC3339),
		},
	}

	switch item.Type {
	case domain.ItemTypeContent:
		record.Content = CleanContent(item.Content)
		record.PlainText = CleanContent(firstNonEmpty(item.PlainText, item.Content))
		record.Metadata.SectionType = item.SectionType

	case domain.ItemTypeContact:
		if record.Content == "" {
			record.Content = item.Value
		}
		if record.PlainText == "" {
			record.PlainText = item.Value
		}
		record.Contacts = append(record.Contacts, domain.Contact{
			Type:  item.ContactType,
			Value: item.Value,
		})

	case domain.ItemTypeForm:
		formTitle := firstNonEmpty(item.Title, "Formular")
		if record.Content == "" {
			record.Content = formTitle
		}
		if record.PlainText == "" {
			record.PlainText = formTitle
		}
		record.Forms = append(record.Forms, domain.Form{
			Type:  "form",
			Title: formTitle,
			URL:   item.URL,
		})

	case domain.ItemTypePDF:
		pdfTitle := firstNonEmpty(item.Title, "PDF-Dokument")
		if record.Content == "" {
			record.Content = pdfTitle
		}
		if record.PlainText == "" {
			record.PlainText = pdfTitle
		}
		record.Forms = append(record.Forms, domain.Form{
			Type:  "pdf",
			Title: pdfTitle,
			URL:   item.URL,
		})

	case domain.ItemTypeLink:
		// Inline context below the threshold is dropped; the title fallback
		// below fills the content instead.
		record.Content = ""
		record.PlainText = ""
		if inline := firstNonEmpty(item.Content, item.PlainText); len(strings.TrimSpace(inline)) >= minLinkContentLength {
			record.Content = CleanContent(inline)
			record.PlainText = CleanContent(firstNonEmpty(item.PlainText, item.Content))
		}
		record.Links = append(record.Links, domain.Link{
			Title: item.Title,
			URL:   item.URL,
		})
	}

	if record.Content == "" {
		record.Content = firstNonEmpty(record.Title, record.URL)
	}
	if record.PlainText == "" {
		record.PlainText = record.Content
	}
	return record
}

// generateTitle derives a title for items that carry none: the last URL path
// segment, or "Unbekannt" when there is no URL either.
func generateTitle(item domain.RawItem) string {
	if item.URL != "" {
		parts := strings.Split(item.URL, "/")
		if last := parts[len(parts)-1]; last != "" {
			return last
		}
	}
	return "Unbekannt"
}

// removeDuplicates drops records whose (url, title) pair was already seen.
// The first occurrence wins; the order of survivors is preserved.
func removeDuplicates(records []domain.Record) []domain.Record {
	seen := make(map[string]struct{}, len(records))
	unique := make([]domain.Record, 0, len(records))
	for _, record := range records {
		key := record.URL + "_" + record.Title
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, record)
	}
	return unique
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
