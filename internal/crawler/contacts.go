package crawler

import (
	"regexp"
	"strings"

	"github.com/kommuneai/crawler/internal/domain"
)

// Contact and form-detection patterns. These are load-bearing for downstream
// consumers and must not be loosened: the phone pattern accepts German
// numbers with an optional +49 or 0 prefix and spaces or hyphens between
// digit groups.
var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`(\+?49\s?)?(\(?0?\)?[1-9]\d{1,4}\)?[\s\-]?\d{1,4}[\s\-]?\d{1,4}[\s\-]?\d{1,4})`)
	// formKeywordPattern detects German application/form language in document text.
	formKeywordPattern = regexp.MustCompile(`(?i)(Antrag|Formular|Beantragung|Anmeldung|Meldung)`)
)

// extractContacts scans text for email addresses and German phone numbers and
// returns one contact item per match, tagged with the given source.
func extractContacts(text, source string) []domain.RawItem {
	var items []domain.RawItem

	for _, email := range emailPattern.FindAllString(text, -1) {
		items = append(items, domain.RawItem{
			Type:        domain.ItemTypeContact,
			ContactType: domain.ContactTypeEmail,
			Value:       email,
			Source:      source,
		})
	}

	for _, phone := range phonePattern.FindAllString(text, -1) {
		items = append(items, domain.RawItem{
			Type:        domain.ItemTypeContact,
			ContactType: domain.ContactTypePhone,
			Value:       strings.TrimSpace(phone),
			Source:      source,
		})
	}

	return items
}
