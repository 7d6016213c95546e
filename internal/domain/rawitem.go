// Package domain defines the data types shared across the ingestion pipeline.
package domain

// ItemType discriminates the kind of data a crawler extracted.
type ItemType string

const (
	// ItemTypeContent is a block of body text from a page or document.
	ItemTypeContent ItemType = "content"
	// ItemTypeContact is an extracted email address or phone number.
	ItemTypeContact ItemType = "contact"
	// ItemTypeForm is an HTML form or an application form detected in a document.
	ItemTypeForm ItemType = "form"
	// ItemTypePDF is a link to a PDF document.
	ItemTypePDF ItemType = "pdf"
	// ItemTypeLink is a hyperlink with anchor text.
	ItemTypeLink ItemType = "link"
)

// ContactType values used by contact items.
const (
	ContactTypeEmail = "email"
	ContactTypePhone = "phone"
)

// RawItem is a single source-specific extraction unit produced by a crawler.
// It is untyped beyond the Type discriminant: which fields are set depends on
// the source and item type. RawItems are persisted only in the raw stage dump
// and are otherwise consumed by the processor.
type RawItem struct {
	Type        ItemType `json:"type"`
	URL         string   `json:"url,omitempty"`
	Title       string   `json:"title,omitempty"`
	Content     string   `json:"content,omitempty"`
	PlainText   string   `json:"plain_text,omitempty"`
	ContactType string   `json:"contactType,omitempty"`
	Value       string   `json:"value,omitempty"`
	Method      string   `json:"method,omitempty"`
	Source      string   `json:"source,omitempty"`
	SectionType string   `json:"sectionType,omitempty"`

	// PDF document details, set only by the PDF crawler on content items.
	Pages int               `json:"pages,omitempty"`
	Info  map[string]string `json:"info,omitempty"`
}

// AgentResult holds the outcome of crawling one agent: either the concatenated
// raw items from all of its sources, or an error message when the agent's
// crawl failed as a whole. A failed agent is excluded from processing but does
// not abort the run.
type AgentResult struct {
	Items []RawItem `json:"items,omitempty"`
	Err   string    `json:"error,omitempty"`
}

// Failed reports whether the agent's crawl failed as a whole.
func (r AgentResult) Failed() bool {
	return r.Err != ""
}
