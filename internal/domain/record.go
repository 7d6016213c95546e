package domain

// Contact is a normalized contact entry (email address or phone number).
type Contact struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Form is a normalized form reference. Valid is set only after link validation.
type Form struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Valid *bool  `json:"valid,omitempty"`
}

// Link is a normalized hyperlink. Valid is set only after link validation.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Valid *bool  `json:"valid,omitempty"`
}

// Metadata describes the provenance of a record.
type Metadata struct {
	Agent       string   `json:"agent"`
	Type        ItemType `json:"type"`
	Source      string   `json:"source"`
	Timestamp   string   `json:"timestamp"`
	SectionType string   `json:"sectionType,omitempty"`

	// Compression details, set only on compressed records.
	Compressed       bool    `json:"compressed,omitempty"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`
}

// Record is the canonical, deduplicated content unit persisted in the
// processed stage and consumed by the downstream conversational agent.
// Content is never empty: normalization falls back to the title and then
// the URL so every record carries retrievable context.
type Record struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	PlainText string    `json:"plain_text"`
	Contacts  []Contact `json:"contacts"`
	Forms     []Form    `json:"forms"`
	Links     []Link    `json:"links"`
	Metadata  Metadata  `json:"metadata"`
}
