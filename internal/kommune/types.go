// Package kommune loads and validates per-tenant ("Kommune") configuration:
// the tenant's identity, its topic agents with their source lists, and the
// crawl settings.
package kommune

import "time"

// Identity describes the tenant the pipeline crawls for.
type Identity struct {
	Name    string `mapstructure:"name" json:"name"`
	Domain  string `mapstructure:"domain" json:"domain"`
	BaseURL string `mapstructure:"base_url" json:"base_url"`
}

// AgentConfig lists the configured sources of one topic agent. An agent with
// all three lists empty is valid but yields no data.
type AgentConfig struct {
	Name        string   `mapstructure:"name" json:"name"`
	WebSources  []string `mapstructure:"webSources" json:"webSources"`
	FileSources []string `mapstructure:"fileSources" json:"fileSources"`
	PDFSources  []string `mapstructure:"pdfSources" json:"pdfSources"`
}

// Empty reports whether the agent has no sources configured at all.
func (a AgentConfig) Empty() bool {
	return len(a.WebSources) == 0 && len(a.FileSources) == 0 && len(a.PDFSources) == 0
}

// SourceCount returns the total number of configured sources.
func (a AgentConfig) SourceCount() int {
	return len(a.WebSources) + len(a.FileSources) + len(a.PDFSources)
}

// Settings holds the crawl settings for a tenant. Durations are stored in
// milliseconds to match the tenant configuration documents.
type Settings struct {
	Timeout              int    `mapstructure:"timeout" json:"timeout"`
	UserAgent            string `mapstructure:"userAgent" json:"userAgent"`
	RetryAttempts        int    `mapstructure:"retryAttempts" json:"retryAttempts"`
	RetryDelay           int    `mapstructure:"retryDelay" json:"retryDelay"`
	MaxConcurrent        int    `mapstructure:"maxConcurrent" json:"maxConcurrent"`
	DelayBetweenRequests int    `mapstructure:"delayBetweenRequests" json:"delayBetweenRequests"`
}

// Default crawl settings, applied when a tenant document carries no
// crawler_settings block.
const (
	DefaultTimeoutMillis    = 30000
	DefaultRetryAttempts    = 3
	DefaultRetryDelayMillis = 2000
	DefaultMaxConcurrent    = 5
	DefaultRequestDelayMs   = 500
	DefaultUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// DefaultSettings returns the hardcoded default crawl settings.
func DefaultSettings() Settings {
	return Settings{
		Timeout:              DefaultTimeoutMillis,
		UserAgent:            DefaultUserAgent,
		RetryAttempts:        DefaultRetryAttempts,
		RetryDelay:           DefaultRetryDelayMillis,
		MaxConcurrent:        DefaultMaxConcurrent,
		DelayBetweenRequests: DefaultRequestDelayMs,
	}
}

// NavigationTimeout returns the page navigation timeout as a duration.
func (s Settings) NavigationTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Millisecond
}

// RetryDelayDuration returns the delay between retry attempts as a duration.
func (s Settings) RetryDelayDuration() time.Duration {
	return time.Duration(s.RetryDelay) * time.Millisecond
}

// RequestDelay returns the politeness delay between requests as a duration.
func (s Settings) RequestDelay() time.Duration {
	return time.Duration(s.DelayBetweenRequests) * time.Millisecond
}

// Config is a full tenant configuration document.
type Config struct {
	Kommune         Identity               `mapstructure:"kommune" json:"kommune"`
	Agents          map[string]AgentConfig `mapstructure:"agents" json:"agents"`
	CrawlerSettings *Settings              `mapstructure:"crawler_settings" json:"crawler_settings"`
}
