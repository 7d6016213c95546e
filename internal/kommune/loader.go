package kommune

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/kommuneai/crawler/internal/logger"
)

var (
	// ErrConfigNotFound indicates the tenant configuration file does not exist.
	ErrConfigNotFound = errors.New("kommune configuration not found")
	// ErrMissingIdentity indicates the kommune block or one of its identity fields is missing.
	ErrMissingIdentity = errors.New("kommune name, domain or base_url missing")
	// ErrNoAgents indicates the agents block is missing or empty.
	ErrNoAgents = errors.New("no agents configured")
)

// configExtensions lists the tenant file formats probed by Load, in order.
var configExtensions = []string{".json", ".yaml", ".yml"}

// Loader loads tenant configuration documents from a directory. The loaded
// config is memoized for the process lifetime; SetKommune forces a reload.
type Loader struct {
	mu      sync.Mutex
	dir     string
	kommune string
	logger  logger.Interface
	config  *Config
}

// NewLoader creates a loader for tenant documents in dir.
func NewLoader(dir, kommune string, log logger.Interface) *Loader {
	return &Loader{
		dir:     dir,
		kommune: kommune,
		logger:  log.WithComponent("kommune"),
	}
}

// Kommune returns the currently selected tenant identifier.
func (l *Loader) Kommune() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kommune
}

// SetKommune switches the selected tenant and discards the memoized config.
func (l *Loader) SetKommune(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kommune = name
	l.config = nil
}

// Load reads, decodes and validates the tenant configuration. It is
// idempotent: the first successful result is cached.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.config != nil {
		return l.config, nil
	}

	path, err := l.resolvePath()
	if err != nil {
		return nil, err
	}

	raw, err := decodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kommune config %s: %w", path, err)
	}

	var cfg Config
	if decodeErr := mapstructure.Decode(raw, &cfg); decodeErr != nil {
		return nil, fmt.Errorf("failed to decode kommune config %s: %w", path, decodeErr)
	}

	if validateErr := l.validate(&cfg); validateErr != nil {
		return nil, fmt.Errorf("invalid kommune config %s: %w", path, validateErr)
	}

	l.logger.Info("Kommune configuration loaded",
		"kommune", cfg.Kommune.Name,
		"domain", cfg.Kommune.Domain,
		"agents", len(cfg.Agents))

	l.config = &cfg
	return l.config, nil
}

// resolvePath finds the tenant file for the selected kommune, probing the
// supported extensions in order.
func (l *Loader) resolvePath() (string, error) {
	for _, ext := range configExtensions {
		path := filepath.Join(l.dir, l.kommune+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s (set the KOMMUNE environment variable or create a configuration under %s)",
		ErrConfigNotFound, l.kommune, l.dir)
}

// decodeFile parses a tenant document into a generic map. JSON and YAML are
// supported; the extension decides the decoder.
func decodeFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if jsonErr := json.Unmarshal(data, &raw); jsonErr != nil {
			return nil, fmt.Errorf("invalid JSON: %w", jsonErr)
		}
	default:
		if yamlErr := yaml.Unmarshal(data, &raw); yamlErr != nil {
			return nil, fmt.Errorf("invalid YAML: %w", yamlErr)
		}
	}
	return raw, nil
}

// validate applies the fail-fast rules: identity fields and a non-empty agents
// map are required. An agent without sources is only warned about.
func (l *Loader) validate(cfg *Config) error {
	if cfg.Kommune.Name == "" || cfg.Kommune.Domain == "" || cfg.Kommune.BaseURL == "" {
		return ErrMissingIdentity
	}
	if len(cfg.Agents) == 0 {
		return ErrNoAgents
	}

	for name, agent := range cfg.Agents {
		if agent.Name == "" {
			l.logger.Warn("Agent has no name field", "agent", name)
		}
		if agent.Empty() {
			l.logger.Warn("Agent has no sources configured", "agent", name)
		}
	}
	return nil
}

// AgentNames returns the configured agent names, sorted for deterministic
// iteration order.
func (l *Loader) AgentNames() ([]string, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cfg.Agents))
	for name := range cfg.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// AgentConfig returns the configuration of a single agent, or nil when the
// agent is not configured.
func (l *Loader) AgentConfig(name string) (*AgentConfig, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}

	agent, ok := cfg.Agents[name]
	if !ok {
		return nil, nil
	}
	return &agent, nil
}

// KommuneInfo returns the tenant identity.
func (l *Loader) KommuneInfo() (*Identity, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}
	return &cfg.Kommune, nil
}

// CrawlerSettings returns the tenant's crawl settings, falling back to the
// hardcoded defaults when the document has none. Zero-valued fields are
// filled in from the defaults individually.
func (l *Loader) CrawlerSettings() (Settings, error) {
	cfg, err := l.Load()
	if err != nil {
		return Settings{}, err
	}

	defaults := DefaultSettings()
	if cfg.CrawlerSettings == nil {
		return defaults, nil
	}

	settings := *cfg.CrawlerSettings
	if settings.Timeout == 0 {
		settings.Timeout = defaults.Timeout
	}
	if settings.UserAgent == "" {
		settings.UserAgent = defaults.UserAgent
	}
	if settings.RetryAttempts == 0 {
		settings.RetryAttempts = defaults.RetryAttempts
	}
	if settings.RetryDelay == 0 {
		settings.RetryDelay = defaults.RetryDelay
	}
	if settings.MaxConcurrent == 0 {
		settings.MaxConcurrent = defaults.MaxConcurrent
	}
	if settings.DelayBetweenRequests == 0 {
		settings.DelayBetweenRequests = defaults.DelayBetweenRequests
	}
	return settings, nil
}

// ListAvailable enumerates the tenants that have a configuration document in
// the loader's directory. The template file is skipped.
func (l *Loader) ListAvailable() []string {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		l.logger.Error("Failed to list kommune configurations", "error", err)
		return nil
	}

	seen := make(map[string]struct{})
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		supported := false
		for _, candidate := range configExtensions {
			if ext == candidate {
				supported = true
				break
			}
		}
		if !supported {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if name == "template" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
