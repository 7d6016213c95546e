package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kommuneai/crawler/internal/backup"
	"github.com/kommuneai/crawler/internal/compressor"
	"github.com/kommuneai/crawler/internal/domain"
	"github.com/kommuneai/crawler/internal/engine"
	"github.com/kommuneai/crawler/internal/kommune"
	"github.com/kommuneai/crawler/internal/logger"
	"github.com/kommuneai/crawler/internal/processor"
	"github.com/kommuneai/crawler/internal/storage"
)

// stubSource returns canned items per locator, counts calls, and can fail or
// panic for selected locators.
type stubSource struct {
	items   map[string][]domain.RawItem
	failing map[string]bool
	panicky map[string]bool
	calls   map[string]int
}

func newStubSource() *stubSource {
	return &stubSource{
		items:   make(map[string][]domain.RawItem),
		failing: make(map[string]bool),
		panicky: make(map[string]bool),
		calls:   make(map[string]int),
	}
}

func (s *stubSource) Crawl(_ context.Context, locator string) ([]domain.RawItem, error) {
	s.calls[locator]++
	if s.panicky[locator] {
		panic("source exploded")
	}
	if s.failing[locator] {
		return nil, assert.AnError
	}
	return s.items[locator], nil
}

const tenantConfig = `{
  "kommune": {"name": "Testhausen", "domain": "testhausen.de", "base_url": "https://testhausen.de"},
  "agents": {
    "rathaus": {"name": "Rathaus", "webSources": ["https://testhausen.de/rathaus"]},
    "bauamt": {"name": "Bauamt", "webSources": ["https://testhausen.de/bauamt"]}
  },
  "crawler_settings": {"retryAttempts": 2, "retryDelay": 1, "maxConcurrent": 1, "delayBetweenRequests": 1}
}`

type fixture struct {
	engine  *engine.Engine
	web     *stubSource
	dataDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "testhausen.json"), []byte(tenantConfig), 0o644))

	log := logger.NewNoOp()
	loader := kommune.NewLoader(configDir, "testhausen", log)
	settings, err := loader.CrawlerSettings()
	require.NoError(t, err)

	dataDir := t.TempDir()
	web := newStubSource()
	eng := engine.New(engine.Params{
		Loader:     loader,
		Web:        web,
		File:       newStubSource(),
		PDF:        newStubSource(),
		Processor:  processor.New(log),
		Compressor: compressor.New(dataDir, log),
		Backup:     backup.NewManager(dataDir, 10, log),
		Store:      storage.New(dataDir, log),
		Settings:   settings,
		Logger:     log,
	})
	return &fixture{engine: eng, web: web, dataDir: dataDir}
}

func TestCrawlAll_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.web.items["https://testhausen.de/rathaus"] = []domain.RawItem{
		{Type: domain.ItemTypeContent, URL: "https://testhausen.de/rathaus", Title: "Rathaus", Content: "Inhalt"},
	}
	f.web.items["https://testhausen.de/bauamt"] = []domain.RawItem{
		{Type: domain.ItemTypeContact, ContactType: domain.ContactTypeEmail, Value: "bau@testhausen.de"},
	}

	results, err := f.engine.CrawlAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results["rathaus"].Failed())
	assert.Len(t, results["rathaus"].Items, 1)

	// Every stage left its artifact behind.
	for _, path := range []string{
		filepath.Join("raw", "rathaus_data_"),
		filepath.Join("processed", "all_agents_data_"),
	} {
		matches, globErr := filepath.Glob(filepath.Join(f.dataDir, path+"*.json"))
		require.NoError(t, globErr)
		assert.NotEmpty(t, matches, path)
	}
	backups, err := filepath.Glob(filepath.Join(f.dataDir, "backup", "full_backup_*.zip"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	latest, err := f.engine.LatestData()
	require.NoError(t, err)
	assert.Contains(t, latest, "rathaus")
	assert.Contains(t, latest, "bauamt")
}

func TestCrawlAll_PanickingSourceIsolatedToItsAgent(t *testing.T) {
	f := newFixture(t)
	f.web.panicky["https://testhausen.de/rathaus"] = true
	f.web.items["https://testhausen.de/bauamt"] = []domain.RawItem{
		{Type: domain.ItemTypeContent, URL: "https://testhausen.de/bauamt", Title: "Bauamt", Content: "Inhalt"},
	}

	results, err := f.engine.CrawlAll(context.Background())
	require.NoError(t, err)

	assert.True(t, results["rathaus"].Failed())
	assert.Contains(t, results["rathaus"].Err, "panicked")
	assert.False(t, results["bauamt"].Failed())

	// The failed agent is excluded from processed output.
	latest, latestErr := f.engine.LatestData()
	require.NoError(t, latestErr)
	assert.NotContains(t, latest, "rathaus")
	assert.Contains(t, latest, "bauamt")
}

func TestCrawlAll_FailingSourceDegradesToEmpty(t *testing.T) {
	f := newFixture(t)
	f.web.failing["https://testhausen.de/rathaus"] = true

	results, err := f.engine.CrawlAll(context.Background())
	require.NoError(t, err)

	assert.False(t, results["rathaus"].Failed())
	assert.Empty(t, results["rathaus"].Items)
	// retryAttempts from the tenant settings
	assert.Equal(t, 2, f.web.calls["https://testhausen.de/rathaus"])
}

func TestCrawlAll_MissingConfigIsFatal(t *testing.T) {
	log := logger.NewNoOp()
	loader := kommune.NewLoader(t.TempDir(), "fehlt", log)
	dataDir := t.TempDir()

	eng := engine.New(engine.Params{
		Loader:     loader,
		Web:        newStubSource(),
		File:       newStubSource(),
		PDF:        newStubSource(),
		Processor:  processor.New(log),
		Compressor: compressor.New(dataDir, log),
		Backup:     backup.NewManager(dataDir, 10, log),
		Store:      storage.New(dataDir, log),
		Settings:   kommune.DefaultSettings(),
		Logger:     log,
	})

	_, err := eng.CrawlAll(context.Background())
	assert.ErrorIs(t, err, kommune.ErrConfigNotFound)
}
