package kommune_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kommuneai/crawler/internal/kommune"
	"github.com/kommuneai/crawler/internal/logger"
)

const validJSON = `{
  "kommune": {
    "name": "Landkreis Oldenburg",
    "domain": "oldenburg-kreis.de",
    "base_url": "https://www.oldenburg-kreis.de"
  },
  "agents": {
    "buergerservice": {
      "name": "Bürgerservice",
      "webSources": ["https://www.oldenburg-kreis.de/buergerservice"],
      "pdfSources": ["data/pdfs/antrag.pdf"]
    },
    "abfall": {
      "name": "Abfallwirtschaft",
      "webSources": ["https://www.oldenburg-kreis.de/abfall"]
    }
  },
  "crawler_settings": {
    "timeout": 10000,
    "maxConcurrent": 2
  }
}`

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newLoader(t *testing.T, dir, kommuneName string) *kommune.Loader {
	t.Helper()
	return kommune.NewLoader(dir, kommuneName, logger.NewNoOp())
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "oldenburg-kreis.json", validJSON)

	loader := newLoader(t, dir, "oldenburg-kreis")
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "Landkreis Oldenburg", cfg.Kommune.Name)
	assert.Equal(t, "oldenburg-kreis.de", cfg.Kommune.Domain)
	require.Contains(t, cfg.Agents, "buergerservice")
	assert.Equal(t, 2, cfg.Agents["buergerservice"].SourceCount())
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "ganderkesee.yaml", `
kommune:
  name: Gemeinde Ganderkesee
  domain: ganderkesee.de
  base_url: https://www.ganderkesee.de
agents:
  rathaus:
    name: Rathaus
    webSources:
      - https://www.ganderkesee.de/rathaus
`)

	cfg, err := newLoader(t, dir, "ganderkesee").Load()
	require.NoError(t, err)
	assert.Equal(t, "Gemeinde Ganderkesee", cfg.Kommune.Name)
	assert.Len(t, cfg.Agents, 1)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := newLoader(t, t.TempDir(), "fehlt").Load()
	assert.ErrorIs(t, err, kommune.ErrConfigNotFound)
}

func TestLoad_MissingIdentity(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "kaputt.json", `{"kommune": {"name": "X"}, "agents": {"a": {}}}`)

	_, err := newLoader(t, dir, "kaputt").Load()
	assert.ErrorIs(t, err, kommune.ErrMissingIdentity)
}

func TestLoad_NoAgents(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "leer.json",
		`{"kommune": {"name": "X", "domain": "x.de", "base_url": "https://x.de"}, "agents": {}}`)

	_, err := newLoader(t, dir, "leer").Load()
	assert.ErrorIs(t, err, kommune.ErrNoAgents)
}

func TestAgentNames_Sorted(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "oldenburg-kreis.json", validJSON)

	names, err := newLoader(t, dir, "oldenburg-kreis").AgentNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"abfall", "buergerservice"}, names)
}

func TestAgentConfig_UnknownAgentIsNil(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "oldenburg-kreis.json", validJSON)

	agent, err := newLoader(t, dir, "oldenburg-kreis").AgentConfig("gibtsnicht")
	require.NoError(t, err)
	assert.Nil(t, agent)
}

func TestCrawlerSettings_DefaultsFillZeroFields(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "oldenburg-kreis.json", validJSON)

	settings, err := newLoader(t, dir, "oldenburg-kreis").CrawlerSettings()
	require.NoError(t, err)

	// Explicit values survive, the rest comes from the defaults.
	assert.Equal(t, 10000, settings.Timeout)
	assert.Equal(t, 2, settings.MaxConcurrent)
	assert.Equal(t, kommune.DefaultRetryAttempts, settings.RetryAttempts)
	assert.Equal(t, kommune.DefaultUserAgent, settings.UserAgent)
}

func TestCrawlerSettings_AllDefaultsWithoutBlock(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "ohne.json",
		`{"kommune": {"name": "X", "domain": "x.de", "base_url": "https://x.de"}, "agents": {"a": {"name": "A"}}}`)

	settings, err := newLoader(t, dir, "ohne").CrawlerSettings()
	require.NoError(t, err)
	assert.Equal(t, kommune.DefaultSettings(), settings)
}

func TestSetKommune_DiscardsCache(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "oldenburg-kreis.json", validJSON)

	loader := newLoader(t, dir, "fehlt")
	_, err := loader.Load()
	require.Error(t, err)

	loader.SetKommune("oldenburg-kreis")
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "oldenburg-kreis", loader.Kommune())
	assert.NotNil(t, cfg)
}

func TestListAvailable_SkipsTemplate(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "oldenburg-kreis.json", validJSON)
	writeConfig(t, dir, "ganderkesee.yaml", "kommune: {}")
	writeConfig(t, dir, "template.json", "{}")
	writeConfig(t, dir, "README.md", "nicht relevant")

	names := newLoader(t, dir, "egal").ListAvailable()
	assert.Equal(t, []string{"ganderkesee", "oldenburg-kreis"}, names)
}
