// Package storage persists the pipeline's stage artifacts under the data
// directory. Each stage writer exclusively owns its output directory: storage
// writes raw and processed, the compressor writes compressed, the backup
// manager writes backup. Already-written artifacts are never mutated, which
// keeps every stage replayable.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kommuneai/crawler/internal/domain"
	"github.com/kommuneai/crawler/internal/logger"
)

// Stage directory names under the data root.
const (
	StageRaw        = "raw"
	StageProcessed  = "processed"
	StageCompressed = "compressed"
	StageBackup     = "backup"
)

// ErrNoProcessedData indicates no processed artifacts exist yet.
var ErrNoProcessedData = errors.New("no processed data found")

// combinedPrefix names the combined processed dump holding all agents.
const combinedPrefix = "all_agents_data_"

// Store reads and writes stage artifacts.
type Store struct {
	dataDir string
	logger  logger.Interface
}

// New creates a store rooted at dataDir.
func New(dataDir string, log logger.Interface) *Store {
	return &Store{
		dataDir: dataDir,
		logger:  log.WithComponent("storage"),
	}
}

// DataDir returns the data root.
func (s *Store) DataDir() string {
	return s.dataDir
}

// StageDir returns the path of one stage directory.
func (s *Store) StageDir(stage string) string {
	return filepath.Join(s.dataDir, stage)
}

// EnsureDirs creates all stage directories.
func (s *Store) EnsureDirs() error {
	for _, stage := range []string{StageRaw, StageProcessed, StageCompressed, StageBackup} {
		if err := os.MkdirAll(s.StageDir(stage), 0o755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", stage, err)
		}
	}
	return nil
}

// SaveRaw writes one agent's raw items for a run.
func (s *Store) SaveRaw(agent string, items []domain.RawItem, timestamp string) error {
	path := filepath.Join(s.StageDir(StageRaw), fmt.Sprintf("%s_data_%s.json", agent, timestamp))
	if err := WriteJSON(path, items); err != nil {
		return err
	}
	s.logger.Info("Raw data saved", "agent", agent, "path", path, "items", len(items))
	return nil
}

// SaveProcessed writes the combined processed dump and one shard per agent.
// The per-agent shards are the contract with the downstream agent-data
// reader.
func (s *Store) SaveProcessed(processed map[string][]domain.Record, timestamp string) error {
	combined := filepath.Join(s.StageDir(StageProcessed), combinedPrefix+timestamp+".json")
	if err := WriteJSON(combined, processed); err != nil {
		return err
	}

	for agent, records := range processed {
		shard := filepath.Join(s.StageDir(StageProcessed), fmt.Sprintf("%s_data_%s.json", agent, timestamp))
		if err := WriteJSON(shard, records); err != nil {
			return err
		}
	}

	s.logger.Info("Processed data saved", "path", combined, "agents", len(processed))
	return nil
}

// LatestProcessed reads the newest combined processed dump. File names embed
// the run date, so the lexicographically greatest name is the newest run.
func (s *Store) LatestProcessed() (map[string][]domain.Record, error) {
	entries, err := os.ReadDir(s.StageDir(StageProcessed))
	if err != nil {
		return nil, fmt.Errorf("failed to list processed data: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, combinedPrefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, ErrNoProcessedData
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	path := filepath.Join(s.StageDir(StageProcessed), names[0])
	var processed map[string][]domain.Record
	if err := readJSON(path, &processed); err != nil {
		return nil, err
	}
	return processed, nil
}

// LatestAgentData reads the newest per-agent processed shard for one agent.
func (s *Store) LatestAgentData(agent string) ([]domain.Record, error) {
	entries, err := os.ReadDir(s.StageDir(StageProcessed))
	if err != nil {
		return nil, fmt.Errorf("failed to list processed data: %w", err)
	}

	prefix := agent + "_data_"
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: agent %s", ErrNoProcessedData, agent)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	path := filepath.Join(s.StageDir(StageProcessed), names[0])
	var records []domain.Record
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// WriteJSON marshals v with indentation and writes it to path. Shared by the
// stage writers; each stage still only writes inside its own directory.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// readJSON reads and unmarshals one artifact.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
