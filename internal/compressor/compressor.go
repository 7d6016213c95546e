// Package compressor reduces processed records' text payloads. Compression
// here is whitespace normalization, not binary compression: the output stays
// readable JSON, sharded per agent and packaged into a zip archive per run.
package compressor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kommuneai/crawler/internal/archive"
	"github.com/kommuneai/crawler/internal/domain"
	"github.com/kommuneai/crawler/internal/logger"
	"github.com/kommuneai/crawler/internal/processor"
	"github.com/kommuneai/crawler/internal/storage"
)

// Compressor owns the compressed stage directory.
type Compressor struct {
	dataDir string
	logger  logger.Interface
}

// New creates a compressor writing under dataDir.
func New(dataDir string, log logger.Interface) *Compressor {
	return &Compressor{
		dataDir: dataDir,
		logger:  log.WithComponent("compressor"),
	}
}

// CompressAll compresses every agent's records and persists the result: one
// JSON shard per agent under a timestamped directory, plus a zip archive of
// that directory. A persistence failure for one agent is logged and the agent
// gets an empty result; the run continues.
func (c *Compressor) CompressAll(processed map[string][]domain.Record, timestamp string) (map[string][]domain.Record, error) {
	c.logger.Info("Compressing agent data", "agents", len(processed))

	compressed := make(map[string][]domain.Record, len(processed))
	for agent, records := range processed {
		compressed[agent] = c.compressAgent(agent, records)
		c.logger.Info("Agent compressed", "agent", agent, "records", len(compressed[agent]))
	}

	if err := c.save(compressed, timestamp); err != nil {
		return compressed, err
	}
	return compressed, nil
}

// compressAgent compresses one agent's records. An unexpected panic yields an
// empty result for this agent only.
func (c *Compressor) compressAgent(agent string, records []domain.Record) (compressed []domain.Record) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Compression panicked, substituting empty result", "agent", agent, "panic", r)
			compressed = []domain.Record{}
		}
	}()

	compressed = make([]domain.Record, 0, len(records))
	for _, record := range records {
		compressed = append(compressed, CompressRecord(record))
	}
	return compressed
}

// save writes the per-agent shards and the run's zip archive.
func (c *Compressor) save(compressed map[string][]domain.Record, timestamp string) error {
	stageDir := filepath.Join(c.dataDir, storage.StageCompressed)
	runDir := filepath.Join(stageDir, timestamp+"-compressed")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create compressed directory: %w", err)
	}

	agents := make([]string, 0, len(compressed))
	for agent := range compressed {
		agents = append(agents, agent)
	}
	sort.Strings(agents)

	for _, agent := range agents {
		path := filepath.Join(runDir, agent+"_data_compressed.json")
		if err := storage.WriteJSON(path, compressed[agent]); err != nil {
			c.logger.Error("Failed to save compressed agent data", "agent", agent, "error", err)
			compressed[agent] = []domain.Record{}
		}
	}

	zipPath := filepath.Join(stageDir, timestamp+"-compressed.zip")
	if err := archive.Create(zipPath, archive.Dir{Path: runDir}); err != nil {
		return fmt.Errorf("failed to create compressed archive: %w", err)
	}

	c.logger.Info("Compressed data saved", "dir", runDir, "archive", zipPath)
	return nil
}

// CompressRecord normalizes one record's text payloads and stamps the
// compression metadata.
func CompressRecord(record domain.Record) domain.Record {
	compressed := record
	compressed.Content = processor.CleanContent(record.Content)
	compressed.PlainText = processor.CleanContent(record.PlainText)
	compressed.Metadata.Compressed = true
	compressed.Metadata.CompressionRatio = CompressionRatio(record.Content, compressed.Content)
	return compressed
}

// CompressionRatio is len(compressed)/len(original), defined as 1 ("no
// reduction") when either side is empty. The result is always within [0, 1]
// because whitespace normalization never grows text.
func CompressionRatio(original, compressed string) float64 {
	if original == "" || compressed == "" {
		return 1
	}
	return float64(len(compressed)) / float64(len(original))
}

// Decompress is the inverse operation for symmetry and testing. The current
// compression is lossless text normalization, so content passes through
// unchanged; only the compressed flag flips.
func (c *Compressor) Decompress(records []domain.Record) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for _, record := range records {
		record.Metadata.Compressed = false
		out = append(out, record)
	}
	return out
}
