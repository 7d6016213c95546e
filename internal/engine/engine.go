// Package engine drives the ingestion pipeline: it crawls every configured
// agent's sources, then hands the merged results through processing, optional
// link validation, persistence, compression and backup. Each stage writes its
// own durable artifact before the next starts, so a crash leaves replayable
// state.
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kommuneai/crawler/internal/backup"
	"github.com/kommuneai/crawler/internal/compressor"
	"github.com/kommuneai/crawler/internal/crawler"
	"github.com/kommuneai/crawler/internal/domain"
	"github.com/kommuneai/crawler/internal/history"
	"github.com/kommuneai/crawler/internal/kommune"
	"github.com/kommuneai/crawler/internal/logger"
	"github.com/kommuneai/crawler/internal/processor"
	"github.com/kommuneai/crawler/internal/storage"
)

// timestampLayout is the run timestamp embedded in every artifact name.
const timestampLayout = "2006-01-02"

// Params carries the engine's collaborators.
type Params struct {
	Loader     *kommune.Loader
	Web        crawler.Source
	File       crawler.Source
	PDF        crawler.Source
	Processor  *processor.Processor
	// Validator is optional; nil disables the link validation stage.
	Validator  *processor.LinkValidator
	Compressor *compressor.Compressor
	Backup     *backup.Manager
	Store      *storage.Store
	// History is optional; nil disables run-history recording.
	History  *history.Repository
	Settings kommune.Settings
	Logger   logger.Interface
}

// Engine is the crawl orchestrator.
type Engine struct {
	loader     *kommune.Loader
	web        crawler.Source
	file       crawler.Source
	pdf        crawler.Source
	processor  *processor.Processor
	validator  *processor.LinkValidator
	compressor *compressor.Compressor
	backup     *backup.Manager
	store      *storage.Store
	history    *history.Repository
	settings   kommune.Settings
	logger     logger.Interface
	now        func() time.Time
}

// New creates an engine.
func New(p Params) *Engine {
	return &Engine{
		loader:     p.Loader,
		web:        p.Web,
		file:       p.File,
		pdf:        p.PDF,
		processor:  p.Processor,
		validator:  p.Validator,
		compressor: p.Compressor,
		backup:     p.Backup,
		store:      p.Store,
		history:    p.History,
		settings:   p.Settings,
		logger:     p.Logger.WithComponent("engine"),
		now:        time.Now,
	}
}

// CrawlAll runs the full pipeline once. The returned map carries every
// agent's outcome, including per-agent error markers; the only errors
// returned are genuine configuration failures that abort the run before any
// crawling starts.
func (e *Engine) CrawlAll(ctx context.Context) (map[string]domain.AgentResult, error) {
	started := e.now()
	timestamp := started.Format(timestampLayout)

	agents, err := e.loader.AgentNames()
	if err != nil {
		return nil, fmt.Errorf("failed to load kommune configuration: %w", err)
	}
	if err := e.store.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to prepare data directories: %w", err)
	}

	e.logger.Info("Starting full crawl", "agents", len(agents), "timestamp", timestamp)

	results := make(map[string]domain.AgentResult, len(agents))
	for _, agent := range agents {
		items, agentErr := e.crawlAgent(ctx, agent)
		if agentErr != nil {
			e.logger.Error("Agent crawl failed", "agent", agent, "error", agentErr)
			results[agent] = domain.AgentResult{Err: agentErr.Error()}
			continue
		}
		results[agent] = domain.AgentResult{Items: items}

		if saveErr := e.store.SaveRaw(agent, items, timestamp); saveErr != nil {
			e.logger.Error("Failed to save raw data", "agent", agent, "error", saveErr)
		}
	}

	processed := e.processor.ProcessAll(results)

	if e.validator != nil {
		if validateErr := e.validator.ValidateAll(ctx, processed); validateErr != nil {
			e.logger.Error("Link validation failed, continuing without it", "error", validateErr)
		}
	}

	if saveErr := e.store.SaveProcessed(processed, timestamp); saveErr != nil {
		e.logger.Error("Failed to save processed data", "error", saveErr)
	}

	if _, compressErr := e.compressor.CompressAll(processed, timestamp); compressErr != nil {
		e.logger.Error("Compression failed", "error", compressErr)
	}

	if backupErr := e.backup.Create(timestamp); backupErr != nil {
		e.logger.Error("Backup failed", "error", backupErr)
	}

	e.recordRun(ctx, started, results, processed)

	e.logger.Info("Crawl finished",
		"agents", len(agents),
		"failed", countFailed(results),
		"duration", e.now().Sub(started))
	return results, nil
}

// sourceTask pairs one configured locator with its crawler.
type sourceTask struct {
	source  crawler.Source
	locator string
	kind    string
}

// crawlAgent crawls every source of one agent and concatenates the raw items
// in source-list order. Individual source failures degrade to empty results
// inside crawlSource; only an unexpected panic escapes as an agent-level
// error so the remaining agents still run.
func (e *Engine) crawlAgent(ctx context.Context, agent string) (items []domain.RawItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent crawl panicked: %v", r)
		}
	}()

	cfg, err := e.loader.AgentConfig(agent)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("agent %s is not configured", agent)
	}

	e.logger.Info("Crawling agent", "agent", agent, "sources", cfg.SourceCount())

	var tasks []sourceTask
	for _, url := range cfg.WebSources {
		tasks = append(tasks, sourceTask{e.web, url, "web"})
	}
	for _, path := range cfg.FileSources {
		tasks = append(tasks, sourceTask{e.file, path, "file"})
	}
	for _, path := range cfg.PDFSources {
		tasks = append(tasks, sourceTask{e.pdf, path, "pdf"})
	}

	if e.settings.MaxConcurrent > 1 {
		return e.crawlConcurrent(ctx, agent, tasks), nil
	}
	return e.crawlSequential(ctx, agent, tasks), nil
}

// crawlSequential visits sources one at a time with the politeness delay in
// between.
func (e *Engine) crawlSequential(ctx context.Context, agent string, tasks []sourceTask) []domain.RawItem {
	var items []domain.RawItem
	for i, task := range tasks {
		if i > 0 {
			e.wait(ctx, e.settings.RequestDelay())
		}
		items = append(items, e.crawlSource(ctx, agent, task)...)
	}
	return items
}

// crawlConcurrent fans the sources out over a bounded worker group. Results
// are merged in source-list order, not arrival order, so downstream
// deduplication stays deterministic.
func (e *Engine) crawlConcurrent(ctx context.Context, agent string, tasks []sourceTask) []domain.RawItem {
	results := make([][]domain.RawItem, len(tasks))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.settings.MaxConcurrent)
	for i, task := range tasks {
		group.Go(func() error {
			results[i] = e.crawlSource(groupCtx, agent, task)
			return nil
		})
	}
	// Workers never return errors; Wait only observes completion.
	_ = group.Wait()

	var items []domain.RawItem
	for _, result := range results {
		items = append(items, result...)
	}
	return items
}

// crawlSource fetches one source with uniform retries. A source that still
// fails after all attempts yields an empty result: one bad source cannot
// abort an agent's crawl.
func (e *Engine) crawlSource(ctx context.Context, agent string, task sourceTask) []domain.RawItem {
	attempts := e.settings.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		items, err := task.source.Crawl(ctx, task.locator)
		if err == nil {
			return items
		}
		lastErr = err

		if attempt < attempts {
			e.logger.Warn("Source crawl failed, retrying",
				"agent", agent,
				"kind", task.kind,
				"locator", task.locator,
				"attempt", attempt,
				"error", err)
			e.wait(ctx, e.settings.RetryDelayDuration())
		}
	}

	e.logger.Error("Source crawl failed, continuing with empty result",
		"agent", agent,
		"kind", task.kind,
		"locator", task.locator,
		"error", lastErr)
	return nil
}

// wait sleeps for the given duration or until the context is done.
func (e *Engine) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// recordRun stores the run summary in the history database, best-effort.
func (e *Engine) recordRun(
	ctx context.Context,
	started time.Time,
	results map[string]domain.AgentResult,
	processed map[string][]domain.Record,
) {
	if e.history == nil {
		return
	}

	records := 0
	for _, agentRecords := range processed {
		records += len(agentRecords)
	}

	run := history.Run{
		Kommune:    e.loader.Kommune(),
		StartedAt:  started.UTC(),
		FinishedAt: e.now().UTC(),
		Agents:     len(results),
		Records:    records,
		Errors:     countFailed(results),
	}
	if err := e.history.Record(ctx, run); err != nil {
		e.logger.Error("Failed to record run history", "error", err)
	}
}

// LatestData returns the newest processed dump, the artifact the downstream
// conversational agent consumes.
func (e *Engine) LatestData() (map[string][]domain.Record, error) {
	return e.store.LatestProcessed()
}

func countFailed(results map[string]domain.AgentResult) int {
	failed := 0
	for _, result := range results {
		if result.Failed() {
			failed++
		}
	}
	return failed
}
