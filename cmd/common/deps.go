// Package common provides shared dependency construction for the CLI
// commands.
package common

import (
	"fmt"

	"github.com/kommuneai/crawler/internal/backup"
	"github.com/kommuneai/crawler/internal/browser"
	"github.com/kommuneai/crawler/internal/compressor"
	"github.com/kommuneai/crawler/internal/config"
	"github.com/kommuneai/crawler/internal/crawler"
	"github.com/kommuneai/crawler/internal/engine"
	"github.com/kommuneai/crawler/internal/history"
	"github.com/kommuneai/crawler/internal/kommune"
	"github.com/kommuneai/crawler/internal/logger"
	"github.com/kommuneai/crawler/internal/processor"
	"github.com/kommuneai/crawler/internal/storage"
)

// Deps holds the dependencies every command needs.
type Deps struct {
	Config *config.Config
	Logger logger.Interface
}

// NewCommandDeps builds the application config and logger.
func NewCommandDeps() (*Deps, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &Deps{Config: cfg, Logger: log}, nil
}

// NewLoader creates the tenant loader for the selected kommune. An explicit
// kommune argument overrides the configured one.
func NewLoader(deps *Deps, kommuneName string) *kommune.Loader {
	if kommuneName == "" {
		kommuneName = deps.Config.Kommune
	}
	return kommune.NewLoader(deps.Config.KommuneDir, kommuneName, deps.Logger)
}

// EngineHandle bundles a fully wired engine with the resources it owns.
// Close must be called when the engine is no longer needed.
type EngineHandle struct {
	Engine *engine.Engine
	Loader *kommune.Loader

	browserHandle *browser.Browser
	historyRepo   *history.Repository
	logger        logger.Interface
}

// Close releases the engine's owned resources (browser process, history
// database).
func (h *EngineHandle) Close() {
	if h.browserHandle != nil {
		h.browserHandle.Close()
	}
	if h.historyRepo != nil {
		if err := h.historyRepo.Close(); err != nil {
			h.logger.Error("Failed to close history database", "error", err)
		}
	}
}

// BuildEngine wires the full pipeline for one tenant: loader, crawlers,
// processor, compressor, backup manager and optional collaborators. The
// tenant configuration is loaded here so misconfiguration fails fast, before
// any crawling starts.
func BuildEngine(deps *Deps, kommuneName string) (*EngineHandle, error) {
	loader := NewLoader(deps, kommuneName)
	if _, err := loader.Load(); err != nil {
		return nil, err
	}

	settings, err := loader.CrawlerSettings()
	if err != nil {
		return nil, err
	}

	handle := &EngineHandle{Loader: loader, logger: deps.Logger}

	var fetcher crawler.HTMLFetcher
	if deps.Config.Render {
		handle.browserHandle = browser.New(settings.UserAgent, deps.Logger)
		fetcher = handle.browserHandle
	} else {
		static, fetcherErr := crawler.NewStaticFetcher(settings, deps.Logger)
		if fetcherErr != nil {
			return nil, fmt.Errorf("failed to create static fetcher: %w", fetcherErr)
		}
		fetcher = static
	}

	var validator *processor.LinkValidator
	if deps.Config.ValidateLinks {
		validator = processor.NewLinkValidator(settings.MaxConcurrent, deps.Logger)
	}

	var historyRepo *history.Repository
	if deps.Config.HistoryPath != "" {
		historyRepo, err = history.NewRepository(deps.Config.HistoryPath)
		if err != nil {
			// History is an observability aid, never a reason not to crawl.
			deps.Logger.Warn("Run history disabled", "error", err)
			historyRepo = nil
		}
	}
	handle.historyRepo = historyRepo

	handle.Engine = engine.New(engine.Params{
		Loader:     loader,
		Web:        crawler.NewWebCrawler(fetcher, settings, deps.Logger),
		File:       crawler.NewFileCrawler(deps.Logger),
		PDF:        crawler.NewPDFCrawler(deps.Logger),
		Processor:  processor.New(deps.Logger),
		Validator:  validator,
		Compressor: compressor.New(deps.Config.DataDir, deps.Logger),
		Backup:     backup.NewManager(deps.Config.DataDir, deps.Config.MaxBackups, deps.Logger),
		Store:      storage.New(deps.Config.DataDir, deps.Logger),
		History:    historyRepo,
		Settings:   settings,
		Logger:     deps.Logger,
	})
	return handle, nil
}
