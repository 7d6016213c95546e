// Package backup mirrors each run's stage artifacts into the backup tree,
// builds one full zip archive per run, and enforces the retention policy.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kommuneai/crawler/internal/archive"
	"github.com/kommuneai/crawler/internal/logger"
	"github.com/kommuneai/crawler/internal/storage"
)

const (
	// DefaultMaxBackups is the retention bound for full backup archives.
	DefaultMaxBackups = 10

	fullBackupPrefix = "full_backup_"
	fullBackupSuffix = ".zip"
)

// ErrBackupNotFound indicates a restore was requested for a missing archive.
var ErrBackupNotFound = errors.New("backup not found")

// Manager owns the backup stage directory.
type Manager struct {
	dataDir    string
	backupDir  string
	maxBackups int
	logger     logger.Interface
}

// NewManager creates a backup manager. maxBackups below one falls back to the
// default retention bound.
func NewManager(dataDir string, maxBackups int, log logger.Interface) *Manager {
	if maxBackups < 1 {
		maxBackups = DefaultMaxBackups
	}
	return &Manager{
		dataDir:    dataDir,
		backupDir:  filepath.Join(dataDir, storage.StageBackup),
		maxBackups: maxBackups,
		logger:     log.WithComponent("backup"),
	}
}

// Create backs up all stage artifacts of one run: mirrored copies per stage,
// one full zip archive named by the run timestamp, then retention cleanup.
// Only a backup directory that cannot be created is fatal; the stage copies
// are best-effort and never touch the live stage trees.
func (m *Manager) Create(timestamp string) error {
	m.logger.Info("Creating backup", "timestamp", timestamp)

	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	m.copyStage(storage.StageRaw, ".json")
	m.copyStage(storage.StageProcessed, ".json")
	m.copyStage(storage.StageCompressed, ".json", ".zip")

	archivePath := filepath.Join(m.backupDir, fullBackupPrefix+timestamp+fullBackupSuffix)
	err := archive.Create(archivePath,
		archive.Dir{Path: filepath.Join(m.dataDir, storage.StageRaw), Prefix: storage.StageRaw},
		archive.Dir{Path: filepath.Join(m.dataDir, storage.StageProcessed), Prefix: storage.StageProcessed},
		archive.Dir{Path: filepath.Join(m.dataDir, storage.StageCompressed), Prefix: storage.StageCompressed},
	)
	if err != nil {
		return fmt.Errorf("failed to create full backup: %w", err)
	}
	m.logger.Info("Full backup created", "archive", archivePath)

	m.Prune()
	return nil
}

// copyStage mirrors one stage's top-level files with the given extensions
// into the backup tree. Failures are logged, not fatal.
func (m *Manager) copyStage(stage string, extensions ...string) {
	sourceDir := filepath.Join(m.dataDir, stage)
	destDir := filepath.Join(m.backupDir, stage)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		m.logger.Error("Failed to create backup stage directory", "stage", stage, "error", err)
		return
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		m.logger.Error("Failed to list stage directory", "stage", stage, "error", err)
		return
	}

	copied := 0
	for _, entry := range entries {
		if entry.IsDir() || !hasExtension(entry.Name(), extensions) {
			continue
		}
		src := filepath.Join(sourceDir, entry.Name())
		dst := filepath.Join(destDir, entry.Name())
		if copyErr := copyFile(src, dst); copyErr != nil {
			m.logger.Error("Failed to copy backup file", "file", entry.Name(), "error", copyErr)
			continue
		}
		copied++
	}
	m.logger.Info("Stage backed up", "stage", stage, "files", copied)
}

// Prune deletes the oldest full backup archives beyond the retention bound
// and returns how many were removed. Archive names embed the run date, so the
// lexicographic order is the chronological order.
func (m *Manager) Prune() int {
	backups := m.List()
	if len(backups) <= m.maxBackups {
		return 0
	}

	deleted := 0
	for _, name := range backups[m.maxBackups:] {
		path := filepath.Join(m.backupDir, name)
		if err := os.Remove(path); err != nil {
			m.logger.Error("Failed to delete old backup", "backup", name, "error", err)
			continue
		}
		m.logger.Info("Old backup deleted", "backup", name)
		deleted++
	}
	return deleted
}

// List returns the full backup archive names, newest first.
func (m *Manager) List() []string {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		m.logger.Error("Failed to list backups", "error", err)
		return nil
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, fullBackupPrefix) && strings.HasSuffix(name, fullBackupSuffix) {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}

// Restore extracts the named full backup archive back into the data
// directory. The archive must exist.
func (m *Manager) Restore(name string) error {
	m.logger.Info("Restoring backup", "backup", name)

	path := filepath.Join(m.backupDir, name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, name)
	}

	if err := archive.Extract(path, m.dataDir); err != nil {
		return fmt.Errorf("failed to restore backup %s: %w", name, err)
	}

	m.logger.Info("Backup restored", "backup", name)
	return nil
}

// hasExtension reports whether name ends in one of the given extensions.
func hasExtension(name string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// copyFile copies one regular file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
