// Package backup implements the commands for managing full backup archives:
// listing them, restoring one and pruning old ones.
package backup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kommuneai/crawler/cmd/common"
	internalbackup "github.com/kommuneai/crawler/internal/backup"
)

// Command creates the backup command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage full backup archives",
	}

	cmd.AddCommand(listCommand(), restoreCommand(), pruneCommand())

	return cmd
}

func newManager(deps *common.Deps) *internalbackup.Manager {
	return internalbackup.NewManager(deps.Config.DataDir, deps.Config.MaxBackups, deps.Logger)
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List existing full backups, newest first",
		RunE: func(_ *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}

			manager := newManager(deps)
			names := manager.List()
			if len(names) == 0 {
				fmt.Println("No backups found")
				return nil
			}

			backupDir := filepath.Join(deps.Config.DataDir, "backup")
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Backup", "Size", "Modified"})

			for _, name := range names {
				size, modified := "?", "?"
				if info, statErr := os.Stat(filepath.Join(backupDir, name)); statErr == nil {
					size = fmt.Sprintf("%.1f KiB", float64(info.Size())/1024)
					modified = info.ModTime().Format("2006-01-02 15:04:05")
				}
				t.AppendRow(table.Row{name, size, modified})
			}
			t.Render()
			return nil
		},
	}
}

func restoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <archive>",
		Short: "Restore a full backup archive into the data directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}

			if err := newManager(deps).Restore(args[0]); err != nil {
				return err
			}
			fmt.Printf("Restored %s\n", args[0])
			return nil
		},
	}
}

func pruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete backups beyond the retention limit",
		RunE: func(_ *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}

			deleted := newManager(deps).Prune()
			fmt.Printf("Deleted %d backup(s)\n", deleted)
			return nil
		},
	}
}
