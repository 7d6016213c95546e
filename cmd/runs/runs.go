// Package runs implements the command that shows the recorded crawl run
// history.
package runs

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kommuneai/crawler/cmd/common"
	"github.com/kommuneai/crawler/internal/history"
)

// Command creates the runs command.
func Command() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent crawl runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}

			if deps.Config.HistoryPath == "" {
				return fmt.Errorf("run history is disabled: no history path configured")
			}

			repo, err := history.NewRepository(deps.Config.HistoryPath)
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer repo.Close()

			runs, err := repo.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Started", "Kommune", "Duration", "Agents", "Records", "Errors"})

			for _, run := range runs {
				t.AppendRow(table.Row{
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Kommune,
					run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
					run.Agents,
					run.Records,
					run.Errors,
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of runs to show (0 uses the default)")

	return cmd
}
