// Package crawl implements the command that runs the full ingestion
// pipeline for one kommune: crawl all agents, process, compress and back up.
package crawl

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kommuneai/crawler/cmd/common"
	"github.com/kommuneai/crawler/internal/domain"
)

// Command creates the crawl command.
func Command() *cobra.Command {
	var kommuneName string

	cmd := &cobra.Command{
		Use:   "crawl [kommune]",
		Short: "Run the full crawl pipeline for a kommune",
		Long: `Crawl all configured agents of a kommune, process the raw items into
records, compress the processed data and create a backup.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}

			if len(args) > 0 {
				kommuneName = args[0]
			}
			handle, err := common.BuildEngine(deps, kommuneName)
			if err != nil {
				return fmt.Errorf("failed to build pipeline: %w", err)
			}
			defer handle.Close()

			deps.Logger.Info("Starting crawl", "kommune", handle.Loader.Kommune())
			results, err := handle.Engine.CrawlAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("crawl failed: %w", err)
			}

			renderResults(results)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kommuneName, "kommune", "k", "", "kommune to crawl (overrides configuration)")

	return cmd
}

// renderResults prints a per-agent summary of the finished run.
func renderResults(results map[string]domain.AgentResult) {
	agents := make([]string, 0, len(results))
	for agent := range results {
		agents = append(agents, agent)
	}
	sort.Strings(agents)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Agent", "Items", "Status"})

	for _, agent := range agents {
		result := results[agent]
		status := "ok"
		if result.Failed() {
			status = fmt.Sprintf("error: %v", result.Err)
		}
		t.AppendRow(table.Row{agent, len(result.Items), status})
	}
	t.Render()
}
