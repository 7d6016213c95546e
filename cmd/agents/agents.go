// Package agents implements the command that lists the topic agents
// configured for a kommune.
package agents

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kommuneai/crawler/cmd/common"
	"github.com/kommuneai/crawler/internal/kommune"
)

// Command creates the agents command.
func Command() *cobra.Command {
	var kommuneName string

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List the configured agents of a kommune",
		RunE: func(_ *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}

			loader := common.NewLoader(deps, kommuneName)
			names, err := loader.AgentNames()
			if err != nil {
				if errors.Is(err, kommune.ErrConfigNotFound) {
					if available := loader.ListAvailable(); len(available) > 0 {
						fmt.Printf("Available kommunen: %s\n", strings.Join(available, ", "))
					}
				}
				return fmt.Errorf("failed to load agents: %w", err)
			}

			info, err := loader.KommuneInfo()
			if err != nil {
				return err
			}
			fmt.Printf("Kommune: %s (%s)\n", info.Name, info.Domain)

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Agent", "Web sources", "File sources", "PDF sources"})

			for _, name := range names {
				agent, agentErr := loader.AgentConfig(name)
				if agentErr != nil || agent == nil {
					continue
				}
				t.AppendRow(table.Row{
					name,
					len(agent.WebSources),
					len(agent.FileSources),
					len(agent.PDFSources),
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&kommuneName, "kommune", "k", "", "kommune to inspect (overrides configuration)")

	return cmd
}
