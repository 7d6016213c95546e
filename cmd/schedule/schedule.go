// Package schedule implements the command that runs the crawl pipeline on a
// cron schedule until interrupted.
package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/kommuneai/crawler/cmd/common"
)

const defaultSchedule = "0 3 * * *"

// Command creates the schedule command.
func Command() *cobra.Command {
	var (
		kommuneName string
		schedule    string
		runNow      bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the crawl pipeline on a cron schedule",
		Long: `Run the full crawl pipeline repeatedly on a cron schedule.
The command runs until interrupted with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}

			handle, err := common.BuildEngine(deps, kommuneName)
			if err != nil {
				return fmt.Errorf("failed to build pipeline: %w", err)
			}
			defer handle.Close()

			ctx := cmd.Context()
			log := deps.Logger.WithComponent("schedule")

			// Overlapping runs are skipped rather than queued. A crawl that
			// outlasts its interval should not pile up behind itself.
			var running sync.Mutex
			runOnce := func() {
				if !running.TryLock() {
					log.Warn("Previous crawl still running, skipping this trigger")
					return
				}
				defer running.Unlock()

				start := time.Now()
				results, crawlErr := handle.Engine.CrawlAll(ctx)
				if crawlErr != nil {
					log.Error("Scheduled crawl failed", "error", crawlErr)
					return
				}
				log.Info("Scheduled crawl finished",
					"agents", len(results),
					"duration", time.Since(start).String())
			}

			c := cron.New()
			if _, err := c.AddFunc(schedule, runOnce); err != nil {
				return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
			}

			log.Info("Scheduler started",
				"kommune", handle.Loader.Kommune(),
				"schedule", schedule)
			c.Start()
			defer c.Stop()

			if runNow {
				runOnce()
			}

			<-ctx.Done()
			log.Info("Scheduler stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&kommuneName, "kommune", "k", "", "kommune to crawl (overrides configuration)")
	cmd.Flags().StringVarP(&schedule, "cron", "s", defaultSchedule, "cron expression for the crawl schedule")
	cmd.Flags().BoolVar(&runNow, "now", false, "run one crawl immediately on startup")

	return cmd
}
