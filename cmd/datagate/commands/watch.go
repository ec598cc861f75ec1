package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/datagate/internal/scheduler"
	"github.com/wonny/datagate/internal/scheduler/jobs"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the refresh pipeline on a schedule",
	Long: `Starts the scheduler and runs the full refresh pipeline on a cron
schedule (with seconds). Without --schedule the interval derives from the
tightest freshness threshold in the capability registry, so no contract
can go stale between runs. Overlapping runs are skipped.

Example:
  datagate watch
  datagate watch --schedule "0 0 6 * * *"
  datagate watch --schedule "@hourly" --skip-errors`,
	RunE: runWatch,
}

var (
	watchSchedule   string
	watchSkipErrors bool
	watchImmediate  bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron schedule with seconds (default derived from freshness thresholds)")
	watchCmd.Flags().BoolVar(&watchSkipErrors, "skip-errors", true, "continue past contract failures")
	watchCmd.Flags().BoolVar(&watchImmediate, "immediate", false, "run one refresh before waiting for the schedule")
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := loadStack()
	if err != nil {
		return err
	}
	defer s.close()

	schedule := watchSchedule
	if schedule == "" {
		// Run at half the tightest threshold so a failed run still has a
		// second chance before anything goes stale
		hours := s.capabilities.MinFreshnessHours() / 2
		if hours < 1 {
			hours = 1
		}
		schedule = fmt.Sprintf("@every %dh", hours)
	}

	orch := s.orchestrator(nil, nil)

	sched := scheduler.New(s.logger)
	job := jobs.NewRefreshJob(orch, schedule, watchSkipErrors, s.logger)
	if err := sched.AddJob(job); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	if watchImmediate {
		if err := sched.RunJob(job.Name()); err != nil {
			return err
		}
	}

	fmt.Printf("Watching %s on schedule %q (Ctrl+C to stop)\n",
		s.discovery.Root(), schedule)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return nil
}
