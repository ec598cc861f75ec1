package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/datagate/internal/pipeline"
	"github.com/wonny/datagate/pkg/logger"
)

// RefreshJob runs the contract refresh pipeline on a schedule.
// Overlapping runs are skipped: a slow batch must never race a new one
// over the same files.
type RefreshJob struct {
	orchestrator *pipeline.Orchestrator
	schedule     string
	skipErrors   bool
	logger       *logger.Logger

	mu      sync.Mutex
	running bool
}

// NewRefreshJob creates a scheduled pipeline refresh job
func NewRefreshJob(orch *pipeline.Orchestrator, schedule string, skipErrors bool, log *logger.Logger) *RefreshJob {
	return &RefreshJob{
		orchestrator: orch,
		schedule:     schedule,
		skipErrors:   skipErrors,
		logger:       log,
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "contract_refresh"
}

// Schedule returns the cron schedule expression
func (j *RefreshJob) Schedule() string {
	return j.schedule
}

// Run executes one pipeline refresh
func (j *RefreshJob) Run(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		j.logger.Warn("Previous refresh still running, skipping")
		return nil
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	batch, err := j.orchestrator.RefreshAll(ctx, j.skipErrors)
	if err != nil {
		return fmt.Errorf("scheduled refresh: %w", err)
	}

	if !batch.Success {
		failed := len(batch.ContractResults) - batch.SuccessfulContracts
		return fmt.Errorf("scheduled refresh left %d contracts unfulfilled", failed)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":    batch.RunID,
		"contracts": batch.SuccessfulContracts,
	}).Info("Scheduled refresh completed")

	return nil
}
