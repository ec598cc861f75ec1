package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/datagate/internal/pipeline"
	"github.com/wonny/datagate/internal/store"
	"github.com/wonny/datagate/pkg/database"
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run the full contract fulfillment pipeline",
	Long: `Discovers every contract and brings each one into fulfillment:
files that already satisfy their contract are left alone, stale or
incomplete ones are refreshed from capable upstream services, and
contracts nothing can serve get synthetic data.

By default the first contract failure aborts the run. With
--skip-errors failures are recorded and the batch continues.

Example:
  datagate refresh
  datagate refresh --skip-errors
  datagate refresh --persist`,
	RunE: runRefresh,
}

var (
	refreshSkipErrors bool
	refreshPersist    bool
)

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().BoolVar(&refreshSkipErrors, "skip-errors", false, "continue past contract failures")
	refreshCmd.Flags().BoolVar(&refreshPersist, "persist", false, "save the run to the snapshot database")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	s, err := loadStack()
	if err != nil {
		return err
	}
	defer s.close()

	ctx := context.Background()

	var batchStore *store.Repository
	if refreshPersist {
		if s.cfg.Database.URL == "" {
			return fmt.Errorf("--persist requires DATABASE_URL")
		}
		db, err := database.New(s.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		batchStore = store.NewRepository(db.Pool)
		if err := batchStore.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	// Avoid a typed nil inside the interface when persistence is off
	var bs pipeline.BatchStore
	if batchStore != nil {
		bs = batchStore
	}
	orch := s.orchestrator(nil, bs)

	batch, runErr := orch.RefreshAll(ctx, refreshSkipErrors)

	fmt.Printf("Run %s: %d/%d contracts fulfilled in %s\n",
		batch.RunID, batch.SuccessfulContracts, len(batch.ContractResults),
		formatDuration(batch.Duration))

	ids := make([]string, 0, len(batch.ContractResults))
	for id := range batch.ContractResults {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		pr := batch.ContractResults[id]
		status := "OK  "
		if !pr.Success {
			status = "FAIL"
		}
		cache := ""
		if pr.CacheHit {
			cache = " (cached)"
		}
		fmt.Printf("  %s  %-40s source=%s%s\n", status, id, pr.Source, cache)
		if !pr.Success {
			for _, reason := range pr.Validation.Reasons() {
				fmt.Printf("          %s\n", reason)
			}
		}
	}

	return runErr
}
