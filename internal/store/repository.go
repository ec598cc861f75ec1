package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/datagate/internal/contracts"
)

// Repository persists discovery snapshots and pipeline runs.
// Persistence is optional: the pipeline runs identically without it.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new snapshot repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the tables when they do not exist yet
func (r *Repository) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS discovery_snapshots (
			id BIGSERIAL PRIMARY KEY,
			discovered_at TIMESTAMPTZ NOT NULL,
			total_files INT NOT NULL,
			successful INT NOT NULL,
			failed JSONB,
			contracts JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			run_id UUID PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL,
			success BOOLEAN NOT NULL,
			successful_contracts INT NOT NULL,
			contract_results JSONB NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// SaveDiscovery persists one discovery run snapshot
func (r *Repository) SaveDiscovery(ctx context.Context, result *contracts.DiscoveryResult) error {
	contractsJSON, err := json.Marshal(result.Contracts)
	if err != nil {
		return fmt.Errorf("failed to marshal contracts: %w", err)
	}

	failedJSON, err := json.Marshal(result.FailedDiscoveries)
	if err != nil {
		return fmt.Errorf("failed to marshal failures: %w", err)
	}

	query := `
		INSERT INTO discovery_snapshots (
			discovered_at, total_files, successful, failed, contracts
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.pool.Exec(ctx, query,
		time.Now().UTC(), result.TotalFiles, result.SuccessfulDiscoveries,
		failedJSON, contractsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save discovery snapshot: %w", err)
	}

	return nil
}

// SaveBatch persists one completed pipeline run
func (r *Repository) SaveBatch(ctx context.Context, batch *contracts.BatchResult) error {
	resultsJSON, err := json.Marshal(batch.ContractResults)
	if err != nil {
		return fmt.Errorf("failed to marshal contract results: %w", err)
	}

	query := `
		INSERT INTO pipeline_runs (
			run_id, started_at, duration_ms, success, successful_contracts, contract_results
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			duration_ms = EXCLUDED.duration_ms,
			success = EXCLUDED.success,
			successful_contracts = EXCLUDED.successful_contracts,
			contract_results = EXCLUDED.contract_results
	`

	_, err = r.pool.Exec(ctx, query,
		batch.RunID, batch.StartedAt, batch.Duration.Milliseconds(),
		batch.Success, batch.SuccessfulContracts, resultsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save pipeline run: %w", err)
	}

	return nil
}

// GetBatch retrieves one pipeline run by ID
func (r *Repository) GetBatch(ctx context.Context, runID string) (*contracts.BatchResult, error) {
	query := `
		SELECT run_id, started_at, duration_ms, success, successful_contracts, contract_results
		FROM pipeline_runs
		WHERE run_id = $1
	`

	var batch contracts.BatchResult
	var durationMs int64
	var resultsJSON []byte

	err := r.pool.QueryRow(ctx, query, runID).Scan(
		&batch.RunID, &batch.StartedAt, &durationMs,
		&batch.Success, &batch.SuccessfulContracts, &resultsJSON,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("pipeline run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}

	batch.Duration = time.Duration(durationMs) * time.Millisecond
	if err := json.Unmarshal(resultsJSON, &batch.ContractResults); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contract results: %w", err)
	}

	return &batch, nil
}

// RecentBatches lists the most recent pipeline runs, newest first
func (r *Repository) RecentBatches(ctx context.Context, limit int) ([]contracts.BatchResult, error) {
	query := `
		SELECT run_id, started_at, duration_ms, success, successful_contracts, contract_results
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	defer rows.Close()

	var batches []contracts.BatchResult
	for rows.Next() {
		var batch contracts.BatchResult
		var durationMs int64
		var resultsJSON []byte

		if err := rows.Scan(
			&batch.RunID, &batch.StartedAt, &durationMs,
			&batch.Success, &batch.SuccessfulContracts, &resultsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}

		batch.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(resultsJSON, &batch.ContractResults); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contract results: %w", err)
		}

		batches = append(batches, batch)
	}

	return batches, rows.Err()
}
