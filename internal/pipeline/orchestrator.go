package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/datagate/internal/adapter"
	"github.com/wonny/datagate/internal/contracts"
	"github.com/wonny/datagate/internal/discovery"
	"github.com/wonny/datagate/internal/tabular"
	"github.com/wonny/datagate/pkg/logger"
)

// Event type names broadcast to observers
const (
	EventContractRefreshed = "contract_refreshed"
	EventContractFailed    = "contract_failed"
	EventBatchCompleted    = "batch_completed"
)

// BatchStore persists completed runs. Optional: a nil store disables
// persistence without changing pipeline behavior.
type BatchStore interface {
	SaveBatch(ctx context.Context, batch *contracts.BatchResult) error
}

// Orchestrator drives the discover -> validate -> fetch -> generate ->
// re-validate loop across every contract under the watch root.
type Orchestrator struct {
	discovery    *discovery.Service
	validator    contracts.ContractValidator
	generator    contracts.ContractGenerator
	adapters     *adapter.Registry
	events       contracts.EventSink
	store        BatchStore
	atomicWrites bool
	logger       *logger.Logger
}

// New creates a pipeline orchestrator. events and store may be nil.
func New(
	disc *discovery.Service,
	validator contracts.ContractValidator,
	generator contracts.ContractGenerator,
	adapters *adapter.Registry,
	events contracts.EventSink,
	store BatchStore,
	atomicWrites bool,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		discovery:    disc,
		validator:    validator,
		generator:    generator,
		adapters:     adapters,
		events:       events,
		store:        store,
		atomicWrites: atomicWrites,
		logger:       log.WithField("module", "pipeline"),
	}
}

// RefreshAll discovers every contract and brings each one into fulfillment.
// With skipErrors=true contract failures are recorded in the batch result
// and processing continues; with skipErrors=false the first contract failure
// aborts the batch and is returned as an error alongside the partial result.
func (o *Orchestrator) RefreshAll(ctx context.Context, skipErrors bool) (*contracts.BatchResult, error) {
	start := time.Now()
	batch := &contracts.BatchResult{
		RunID:           uuid.NewString(),
		Success:         true,
		ContractResults: make(map[string]contracts.ProcessingResult),
		StartedAt:       start.UTC(),
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":      batch.RunID,
		"skip_errors": skipErrors,
	}).Info("Starting pipeline run")

	result := o.discovery.DiscoverAll(ctx)
	batch.DiscoveryStats = contracts.DiscoveryStats{
		TotalFiles:            result.TotalFiles,
		SuccessfulDiscoveries: result.SuccessfulDiscoveries,
		FailedDiscoveries:     result.FailedDiscoveries,
		Categories:            result.Categories,
	}

	var firstErr error
	for i := range result.Contracts {
		contract := &result.Contracts[i]

		pr := o.processContract(ctx, contract)
		batch.ContractResults[contract.ContractID] = pr

		if pr.Success {
			batch.SuccessfulContracts++
			o.publish(contracts.PipelineEvent{
				Type:       EventContractRefreshed,
				ContractID: contract.ContractID,
				Source:     pr.Source,
				Success:    true,
				Timestamp:  time.Now().UTC(),
			})
			continue
		}

		batch.Success = false
		o.publish(contracts.PipelineEvent{
			Type:       EventContractFailed,
			ContractID: contract.ContractID,
			Source:     pr.Source,
			Reasons:    pr.Validation.Reasons(),
			Timestamp:  time.Now().UTC(),
		})

		if !skipErrors {
			firstErr = fmt.Errorf("contract %s not fulfilled: %v",
				contract.ContractID, pr.Validation.Reasons())
			break
		}
	}

	batch.Duration = time.Since(start)

	o.publish(contracts.PipelineEvent{
		Type:      EventBatchCompleted,
		Success:   batch.Success,
		Timestamp: time.Now().UTC(),
	})

	o.logger.WithFields(map[string]interface{}{
		"run_id":     batch.RunID,
		"successful": batch.SuccessfulContracts,
		"total":      len(batch.ContractResults),
		"duration":   batch.Duration,
	}).Info("Pipeline run completed")

	o.persist(ctx, batch)

	if firstErr != nil {
		return batch, firstErr
	}
	return batch, nil
}

// RefreshOne discovers contracts and refreshes only the one with the given
// ID. Used by the on-demand API.
func (o *Orchestrator) RefreshOne(ctx context.Context, contractID string) (*contracts.ProcessingResult, error) {
	result := o.discovery.DiscoverAll(ctx)
	contract, ok := result.Contract(contractID)
	if !ok {
		return nil, fmt.Errorf("contract %s not found", contractID)
	}

	pr := o.processContract(ctx, contract)
	return &pr, nil
}

// processContract brings one contract into fulfillment:
//  1. if the current file already satisfies the contract, nothing happens
//  2. otherwise each capable service is tried in order, first success wins
//  3. if no service delivers, a synthetic dataset is generated
//
// The final validation verdict always comes from re-checking the file.
func (o *Orchestrator) processContract(ctx context.Context, contract *contracts.DataContract) contracts.ProcessingResult {
	start := time.Now()
	pr := contracts.ProcessingResult{
		ContractID: contract.ContractID,
		Category:   contract.Category,
	}

	outcome := o.validator.Validate(ctx, contract)
	if outcome.Success {
		pr.Source = "current"
		pr.Validation = outcome
		pr.Success = true
		pr.Duration = time.Since(start)
		return pr
	}

	o.logger.WithFields(map[string]interface{}{
		"contract_id": contract.ContractID,
		"violations":  outcome.Reasons(),
	}).Info("Contract unfulfilled, refreshing")

	if fetched := o.tryAdapters(ctx, contract, &pr); !fetched {
		gen := o.generator.Generate(ctx, contract)
		pr.Generated = gen.Success
		if gen.Success {
			pr.Source = "synthetic"
		} else {
			pr.Error = gen.Error
		}
	}

	pr.Validation = o.validator.Validate(ctx, contract)
	pr.Success = pr.Validation.Success
	pr.Duration = time.Since(start)
	return pr
}

// tryAdapters asks each capable service in order and writes the first
// successful payload to the contract's file. Adapter errors move on to the
// next candidate; they never abort the contract.
func (o *Orchestrator) tryAdapters(ctx context.Context, contract *contracts.DataContract, pr *contracts.ProcessingResult) bool {
	req := contracts.FetchRequest{
		ContractID:      contract.ContractID,
		Category:        contract.Category,
		RequiredColumns: contract.RequiredColumns,
		MinimumRows:     contract.MinimumRows,
	}

	for _, a := range o.adapters.Resolve(contract.DataSources) {
		name := a.Capabilities().Name

		resp, err := a.Fetch(ctx, req)
		if err != nil {
			o.logger.WithFields(map[string]interface{}{
				"contract_id": contract.ContractID,
				"service":     name,
			}).WithError(err).Warn("Upstream fetch failed")
			continue
		}
		if !resp.Success {
			o.logger.WithFields(map[string]interface{}{
				"contract_id": contract.ContractID,
				"service":     name,
				"reason":      resp.Error,
			}).Warn("Upstream declined fetch")
			continue
		}

		if err := tabular.WriteCSV(contract.FilePath, resp.Header, resp.Rows, o.atomicWrites); err != nil {
			o.logger.WithField("contract_id", contract.ContractID).
				WithError(err).Error("Writing fetched data failed")
			continue
		}

		pr.Source = name
		pr.CacheHit = resp.CacheHit
		return true
	}

	return false
}

func (o *Orchestrator) publish(event contracts.PipelineEvent) {
	if o.events != nil {
		o.events.Publish(event)
	}
}

func (o *Orchestrator) persist(ctx context.Context, batch *contracts.BatchResult) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveBatch(ctx, batch); err != nil {
		o.logger.WithField("run_id", batch.RunID).WithError(err).Error("Persisting batch failed")
	}
}
