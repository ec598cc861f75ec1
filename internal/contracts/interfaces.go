package contracts

import (
	"context"
)

// FetchRequest asks an upstream service for fresh data for one contract
type FetchRequest struct {
	ContractID      string   `json:"contract_id"`
	Category        string   `json:"category"`
	RequiredColumns []string `json:"required_columns"`
	MinimumRows     int      `json:"minimum_rows"`
}

// FetchResponse is the uniform reply from any data service adapter
type FetchResponse struct {
	Success  bool       `json:"success"`
	Header   []string   `json:"header"`
	Rows     [][]string `json:"rows"`
	RowCount int        `json:"row_count"`
	CacheHit bool       `json:"cache_hit"`
	Error    string     `json:"error,omitempty"`
}

// AdapterCapabilities describes what an adapter can supply
type AdapterCapabilities struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	Cached     bool     `json:"cached"`
}

// DataServiceAdapter is the required surface of every upstream data service.
// The orchestrator treats all adapters identically regardless of provider.
type DataServiceAdapter interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error)
	HealthCheck(ctx context.Context) bool
	Capabilities() AdapterCapabilities
}

// ContractValidator checks a contract against its on-disk file.
// Validation reports violations as data, never as errors.
type ContractValidator interface {
	Validate(ctx context.Context, contract *DataContract) ValidationOutcome
}

// ContractGenerator produces a schema-conformant replacement dataset
type ContractGenerator interface {
	Generate(ctx context.Context, contract *DataContract) GenerationOutcome
}

// EventSink receives pipeline events as they happen
type EventSink interface {
	Publish(event PipelineEvent)
}
