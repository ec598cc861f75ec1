package contracts

import (
	"time"
)

// ErrorKind identifies which quality requirement a contract violated
type ErrorKind string

const (
	ErrNotFound         ErrorKind = "NotFound"
	ErrStale            ErrorKind = "Stale"
	ErrInsufficientRows ErrorKind = "InsufficientRows"
	ErrMissingColumns   ErrorKind = "MissingColumns"
)

// Violation is one failed validation check
type Violation struct {
	Kind   ErrorKind `json:"kind"`
	Reason string    `json:"reason"`
}

// ValidationMetadata carries observability data alongside an outcome
type ValidationMetadata struct {
	FileAgeHours    float64   `json:"file_age_hours"`
	CapableServices []string  `json:"capable_services"`
	CheckedAt       time.Time `json:"checked_at"`
}

// ValidationOutcome reports every violated condition at once.
// Checks are independent; callers never see only the first failure.
type ValidationOutcome struct {
	ContractID string             `json:"contract_id"`
	Success    bool               `json:"success"`
	Violations []Violation        `json:"violations,omitempty"`
	Metadata   ValidationMetadata `json:"metadata"`
}

// Reasons returns the human-readable reason strings in check order
func (o *ValidationOutcome) Reasons() []string {
	reasons := make([]string, len(o.Violations))
	for i, v := range o.Violations {
		reasons[i] = v.Reason
	}
	return reasons
}

// HasViolation reports whether the outcome contains a violation of the given kind
func (o *ValidationOutcome) HasViolation(kind ErrorKind) bool {
	for _, v := range o.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

// GenerationOutcome reports the result of a synthetic data generation
type GenerationOutcome struct {
	ContractID  string `json:"contract_id"`
	Success     bool   `json:"success"`
	RowsWritten int    `json:"rows_written"`
	Error       string `json:"error,omitempty"`
}

// ProcessingResult records how one contract was refreshed
type ProcessingResult struct {
	ContractID string `json:"contract_id"`
	Category   string `json:"category"`

	// Source is the upstream service that supplied the data, "synthetic"
	// for generator fallback, or "current" when the on-disk file already
	// satisfied the contract
	Source string `json:"source"`

	Generated  bool              `json:"generated"`
	CacheHit   bool              `json:"cache_hit,omitempty"`
	Validation ValidationOutcome `json:"validation"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Duration   time.Duration     `json:"duration"`
}

// BatchResult aggregates a full refresh run across all contracts
type BatchResult struct {
	RunID   string `json:"run_id"`
	Success bool   `json:"success"`

	ContractResults     map[string]ProcessingResult `json:"contract_results"`
	SuccessfulContracts int                         `json:"successful_contracts"`

	// DiscoveryStats summarizes the discovery run that fed this batch
	DiscoveryStats DiscoveryStats `json:"discovery_stats"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// DiscoveryStats is the discovery summary embedded in a batch result
type DiscoveryStats struct {
	TotalFiles            int      `json:"total_files"`
	SuccessfulDiscoveries int      `json:"successful_discoveries"`
	FailedDiscoveries     []string `json:"failed_discoveries,omitempty"`
	Categories            []string `json:"categories"`
}

// PipelineEvent is broadcast to observers as contracts are processed
type PipelineEvent struct {
	Type       string    `json:"type"` // contract_refreshed, contract_failed, batch_completed
	ContractID string    `json:"contract_id,omitempty"`
	Source     string    `json:"source,omitempty"`
	Success    bool      `json:"success"`
	Reasons    []string  `json:"reasons,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
