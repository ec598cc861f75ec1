package quality

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/wonny/datagate/internal/contracts"
	"github.com/wonny/datagate/internal/tabular"
	"github.com/wonny/datagate/pkg/logger"
)

// Validator checks contracts against their on-disk files. Every check that
// can run does run, so one outcome carries all violated conditions at once.
// Validation failures are data, never errors.
type Validator struct {
	logger *logger.Logger

	// now is swappable for freshness boundary tests
	now func() time.Time
}

// New creates a contract validator
func New(log *logger.Logger) *Validator {
	return &Validator{
		logger: log.WithField("module", "quality"),
		now:    time.Now,
	}
}

// Validate runs all quality checks for one contract against the file as it
// is right now. Freshness and row counts are read from disk, not from the
// discovery-time snapshot, so a file regenerated after discovery passes.
func (v *Validator) Validate(ctx context.Context, contract *contracts.DataContract) contracts.ValidationOutcome {
	outcome := contracts.ValidationOutcome{
		ContractID: contract.ContractID,
		Metadata: contracts.ValidationMetadata{
			CapableServices: contract.DataSources,
			CheckedAt:       v.now().UTC(),
		},
	}

	info, err := os.Stat(contract.FilePath)
	if err != nil {
		// Without the file no other check is meaningful
		outcome.Violations = append(outcome.Violations, contracts.Violation{
			Kind:   contracts.ErrNotFound,
			Reason: fmt.Sprintf("not found: %s", contract.FilePath),
		})
		v.logResult(contract, &outcome)
		return outcome
	}

	ageHours := v.now().Sub(info.ModTime()).Hours()
	outcome.Metadata.FileAgeHours = ageHours

	if ageHours > float64(contract.FreshnessThresholdHours) {
		outcome.Violations = append(outcome.Violations, contracts.Violation{
			Kind: contracts.ErrStale,
			Reason: fmt.Sprintf("stale: file is %.1fh old, threshold %dh",
				ageHours, contract.FreshnessThresholdHours),
		})
	}

	header, rowCount, err := tabular.ReadHeaderAndCount(contract.FilePath)
	if err != nil {
		// Unreadable content counts as missing rows and columns alike
		outcome.Violations = append(outcome.Violations, contracts.Violation{
			Kind:   contracts.ErrInsufficientRows,
			Reason: fmt.Sprintf("unreadable: %v", err),
		})
		v.logResult(contract, &outcome)
		return outcome
	}

	if rowCount < contract.MinimumRows {
		outcome.Violations = append(outcome.Violations, contracts.Violation{
			Kind: contracts.ErrInsufficientRows,
			Reason: fmt.Sprintf("insufficient rows: found %d, minimum %d",
				rowCount, contract.MinimumRows),
		})
	}

	if missing := missingColumns(contract.RequiredColumns, header); len(missing) > 0 {
		outcome.Violations = append(outcome.Violations, contracts.Violation{
			Kind:   contracts.ErrMissingColumns,
			Reason: fmt.Sprintf("missing columns: %v", missing),
		})
	}

	outcome.Success = len(outcome.Violations) == 0
	v.logResult(contract, &outcome)
	return outcome
}

// ValidateAll validates every contract and returns outcomes keyed by
// contract ID. Order-independent, each contract checked in isolation.
func (v *Validator) ValidateAll(ctx context.Context, list []contracts.DataContract) map[string]contracts.ValidationOutcome {
	outcomes := make(map[string]contracts.ValidationOutcome, len(list))
	for i := range list {
		outcomes[list[i].ContractID] = v.Validate(ctx, &list[i])
	}
	return outcomes
}

func (v *Validator) logResult(contract *contracts.DataContract, outcome *contracts.ValidationOutcome) {
	if outcome.Success {
		v.logger.WithField("contract_id", contract.ContractID).Debug("Contract fulfilled")
		return
	}
	v.logger.WithFields(map[string]interface{}{
		"contract_id": contract.ContractID,
		"violations":  outcome.Reasons(),
	}).Warn("Contract not fulfilled")
}

// missingColumns returns required names absent from the header, preserving
// the required order
func missingColumns(required, header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	var missing []string
	for _, name := range required {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
