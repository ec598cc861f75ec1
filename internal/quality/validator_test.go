package quality

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/datagate/internal/contracts"
	"github.com/wonny/datagate/pkg/logger"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testContract(path string) *contracts.DataContract {
	return &contracts.DataContract{
		ContractID:              "portfolio_portfolio_value",
		Category:                "portfolio",
		FilePath:                path,
		DataSources:             []string{"market-data", "broker-export"},
		FreshnessThresholdHours: 24,
		MinimumRows:             1,
		RequiredColumns:         []string{"Date", "Value"},
	}
}

func TestValidate_FreshFilePasses(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "portfolio_value.csv",
		"Date,Value\n2026-08-20,105000.50\n2026-08-21,105200.25\n")

	v := New(logger.NewNop())
	outcome := v.Validate(context.Background(), testContract(path))

	assert.True(t, outcome.Success)
	assert.Empty(t, outcome.Violations)
	assert.Equal(t, []string{"market-data", "broker-export"}, outcome.Metadata.CapableServices)
	assert.Less(t, outcome.Metadata.FileAgeHours, 1.0)
	assert.False(t, outcome.Metadata.CheckedAt.IsZero())
}

func TestValidate_MissingFile(t *testing.T) {
	contract := testContract(filepath.Join(t.TempDir(), "gone.csv"))

	v := New(logger.NewNop())
	outcome := v.Validate(context.Background(), contract)

	assert.False(t, outcome.Success)
	require.Len(t, outcome.Violations, 1)
	assert.Equal(t, contracts.ErrNotFound, outcome.Violations[0].Kind)
}

func TestValidate_StaleFile(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "portfolio_value.csv",
		"Date,Value\n2026-08-20,105000.50\n")
	contract := testContract(path)
	contract.FreshnessThresholdHours = 1

	v := New(logger.NewNop())
	// Pretend it is two days later
	v.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	outcome := v.Validate(context.Background(), contract)

	assert.False(t, outcome.Success)
	require.True(t, outcome.HasViolation(contracts.ErrStale))
	assert.Contains(t, outcome.Reasons()[0], "stale")
	assert.InDelta(t, 48.0, outcome.Metadata.FileAgeHours, 0.1)
}

func TestValidate_FreshnessBoundary(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "portfolio_value.csv",
		"Date,Value\n2026-08-20,105000.50\n")
	contract := testContract(path)
	contract.FreshnessThresholdHours = 1

	// Just written: well inside the threshold
	v := New(logger.NewNop())
	outcome := v.Validate(context.Background(), contract)
	assert.False(t, outcome.HasViolation(contracts.ErrStale))
}

func TestValidate_InsufficientRows(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "trades.csv",
		"Date,Ticker,PnL\n2026-08-20,AAPL,100.50\n")
	contract := testContract(path)
	contract.RequiredColumns = []string{"Date", "Ticker", "PnL"}
	contract.MinimumRows = 5

	v := New(logger.NewNop())
	outcome := v.Validate(context.Background(), contract)

	assert.False(t, outcome.Success)
	require.True(t, outcome.HasViolation(contracts.ErrInsufficientRows))
	assert.Contains(t, outcome.Reasons()[0], "found 1, minimum 5")
}

func TestValidate_MissingColumns(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "trades.csv",
		"Date,Ticker\n2026-08-20,AAPL\n")
	contract := testContract(path)
	contract.RequiredColumns = []string{"Date", "Ticker", "PnL"}

	v := New(logger.NewNop())
	outcome := v.Validate(context.Background(), contract)

	assert.False(t, outcome.Success)
	require.True(t, outcome.HasViolation(contracts.ErrMissingColumns))
	assert.Contains(t, outcome.Reasons()[0], "PnL")
}

// Checks are independent: a stale, short, column-missing file reports
// all three violations in one outcome.
func TestValidate_AccumulatesViolations(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "trades.csv",
		"Date\n2026-08-20\n")
	contract := testContract(path)
	contract.RequiredColumns = []string{"Date", "Ticker", "PnL"}
	contract.MinimumRows = 10
	contract.FreshnessThresholdHours = 1

	v := New(logger.NewNop())
	v.now = func() time.Time { return time.Now().Add(3 * time.Hour) }

	outcome := v.Validate(context.Background(), contract)

	assert.False(t, outcome.Success)
	assert.Len(t, outcome.Violations, 3)
	assert.True(t, outcome.HasViolation(contracts.ErrStale))
	assert.True(t, outcome.HasViolation(contracts.ErrInsufficientRows))
	assert.True(t, outcome.HasViolation(contracts.ErrMissingColumns))
}

// Validation reads the file as it is now, so regenerating a file after
// discovery flips the outcome without re-discovering.
func TestValidate_ReflectsCurrentFile(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "trades.csv", "Date,Ticker,PnL\n")
	contract := testContract(path)
	contract.RequiredColumns = []string{"Date", "Ticker", "PnL"}
	contract.MinimumRows = 2

	v := New(logger.NewNop())
	outcome := v.Validate(context.Background(), contract)
	require.True(t, outcome.HasViolation(contracts.ErrInsufficientRows))

	writeCSV(t, dir, "trades.csv",
		"Date,Ticker,PnL\n2026-08-20,AAPL,100.50\n2026-08-21,GOOGL,-25.75\n")

	outcome = v.Validate(context.Background(), contract)
	assert.True(t, outcome.Success)
}

func TestValidateAll(t *testing.T) {
	dir := t.TempDir()
	good := writeCSV(t, dir, "good.csv", "Date,Value\n2026-08-20,1.0\n")

	list := []contracts.DataContract{
		*testContract(good),
		{
			ContractID:              "gone",
			FilePath:                filepath.Join(dir, "gone.csv"),
			FreshnessThresholdHours: 24,
			MinimumRows:             1,
		},
	}

	v := New(logger.NewNop())
	outcomes := v.ValidateAll(context.Background(), list)

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes["portfolio_portfolio_value"].Success)
	assert.False(t, outcomes["gone"].Success)
}
