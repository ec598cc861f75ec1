package synth

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/datagate/internal/contracts"
	"github.com/wonny/datagate/internal/quality"
	"github.com/wonny/datagate/pkg/logger"
)

func tradesContract(path string) *contracts.DataContract {
	return &contracts.DataContract{
		ContractID: "trade-history_trades",
		Category:   "trade-history",
		FilePath:   path,
		Schema: []contracts.ColumnSchema{
			{Name: "Date", DataType: contracts.DataTypeDatetime, FormatPattern: "%Y-%m-%d",
				SampleValues: []string{"2026-08-20", "2026-08-21"}},
			{Name: "Ticker", DataType: contracts.DataTypeString,
				SampleValues: []string{"AAPL", "GOOGL", "MSFT"}},
			{Name: "PnL", DataType: contracts.DataTypeNumeric, FormatPattern: "float",
				SampleValues: []string{"100.50", "-25.75"}},
		},
		FreshnessThresholdHours: 24,
		MinimumRows:             50,
		RequiredColumns:         []string{"Date", "Ticker", "PnL"},
	}
}

func readAll(t *testing.T, path string) ([]string, [][]string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	return records[0], records[1:]
}

func TestGenerate_SatisfiesOwnContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade-history", "trades.csv")
	contract := tradesContract(path)

	g := New(false, logger.NewNop())
	outcome := g.Generate(context.Background(), contract)

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, 50, outcome.RowsWritten)

	header, rows := readAll(t, path)
	assert.Equal(t, []string{"Date", "Ticker", "PnL"}, header)
	assert.Len(t, rows, 50)

	// String values come from the observed sample domain
	domain := map[string]bool{"AAPL": true, "GOOGL": true, "MSFT": true}
	for _, row := range rows {
		assert.True(t, domain[row[1]], "unexpected ticker %q", row[1])
	}

	// The generated file passes its own validation
	v := quality.New(logger.NewNop())
	validation := v.Validate(context.Background(), contract)
	assert.True(t, validation.Success, validation.Reasons())
}

func TestGenerate_DatetimeSeriesEndsToday(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	contract := tradesContract(path)
	contract.MinimumRows = 3

	g := New(false, logger.NewNop())
	anchor := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return anchor }

	require.True(t, g.Generate(context.Background(), contract).Success)

	_, rows := readAll(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "2026-08-21", rows[0][0])
	assert.Equal(t, "2026-08-22", rows[1][0])
	assert.Equal(t, "2026-08-23", rows[2][0])
}

func TestGenerate_NumericRespectsFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.csv")
	contract := &contracts.DataContract{
		ContractID: "counts",
		FilePath:   path,
		Schema: []contracts.ColumnSchema{
			{Name: "Shares", DataType: contracts.DataTypeNumeric, FormatPattern: "integer",
				SampleValues: []string{"100", "200", "300"}},
		},
		FreshnessThresholdHours: 24,
		MinimumRows:             10,
	}

	g := New(false, logger.NewNop())
	require.True(t, g.Generate(context.Background(), contract).Success)

	_, rows := readAll(t, path)
	for _, row := range rows {
		v, err := strconv.ParseInt(row[0], 10, 64)
		require.NoError(t, err, "expected integer, got %q", row[0])
		// Jitter stays near the sample mean of 200
		assert.InDelta(t, 200, float64(v), 25)
	}
}

func TestGenerate_UUIDColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	contract := &contracts.DataContract{
		ContractID: "events",
		FilePath:   path,
		Schema: []contracts.ColumnSchema{
			{Name: "event_id", DataType: contracts.DataTypeUUID},
		},
		FreshnessThresholdHours: 24,
		MinimumRows:             5,
	}

	g := New(false, logger.NewNop())
	require.True(t, g.Generate(context.Background(), contract).Success)

	_, rows := readAll(t, path)
	seen := map[string]bool{}
	for _, row := range rows {
		_, err := uuid.Parse(row[0])
		require.NoError(t, err)
		assert.False(t, seen[row[0]], "uuid values must be distinct")
		seen[row[0]] = true
	}
}

func TestGenerate_PlaceholdersWithoutSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.csv")
	contract := &contracts.DataContract{
		ContractID: "notes",
		FilePath:   path,
		Schema: []contracts.ColumnSchema{
			{Name: "text", DataType: contracts.DataTypeString},
		},
		FreshnessThresholdHours: 24,
		MinimumRows:             2,
	}

	g := New(false, logger.NewNop())
	require.True(t, g.Generate(context.Background(), contract).Success)

	_, rows := readAll(t, path)
	assert.Equal(t, "text_1", rows[0][0])
	assert.Equal(t, "text_2", rows[1][0])
}

func TestGenerate_ZeroMinimumStillWritesOneRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	contract := tradesContract(path)
	contract.MinimumRows = 0

	g := New(false, logger.NewNop())
	outcome := g.Generate(context.Background(), contract)

	require.True(t, outcome.Success)
	assert.Equal(t, 1, outcome.RowsWritten)
}

func TestGenerate_EmptySchemaFails(t *testing.T) {
	g := New(false, logger.NewNop())
	outcome := g.Generate(context.Background(), &contracts.DataContract{
		ContractID: "broken",
		FilePath:   filepath.Join(t.TempDir(), "broken.csv"),
	})

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "empty schema")
}

func TestGenerate_AtomicWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	contract := tradesContract(path)
	contract.MinimumRows = 2

	g := New(true, logger.NewNop())
	require.True(t, g.Generate(context.Background(), contract).Success)

	_, rows := readAll(t, path)
	assert.Len(t, rows, 2)

	// No temp debris left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
