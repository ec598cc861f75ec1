package inference

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/datagate/internal/contracts"
)

func TestInferType_Datetime(t *testing.T) {
	e := New(DefaultConfig())

	dataType, format := e.InferType([]string{"2025-01-01", "2025-01-02", "2025-01-03"})
	assert.Equal(t, contracts.DataTypeDatetime, dataType)
	assert.Equal(t, "%Y-%m-%d", format)
}

func TestInferType_NumericFloat(t *testing.T) {
	e := New(DefaultConfig())

	dataType, format := e.InferType([]string{"100.50", "-25.75"})
	assert.Equal(t, contracts.DataTypeNumeric, dataType)
	assert.Equal(t, FormatFloat, format)
}

func TestInferType_NumericInteger(t *testing.T) {
	e := New(DefaultConfig())

	dataType, format := e.InferType([]string{"1", "2", "-3", "400"})
	assert.Equal(t, contracts.DataTypeNumeric, dataType)
	assert.Equal(t, FormatInteger, format)
}

func TestInferType_UUID(t *testing.T) {
	e := New(DefaultConfig())

	dataType, _ := e.InferType([]string{
		"550e8400-e29b-41d4-a716-446655440000",
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8",
	})
	assert.Equal(t, contracts.DataTypeUUID, dataType)
}

func TestInferType_CategoricalOnlyForListedTokens(t *testing.T) {
	e := New(DefaultConfig())

	// SMA/EMA are an explicitly listed domain
	dataType, _ := e.InferType([]string{"SMA", "EMA", "SMA"})
	assert.Equal(t, contracts.DataTypeCategorical, dataType)

	// Tickers are not listed, so they fall through to string
	dataType, _ = e.InferType([]string{"AAPL", "GOOGL"})
	assert.Equal(t, contracts.DataTypeString, dataType)
}

func TestInferType_EmptySample(t *testing.T) {
	e := New(DefaultConfig())

	dataType, format := e.InferType(nil)
	assert.Equal(t, contracts.DataTypeString, dataType)
	assert.Empty(t, format)
}

func TestInferType_SingleSample(t *testing.T) {
	e := New(DefaultConfig())

	dataType, format := e.InferType([]string{"2025-06-30"})
	assert.Equal(t, contracts.DataTypeDatetime, dataType)
	assert.Equal(t, "%Y-%m-%d", format)
}

func TestInferType_MixedDatetimeFormatsFallback(t *testing.T) {
	e := New(DefaultConfig())

	// Below the 80% pattern threshold for any single pattern set, but every
	// value parses with the permissive fallback, so the column stays datetime
	dataType, _ := e.InferType([]string{
		"2025-01-01",
		"2025/01/02",
		"01/03/2025",
		"2025-01-04T10:00:00Z",
		"2025/01/05",
	})
	assert.Equal(t, contracts.DataTypeDatetime, dataType)
}

func TestInferType_ThresholdIsConfigurable(t *testing.T) {
	values := []string{"1", "2", "3", "notanumber"} // 75% numeric

	strict := New(Config{MatchThreshold: 0.8, MaxScoredRows: 100, MaxSampleValues: 5})
	dataType, _ := strict.InferType(values)
	assert.Equal(t, contracts.DataTypeString, dataType)

	lenient := New(Config{MatchThreshold: 0.7, MaxScoredRows: 100, MaxSampleValues: 5})
	dataType, _ = lenient.InferType(values)
	assert.Equal(t, contracts.DataTypeNumeric, dataType)
}

func TestInferType_ScoringCapRespected(t *testing.T) {
	// First 100 values are numeric, the garbage afterwards is never scored
	values := make([]string, 0, 150)
	for i := 0; i < 100; i++ {
		values = append(values, fmt.Sprintf("%d", i))
	}
	for i := 0; i < 50; i++ {
		values = append(values, "garbage")
	}

	e := New(DefaultConfig())
	dataType, _ := e.InferType(values)
	assert.Equal(t, contracts.DataTypeNumeric, dataType)
}

func TestInferSchema(t *testing.T) {
	e := New(DefaultConfig())

	col := e.InferSchema("PnL", []string{"100.50", "-25.75", "", "100.50"})

	assert.Equal(t, "PnL", col.Name)
	assert.Equal(t, contracts.DataTypeNumeric, col.DataType)
	assert.Equal(t, FormatFloat, col.FormatPattern)
	assert.True(t, col.Nullable)
	assert.Equal(t, 2, col.UniqueValues)
	assert.Equal(t, []string{"100.50", "-25.75", "100.50"}, col.SampleValues)
}

func TestInferSchema_AllNull(t *testing.T) {
	e := New(DefaultConfig())

	col := e.InferSchema("Notes", []string{"", "null", "NaN"})

	assert.Equal(t, contracts.DataTypeString, col.DataType)
	assert.True(t, col.Nullable)
	assert.Equal(t, 0, col.UniqueValues)
	assert.Empty(t, col.SampleValues)
}

func TestInferSchema_SampleValuesBounded(t *testing.T) {
	e := New(DefaultConfig())

	values := make([]string, 20)
	for i := range values {
		values[i] = fmt.Sprintf("%d", i)
	}

	col := e.InferSchema("N", values)
	assert.Len(t, col.SampleValues, 5)
	assert.Equal(t, 20, col.UniqueValues)
}

func TestInferSchema_Idempotent(t *testing.T) {
	e := New(DefaultConfig())
	values := []string{"2025-01-01", "2025-01-02", "", "2025-01-03"}

	first := e.InferSchema("Date", values)
	second := e.InferSchema("Date", values)
	assert.Equal(t, first, second)
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(""))
	assert.True(t, IsNull("  "))
	assert.True(t, IsNull("null"))
	assert.True(t, IsNull("NaN"))
	assert.True(t, IsNull("None"))
	assert.False(t, IsNull("0"))
	assert.False(t, IsNull("false"))
}

func TestGoLayout(t *testing.T) {
	assert.Equal(t, "2006-01-02", GoLayout("%Y-%m-%d"))
	assert.Equal(t, "2006-01-02 15:04:05", GoLayout("%Y-%m-%d %H:%M:%S"))
	assert.Equal(t, "01/02/2006", GoLayout("%m/%d/%Y"))
	// Unknown patterns default to plain date
	assert.Equal(t, "2006-01-02", GoLayout("%d.%m.%Y"))
}
