package synth

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/datagate/internal/contracts"
	"github.com/wonny/datagate/internal/inference"
	"github.com/wonny/datagate/internal/tabular"
	"github.com/wonny/datagate/pkg/logger"
)

// Generator writes schema-conformant synthetic datasets for contracts no
// upstream service could fulfill. Output always satisfies the contract it
// was generated from: exact column order, at least minimum_rows rows, and
// a freshly written file.
type Generator struct {
	atomicWrites bool
	logger       *logger.Logger
	rng          *rand.Rand

	// now anchors datetime series; swappable in tests
	now func() time.Time
}

// New creates a synthetic data generator. With atomicWrites the output is
// written to a temp sibling and renamed instead of overwritten in place.
func New(atomicWrites bool, log *logger.Logger) *Generator {
	return &Generator{
		atomicWrites: atomicWrites,
		logger:       log.WithField("module", "synth"),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
	}
}

// Generate writes a replacement dataset for the contract's file path.
// Row count is the contract's minimum_rows, floored at one so even
// zero-minimum contracts get a non-empty dataset.
func (g *Generator) Generate(ctx context.Context, contract *contracts.DataContract) contracts.GenerationOutcome {
	outcome := contracts.GenerationOutcome{ContractID: contract.ContractID}

	if len(contract.Schema) == 0 {
		outcome.Error = "contract has empty schema"
		return outcome
	}

	rowCount := contract.MinimumRows
	if rowCount < 1 {
		rowCount = 1
	}

	rows := make([][]string, rowCount)
	for i := range rows {
		row := make([]string, len(contract.Schema))
		for j, col := range contract.Schema {
			row[j] = g.synthesize(&col, i, rowCount)
		}
		rows[i] = row
	}

	if err := tabular.WriteCSV(contract.FilePath, contract.ColumnNames(), rows, g.atomicWrites); err != nil {
		outcome.Error = fmt.Sprintf("write synthetic data: %v", err)
		g.logger.WithField("contract_id", contract.ContractID).
			WithError(err).Error("Synthetic generation failed")
		return outcome
	}

	outcome.Success = true
	outcome.RowsWritten = rowCount

	g.logger.WithFields(map[string]interface{}{
		"contract_id": contract.ContractID,
		"rows":        rowCount,
		"columns":     len(contract.Schema),
	}).Info("Synthetic data generated")

	return outcome
}

// synthesize produces one cell for row i of total rows, per column type
func (g *Generator) synthesize(col *contracts.ColumnSchema, i, total int) string {
	switch col.DataType {
	case contracts.DataTypeDatetime:
		return g.synthesizeDatetime(col, i, total)
	case contracts.DataTypeNumeric:
		return g.synthesizeNumeric(col)
	case contracts.DataTypeUUID:
		return uuid.NewString()
	case contracts.DataTypeCategorical:
		return g.pickSample(col, i)
	default:
		return g.pickSample(col, i)
	}
}

// synthesizeDatetime produces a contiguous daily series ending today, so
// the newest row is always fresh
func (g *Generator) synthesizeDatetime(col *contracts.ColumnSchema, i, total int) string {
	layout := inference.GoLayout(col.FormatPattern)
	day := g.now().AddDate(0, 0, -(total - 1 - i))
	return day.Format(layout)
}

// synthesizeNumeric jitters around the sample mean, respecting the
// integer/float distinction from the inferred format
func (g *Generator) synthesizeNumeric(col *contracts.ColumnSchema) string {
	mean := sampleMean(col.SampleValues)

	// +/-10% jitter around the mean, or plain noise when samples gave no scale
	value := mean + mean*0.1*(g.rng.Float64()*2-1)
	if mean == 0 {
		value = g.rng.Float64() * 100
	}

	if col.FormatPattern == inference.FormatInteger {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', 2, 64)
}

// pickSample cycles through the observed sample values; contracts whose
// samples were all null get synthetic placeholders
func (g *Generator) pickSample(col *contracts.ColumnSchema, i int) string {
	if len(col.SampleValues) == 0 {
		return fmt.Sprintf("%s_%d", col.Name, i+1)
	}
	return col.SampleValues[i%len(col.SampleValues)]
}

func sampleMean(values []string) float64 {
	var sum float64
	var n int
	for _, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		sum += f
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
