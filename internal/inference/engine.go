package inference

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/datagate/internal/contracts"
)

// Config holds the inference tunables. The defaults come straight from the
// heuristics the discovery pipeline was tuned with; their derivation is
// undocumented, so they stay configurable rather than baked in.
type Config struct {
	// MatchThreshold is the fraction of scored samples that must match a
	// type's pattern set before that type is selected. Raising it trades
	// false-positive categorical/uuid detection for false-negative
	// numeric/datetime detection.
	MatchThreshold float64

	// MaxScoredRows caps how many samples feed pattern scoring
	MaxScoredRows int

	// MaxSampleValues caps how many observed values a ColumnSchema retains
	MaxSampleValues int
}

// DefaultConfig returns the original tuning
func DefaultConfig() Config {
	return Config{
		MatchThreshold:  0.8,
		MaxScoredRows:   100,
		MaxSampleValues: 5,
	}
}

// typePatterns pairs a candidate type with its regex patterns.
// A value counts once it matches the first pattern that succeeds.
type typePatterns struct {
	dataType contracts.DataType
	patterns []*regexp.Regexp
}

// Engine classifies column samples into semantic types
type Engine struct {
	cfg Config

	// candidates in fixed priority order; earlier wins score ties
	candidates []typePatterns
}

// New creates an inference engine
func New(cfg Config) *Engine {
	return &Engine{
		cfg: cfg,
		candidates: []typePatterns{
			{
				dataType: contracts.DataTypeDatetime,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
					regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`),
					regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`),
				},
			},
			{
				dataType: contracts.DataTypeNumeric,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`^-?\d+$`),
					regexp.MustCompile(`^-?\d+\.\d+$`),
					regexp.MustCompile(`^-?\d+(\.\d+)?[eE][+-]?\d+$`),
				},
			},
			{
				dataType: contracts.DataTypeUUID,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`),
				},
			},
			{
				// Categorical only matches explicitly listed token domains;
				// arbitrary short strings fall through to string.
				dataType: contracts.DataTypeCategorical,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`^(SMA|EMA|WMA|RSI|MACD)$`),
					regexp.MustCompile(`^(BUY|SELL|HOLD)$`),
					regexp.MustCompile(`^(LONG|SHORT|FLAT)$`),
				},
			},
		},
	}
}

// InferSchema builds a full ColumnSchema for one column from raw samples
func (e *Engine) InferSchema(name string, values []string) contracts.ColumnSchema {
	nonNull := make([]string, 0, len(values))
	nullable := false
	unique := make(map[string]struct{})

	for _, v := range values {
		if IsNull(v) {
			nullable = true
			continue
		}
		v = strings.TrimSpace(v)
		nonNull = append(nonNull, v)
		unique[v] = struct{}{}
	}

	samples := nonNull
	if len(samples) > e.cfg.MaxSampleValues {
		samples = samples[:e.cfg.MaxSampleValues]
	}

	dataType, format := e.InferType(nonNull)

	return contracts.ColumnSchema{
		Name:          name,
		DataType:      dataType,
		SampleValues:  append([]string(nil), samples...),
		Nullable:      nullable,
		UniqueValues:  len(unique),
		FormatPattern: format,
	}
}

// InferType classifies non-null samples into a data type and format pattern
func (e *Engine) InferType(nonNull []string) (contracts.DataType, string) {
	if len(nonNull) == 0 {
		return contracts.DataTypeString, ""
	}

	scored := nonNull
	if len(scored) > e.cfg.MaxScoredRows {
		scored = scored[:e.cfg.MaxScoredRows]
	}

	// Pattern scoring: best-fraction candidate in priority order
	bestType := contracts.DataTypeString
	bestScore := 0.0

	for _, cand := range e.candidates {
		matched := 0
		for _, v := range scored {
			for _, p := range cand.patterns {
				if p.MatchString(v) {
					matched++
					break
				}
			}
		}

		score := float64(matched) / float64(len(scored))
		if score > bestScore {
			bestScore = score
			bestType = cand.dataType
		}
	}

	if bestScore > e.cfg.MatchThreshold {
		return bestType, e.detectFormat(bestType, nonNull)
	}

	// Parse-attempt fallback: numeric coercion first, then datetime,
	// else plain string
	if allNumeric(nonNull) {
		return contracts.DataTypeNumeric, e.detectFormat(contracts.DataTypeNumeric, nonNull)
	}
	if allDatetime(nonNull) {
		return contracts.DataTypeDatetime, e.detectFormat(contracts.DataTypeDatetime, nonNull)
	}

	return contracts.DataTypeString, ""
}

// detectFormat runs only for datetime and numeric
func (e *Engine) detectFormat(dataType contracts.DataType, nonNull []string) string {
	switch dataType {
	case contracts.DataTypeDatetime:
		return detectDatetimeFormat(nonNull[0])
	case contracts.DataTypeNumeric:
		for _, v := range nonNull {
			if !isIntegral(v) {
				return FormatFloat
			}
		}
		return FormatInteger
	default:
		return ""
	}
}

// Format pattern constants. Datetime patterns use strftime notation, which
// is what the contract export carries; GoLayout translates them.
const (
	FormatDate     = "%Y-%m-%d"
	FormatDateTime = "%Y-%m-%d %H:%M:%S"
	FormatDateUS   = "%m/%d/%Y"
	FormatInteger  = "integer"
	FormatFloat    = "float"
)

// datetimeProbes pairs each supported format pattern with its Go layout,
// in priority order
var datetimeProbes = []struct {
	pattern string
	layout  string
}{
	{FormatDate, "2006-01-02"},
	{FormatDateTime, "2006-01-02 15:04:05"},
	{FormatDateUS, "01/02/2006"},
}

// detectDatetimeFormat probes the first sample against the supported
// formats in priority order
func detectDatetimeFormat(sample string) string {
	for _, probe := range datetimeProbes {
		if _, err := time.Parse(probe.layout, sample); err == nil {
			return probe.pattern
		}
	}
	return ""
}

// GoLayout translates a strftime-style format pattern to a Go time layout.
// Unknown patterns default to a plain date.
func GoLayout(pattern string) string {
	for _, probe := range datetimeProbes {
		if probe.pattern == pattern {
			return probe.layout
		}
	}
	return "2006-01-02"
}

// permissiveLayouts accepts mixed datetime formats across rows without
// failing the whole column
var permissiveLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// IsNull reports whether a raw cell value counts as missing
func IsNull(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "null", "none", "nan", "na":
		return true
	}
	return false
}

func allNumeric(values []string) bool {
	for _, v := range values {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}

func allDatetime(values []string) bool {
	for _, v := range values {
		if !parsesAsDatetime(v) {
			return false
		}
	}
	return true
}

func parsesAsDatetime(v string) bool {
	// ISO 8601 first, then the permissive set
	for _, layout := range permissiveLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

func isIntegral(v string) bool {
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		return true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return false
	}
	return f == float64(int64(f))
}
