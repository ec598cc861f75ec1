package capability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServicesFor(t *testing.T) {
	r := NewRegistry(Default())

	tests := []struct {
		name       string
		category   string
		contractID string
		want       []string
	}{
		{
			name:     "direct category match",
			category: "portfolio",
			want:     []string{"market-data", "broker-export"},
		},
		{
			name:       "match via contract id",
			category:   "general",
			contractID: "trade-history_trades",
			want:       []string{"broker-export"},
		},
		{
			name:       "no match falls back to unknown",
			category:   "blog",
			contractID: "blog_posts",
			want:       []string{ServiceUnknown},
		},
		{
			name:     "matching is case insensitive",
			category: "Portfolio",
			want:     []string{"market-data", "broker-export"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ServicesFor(tt.category, tt.contractID))
		})
	}
}

// Substring matching can produce false positives for categories with
// overlapping names. This documents the behavior rather than fixing it.
func TestServicesFor_SubstringOverlap(t *testing.T) {
	cfg := &Config{
		Default: Entry{FreshnessThresholdHours: 24, MinimumRows: 1},
		Categories: map[string]Entry{
			"market":       {Services: []string{"market-data"}, FreshnessThresholdHours: 24},
			"market-moves": {Services: []string{"special-feed"}, FreshnessThresholdHours: 24},
		},
	}
	r := NewRegistry(cfg)

	// "market" is a substring of "market-moves", and sorts first,
	// so the broader key shadows the specific one
	assert.Equal(t, []string{"market-data"}, r.ServicesFor("market-moves", ""))
}

func TestQualityFor(t *testing.T) {
	r := NewRegistry(Default())

	hours, rows := r.QualityFor("market")
	assert.Equal(t, 24, hours)
	assert.Equal(t, 5, rows)

	// Unmapped categories get the global default
	hours, rows = r.QualityFor("something-else")
	assert.Equal(t, 24, hours)
	assert.Equal(t, 1, rows)
}

func TestMinFreshnessHours(t *testing.T) {
	// Default table: everything is 24h or looser
	assert.Equal(t, 24, NewRegistry(Default()).MinFreshnessHours())

	cfg := Default()
	cfg.Categories["intraday"] = Entry{
		Services:                []string{"market-data"},
		FreshnessThresholdHours: 6,
		MinimumRows:             1,
	}
	assert.Equal(t, 6, NewRegistry(cfg).MinFreshnessHours())
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Categories["broken"] = Entry{FreshnessThresholdHours: 0}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "freshness_threshold_hours")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capabilities.yaml")
	content := `default:
  freshness_threshold_hours: 12
  minimum_rows: 2
categories:
  portfolio:
    services: [market-data]
    freshness_threshold_hours: 6
    minimum_rows: 1
  signals:
    services: [market-data]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Default.FreshnessThresholdHours)
	assert.Equal(t, 6, cfg.Categories["portfolio"].FreshnessThresholdHours)

	// Omitted thresholds inherit the default entry
	assert.Equal(t, 12, cfg.Categories["signals"].FreshnessThresholdHours)
	assert.Equal(t, 2, cfg.Categories["signals"].MinimumRows)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capabilities.yaml")
	content := `default:
  freshness_threshold_hours: 24
  minimum_rows: 1
catgories: {}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Default, cfg.Default)

	cfg, err = LoadOrDefault("")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Categories)
}
