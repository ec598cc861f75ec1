package capability

import (
	"fmt"
	"sort"
	"strings"
)

// ServiceUnknown is returned when no configured category matches a contract
const ServiceUnknown = "unknown"

// Entry holds the capability mapping and quality thresholds for one category
type Entry struct {
	Services                []string `yaml:"services"`
	FreshnessThresholdHours int      `yaml:"freshness_threshold_hours"`
	MinimumRows             int      `yaml:"minimum_rows"`
}

// ServiceEndpoint describes how to reach one upstream data service.
// Kind selects the adapter: "http-csv" (default) or "html-table".
type ServiceEndpoint struct {
	Kind       string   `yaml:"kind"`
	BaseURL    string   `yaml:"base_url"`
	Categories []string `yaml:"categories"`
}

// Config is the externally loaded registry configuration.
// Thresholds and service endpoints are operator-tunable without code changes.
type Config struct {
	Default    Entry                      `yaml:"default"`
	Categories map[string]Entry           `yaml:"categories"`
	Services   map[string]ServiceEndpoint `yaml:"services,omitempty"`
}

// Default returns the built-in table used when no YAML file is configured
func Default() *Config {
	return &Config{
		Default: Entry{
			FreshnessThresholdHours: 24,
			MinimumRows:             1,
		},
		Categories: map[string]Entry{
			"portfolio": {
				Services:                []string{"market-data", "broker-export"},
				FreshnessThresholdHours: 24,
				MinimumRows:             1,
			},
			"trade-history": {
				Services:                []string{"broker-export"},
				FreshnessThresholdHours: 48,
				MinimumRows:             1,
			},
			"market": {
				Services:                []string{"market-data", "market-scrape"},
				FreshnessThresholdHours: 24,
				MinimumRows:             5,
			},
			"signals": {
				Services:                []string{"market-data"},
				FreshnessThresholdHours: 24,
				MinimumRows:             10,
			},
		},
	}
}

// Validate checks threshold invariants for every entry
func (c *Config) Validate() error {
	if err := validateEntry("default", c.Default); err != nil {
		return err
	}
	for name, entry := range c.Categories {
		if err := validateEntry(name, entry); err != nil {
			return err
		}
	}
	for name, svc := range c.Services {
		if svc.BaseURL == "" {
			return fmt.Errorf("service %q: base_url is required", name)
		}
	}
	return nil
}

func validateEntry(name string, e Entry) error {
	if e.FreshnessThresholdHours < 1 {
		return fmt.Errorf("category %q: freshness_threshold_hours must be >= 1, got %d",
			name, e.FreshnessThresholdHours)
	}
	if e.MinimumRows < 0 {
		return fmt.Errorf("category %q: minimum_rows must be >= 0, got %d",
			name, e.MinimumRows)
	}
	return nil
}

// Registry is a pure lookup over the loaded configuration, no I/O.
// It maps contract categories to the upstream services able to supply them
// and to category-specific quality thresholds.
type Registry struct {
	cfg *Config

	// sorted for deterministic matching
	keys []string
}

// NewRegistry creates a registry from a validated config
func NewRegistry(cfg *Config) *Registry {
	keys := make([]string, 0, len(cfg.Categories))
	for k := range cfg.Categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &Registry{cfg: cfg, keys: keys}
}

// ServicesFor maps a category (or contract ID) to the services able to
// fulfill it. Matching is by substring: a configured category key matching
// anywhere in the category or contract ID wins. Overlapping category names
// can therefore shadow each other; first match in sorted key order applies.
// Returns ["unknown"] when nothing matches.
func (r *Registry) ServicesFor(category, contractID string) []string {
	if entry, ok := r.match(category, contractID); ok && len(entry.Services) > 0 {
		return append([]string(nil), entry.Services...)
	}
	return []string{ServiceUnknown}
}

// QualityFor returns (freshness_threshold_hours, minimum_rows) for a
// category, falling back to the global default entry
func (r *Registry) QualityFor(category string) (int, int) {
	if entry, ok := r.match(category, ""); ok {
		return entry.FreshnessThresholdHours, entry.MinimumRows
	}
	return r.cfg.Default.FreshnessThresholdHours, r.cfg.Default.MinimumRows
}

// Categories returns the configured category keys in sorted order
func (r *Registry) Categories() []string {
	return append([]string(nil), r.keys...)
}

// MinFreshnessHours returns the tightest freshness threshold across the
// default entry and all categories. Schedulers derive their refresh
// interval from it so no contract can go stale between runs.
func (r *Registry) MinFreshnessHours() int {
	min := r.cfg.Default.FreshnessThresholdHours
	for _, key := range r.keys {
		if h := r.cfg.Categories[key].FreshnessThresholdHours; h > 0 && h < min {
			min = h
		}
	}
	return min
}

func (r *Registry) match(category, contractID string) (Entry, bool) {
	category = strings.ToLower(category)
	contractID = strings.ToLower(contractID)

	for _, key := range r.keys {
		if strings.Contains(category, key) || (contractID != "" && strings.Contains(contractID, key)) {
			return r.cfg.Categories[key], true
		}
	}
	return Entry{}, false
}
