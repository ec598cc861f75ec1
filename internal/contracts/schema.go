package contracts

import (
	"fmt"
	"time"
)

// DataType classifies a column's semantic type
type DataType string

const (
	DataTypeDatetime    DataType = "datetime"
	DataTypeNumeric     DataType = "numeric"
	DataTypeUUID        DataType = "uuid"
	DataTypeCategorical DataType = "categorical"
	DataTypeString      DataType = "string"
)

// String returns the type name
func (d DataType) String() string {
	return string(d)
}

// ColumnSchema describes one inferred column of a tabular file
type ColumnSchema struct {
	// Name is the header cell, trimmed of file-format artifacts (BOM, whitespace)
	Name string `json:"name"`

	DataType DataType `json:"data_type"`

	// SampleValues holds a bounded set of observed values, in file order.
	// Used for diagnostics and to seed synthetic generation.
	SampleValues []string `json:"sample_values"`

	// Nullable is true if any sampled value was missing
	Nullable bool `json:"nullable"`

	// UniqueValues counts distinct non-null values in the sampled rows
	UniqueValues int `json:"unique_values"`

	// FormatPattern refines the type: a strftime-style layout for datetime
	// ("%Y-%m-%d"), "integer" or "float" for numeric. Empty otherwise.
	FormatPattern string `json:"format_pattern,omitempty"`
}

// DataContract binds one discoverable file to its quality obligations.
// A contract is built fresh on every discovery run and is read-only once
// built; refreshing the underlying file produces a new snapshot.
type DataContract struct {
	// ContractID is derived deterministically from the relative path:
	// separators folded into underscores, extension stripped.
	ContractID string `json:"contract_id"`

	// Category is the first path segment, or "general" for root-level files
	Category string `json:"category"`

	FilePath     string `json:"file_path"`
	RelativePath string `json:"relative_path"`

	// Schema preserves column order as found in the file
	Schema []ColumnSchema `json:"schema"`

	// Snapshot metadata as of discovery time, not automatically refreshed
	RowCount      int       `json:"row_count"`
	LastModified  time.Time `json:"last_modified"`
	FileSizeBytes int64     `json:"file_size_bytes"`

	// Dependencies lists topic names this contract depends on,
	// derived from the parent directory of nested files
	Dependencies []string `json:"dependencies"`

	// DataSources lists upstream services able to fulfill this category
	DataSources []string `json:"data_sources"`

	// Quality contract
	FreshnessThresholdHours int      `json:"freshness_threshold_hours"`
	MinimumRows             int      `json:"minimum_rows"`
	RequiredColumns         []string `json:"required_columns"`
}

// Validate checks the contract's structural invariants
func (c *DataContract) Validate() error {
	if c.ContractID == "" {
		return fmt.Errorf("contract has empty contract_id")
	}

	if len(c.Schema) == 0 {
		return fmt.Errorf("contract %s has empty schema", c.ContractID)
	}

	seen := make(map[string]bool, len(c.Schema))
	for _, col := range c.Schema {
		if seen[col.Name] {
			return fmt.Errorf("contract %s has duplicate column %q", c.ContractID, col.Name)
		}
		seen[col.Name] = true
	}

	if c.FreshnessThresholdHours < 1 {
		return fmt.Errorf("contract %s has freshness threshold %dh, minimum is 1h",
			c.ContractID, c.FreshnessThresholdHours)
	}

	if c.MinimumRows < 0 {
		return fmt.Errorf("contract %s has negative minimum_rows", c.ContractID)
	}

	return nil
}

// ColumnNames returns the schema column names in file order
func (c *DataContract) ColumnNames() []string {
	names := make([]string, len(c.Schema))
	for i, col := range c.Schema {
		names[i] = col.Name
	}
	return names
}

// HasColumn reports whether the schema contains a column with the given name
func (c *DataContract) HasColumn(name string) bool {
	for _, col := range c.Schema {
		if col.Name == name {
			return true
		}
	}
	return false
}

// DiscoveryResult aggregates the outcome of one discovery run
type DiscoveryResult struct {
	Contracts []DataContract `json:"contracts"`

	// Categories is the sorted set of categories seen across contracts
	Categories []string `json:"categories"`

	TotalFiles            int `json:"total_files"`
	SuccessfulDiscoveries int `json:"successful_discoveries"`

	// FailedDiscoveries holds one human-readable reason per failed file
	FailedDiscoveries []string `json:"failed_discoveries"`

	DiscoveryTime time.Duration `json:"discovery_time"`
}

// Complete reports whether every enumerated file is accounted for
func (r *DiscoveryResult) Complete() bool {
	return r.SuccessfulDiscoveries+len(r.FailedDiscoveries) == r.TotalFiles
}

// Contract returns the contract with the given ID, if present
func (r *DiscoveryResult) Contract(contractID string) (*DataContract, bool) {
	for i := range r.Contracts {
		if r.Contracts[i].ContractID == contractID {
			return &r.Contracts[i], true
		}
	}
	return nil, false
}
