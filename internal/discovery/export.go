package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/datagate/internal/contracts"
)

// Export is the JSON document shape for contract exports.
// last_modified serializes as ISO-8601 and required_columns as a list.
type Export struct {
	DiscoveryTimestamp time.Time                `json:"discovery_timestamp"`
	TotalContracts     int                      `json:"total_contracts"`
	Contracts          []contracts.DataContract `json:"contracts"`
}

// ExportJSON writes all discovered contracts to a JSON document
func ExportJSON(result *contracts.DiscoveryResult, path string) error {
	export := Export{
		DiscoveryTimestamp: time.Now().UTC(),
		TotalContracts:     len(result.Contracts),
		Contracts:          result.Contracts,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal contracts: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	return nil
}

// LoadExport reads a previously exported contract document
func LoadExport(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("unmarshal export: %w", err)
	}

	return &export, nil
}
