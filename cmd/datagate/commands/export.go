package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/datagate/internal/discovery"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export discovered contracts to a JSON document",
	Long: `Discovers all contracts and writes them as a single JSON document,
the interchange format consumed by dashboards and external tooling.

Example:
  datagate export --out contracts.json`,
	RunE: runExport,
}

var exportOut string

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportOut, "out", "contracts.json", "output file path")
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := loadStack()
	if err != nil {
		return err
	}
	defer s.close()

	result := s.discovery.DiscoverAll(context.Background())

	if err := discovery.ExportJSON(result, exportOut); err != nil {
		return err
	}

	fmt.Printf("Exported %d contracts to %s\n", len(result.Contracts), exportOut)
	if len(result.FailedDiscoveries) > 0 {
		fmt.Printf("%d files could not be discovered and were skipped\n", len(result.FailedDiscoveries))
	}

	return nil
}
