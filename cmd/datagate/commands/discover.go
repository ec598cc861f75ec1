package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover data contracts under the watch root",
	Long: `Walks the watched directory tree, infers a schema for every tabular
file and prints the resulting contracts.

Example:
  datagate discover
  datagate discover --data-root ./data`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	s, err := loadStack()
	if err != nil {
		return err
	}
	defer s.close()

	result := s.discovery.DiscoverAll(context.Background())

	fmt.Printf("Discovered %d contracts from %d files in %s\n",
		result.SuccessfulDiscoveries, result.TotalFiles, formatDuration(result.DiscoveryTime))

	for _, c := range result.Contracts {
		fmt.Printf("  %-40s category=%-14s columns=%d rows=%d sources=%v\n",
			c.ContractID, c.Category, len(c.Schema), c.RowCount, c.DataSources)
	}

	if len(result.FailedDiscoveries) > 0 {
		fmt.Printf("\n%d files failed:\n", len(result.FailedDiscoveries))
		for _, reason := range result.FailedDiscoveries {
			fmt.Printf("  %s\n", reason)
		}
	}

	return nil
}
