package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	dataRoot     string
	registryPath string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "datagate",
	Short: "Data contract discovery and fulfillment pipeline",
	Long: `datagate discovers the tabular files a frontend consumes, infers a
data contract for each one, and keeps every contract fulfilled: fresh
files, enough rows, required columns present. Contracts that no upstream
service can refresh fall back to schema-conformant synthetic data.

Examples:
  datagate discover
  datagate validate
  datagate refresh --skip-errors
  datagate export --out contracts.json
  datagate serve --port 8080
  datagate watch --schedule "0 0 6 * * *"`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&dataRoot, "data-root", "", "directory tree to watch (default from DATA_ROOT)")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "capability registry YAML (default from CAPABILITY_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
