package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every contract against its on-disk file",
	Long: `Discovers all contracts and reports which are fulfilled and which
violate freshness, row count or column requirements. Violations are
reported, never thrown: the command exits non-zero only when asked to.

Example:
  datagate validate
  datagate validate --strict`,
	RunE: runValidate,
}

var validateStrict bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "exit non-zero when any contract is unfulfilled")
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := loadStack()
	if err != nil {
		return err
	}
	defer s.close()

	ctx := context.Background()
	result := s.discovery.DiscoverAll(ctx)
	outcomes := s.validator.ValidateAll(ctx, result.Contracts)

	fulfilled := 0
	for _, c := range result.Contracts {
		outcome := outcomes[c.ContractID]
		if outcome.Success {
			fulfilled++
			fmt.Printf("  OK    %-40s age=%.1fh\n", c.ContractID, outcome.Metadata.FileAgeHours)
			continue
		}
		fmt.Printf("  FAIL  %-40s\n", c.ContractID)
		for _, reason := range outcome.Reasons() {
			fmt.Printf("          %s\n", reason)
		}
	}

	fmt.Printf("\n%d/%d contracts fulfilled\n", fulfilled, len(result.Contracts))

	if validateStrict && fulfilled < len(result.Contracts) {
		return fmt.Errorf("%d contracts unfulfilled", len(result.Contracts)-fulfilled)
	}
	return nil
}
