package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and upstream service health",
	Long: `Prints the effective configuration, the configured data services and
whether each one answers its health check.

Example:
  datagate status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := loadStack()
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Println("=== datagate status ===")
	fmt.Printf("watch root:      %s\n", s.discovery.Root())
	fmt.Printf("registry:        %s\n", orDefault(s.cfg.Discovery.RegistryPath, "(built-in)"))
	fmt.Printf("match threshold: %.2f\n", s.cfg.Inference.MatchThreshold)
	fmt.Printf("atomic writes:   %v\n", s.cfg.Generator.AtomicWrites)
	fmt.Printf("redis cache:     %v\n", s.cfg.Redis.Enabled)
	fmt.Printf("database:        %v\n", s.cfg.Database.URL != "")

	names := s.adapters.Names()
	if len(names) == 0 {
		fmt.Println("\nNo data services configured; unfulfilled contracts get synthetic data")
		return nil
	}

	fmt.Println("\nData services:")
	for _, name := range names {
		a, _ := s.adapters.Get(name)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		healthy := a.HealthCheck(ctx)
		cancel()

		state := "unreachable"
		if healthy {
			state = "healthy"
		}

		caps := a.Capabilities()
		fmt.Printf("  %-20s %-12s categories=%v cached=%v\n", name, state, caps.Categories, caps.Cached)
	}

	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
