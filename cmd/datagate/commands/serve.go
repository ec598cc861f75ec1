package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/datagate/internal/api"
	"github.com/wonny/datagate/internal/api/handlers"
	"github.com/wonny/datagate/internal/pipeline"
	"github.com/wonny/datagate/internal/store"
	"github.com/wonny/datagate/pkg/database"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the contract API server",
	Long: `Starts the HTTP API.

Endpoints:
  GET  /health                        - Health check
  GET  /api/contracts                 - List discovered contracts
  GET  /api/contracts/{id}            - One contract
  GET  /api/contracts/{id}/validation - Current fulfillment state
  POST /api/refresh                   - Run the pipeline
  POST /api/refresh/{id}              - Refresh one contract
  GET  /api/events                    - WebSocket event stream

Example:
  datagate serve
  datagate serve --port 8080`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default from PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := loadStack()
	if err != nil {
		return err
	}
	defer s.close()

	if servePort != "" {
		s.cfg.Port = servePort
	}

	ctx := context.Background()

	// Persistence is optional: without DATABASE_URL runs are not stored
	var batchStore *store.Repository
	if s.cfg.Database.URL != "" {
		db, err := database.New(s.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		batchStore = store.NewRepository(db.Pool)
		if err := batchStore.EnsureSchema(ctx); err != nil {
			return err
		}
		s.logger.Info("Connected to snapshot database")
	}

	hub := api.NewEventHub(s.logger)

	// Avoid a typed nil inside the interface when persistence is off
	var bs pipeline.BatchStore
	if batchStore != nil {
		bs = batchStore
	}
	orch := s.orchestrator(hub, bs)

	handler := handlers.NewContractHandler(s.discovery, s.validator, orch, s.logger)
	router := api.NewRouter(handler, hub, s.logger)
	server := api.New(s.cfg, s.logger, router)

	// Graceful shutdown on SIGINT/SIGTERM
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		s.logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
