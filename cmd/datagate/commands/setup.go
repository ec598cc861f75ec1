package commands

import (
	"fmt"
	"time"

	"github.com/wonny/datagate/internal/adapter"
	"github.com/wonny/datagate/internal/capability"
	"github.com/wonny/datagate/internal/contracts"
	"github.com/wonny/datagate/internal/discovery"
	"github.com/wonny/datagate/internal/inference"
	"github.com/wonny/datagate/internal/pipeline"
	"github.com/wonny/datagate/internal/quality"
	"github.com/wonny/datagate/internal/synth"
	"github.com/wonny/datagate/pkg/config"
	"github.com/wonny/datagate/pkg/httputil"
	"github.com/wonny/datagate/pkg/logger"
	"github.com/wonny/datagate/pkg/redis"
)

// stack bundles the wired components every command starts from
type stack struct {
	cfg          *config.Config
	logger       *logger.Logger
	capabilities *capability.Registry
	discovery    *discovery.Service
	validator    *quality.Validator
	generator    *synth.Generator
	adapters     *adapter.Registry
	redis        *redis.Client
}

// loadStack loads config, applies global flag overrides and wires the
// discovery/validation/generation components shared by all commands
func loadStack() (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if dataRoot != "" {
		cfg.Discovery.WatchRoot = dataRoot
	}
	if registryPath != "" {
		cfg.Discovery.RegistryPath = registryPath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	capCfg, err := capability.LoadOrDefault(cfg.Discovery.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load capability registry: %w", err)
	}
	registry := capability.NewRegistry(capCfg)

	engine := inference.New(inference.Config{
		MatchThreshold:  cfg.Inference.MatchThreshold,
		MaxScoredRows:   cfg.Inference.MaxScoredRows,
		MaxSampleValues: cfg.Inference.MaxSampleValues,
	})

	disc, err := discovery.NewService(cfg, registry, engine, log)
	if err != nil {
		return nil, err
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	adapters := adapter.NewRegistry()
	httpClient := httputil.New(cfg, log)
	cache := redis.NewCache(rdb, "datagate")

	for name, svc := range capCfg.Services {
		var a contracts.DataServiceAdapter
		switch svc.Kind {
		case "html-table":
			a = adapter.NewHTMLTable(name, svc.BaseURL, svc.Categories, httpClient, log)
		default:
			a = adapter.NewHTTPCSV(name, svc.BaseURL, svc.Categories, httpClient, cache, cfg.Fetch.CacheTTL, log)
		}
		if err := adapters.Register(a); err != nil {
			return nil, fmt.Errorf("register adapter %s: %w", name, err)
		}
	}

	return &stack{
		cfg:          cfg,
		logger:       log,
		capabilities: registry,
		discovery:    disc,
		validator:    quality.New(log),
		generator:    synth.New(cfg.Generator.AtomicWrites, log),
		adapters:     adapters,
		redis:        rdb,
	}, nil
}

// orchestrator wires a pipeline on top of the stack. events and store are
// optional.
func (s *stack) orchestrator(events contracts.EventSink, store pipeline.BatchStore) *pipeline.Orchestrator {
	return pipeline.New(s.discovery, s.validator, s.generator, s.adapters,
		events, store, s.cfg.Generator.AtomicWrites, s.logger)
}

// close releases the stack's external connections
func (s *stack) close() {
	if s.redis != nil {
		s.redis.Close()
	}
}

// formatDuration renders durations for CLI output
func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
