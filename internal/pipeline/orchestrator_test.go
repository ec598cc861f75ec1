package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/datagate/internal/adapter"
	"github.com/wonny/datagate/internal/capability"
	"github.com/wonny/datagate/internal/contracts"
	"github.com/wonny/datagate/internal/discovery"
	"github.com/wonny/datagate/internal/inference"
	"github.com/wonny/datagate/internal/quality"
	"github.com/wonny/datagate/internal/synth"
	"github.com/wonny/datagate/pkg/config"
	"github.com/wonny/datagate/pkg/logger"
)

type stubAdapter struct {
	name     string
	response *contracts.FetchResponse
	err      error
	calls    int
}

func (s *stubAdapter) Fetch(ctx context.Context, req contracts.FetchRequest) (*contracts.FetchResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func (s *stubAdapter) HealthCheck(ctx context.Context) bool { return true }

func (s *stubAdapter) Capabilities() contracts.AdapterCapabilities {
	return contracts.AdapterCapabilities{Name: s.name}
}

type recordingSink struct {
	mu     sync.Mutex
	events []contracts.PipelineEvent
}

func (r *recordingSink) Publish(event contracts.PipelineEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) byType(eventType string) []contracts.PipelineEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []contracts.PipelineEvent
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type failingStore struct{ calls int }

func (f *failingStore) SaveBatch(ctx context.Context, batch *contracts.BatchResult) error {
	f.calls++
	return errors.New("db down")
}

// refusingGenerator fails for selected contract IDs and delegates the rest
type refusingGenerator struct {
	inner  contracts.ContractGenerator
	refuse map[string]bool
}

func (g *refusingGenerator) Generate(ctx context.Context, contract *contracts.DataContract) contracts.GenerationOutcome {
	if g.refuse[contract.ContractID] {
		return contracts.GenerationOutcome{
			ContractID: contract.ContractID,
			Error:      "generation refused",
		}
	}
	return g.inner.Generate(ctx, contract)
}

func newOrchestrator(t *testing.T, root string, registry *adapter.Registry, sink contracts.EventSink, store BatchStore) *Orchestrator {
	t.Helper()
	return newOrchestratorWithGenerator(t, root, registry, sink, store, synth.New(false, logger.NewNop()))
}

func newOrchestratorWithGenerator(t *testing.T, root string, registry *adapter.Registry, sink contracts.EventSink, store BatchStore, gen contracts.ContractGenerator) *Orchestrator {
	t.Helper()

	cfg := &config.Config{
		Discovery: config.DiscoveryConfig{WatchRoot: root},
		Inference: config.InferenceConfig{
			MatchThreshold:  0.8,
			MaxSampleRows:   1000,
			MaxScoredRows:   100,
			MaxSampleValues: 5,
		},
	}

	disc, err := discovery.NewService(cfg,
		capability.NewRegistry(capability.Default()),
		inference.New(inference.DefaultConfig()),
		logger.NewNop(),
	)
	require.NoError(t, err)

	if registry == nil {
		registry = adapter.NewRegistry()
	}

	return New(disc,
		quality.New(logger.NewNop()),
		gen,
		registry, sink, store, false, logger.NewNop())
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRefreshAll_CurrentFileSatisfies(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "portfolio/portfolio_value.csv",
		"Date,Value\n2026-08-20,105000.50\n2026-08-21,105200.25\n")

	o := newOrchestrator(t, root, nil, nil, nil)
	batch, err := o.RefreshAll(context.Background(), false)
	require.NoError(t, err)

	assert.True(t, batch.Success)
	assert.NotEmpty(t, batch.RunID)
	assert.Equal(t, 1, batch.SuccessfulContracts)

	pr := batch.ContractResults["portfolio_portfolio_value"]
	assert.Equal(t, "current", pr.Source)
	assert.False(t, pr.Generated)
	assert.True(t, pr.Validation.Success)
}

func TestRefreshAll_SyntheticFallback(t *testing.T) {
	root := t.TempDir()
	// signals requires 10 rows; one row forces a refresh, and with no
	// registered adapters the generator is the only path
	writeFile(t, root, "signals/momentum.csv",
		"Date,Score\n2026-08-20,0.45\n")

	sink := &recordingSink{}
	o := newOrchestrator(t, root, nil, sink, nil)

	batch, err := o.RefreshAll(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, batch.Success)

	pr := batch.ContractResults["signals_momentum"]
	assert.Equal(t, "synthetic", pr.Source)
	assert.True(t, pr.Generated)
	assert.True(t, pr.Validation.Success)

	refreshed := sink.byType(EventContractRefreshed)
	require.Len(t, refreshed, 1)
	assert.Equal(t, "synthetic", refreshed[0].Source)
	assert.Len(t, sink.byType(EventBatchCompleted), 1)
}

func TestRefreshAll_AdapterFirstSuccessWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "trade-history/trades.csv", "Date,Ticker,PnL\n")

	registry := adapter.NewRegistry()
	broker := &stubAdapter{
		name: "broker-export",
		response: &contracts.FetchResponse{
			Success: true,
			Header:  []string{"Date", "Ticker", "PnL"},
			Rows: [][]string{
				{"2026-08-22", "AAPL", "100.50"},
				{"2026-08-23", "GOOGL", "-25.75"},
			},
			RowCount: 2,
			CacheHit: true,
		},
	}
	require.NoError(t, registry.Register(broker))

	o := newOrchestrator(t, root, registry, nil, nil)
	batch, err := o.RefreshAll(context.Background(), false)
	require.NoError(t, err)

	pr := batch.ContractResults["trade-history_trades"]
	assert.Equal(t, "broker-export", pr.Source)
	assert.True(t, pr.CacheHit)
	assert.False(t, pr.Generated)
	assert.True(t, pr.Success)
	assert.Equal(t, 1, broker.calls)
}

func TestRefreshAll_FailedAdapterFallsThrough(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "trade-history/trades.csv", "Date,Ticker,PnL\n")

	registry := adapter.NewRegistry()
	broker := &stubAdapter{name: "broker-export", err: errors.New("connection refused")}
	require.NoError(t, registry.Register(broker))

	o := newOrchestrator(t, root, registry, nil, nil)
	batch, err := o.RefreshAll(context.Background(), false)
	require.NoError(t, err)

	// Adapter failed, generator took over
	pr := batch.ContractResults["trade-history_trades"]
	assert.Equal(t, "synthetic", pr.Source)
	assert.True(t, pr.Generated)
	assert.True(t, pr.Success)
	assert.Equal(t, 1, broker.calls)
}

func TestRefreshAll_FailFast(t *testing.T) {
	root := t.TempDir()
	// market requires 5 rows; one-row files force a refresh. The generator
	// refuses blocked, which sorts first, so fail-fast never reaches prices.
	writeFile(t, root, "market/blocked.csv", "Date,Close\n2026-08-20,1.0\n")
	writeFile(t, root, "market/prices.csv", "Date,Close\n2026-08-20,4310.2\n")

	gen := &refusingGenerator{
		inner:  synth.New(false, logger.NewNop()),
		refuse: map[string]bool{"market_blocked": true},
	}
	o := newOrchestratorWithGenerator(t, root, nil, nil, nil, gen)

	batch, err := o.RefreshAll(context.Background(), false)
	require.Error(t, err)
	assert.False(t, batch.Success)
	assert.Contains(t, batch.ContractResults, "market_blocked")
	assert.NotContains(t, batch.ContractResults, "market_prices")
}

func TestRefreshAll_SkipErrorsContinues(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "market/blocked.csv", "Date,Close\n2026-08-20,1.0\n")
	writeFile(t, root, "market/prices.csv", "Date,Close\n2026-08-20,4310.2\n")

	gen := &refusingGenerator{
		inner:  synth.New(false, logger.NewNop()),
		refuse: map[string]bool{"market_blocked": true},
	}
	sink := &recordingSink{}
	o := newOrchestratorWithGenerator(t, root, nil, sink, nil, gen)

	batch, err := o.RefreshAll(context.Background(), true)
	require.NoError(t, err)

	assert.False(t, batch.Success)
	assert.Contains(t, batch.ContractResults, "market_prices")
	assert.True(t, batch.ContractResults["market_prices"].Success)
	assert.False(t, batch.ContractResults["market_blocked"].Success)
	assert.Len(t, sink.byType(EventContractFailed), 1)
}

func TestRefreshAll_StoreFailureDoesNotAbort(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "portfolio/value.csv", "Date,Value\n2026-08-20,1.0\n")

	store := &failingStore{}
	o := newOrchestrator(t, root, nil, nil, store)

	batch, err := o.RefreshAll(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, batch.Success)
	assert.Equal(t, 1, store.calls)
}

func TestRefreshOne(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "signals/momentum.csv", "Date,Score\n2026-08-20,0.45\n")

	o := newOrchestrator(t, root, nil, nil, nil)

	pr, err := o.RefreshOne(context.Background(), "signals_momentum")
	require.NoError(t, err)
	assert.True(t, pr.Success)
	assert.Equal(t, "synthetic", pr.Source)

	_, err = o.RefreshOne(context.Background(), "nope")
	require.Error(t, err)
}
