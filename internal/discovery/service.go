package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wonny/datagate/internal/capability"
	"github.com/wonny/datagate/internal/contracts"
	"github.com/wonny/datagate/internal/inference"
	"github.com/wonny/datagate/internal/tabular"
	"github.com/wonny/datagate/pkg/config"
	"github.com/wonny/datagate/pkg/logger"
)

// CategoryGeneral is assigned to files living directly under the watch root
const CategoryGeneral = "general"

// ErrMissingRoot reports that the configured watch root does not exist or
// is not a directory
var ErrMissingRoot = errors.New("watch root missing")

// Service discovers data contracts from the files under a watched root.
// Per-file failures are recorded and never abort the batch; only a missing
// root is fatal, at construction time.
type Service struct {
	root          string
	registry      *capability.Registry
	engine        *inference.Engine
	maxSampleRows int
	logger        *logger.Logger
}

// NewService creates a discovery service. The watched root must exist:
// without it no partial progress is meaningful, so this is the one
// configuration error that fails fast.
func NewService(cfg *config.Config, registry *capability.Registry, engine *inference.Engine, log *logger.Logger) (*Service, error) {
	root, err := filepath.Abs(cfg.Discovery.WatchRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingRoot, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrMissingRoot, root)
	}

	return &Service{
		root:          root,
		registry:      registry,
		engine:        engine,
		maxSampleRows: cfg.Inference.MaxSampleRows,
		logger:        log.WithField("module", "discovery"),
	}, nil
}

// Root returns the absolute watched root
func (s *Service) Root() string {
	return s.root
}

// DiscoverAll walks the watched root and builds one contract per tabular
// file. It always returns a result object; unreadable or unparsable files
// become failure entries, never errors.
func (s *Service) DiscoverAll(ctx context.Context) *contracts.DiscoveryResult {
	start := time.Now()
	result := &contracts.DiscoveryResult{}
	categories := make(map[string]struct{})

	files := s.listTabularFiles()
	result.TotalFiles = len(files)

	s.logger.WithFields(map[string]interface{}{
		"root":  s.root,
		"files": len(files),
	}).Info("Starting contract discovery")

	for _, path := range files {
		select {
		case <-ctx.Done():
			relPath, _ := filepath.Rel(s.root, path)
			result.FailedDiscoveries = append(result.FailedDiscoveries,
				fmt.Sprintf("%s: %v", filepath.ToSlash(relPath), ctx.Err()))
			continue
		default:
		}

		contract, err := s.discoverContract(path)
		if err != nil {
			relPath, _ := filepath.Rel(s.root, path)
			reason := fmt.Sprintf("%s: %v", filepath.ToSlash(relPath), err)
			result.FailedDiscoveries = append(result.FailedDiscoveries, reason)
			s.logger.WithField("file", relPath).WithError(err).Warn("Contract discovery failed")
			continue
		}

		result.Contracts = append(result.Contracts, *contract)
		result.SuccessfulDiscoveries++
		categories[contract.Category] = struct{}{}
	}

	result.Categories = make([]string, 0, len(categories))
	for c := range categories {
		result.Categories = append(result.Categories, c)
	}
	sort.Strings(result.Categories)

	result.DiscoveryTime = time.Since(start)

	s.logger.WithFields(map[string]interface{}{
		"contracts": result.SuccessfulDiscoveries,
		"failed":    len(result.FailedDiscoveries),
		"duration":  result.DiscoveryTime,
	}).Info("Contract discovery completed")

	return result
}

// listTabularFiles enumerates CSV files under the root in deterministic order
func (s *Service) listTabularFiles() []string {
	var files []string

	_ = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees surface as missing files, not batch aborts
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})

	sort.Strings(files)
	return files
}

// discoverContract builds one contract from one file
func (s *Service) discoverContract(path string) (*contracts.DataContract, error) {
	relPath, err := filepath.Rel(s.root, path)
	if err != nil {
		return nil, fmt.Errorf("relative path: %w", err)
	}
	relPath = filepath.ToSlash(relPath)

	contractID := ContractIDFromPath(relPath)
	category := CategoryFromPath(relPath)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	header, rows, err := tabular.ReadSample(path, s.maxSampleRows)
	if err != nil {
		return nil, err
	}

	schema, err := s.buildSchema(header, rows)
	if err != nil {
		return nil, err
	}

	freshnessHours, minimumRows := s.registry.QualityFor(category)

	contract := &contracts.DataContract{
		ContractID:              contractID,
		Category:                category,
		FilePath:                path,
		RelativePath:            relPath,
		Schema:                  schema,
		RowCount:                len(rows),
		LastModified:            info.ModTime(),
		FileSizeBytes:           info.Size(),
		Dependencies:            DependenciesFromPath(relPath),
		DataSources:             s.registry.ServicesFor(category, contractID),
		FreshnessThresholdHours: freshnessHours,
		MinimumRows:             minimumRows,
		RequiredColumns:         requiredColumns(schema),
	}

	if err := contract.Validate(); err != nil {
		return nil, err
	}

	return contract, nil
}

// buildSchema infers one ColumnSchema per header cell, preserving file order
func (s *Service) buildSchema(header []string, rows [][]string) ([]contracts.ColumnSchema, error) {
	seen := make(map[string]bool, len(header))
	schema := make([]contracts.ColumnSchema, 0, len(header))

	for i, name := range header {
		if name == "" {
			return nil, fmt.Errorf("column %d has empty name", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true

		schema = append(schema, s.engine.InferSchema(name, tabular.Column(rows, i)))
	}

	return schema, nil
}

// ContractIDFromPath derives the deterministic contract ID from a relative
// path: separators folded into underscores, extension stripped.
// Pure function, no I/O.
func ContractIDFromPath(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	relPath = strings.TrimSuffix(relPath, filepath.Ext(relPath))
	return strings.ReplaceAll(relPath, "/", "_")
}

// CategoryFromPath returns the first path segment, or "general" for
// root-level files
func CategoryFromPath(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	if idx := strings.Index(relPath, "/"); idx > 0 {
		return relPath[:idx]
	}
	return CategoryGeneral
}

// DependenciesFromPath derives topic dependencies: files nested more than
// one directory below the root depend on their parent directory's topic
func DependenciesFromPath(relPath string) []string {
	relPath = filepath.ToSlash(relPath)
	segments := strings.Split(relPath, "/")
	if len(segments) <= 2 {
		return nil
	}
	return []string{segments[len(segments)-2]}
}

// wellKnownRequired marks column names that downstream consumers rely on
// regardless of nullability
var wellKnownRequired = []string{"date", "timestamp", "ticker", "symbol", "pnl"}

// requiredColumns derives the required set: non-nullable columns plus
// well-known date/ticker/id/pnl-like names
func requiredColumns(schema []contracts.ColumnSchema) []string {
	var required []string
	for _, col := range schema {
		if !col.Nullable || isWellKnownColumn(col.Name) {
			required = append(required, col.Name)
		}
	}
	return required
}

func isWellKnownColumn(name string) bool {
	lower := strings.ToLower(name)
	if lower == "id" || strings.HasSuffix(lower, "_id") {
		return true
	}
	for _, known := range wellKnownRequired {
		if strings.Contains(lower, known) {
			return true
		}
	}
	return false
}
