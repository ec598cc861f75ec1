package adapter

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/datagate/internal/contracts"
	"github.com/wonny/datagate/internal/tabular"
	"github.com/wonny/datagate/pkg/httputil"
	"github.com/wonny/datagate/pkg/logger"
	"github.com/wonny/datagate/pkg/redis"
)

// cachedFetch is the cache payload for one upstream CSV fetch
type cachedFetch struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// HTTPCSV fetches contract data from an upstream service that exposes CSV
// documents at <base_url>/<contract_id>.csv. Responses are cached in Redis
// so repeated refreshes within the TTL do not hit the upstream.
type HTTPCSV struct {
	name       string
	baseURL    string
	categories []string
	client     *httputil.Client
	cache      *redis.Cache
	cacheTTL   time.Duration
	logger     *logger.Logger
}

// NewHTTPCSV creates a CSV-over-HTTP data service adapter. cache may be a
// disabled client, in which case every fetch goes upstream.
func NewHTTPCSV(name, baseURL string, categories []string, client *httputil.Client, cache *redis.Cache, cacheTTL time.Duration, log *logger.Logger) *HTTPCSV {
	return &HTTPCSV{
		name:       name,
		baseURL:    baseURL,
		categories: categories,
		client:     client,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     log.WithField("adapter", name),
	}
}

// Capabilities describes this adapter
func (a *HTTPCSV) Capabilities() contracts.AdapterCapabilities {
	return contracts.AdapterCapabilities{
		Name:       a.name,
		Categories: a.categories,
		Cached:     a.cache != nil,
	}
}

// HealthCheck probes the upstream health endpoint
func (a *HTTPCSV) HealthCheck(ctx context.Context) bool {
	resp, err := a.client.Get(ctx, a.baseURL+"/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// Fetch retrieves the CSV document for one contract, serving from cache
// when a fresh copy exists
func (a *HTTPCSV) Fetch(ctx context.Context, req contracts.FetchRequest) (*contracts.FetchResponse, error) {
	cacheKey := redis.FetchKey(a.name, req.ContractID)

	var cached cachedFetch
	if a.cache != nil {
		hit, err := a.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			a.logger.WithError(err).Warn("Cache lookup failed, fetching upstream")
		} else if hit {
			a.logger.WithField("contract_id", req.ContractID).Debug("Fetch served from cache")
			return &contracts.FetchResponse{
				Success:  true,
				Header:   cached.Header,
				Rows:     cached.Rows,
				RowCount: len(cached.Rows),
				CacheHit: true,
			}, nil
		}
	}

	url := fmt.Sprintf("%s/%s.csv", a.baseURL, req.ContractID)
	resp, err := a.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &contracts.FetchResponse{
			Success: false,
			Error:   fmt.Sprintf("upstream returned %d", resp.StatusCode),
		}, nil
	}

	r := csv.NewReader(resp.Body)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse upstream csv: %w", err)
	}
	if len(records) == 0 {
		return &contracts.FetchResponse{
			Success: false,
			Error:   "upstream returned an empty document",
		}, nil
	}

	header := tabular.CleanHeader(records[0])
	rows := records[1:]

	if a.cache != nil {
		payload := cachedFetch{Header: header, Rows: rows}
		if err := a.cache.Set(ctx, cacheKey, payload, a.cacheTTL); err != nil {
			a.logger.WithError(err).Warn("Cache store failed")
		}
	}

	a.logger.WithFields(map[string]interface{}{
		"contract_id": req.ContractID,
		"rows":        len(rows),
	}).Info("Fetched upstream data")

	return &contracts.FetchResponse{
		Success:  true,
		Header:   header,
		Rows:     rows,
		RowCount: len(rows),
	}, nil
}
