package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/datagate/internal/contracts"
	"github.com/wonny/datagate/pkg/httputil"
	"github.com/wonny/datagate/pkg/logger"
)

// HTMLTable scrapes contract data from an upstream page that renders it as
// an HTML table at <base_url>/<contract_id>. Used for services that publish
// data for browsers rather than machines.
type HTMLTable struct {
	name       string
	baseURL    string
	categories []string
	client     *httputil.Client
	logger     *logger.Logger
}

// NewHTMLTable creates an HTML table scraping adapter
func NewHTMLTable(name, baseURL string, categories []string, client *httputil.Client, log *logger.Logger) *HTMLTable {
	return &HTMLTable{
		name:       name,
		baseURL:    baseURL,
		categories: categories,
		client:     client,
		logger:     log.WithField("adapter", name),
	}
}

// Capabilities describes this adapter. Scraped pages are never cached:
// the rendered table can change between identical requests.
func (a *HTMLTable) Capabilities() contracts.AdapterCapabilities {
	return contracts.AdapterCapabilities{
		Name:       a.name,
		Categories: a.categories,
		Cached:     false,
	}
}

// HealthCheck probes the upstream root page
func (a *HTMLTable) HealthCheck(ctx context.Context) bool {
	resp, err := a.client.Get(ctx, a.baseURL)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// Fetch scrapes the first table from the contract's page
func (a *HTMLTable) Fetch(ctx context.Context, req contracts.FetchRequest) (*contracts.FetchResponse, error) {
	url := fmt.Sprintf("%s/%s", a.baseURL, req.ContractID)
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

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return &contracts.FetchResponse{
			Success: false,
			Error:   "no table found in page",
		}, nil
	}

	header, rows := parseTable(table)
	if len(header) == 0 {
		return &contracts.FetchResponse{
			Success: false,
			Error:   "table has no header row",
		}, nil
	}

	a.logger.WithFields(map[string]interface{}{
		"contract_id": req.ContractID,
		"rows":        len(rows),
	}).Info("Scraped upstream table")

	return &contracts.FetchResponse{
		Success:  true,
		Header:   header,
		Rows:     rows,
		RowCount: len(rows),
	}, nil
}

// parseTable extracts header and data rows. Header cells come from th
// elements when present, otherwise the first row's td cells.
func parseTable(table *goquery.Selection) ([]string, [][]string) {
	var header []string
	table.Find("th").Each(func(_ int, cell *goquery.Selection) {
		header = append(header, strings.TrimSpace(cell.Text()))
	})

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}

		row := make([]string, 0, tds.Length())
		tds.Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.TrimSpace(cell.Text()))
		})

		if header == nil {
			header = row
			return
		}
		rows = append(rows, row)
	})

	return header, rows
}
