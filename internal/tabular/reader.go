package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadSample reads the header and up to maxRows data rows from a CSV file.
// The header is cleaned of file-format artifacts (BOM, surrounding whitespace).
func ReadSample(path string, maxRows int) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows, inference works per column

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	header = CleanHeader(header)
	if len(header) == 0 {
		return nil, nil, fmt.Errorf("empty header")
	}

	var rows [][]string
	for len(rows) < maxRows {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, record)
	}

	return header, rows, nil
}

// ReadHeaderAndCount reads the current header and counts all data rows.
// Used by validation, which must check the file as it is now, not the
// discovery-time snapshot.
func ReadHeaderAndCount(path string) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	count := 0
	for {
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, fmt.Errorf("read row %d: %w", count+2, err)
		}
		count++
	}

	return CleanHeader(header), count, nil
}

// CleanHeader strips BOM and whitespace from header cells
func CleanHeader(header []string) []string {
	cleaned := make([]string, 0, len(header))
	for _, h := range header {
		h = strings.TrimPrefix(h, "\uFEFF")
		h = strings.TrimSpace(h)
		cleaned = append(cleaned, h)
	}
	return cleaned
}

// Column extracts one column from row-major records, padding short rows
// with empty strings
func Column(rows [][]string, index int) []string {
	values := make([]string, len(rows))
	for i, row := range rows {
		if index < len(row) {
			values[i] = row[index]
		}
	}
	return values
}
