package helpers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/spektr-org/inspekt/schema"
)

// ============================================================================
// CSV HELPER — Parses CSV data into engine records
// ============================================================================

// ParseCSV parses CSV bytes using the mapping to locate each role's column.
func ParseCSV(data []byte, m schema.Mapping, opts ...LoadOption) (*LoadResult, error) {
	return ReadCSV(bytes.NewReader(data), m, opts...)
}

// ReadCSV parses CSV from a reader. The first row must be the header.
func ReadCSV(r io.Reader, m schema.Mapping, opts ...LoadOption) (*LoadResult, error) {
	cfg := applyLoadOptions(opts)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// Read header
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	idx, err := m.Resolve(headers)
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	loader := newRowLoader(cfg, idx, m.DateFormat)
	cells := make([]any, len(headers))
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				loader.reject(fmt.Sprintf("malformed CSV row: %v", perr.Err))
				continue
			}
			return nil, fmt.Errorf("reading CSV: %w", err)
		}

		cells = cells[:0]
		for _, v := range row {
			cells = append(cells, v)
		}
		loader.add(cells)
	}
	return loader.finish("csv"), nil
}

// ParseCSVAuto discovers the mapping first, then parses with it.
// Consumers can use this for quick looks before pinning a mapping in config.
func ParseCSVAuto(data []byte, opts ...LoadOption) (*LoadResult, *schema.Discovery, error) {
	d, err := schema.DiscoverFromCSV(data)
	if err != nil {
		return nil, d, err
	}
	result, err := ParseCSV(data, d.Mapping, opts...)
	if err != nil {
		return nil, d, err
	}
	return result, d, nil
}
