// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
fileio.go - Record File Readers and Writers

CSV files carry a header row; every cell is read as a string and
normalization converts numeric fields later. JSON files are either an
array of objects or a single object, which is treated as a one-record
file. Written CSV columns follow the first record's key order sorted
alphabetically so output is deterministic.
*/

//nolint:staticcheck // File documentation, not package doc
package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

// ReadRecords loads every record from the file in the given format
func ReadRecords(path string, format Format) ([]Record, error) {
	switch format {
	case FormatCSV:
		return readCSV(path)
	case FormatJSON:
		return readJSON(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// WriteRecords writes every record to the file in the given format
func WriteRecords(path string, format Format, records []Record) error {
	switch format {
	case FormatCSV:
		return writeCSV(path, records)
	case FormatJSON:
		return writeJSON(path, records)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

//nolint:gosec // G304: paths come from operator-facing batch requests
func readCSV(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // Best effort cleanup

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

//nolint:gosec // G304: paths come from operator-facing batch requests
func readJSON(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	// A single object is a one-record file
	var single Record
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("failed to parse JSON %s: %w", path, err)
	}
	return []Record{single}, nil
}

func writeCSV(path string, records []Record) error {
	if len(records) == 0 {
		return os.WriteFile(path, nil, 0o600)
	}

	header := make([]string, 0, len(records[0]))
	for k := range records[0] {
		header = append(header, k)
	}
	sort.Strings(header)

	file, err := os.Create(path) //nolint:gosec // G304: operator-facing path
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		file.Close() //nolint:errcheck // Best effort cleanup on error
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range records {
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = stringField(rec, col)
		}
		if err := writer.Write(row); err != nil {
			file.Close() //nolint:errcheck // Best effort cleanup on error
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close() //nolint:errcheck // Best effort cleanup on error
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return file.Close()
}

func writeJSON(path string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
