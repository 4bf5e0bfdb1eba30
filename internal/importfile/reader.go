// Package importfile decodes timetable import files into loosely typed records.
package importfile

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Format identifies the encoding of an import file.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for file types other than JSON and CSV.
var ErrUnsupportedFormat = errors.New("importfile: unsupported format")

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// FormatFromContentType picks a format from an HTTP Content-Type. Anything
// that is not CSV is read as JSON.
func FormatFromContentType(contentType string) Format {
	mediaType, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	switch strings.TrimSpace(mediaType) {
	case "text/csv", "application/csv":
		return FormatCSV
	default:
		return FormatJSON
	}
}

// Read decodes r according to format.
func Read(r io.Reader, format Format) ([]map[string]any, error) {
	switch format {
	case FormatJSON:
		return ReadJSON(r)
	case FormatCSV:
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ReadJSON accepts either a top-level array of records or an object with a
// "records" array. Numbers are kept as json.Number.
func ReadJSON(r io.Reader) ([]map[string]any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if len(raw) > 0 && raw[0] == '{' {
		var envelope struct {
			Records []map[string]any `json:"records"`
		}
		if err := dec.Decode(&envelope); err != nil {
			return nil, fmt.Errorf("decode import: %w", err)
		}
		return nonNil(envelope.Records), nil
	}

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode import: %w", err)
	}
	return nonNil(records), nil
}

// ReadCSV reads a header row followed by data rows. Header names are used as
// record keys; empty cells are omitted.
func ReadCSV(r io.Reader) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []map[string]any{}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	records := []map[string]any{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(records)+1, err)
		}
		record := make(map[string]any, len(header))
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if cell = strings.TrimSpace(cell); cell != "" {
				record[header[i]] = cell
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func nonNil(records []map[string]any) []map[string]any {
	if records == nil {
		return []map[string]any{}
	}
	return records
}
