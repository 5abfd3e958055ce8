package importer

import (
	"bytes"
	"encoding/csv"
	"strings"
	"unicode/utf8"
)

// PreviewRowLimit bounds the sample rows returned by ParsePreview.
const PreviewRowLimit = 5

// parseCSV parses raw CSV bytes after UTF-8 sanitization. Ragged rows
// are tolerated (FieldsPerRecord disabled) because real-world contact
// exports frequently have them; genuine syntax errors are wrapped in
// *ParseError with the parser's message intact.
func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(sanitizeUTF8(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return records, nil
}

// splitRecords separates the header row from non-empty data rows.
// Headers are trimmed. Blank lines are dropped so row counts and row
// indices stay stable between preview, session creation, and the
// processing pass.
func splitRecords(records [][]string) (headers []string, rows [][]string) {
	if len(records) == 0 {
		return nil, nil
	}

	headers = make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	for _, row := range records[1:] {
		if isEmptyRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// rowMap pairs a data row with the header row, producing the
// header -> raw value mapping the normalizer consumes. Extra cells
// without a header are dropped; missing cells are absent.
func rowMap(headers []string, row []string) map[string]string {
	m := make(map[string]string, len(headers))
	for i, h := range headers {
		if h == "" || i >= len(row) {
			continue
		}
		m[h] = row[i]
	}
	return m
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with the replacement
// character. Contact exports from legacy tools regularly contain
// Windows-1252 bytes that would otherwise corrupt downstream JSON.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
