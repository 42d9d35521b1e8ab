package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrBadFormat indicates an upload that could not be parsed under any known
// delimiter.
var ErrBadFormat = fmt.Errorf("unparseable delimited file")

// ReadCSV parses a delimited text file into a Table. The delimiter is
// auto-detected (comma, then semicolon) and non-UTF-8 input falls back to a
// Latin-1 decode. Numeric-looking cells are parsed to float64; empty cells
// become missing values.
func ReadCSV(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if !utf8.Valid(raw) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: undecodable bytes", ErrBadFormat)
		}
		raw = decoded
	}

	for _, sep := range []rune{',', ';'} {
		t, err := parseDelimited(raw, sep)
		if err != nil {
			continue
		}
		// A single-column result whose header still contains the other
		// delimiter means we guessed wrong; let the next pass try.
		if len(t.Columns) == 1 && sep == ',' && strings.ContainsRune(t.Columns[0], ';') {
			continue
		}
		return t, nil
	}
	return nil, ErrBadFormat
}

func parseDelimited(raw []byte, sep rune) (*Table, error) {
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	header := records[0]
	t := NewTable(header)
	for _, rec := range records[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if i >= len(rec) {
				row[col] = nil
				continue
			}
			row[col] = parseCell(rec[i])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// parseCell converts one raw field to a typed cell value.
func parseCell(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return trimmed
}
