package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrMissingColumns is returned when a file lacks a required column
var ErrMissingColumns = errors.New("missing required columns")

// RowError describes a row that could not be parsed
type RowError struct {
	File string
	Row  int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.File, e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

var candidateDelimiters = []rune{'\t', ';', ',', '|'}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// readText returns the content of path as UTF-8. A leading byte-order mark is
// dropped and content that is not valid UTF-8 is decoded as Windows-1252.
func readText(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return decoded, nil
}

// sniffDelimiter picks the most frequent candidate delimiter on the first
// non-empty line, or fallback when none occurs.
func sniffDelimiter(data []byte, fallback rune) rune {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		best, bestCount := fallback, 0
		for _, d := range candidateDelimiters {
			if n := strings.Count(line, string(d)); n > bestCount {
				best, bestCount = d, n
			}
		}
		return best
	}
	return fallback
}

// normalizeHeader lower-cases a column name and drops spaces, underscores and
// hyphens, so "Order Code", "order_code" and "ORDERCODE" compare equal.
func normalizeHeader(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch r {
		case ' ', '_', '-', '\u00a0', '\ufeff':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// column describes a logical column and the header names accepted for it
type column struct {
	name     string
	aliases  []string
	required bool
}

// record is one data row with its line number in the source file
type record struct {
	line   int
	fields []string
	index  map[string]int
}

// get returns the trimmed value of a logical column, or "" when absent
func (r record) get(name string) string {
	i, ok := r.index[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r record) has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// table is a delimited file resolved against a set of logical columns
type table struct {
	path    string
	records []record
}

// readTable reads a delimited file with a header row. Every required column
// must be present in the header.
func readTable(path string, fallback rune, columns []column) (*table, error) {
	data, err := readText(path)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data, fallback)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s is empty or has no header", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	positions := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := positions[normalizeHeader(h)]; !dup {
			positions[normalizeHeader(h)] = i
		}
	}

	index := make(map[string]int, len(columns))
	var missing []string
	for _, c := range columns {
		found := false
		for _, alias := range append([]string{c.name}, c.aliases...) {
			if i, ok := positions[normalizeHeader(alias)]; ok {
				index[c.name] = i
				found = true
				break
			}
		}
		if !found && c.required {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: %s (found %s)", path, ErrMissingColumns,
			strings.Join(missing, ", "), strings.Join(header, ", "))
	}

	t := &table{path: path}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if blank(fields) {
			continue
		}
		line, _ := reader.FieldPos(0)
		t.records = append(t.records, record{line: line, fields: fields, index: index})
	}
	return t, nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
