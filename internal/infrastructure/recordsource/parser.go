package recordsource

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// row is one data row below the detected header, with cells keyed by
// column name. Line numbers are 1-indexed over the whole file.
type row struct {
	line  int
	cells map[string]string
}

func (r row) get(column string) string {
	return strings.TrimSpace(r.cells[column])
}

// has reports whether every named column holds a non-empty value.
func (r row) has(columns ...string) bool {
	for _, c := range columns {
		if r.get(c) == "" {
			return false
		}
	}
	return true
}

// parseRows reads the file and locates the header row: exported legacy
// sheets often carry title or summary lines above the real header, so
// the first row containing every required column wins. Rows above the
// header are discarded; rows below are mapped by column name.
func parseRows(data []byte, required []string) ([]row, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var (
		headers []string
		rows    []row
		line    int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line+1, err)
		}
		line++

		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}

		if headers == nil {
			if containsAll(record, required) {
				headers = record
			}
			continue
		}

		cells := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				cells[h] = record[i]
			}
		}
		rows = append(rows, row{line: line, cells: cells})
	}

	if headers == nil {
		return nil, fmt.Errorf("%w: %s", ErrHeaderNotFound, strings.Join(required, ", "))
	}
	return rows, nil
}

func containsAll(record, required []string) bool {
	for _, want := range required {
		found := false
		for _, cell := range record {
			if cell == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// detectDelimiter picks semicolon when the first line carries more
// semicolons than commas. Legacy exports use either, depending on the
// workstation locale.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
