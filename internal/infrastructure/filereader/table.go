package filereader

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
)

// TableResult is the response of reading a CSV or TSV file.
type TableResult struct {
	Columns   []string            `json:"columns"`
	Data      []map[string]string `json:"data"`
	RowCount  int                 `json:"row_count"`
	LimitedTo any                 `json:"limited_to"`
}

func delimiterFor(ext, override string) rune {
	if override != "" {
		return []rune(override)[0]
	}
	if ext == ".tsv" {
		return '\t'
	}
	return ','
}

func openTable(path string, delimiter rune) (*csv.Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, readError(err)
	}
	r := csv.NewReader(f)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = delimiter != '\t'
	return r, f, nil
}

// eachRow calls fn for every data row keyed by header until fn returns false.
func eachRow(path string, delimiter rune, fn func(header []string, row map[string]string) bool) ([]string, error) {
	r, f, err := openTable(path, delimiter)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []string{}, nil
	}
	if err != nil {
		return nil, readError(err)
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return header, nil
		}
		if err != nil {
			return nil, readError(err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		if !fn(header, row) {
			return header, nil
		}
	}
}

func readTable(path string, delimiter rune, limit int) (*TableResult, error) {
	data := []map[string]string{}
	header, err := eachRow(path, delimiter, func(_ []string, row map[string]string) bool {
		data = append(data, row)
		return limit <= 0 || len(data) < limit
	})
	if err != nil {
		return nil, err
	}

	var limitedTo any = "all"
	if limit > 0 {
		limitedTo = limit
	}
	return &TableResult{Columns: header, Data: data, RowCount: len(data), LimitedTo: limitedTo}, nil
}

func searchTable(path string, delimiter rune, match func(string) bool) ([]map[string]string, error) {
	matches := []map[string]string{}
	_, err := eachRow(path, delimiter, func(header []string, row map[string]string) bool {
		for _, col := range header {
			if match(row[col]) {
				matches = append(matches, row)
				break
			}
		}
		return true
	})
	return matches, err
}
