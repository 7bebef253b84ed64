// Package sheet turns row-shaped spreadsheet exports into dashboard tables.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RawRow maps a header to its cell text. A nil cell is null.
type RawRow map[string]*string

// RowSet is a header line plus the rows keyed by it, in source order.
type RowSet struct {
	Header []string
	Rows   []RawRow
}

// Cell returns the text stored under column and whether it is non-null.
func (r RawRow) Cell(column string) (string, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// ReadCSV tokenizes comma-separated text whose first record is the header.
// Short rows leave trailing columns null; cells past the header are dropped.
func ReadCSV(r io.Reader) (RowSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return RowSet{}, fmt.Errorf("read csv record: %w", err)
		}
		records = append(records, record)
	}
	return FromRecords(records), nil
}

// ReadXLSX reads the named sheet (the first one when name is empty) of a workbook.
func ReadXLSX(r io.Reader, name string) (RowSet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return RowSet{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if name == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return RowSet{}, errors.New("workbook has no sheets")
		}
		name = sheets[0]
	}
	records, err := f.GetRows(name)
	if err != nil {
		return RowSet{}, fmt.Errorf("read sheet %q: %w", name, err)
	}
	return FromRecords(records), nil
}

// FromRecords builds a RowSet from tokenized records, the first being the header.
func FromRecords(records [][]string) RowSet {
	if len(records) == 0 {
		return RowSet{}
	}
	header := uniqueHeader(records[0])
	set := RowSet{Header: header, Rows: make([]RawRow, 0, len(records)-1)}
	for _, record := range records[1:] {
		row := make(RawRow, len(header))
		for i, column := range header {
			if i >= len(record) {
				row[column] = nil
				continue
			}
			cell := record[i]
			row[column] = &cell
		}
		set.Rows = append(set.Rows, row)
	}
	return set
}

// NewRowSet builds a RowSet from a header and nullable cells, as produced by a SQL query.
func NewRowSet(header []string, cells [][]*string) RowSet {
	header = uniqueHeader(header)
	set := RowSet{Header: header, Rows: make([]RawRow, 0, len(cells))}
	for _, record := range cells {
		row := make(RawRow, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = record[i]
			} else {
				row[column] = nil
			}
		}
		set.Rows = append(set.Rows, row)
	}
	return set
}

// uniqueHeader strips a byte order mark and suffixes repeated names with _1, _2...
func uniqueHeader(raw []string) []string {
	header := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	suffix := make(map[string]int)
	for i, name := range raw {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		candidate := name
		for used[candidate] {
			suffix[name]++
			candidate = name + "_" + strconv.Itoa(suffix[name])
		}
		used[candidate] = true
		header[i] = candidate
	}
	return header
}
