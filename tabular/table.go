// Package tabular loads binary labeled CSV data and prepares it for
// training: label encoding, standardisation, stratified fold splitting and
// SMOTE oversampling.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	ErrTooFewColumns = errors.New("tabular: need at least two columns, features then label")
	ErrNotBinary     = errors.New("tabular: label column must have exactly two distinct values")
	ErrNoRows        = errors.New("tabular: no data rows")
)

// Table is a loaded data set. The last CSV column is the label, encoded so
// that the lexically first class value is 0. X rows hold the remaining
// columns as float32 features.
type Table struct {
	ColNames []string
	Classes  []string
	X        [][]float32
	Y        []int32
}

// Load reads a CSV table from a local path or, for http(s) paths, from the
// remote server. A header row is detected by non numeric feature cells.
func Load(path string) (*Table, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := resty.New().R().Get(path)
		if err != nil {
			return nil, fmt.Errorf("tabular: fetch %s: %w", path, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("tabular: fetch %s: status %s", path, resp.Status())
		}
		return Read(strings.NewReader(string(resp.Body())))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses CSV data into a table.
func Read(r io.Reader) (*Table, error) {
	rd := csv.NewReader(r)
	rd.TrimLeadingSpace = true
	records, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tabular: parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}
	ncol := len(records[0])
	if ncol < 2 {
		return nil, ErrTooFewColumns
	}
	t := &Table{}
	if hasHeader(records[0]) {
		t.ColNames = records[0]
		records = records[1:]
	} else {
		t.ColNames = make([]string, ncol)
		for i := range t.ColNames {
			t.ColNames[i] = "col" + strconv.Itoa(i)
		}
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}
	labels := make([]string, len(records))
	for i, rec := range records {
		if len(rec) != ncol {
			return nil, fmt.Errorf("tabular: row %d has %d columns, expect %d", i+1, len(rec), ncol)
		}
		row := make([]float32, ncol-1)
		for j, cell := range rec[:ncol-1] {
			v, err := strconv.ParseFloat(cell, 32)
			if err != nil {
				return nil, fmt.Errorf("tabular: row %d col %d: %w", i+1, j, err)
			}
			row[j] = float32(v)
		}
		t.X = append(t.X, row)
		labels[i] = rec[ncol-1]
	}
	if err := t.encodeLabels(labels); err != nil {
		return nil, err
	}
	return t, nil
}

// header if any feature cell does not parse as a number
func hasHeader(rec []string) bool {
	for _, cell := range rec[:len(rec)-1] {
		if _, err := strconv.ParseFloat(cell, 32); err != nil {
			return true
		}
	}
	return false
}

func (t *Table) encodeLabels(labels []string) error {
	seen := map[string]bool{}
	for _, l := range labels {
		seen[l] = true
	}
	if len(seen) != 2 {
		return fmt.Errorf("%w: have %d", ErrNotBinary, len(seen))
	}
	t.Classes = make([]string, 0, 2)
	for l := range seen {
		t.Classes = append(t.Classes, l)
	}
	sort.Strings(t.Classes)
	t.Y = make([]int32, len(labels))
	for i, l := range labels {
		if l == t.Classes[1] {
			t.Y[i] = 1
		}
	}
	return nil
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.X) }

// Nfeatures is the number of feature columns.
func (t *Table) Nfeatures() int {
	if len(t.X) == 0 {
		return 0
	}
	return len(t.X[0])
}

// ClassCounts returns the number of rows per encoded class.
func (t *Table) ClassCounts() (n0, n1 int) {
	for _, y := range t.Y {
		if y == 1 {
			n1++
		} else {
			n0++
		}
	}
	return
}

// Select returns copies of the rows and labels at the given indices.
func (t *Table) Select(indexes []int) (x [][]float32, y []int32) {
	x = make([][]float32, len(indexes))
	y = make([]int32, len(indexes))
	for i, ix := range indexes {
		x[i] = append([]float32{}, t.X[ix]...)
		y[i] = t.Y[ix]
	}
	return x, y
}
