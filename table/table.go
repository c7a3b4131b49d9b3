// Copyright 2025 BLS Query Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package table implements the tabular output format of extraction results:
// named columns plus rows, writable as CSV or as human-readable text.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/stockparfait/errors"
)

// Row is a single table row. Implementations render themselves as a slice of
// cells compatible with encoding/csv.
type Row interface {
	CSV() []string
}

// Table is an ordered collection of rows with an optional header.
type Table struct {
	Header []string
	Rows   []Row
}

// NewTable creates a Table with the given column headers. No headers means a
// headless table.
func NewTable(header ...string) *Table {
	return &Table{Header: header}
}

// AddRow appends rows to the table.
func (t *Table) AddRow(rows ...Row) {
	t.Rows = append(t.Rows, rows...)
}

// NumRows returns the number of data rows (the header is not counted).
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// Params control CSV export and text formatting of a Table.
type Params struct {
	Rows        int  // max. number of data rows to write; 0 = all
	NoHeader    bool // suppress the header row
	MaxColWidth int  // WriteText only; 0 = unlimited, otherwise must be >= 4
}

// rowLimit computes the number of data rows to emit under p.
func (t *Table) rowLimit(p Params) int {
	if p.Rows <= 0 || p.Rows > len(t.Rows) {
		return len(t.Rows)
	}
	return p.Rows
}

// WriteCSV writes the table to w in CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader && len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	for _, r := range t.Rows[:t.rowLimit(p)] {
		if err := cw.Write(r.CSV()); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// render materializes the emitted cells: the optional header followed by the
// row limit's worth of data rows.
func (t *Table) render(p Params) [][]string {
	var cells [][]string
	if !p.NoHeader && len(t.Header) > 0 {
		cells = append(cells, t.Header)
	}
	for _, r := range t.Rows[:t.rowLimit(p)] {
		cells = append(cells, r.CSV())
	}
	return cells
}

// colWidths computes per-column display widths, capped at max when max > 0.
func colWidths(cells [][]string, max int) ([]int, error) {
	if len(cells) == 0 {
		return nil, nil
	}
	widths := make([]int, len(cells[0]))
	for _, row := range cells {
		if len(row) != len(widths) {
			return nil, errors.Reason("row size [%d] != expected size [%d]",
				len(row), len(widths))
		}
		for i, cell := range row {
			n := len([]rune(cell))
			if max > 0 && n > max {
				n = max
			}
			if widths[i] < n {
				widths[i] = n
			}
		}
	}
	return widths, nil
}

// clip trims s to width runes, marking the cut with a ".." suffix.
func clip(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-2]) + ".."
}

// WriteText writes the table as right-aligned columns separated by " | ",
// with a dashed line under the header.
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	cells := t.render(p)
	widths, err := colWidths(cells, p.MaxColWidth)
	if err != nil {
		return errors.Annotate(err, "failed to compute column widths")
	}
	writeLine := func(row []string) error {
		padded := make([]string, len(row))
		for i, cell := range row {
			padded[i] = fmt.Sprintf("%*s", widths[i], clip(cell, widths[i]))
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.Join(padded, " | "))
		return err
	}
	for i, row := range cells {
		if err := writeLine(row); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
		if i == 0 && !p.NoHeader && len(t.Header) > 0 {
			dashes := make([]string, len(widths))
			for j, width := range widths {
				dashes[j] = strings.Repeat("-", width)
			}
			if err := writeLine(dashes); err != nil {
				return errors.Annotate(err, "failed to write header separator")
			}
		}
	}
	return nil
}
