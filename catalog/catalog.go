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

// Package catalog implements the local CPI series master list: the reference
// table of canonical series identifiers and their descriptive fields. It backs
// the pattern expansion of the series resolver ("all areas for an item" style
// queries) and series title lookups.
//
// The master list is a CSV file in the layout produced by merging the BLS
// cu.series, cu.area and cu.item reference tables. Columns are matched by
// header name; only series_id is mandatory.
package catalog

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/stockparfait/errors"
)

// Entry is one master list row: a canonical series identifier with its
// descriptive code fields.
type Entry struct {
	SeriesID    string
	AreaCode    string
	ItemCode    string
	Seasonality string // S = seasonally adjusted, U = unadjusted
	Periodicity string // R = monthly, S = semi-annual
	SeriesTitle string
	AreaName    string
	ItemName    string
}

// field returns the value of the canonical filter field, or ok=false for an
// unknown field name.
func (e Entry) field(name string) (string, bool) {
	switch name {
	case "series_id":
		return e.SeriesID, true
	case "area_code":
		return e.AreaCode, true
	case "item_code":
		return e.ItemCode, true
	case "seasonality_code":
		return e.Seasonality, true
	case "periodicity_code":
		return e.Periodicity, true
	}
	return "", false
}

// CanonField maps accepted filter spellings to master list column names. The
// short forms are what pattern tokens typically use; the long forms match the
// CSV header.
func CanonField(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "series", "series_id", "seriesid":
		return "series_id", true
	case "area", "area_code":
		return "area_code", true
	case "item", "item_code":
		return "item_code", true
	case "seasonality", "seasonality_code", "seasonal":
		return "seasonality_code", true
	case "periodicity", "periodicity_code":
		return "periodicity_code", true
	}
	return "", false
}

// Catalog is an immutable, ordered master list. Safe for unsynchronized
// concurrent reads.
type Catalog struct {
	entries []Entry
	byID    map[string]int
}

// Load reads the master list CSV from a file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open catalog file '%s'", path)
	}
	defer f.Close()
	c, err := Read(f)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read catalog file '%s'", path)
	}
	return c, nil
}

// columnMap maps known header names to their column index, -1 when absent.
func columnMap(header []string) map[string]int {
	m := map[string]int{
		"series_id":        -1,
		"area_code":        -1,
		"item_code":        -1,
		"seasonality_code": -1,
		"periodicity_code": -1,
		"series_title":     -1,
		"area_name":        -1,
		"item_name":        -1,
	}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, ok := m[h]; ok {
			m[h] = i
		}
	}
	return m
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Read parses the master list CSV from r. The first row must be a header
// containing at least a series_id column; rows with an empty series identifier
// are malformed.
func Read(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged trailing columns are tolerated
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Annotate(err, "failed to read header row")
	}
	cols := columnMap(header)
	if cols["series_id"] < 0 {
		return nil, errors.Reason("header has no series_id column: %v", header)
	}
	c := Catalog{byID: make(map[string]int)}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Annotate(err, "failed to read row %d", line)
		}
		e := Entry{
			SeriesID:    cell(row, cols["series_id"]),
			AreaCode:    cell(row, cols["area_code"]),
			ItemCode:    cell(row, cols["item_code"]),
			Seasonality: cell(row, cols["seasonality_code"]),
			Periodicity: cell(row, cols["periodicity_code"]),
			SeriesTitle: cell(row, cols["series_title"]),
			AreaName:    cell(row, cols["area_name"]),
			ItemName:    cell(row, cols["item_name"]),
		}
		if e.SeriesID == "" {
			return nil, errors.Reason("row %d has an empty series_id", line)
		}
		if _, ok := c.byID[e.SeriesID]; ok {
			continue // duplicate master list rows carry no new information
		}
		c.byID[e.SeriesID] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return &c, nil
}

// Size returns the number of catalog entries.
func (c *Catalog) Size() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Lookup finds the entry for a series identifier.
func (c *Catalog) Lookup(seriesID string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	i, ok := c.byID[seriesID]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Select returns the entries matching all the filters, in master list order.
// Filter keys are canonical column names (see CanonField); an unknown key
// fails rather than silently matching nothing.
func (c *Catalog) Select(filters map[string]string) ([]Entry, error) {
	if c == nil {
		return nil, errors.Reason("no catalog loaded")
	}
	var selected []Entry
	for _, e := range c.entries {
		match := true
		for name, want := range filters {
			have, ok := e.field(name)
			if !ok {
				return nil, errors.Reason("unknown catalog field '%s'", name)
			}
			if have != want {
				match = false
				break
			}
		}
		if match {
			selected = append(selected, e)
		}
	}
	return selected, nil
}
