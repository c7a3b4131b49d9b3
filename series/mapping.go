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

package series

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/stockparfait/errors"
)

// Candidate header names of the alias and series columns in a mapping CSV.
var (
	aliasColumns  = []string{"alias", "name", "label", "code"}
	seriesColumns = []string{"series", "series_id", "seriesid"}
)

// LoadMapping reads an alias mapping file, dispatching on the file extension:
// ".csv" or ".json".
func LoadMapping(path string) (Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open mapping file '%s'", path)
	}
	defer f.Close()

	var m Mapping
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		m, err = ReadCSVMapping(f)
	case ".json":
		m, err = ReadJSONMapping(f)
	default:
		return nil, errors.Reason("unsupported mapping file extension '%s'", ext)
	}
	if err != nil {
		return nil, errors.Annotate(err, "failed to read mapping file '%s'", path)
	}
	return m, nil
}

// findColumn returns the index in header of the first candidate present, or
// -1 when none is.
func findColumn(header []string, candidates []string) int {
	for _, cand := range candidates {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), cand) {
				return i
			}
		}
	}
	return -1
}

// addSeriesList splits a comma-separated series cell and adds each identifier
// under the alias, preserving order.
func (m Mapping) addSeriesList(alias, cellValue string) bool {
	added := false
	for _, sid := range strings.Split(cellValue, ",") {
		sid = strings.TrimSpace(sid)
		if sid == "" {
			continue
		}
		m.Add(alias, sid)
		added = true
	}
	return added
}

// ReadCSVMapping parses a CSV alias mapping. The header must either contain
// an alias column (alias/name/label/code) and a series column
// (series/series_id/seriesid), or be exactly two columns wide, in which case
// the first column is the alias and the second the series. A series cell may
// hold several comma-separated identifiers, and an alias repeated across rows
// accumulates identifiers in row order.
func ReadCSVMapping(r io.Reader) (Mapping, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Annotate(err, "failed to read header row")
	}
	aliasCol := findColumn(header, aliasColumns)
	seriesCol := findColumn(header, seriesColumns)
	if aliasCol < 0 || seriesCol < 0 {
		if len(header) != 2 {
			return nil, errors.Reason(
				"header must contain alias and series columns, or be exactly two columns; got %v",
				header)
		}
		aliasCol, seriesCol = 0, 1
	}
	m := Mapping{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Annotate(err, "failed to read row %d", line)
		}
		alias := strings.TrimSpace(row[aliasCol])
		if alias == "" {
			return nil, errors.Reason("row %d has an empty alias", line)
		}
		if !m.addSeriesList(alias, row[seriesCol]) {
			return nil, errors.Reason("row %d has no series identifier for alias '%s'",
				line, alias)
		}
	}
	if len(m) == 0 {
		return nil, errors.Reason("mapping has no entries")
	}
	return m, nil
}

// jsonSeriesIDs extracts the series identifier(s) from a JSON mapping value,
// which may be a single string or a list of strings.
func jsonSeriesIDs(v any) ([]string, bool) {
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, false
		}
		return []string{strings.TrimSpace(val)}, true
	case []any:
		var ids []string
		for _, e := range val {
			s, ok := e.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return nil, false
			}
			ids = append(ids, strings.TrimSpace(s))
		}
		return ids, len(ids) > 0
	}
	return nil, false
}

// jsonGroupEntry extracts (alias, ids) from one {"alias": ..., "series": ...}
// style object.
func jsonGroupEntry(g map[string]any) (string, []string, bool) {
	var alias string
	for _, key := range aliasColumns {
		if v, ok := g[key].(string); ok && v != "" {
			alias = v
			break
		}
	}
	if alias == "" {
		return "", nil, false
	}
	for _, key := range seriesColumns {
		if v, ok := g[key]; ok {
			ids, ok := jsonSeriesIDs(v)
			return alias, ids, ok
		}
	}
	return "", nil, false
}

// ReadJSONMapping parses a JSON alias mapping in one of three shapes:
//
//	{"alias": "SERIES_ID", "other": ["ID1", "ID2"]}
//	{"groups": [{"alias": "x", "series_id": "..."}, ...]}
//	[{"alias": "x", "series_id": "..."}, ...]
func ReadJSONMapping(r io.Reader) (Mapping, error) {
	var data any
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Annotate(err, "failed to decode JSON")
	}
	m := Mapping{}
	addGroups := func(groups []any) error {
		for i, raw := range groups {
			g, ok := raw.(map[string]any)
			if !ok {
				return errors.Reason("group %d is not an object", i)
			}
			alias, ids, ok := jsonGroupEntry(g)
			if !ok {
				return errors.Reason("group %d has no usable alias/series pair", i)
			}
			for _, sid := range ids {
				m.Add(alias, sid)
			}
		}
		return nil
	}
	switch data := data.(type) {
	case map[string]any:
		if groups, ok := data["groups"].([]any); ok {
			if err := addGroups(groups); err != nil {
				return nil, err
			}
			break
		}
		for alias, v := range data {
			ids, ok := jsonSeriesIDs(v)
			if !ok {
				return nil, errors.Reason("alias '%s' has no usable series value", alias)
			}
			for _, sid := range ids {
				m.Add(alias, sid)
			}
		}
	case []any:
		if err := addGroups(data); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Reason("unsupported JSON mapping shape: %T", data)
	}
	if len(m) == 0 {
		return nil, errors.Reason("mapping has no entries")
	}
	return m, nil
}
