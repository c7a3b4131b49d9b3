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

// Package series resolves user-supplied series tokens into canonical BLS
// series identifiers.
//
// A token is one of:
//   - an alias defined in a mapping file, compared case- and
//     punctuation-insensitively ("CPI All Items" == "cpi_all_items");
//   - a pattern of the form "CU:field=value[,field=value...]" expanded
//     against the CPI master list (see the catalog package);
//   - a literal series identifier, passed through unchanged.
//
// Resolution is all-or-nothing: any unresolvable token fails the whole call
// with a *ResolutionError before any network activity happens.
package series

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/blsquery/blsquery/catalog"
	"github.com/stockparfait/errors"
)

// patternPrefix is the recognized pattern namespace: the BLS CU survey
// (Consumer Price Index, all urban consumers).
const patternPrefix = "CU"

// Defaults substituted into the CU identifier template when a pattern does not
// constrain them and no catalog is available.
const (
	defaultSeasonality = "U" // not seasonally adjusted
	defaultPeriodicity = "R" // monthly
)

// NormKey normalizes an alias for lookup: casefolded with spaces and common
// punctuation removed.
func NormKey(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch r {
		case '-', '_', ' ', '.', '/':
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Mapping is the immutable alias table: normalized alias -> series
// identifiers in insertion order.
type Mapping map[string][]string

// Add maps an alias to one more series identifier, preserving insertion order
// and skipping exact duplicates.
func (m Mapping) Add(alias, seriesID string) {
	key := NormKey(alias)
	for _, sid := range m[key] {
		if sid == seriesID {
			return
		}
	}
	m[key] = append(m[key], seriesID)
}

// ResolutionError reports the tokens that could not be resolved.
type ResolutionError struct {
	Tokens []string
}

var _ error = &ResolutionError{}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unresolved series tokens: %s", strings.Join(e.Tokens, ", "))
}

// Resolution is the result of resolving a token sequence.
type Resolution struct {
	SeriesIDs []string            // ordered, deduplicated
	Aliases   map[string][]string // series ID -> originating tokens
}

// Alias returns the originating tokens of a series identifier joined with
// "|", or "" for literal identifiers.
func (r *Resolution) Alias(seriesID string) string {
	return strings.Join(r.Aliases[seriesID], "|")
}

// Resolver translates tokens into canonical series identifiers. It is
// immutable after construction and safe for concurrent use.
type Resolver struct {
	mapping Mapping
	catalog *catalog.Catalog
}

// NewResolver creates a resolver over an alias mapping and an optional master
// list catalog. A nil catalog disables pattern expansion except for fully
// constrained patterns, which are built from the identifier template.
func NewResolver(mapping Mapping, cat *catalog.Catalog) *Resolver {
	if mapping == nil {
		mapping = Mapping{}
	}
	return &Resolver{mapping: mapping, catalog: cat}
}

// looksLikeSeriesID reports whether a token is plausibly a literal BLS series
// identifier: letters and digits mixed, 8 to 25 characters.
func looksLikeSeriesID(token string) bool {
	if len(token) < 8 || len(token) > 25 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range token {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// parsePattern splits a "CU:field=value,..." token into its filter map. The
// second value is false when the token is not a pattern at all; a malformed
// pattern (bad pair syntax or unknown field) returns an error.
func parsePattern(token string) (map[string]string, bool, error) {
	head, tail, found := strings.Cut(token, ":")
	if !found || !strings.EqualFold(head, patternPrefix) {
		return nil, false, nil
	}
	filters := make(map[string]string)
	if strings.TrimSpace(tail) == "" {
		return filters, true, nil
	}
	for _, pair := range strings.Split(tail, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(value) == "" {
			return nil, true, errors.Reason(
				"malformed pattern '%s': expected field=value, got '%s'", token, pair)
		}
		field, ok := catalog.CanonField(name)
		if !ok {
			return nil, true, errors.Reason(
				"malformed pattern '%s': unknown field '%s'", token, name)
		}
		filters[field] = strings.TrimSpace(value)
	}
	return filters, true, nil
}

// expandPattern resolves a pattern token to series identifiers: against the
// catalog when one is loaded, otherwise by substituting a fully constrained
// filter set into the CU identifier template.
func (r *Resolver) expandPattern(token string, filters map[string]string) ([]string, error) {
	if r.catalog.Size() > 0 {
		entries, err := r.catalog.Select(filters)
		if err != nil {
			return nil, errors.Annotate(err, "failed to expand pattern '%s'", token)
		}
		if len(entries) == 0 {
			return nil, errors.Reason("pattern '%s' matches no catalog series", token)
		}
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.SeriesID
		}
		return ids, nil
	}
	area := filters["area_code"]
	item := filters["item_code"]
	if area == "" || item == "" {
		return nil, errors.Reason(
			"pattern '%s' needs a catalog, or explicit area and item values", token)
	}
	seasonality := filters["seasonality_code"]
	if seasonality == "" {
		seasonality = defaultSeasonality
	}
	periodicity := filters["periodicity_code"]
	if periodicity == "" {
		periodicity = defaultPeriodicity
	}
	return []string{patternPrefix + seasonality + periodicity + area + item}, nil
}

// Resolve translates tokens into an ordered, deduplicated identifier sequence
// with a reverse alias map. All unresolvable tokens are collected and
// reported in a single *ResolutionError.
func (r *Resolver) Resolve(tokens []string) (*Resolution, error) {
	res := Resolution{Aliases: make(map[string][]string)}
	seen := make(map[string]bool)
	var unknown []string

	add := func(seriesID, token string, aliased bool) {
		if aliased {
			res.Aliases[seriesID] = append(res.Aliases[seriesID], token)
		}
		if !seen[seriesID] {
			seen[seriesID] = true
			res.SeriesIDs = append(res.SeriesIDs, seriesID)
		}
	}

	for _, raw := range tokens {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		if filters, isPattern, err := parsePattern(token); isPattern {
			if err != nil {
				unknown = append(unknown, token)
				continue
			}
			ids, err := r.expandPattern(token, filters)
			if err != nil {
				unknown = append(unknown, token)
				continue
			}
			for _, sid := range ids {
				add(sid, token, true)
			}
			continue
		}
		if ids, ok := r.mapping[NormKey(token)]; ok {
			for _, sid := range ids {
				add(sid, token, true)
			}
			continue
		}
		if looksLikeSeriesID(token) {
			add(token, token, false)
			continue
		}
		unknown = append(unknown, token)
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		deduped := unknown[:1]
		for _, u := range unknown[1:] {
			if u != deduped[len(deduped)-1] {
				deduped = append(deduped, u)
			}
		}
		return nil, &ResolutionError{Tokens: deduped}
	}
	if len(res.SeriesIDs) == 0 {
		return nil, errors.Reason("no series tokens provided")
	}
	return &res, nil
}
