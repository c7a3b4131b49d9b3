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

package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blsquery/blsquery/bls"
	"github.com/blsquery/blsquery/series"
	"github.com/stockparfait/errors"
)

// TidyRecord is one observation in tidy form: a single (series, year, period)
// cell with its metadata denormalized onto the row.
type TidyRecord struct {
	SeriesID   string
	Alias      string
	Year       int
	Period     string // e.g. "M01", "Q02", "A01"
	PeriodName string // e.g. "January"
	Value      float64
	Valid      bool // false when the source value was missing
	Latest     bool
	// Catalog metadata, present when the request asked for it.
	Seasonality     string
	SeriesTitle     string
	SurveyName      string
	MeasureDataType string
	Area            string
	Item            string
	Footnotes       string // footnote texts joined with "; "
}

// NormalizationError reports a response value that could not be converted to
// tidy form.
type NormalizationError struct {
	SeriesID string
	Err      error
}

var _ error = &NormalizationError{}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("failed to normalize series %s: %s", e.SeriesID, e.Err.Error())
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// footnoteText joins the footnote texts with "; ", falling back to the code
// when a footnote carries no text.
func footnoteText(fns []bls.Footnote) string {
	var texts []string
	for _, fn := range fns {
		switch {
		case fn.Text != "":
			texts = append(texts, fn.Text)
		case fn.Code != "":
			texts = append(texts, fn.Code)
		}
	}
	return strings.Join(texts, "; ")
}

// normalizeObservation converts one raw observation. Missing source values
// ("-" or empty) yield a record with Valid == false.
func normalizeObservation(s bls.Series, obs bls.Observation, alias string) (TidyRecord, error) {
	year, err := strconv.Atoi(strings.TrimSpace(obs.Year))
	if err != nil {
		return TidyRecord{}, &NormalizationError{
			SeriesID: s.ID,
			Err:      errors.Reason("unparseable year %q", obs.Year),
		}
	}
	rec := TidyRecord{
		SeriesID:   s.ID,
		Alias:      alias,
		Year:       year,
		Period:     obs.Period,
		PeriodName: obs.PeriodName,
		Latest:     obs.Latest == "true",
		Footnotes:  footnoteText(obs.Footnotes),
	}
	if v := strings.TrimSpace(obs.Value); v != "" && v != "-" {
		value, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return TidyRecord{}, &NormalizationError{
				SeriesID: s.ID,
				Err:      errors.Reason("unparseable value %q", obs.Value),
			}
		}
		rec.Value = value
		rec.Valid = true
	}
	if c := s.Catalog; c != nil {
		rec.Seasonality = c.Seasonality
		rec.SeriesTitle = c.SeriesTitle
		rec.SurveyName = c.SurveyName
		rec.MeasureDataType = c.MeasureDataType
		rec.Area = c.Area
		rec.Item = c.Item
	}
	return rec, nil
}

// normalizeResponse converts all series of one chunk response to tidy
// records, in response order. Aliases are attached from the resolution.
func normalizeResponse(resp *bls.SeriesResponse, res *series.Resolution) ([]TidyRecord, error) {
	var records []TidyRecord
	for _, s := range resp.Results.Series {
		alias := res.Alias(s.ID)
		for _, obs := range s.Data {
			rec, err := normalizeObservation(s, obs, alias)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return records, nil
}
