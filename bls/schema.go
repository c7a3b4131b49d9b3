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

package bls

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// API status strings in the response envelope.
const (
	StatusSucceeded    = "REQUEST_SUCCEEDED"
	StatusNotProcessed = "REQUEST_NOT_PROCESSED"
)

// RequestFlags are the optional enrichment switches of a data request.
type RequestFlags struct {
	Catalog       bool // include per-series catalog metadata
	Calculations  bool // include net and percent changes
	AnnualAverage bool // include annual average (M13) observations
	Aspects       bool // include observation aspects
}

// seriesRequest is the JSON payload POSTed to the timeseries endpoint.
type seriesRequest struct {
	SeriesID        []string `json:"seriesid"`
	RegistrationKey string   `json:"registrationkey,omitempty"`
	StartYear       string   `json:"startyear,omitempty"`
	EndYear         string   `json:"endyear,omitempty"`
	Catalog         bool     `json:"catalog,omitempty"`
	Calculations    bool     `json:"calculations,omitempty"`
	AnnualAverage   bool     `json:"annualaverage,omitempty"`
	Aspects         bool     `json:"aspects,omitempty"`
}

func newSeriesRequest(chunk Chunk, key string, flags RequestFlags) seriesRequest {
	req := seriesRequest{
		SeriesID:        chunk.SeriesIDs,
		RegistrationKey: key,
		Catalog:         flags.Catalog,
		Calculations:    flags.Calculations,
		AnnualAverage:   flags.AnnualAverage,
		Aspects:         flags.Aspects,
	}
	if !chunk.Years.IsZero() {
		req.StartYear = strconv.Itoa(chunk.Years.Start)
		req.EndYear = strconv.Itoa(chunk.Years.End)
	}
	return req
}

// Footnote annotates an observation, e.g. a preliminary-value marker.
type Footnote struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// Calculations are the optional derived changes of an observation.
type Calculations struct {
	NetChanges map[string]string `json:"net_changes"`
	PctChanges map[string]string `json:"pct_changes"`
}

// Observation is a single raw data point of a series. All numeric fields
// arrive as strings on the wire.
type Observation struct {
	Year         string        `json:"year"`
	Period       string        `json:"period"`
	PeriodName   string        `json:"periodName"`
	Latest       string        `json:"latest,omitempty"`
	Value        string        `json:"value"`
	Footnotes    []Footnote    `json:"footnotes,omitempty"`
	Calculations *Calculations `json:"calculations,omitempty"`
}

// Catalog is the per-series metadata returned when the catalog flag is set.
type Catalog struct {
	SeriesTitle     string `json:"series_title"`
	SeriesID        string `json:"series_id"`
	SurveyName      string `json:"survey_name"`
	MeasureDataType string `json:"measure_data_type"`
	Seasonality     string `json:"seasonality"`
	Area            string `json:"area"`
	Item            string `json:"item"`
}

// Series is one series block of a response: its identifier, optional catalog
// metadata, and raw observations.
type Series struct {
	ID      string        `json:"seriesID"`
	Catalog *Catalog      `json:"catalog,omitempty"`
	Data    []Observation `json:"data"`
}

// SeriesResponse is the full envelope of the timeseries endpoint.
type SeriesResponse struct {
	Status       string   `json:"status"`
	ResponseTime int      `json:"responseTime"`
	Message      []string `json:"message"`
	Results      struct {
		Series []Series `json:"series"`
	} `json:"Results"`
}

// Succeeded reports whether the API accepted and processed the request.
func (r *SeriesResponse) Succeeded() bool { return r.Status == StatusSucceeded }

// TestSeriesResponse creates a successful response JSON string for the given
// series, for use as a fake server response in tests. Each value of data maps
// a series ID to its observations.
func TestSeriesResponse(data map[string][]Observation, ids ...string) string {
	var resp SeriesResponse
	resp.Status = StatusSucceeded
	for _, id := range ids {
		resp.Results.Series = append(resp.Results.Series, Series{
			ID:   id,
			Data: data[id],
		})
	}
	out, err := json.Marshal(resp)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal test response: %s", err))
	}
	return string(out)
}

// TestObservation creates a raw observation for tests.
func TestObservation(year int, period, value string) Observation {
	return Observation{
		Year:   strconv.Itoa(year),
		Period: period,
		Value:  value,
	}
}
