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
	"fmt"

	"github.com/stockparfait/errors"
)

// YearRange is an inclusive [Start, End] span of calendar years. The zero
// value means "no explicit range": the API then returns its default window of
// recent data.
type YearRange struct {
	Start int
	End   int
}

// NewYearRange creates a validated year range.
func NewYearRange(start, end int) (YearRange, error) {
	if start > end {
		return YearRange{}, errors.Reason(
			"start year %d is after end year %d", start, end)
	}
	return YearRange{Start: start, End: end}, nil
}

// IsZero reports whether the range was left unset.
func (y YearRange) IsZero() bool { return y.Start == 0 && y.End == 0 }

// NumYears returns the number of calendar years covered, 0 for the zero
// range.
func (y YearRange) NumYears() int {
	if y.IsZero() {
		return 0
	}
	return y.End - y.Start + 1
}

func (y YearRange) String() string {
	if y.IsZero() {
		return "default"
	}
	return fmt.Sprintf("%d-%d", y.Start, y.End)
}

// Limits are the per-request caps imposed by the API.
type Limits struct {
	SeriesPerRequest int
	YearsPerRequest  int
}

// DefaultLimits returns the documented caps of the v2 API for registered
// users.
func DefaultLimits() Limits {
	return Limits{SeriesPerRequest: 50, YearsPerRequest: 20}
}

// Chunk is a single API-compliant request unit: a group of series
// identifiers and a year sub-range, each within the limits.
type Chunk struct {
	SeriesIDs []string
	Years     YearRange
}

func (c Chunk) String() string {
	return fmt.Sprintf("%d series, years %s", len(c.SeriesIDs), c.Years)
}

// splitYears cuts a year range into consecutive sub-ranges of at most
// maxYears years each. The zero range yields itself.
func splitYears(years YearRange, maxYears int) []YearRange {
	if years.IsZero() {
		return []YearRange{years}
	}
	var out []YearRange
	for start := years.Start; start <= years.End; start += maxYears {
		end := start + maxYears - 1
		if end > years.End {
			end = years.End
		}
		out = append(out, YearRange{Start: start, End: end})
	}
	return out
}

// Plan splits a series list and a year range into the minimal sequence of
// API-compliant chunks: identifier groups of at most limits.SeriesPerRequest
// crossed with year sub-ranges of at most limits.YearsPerRequest, in
// group-major order. Every identifier appears in exactly one group and the
// sub-ranges tile the year range exactly.
func Plan(seriesIDs []string, years YearRange, limits Limits) ([]Chunk, error) {
	if len(seriesIDs) == 0 {
		return nil, errors.Reason("no series identifiers to plan")
	}
	if limits.SeriesPerRequest <= 0 || limits.YearsPerRequest <= 0 {
		return nil, errors.Reason("invalid limits: %+v", limits)
	}
	subranges := splitYears(years, limits.YearsPerRequest)
	var chunks []Chunk
	for start := 0; start < len(seriesIDs); start += limits.SeriesPerRequest {
		end := start + limits.SeriesPerRequest
		if end > len(seriesIDs) {
			end = len(seriesIDs)
		}
		for _, sub := range subranges {
			chunks = append(chunks, Chunk{
				SeriesIDs: seriesIDs[start:end],
				Years:     sub,
			})
		}
	}
	return chunks, nil
}
