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
	"encoding/json"
	"testing"

	"github.com/blsquery/blsquery/bls"
	"github.com/blsquery/blsquery/series"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	resolution := &series.Resolution{
		SeriesIDs: []string{"CUUR0000SA0"},
		Aliases:   map[string][]string{"CUUR0000SA0": {"cpi_all_items"}},
	}

	Convey("normalizeResponse", t, func() {
		Convey("converts observations with metadata and footnotes", func() {
			raw := `{
  "status": "REQUEST_SUCCEEDED",
  "Results": {"series": [{
    "seriesID": "CUUR0000SA0",
    "catalog": {
      "series_title": "All items in U.S. city average",
      "survey_name": "CPI-U",
      "measure_data_type": "All items",
      "seasonality": "Not Seasonally Adjusted",
      "area": "U.S. city average",
      "item": "All items"
    },
    "data": [
      {"year": "2024", "period": "M12", "periodName": "December",
       "latest": "true", "value": "315.605",
       "footnotes": [{"code": "P", "text": "Preliminary"}, {"code": "R"}]},
      {"year": "2024", "period": "M11", "periodName": "November", "value": "315.493",
       "footnotes": [{}]}
    ]
  }]}
}`
			var resp bls.SeriesResponse
			So(json.Unmarshal([]byte(raw), &resp), ShouldBeNil)

			records, err := normalizeResponse(&resp, resolution)
			So(err, ShouldBeNil)
			So(len(records), ShouldEqual, 2)

			So(records[0], ShouldResemble, TidyRecord{
				SeriesID:        "CUUR0000SA0",
				Alias:           "cpi_all_items",
				Year:            2024,
				Period:          "M12",
				PeriodName:      "December",
				Value:           315.605,
				Valid:           true,
				Latest:          true,
				Seasonality:     "Not Seasonally Adjusted",
				SeriesTitle:     "All items in U.S. city average",
				SurveyName:      "CPI-U",
				MeasureDataType: "All items",
				Area:            "U.S. city average",
				Item:            "All items",
				Footnotes:       "Preliminary; R",
			})
			So(records[1].Latest, ShouldBeFalse)
			So(records[1].Footnotes, ShouldEqual, "")
		})

		Convey("missing values yield invalid records", func() {
			resp := &bls.SeriesResponse{Status: bls.StatusSucceeded}
			resp.Results.Series = []bls.Series{{
				ID: "CUUR0000SA0",
				Data: []bls.Observation{
					bls.TestObservation(2024, "M01", "-"),
					bls.TestObservation(2024, "M02", ""),
					bls.TestObservation(2024, "M03", "310.326"),
				},
			}}
			records, err := normalizeResponse(resp, resolution)
			So(err, ShouldBeNil)
			So(records[0].Valid, ShouldBeFalse)
			So(records[0].Value, ShouldEqual, 0.0)
			So(records[1].Valid, ShouldBeFalse)
			So(records[2].Valid, ShouldBeTrue)
			So(records[2].Value, ShouldEqual, 310.326)
		})

		Convey("unparseable year fails with a NormalizationError", func() {
			resp := &bls.SeriesResponse{Status: bls.StatusSucceeded}
			resp.Results.Series = []bls.Series{{
				ID:   "CUUR0000SA0",
				Data: []bls.Observation{{Year: "not-a-year", Period: "M01", Value: "1"}},
			}}
			_, err := normalizeResponse(resp, resolution)
			So(err, ShouldNotBeNil)
			ne, ok := err.(*NormalizationError)
			So(ok, ShouldBeTrue)
			So(ne.SeriesID, ShouldEqual, "CUUR0000SA0")
		})

		Convey("unparseable value fails with a NormalizationError", func() {
			resp := &bls.SeriesResponse{Status: bls.StatusSucceeded}
			resp.Results.Series = []bls.Series{{
				ID:   "CUUR0000SA0",
				Data: []bls.Observation{bls.TestObservation(2024, "M01", "N/A%")},
			}}
			_, err := normalizeResponse(resp, resolution)
			So(err, ShouldHaveSameTypeAs, &NormalizationError{})
		})

		Convey("literal identifiers have no alias", func() {
			resp := &bls.SeriesResponse{Status: bls.StatusSucceeded}
			resp.Results.Series = []bls.Series{{
				ID:   "CES0000000001",
				Data: []bls.Observation{bls.TestObservation(2024, "M01", "158.6")},
			}}
			records, err := normalizeResponse(resp, resolution)
			So(err, ShouldBeNil)
			So(records[0].Alias, ShouldEqual, "")
		})
	})
}
