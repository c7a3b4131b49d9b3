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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestChunks(t *testing.T) {
	t.Parallel()

	Convey("NewYearRange", t, func() {
		y, err := NewYearRange(2000, 2010)
		So(err, ShouldBeNil)
		So(y.NumYears(), ShouldEqual, 11)

		_, err = NewYearRange(2010, 2000)
		So(err, ShouldNotBeNil)

		So(YearRange{}.IsZero(), ShouldBeTrue)
		So(YearRange{}.NumYears(), ShouldEqual, 0)
	})

	Convey("Plan", t, func() {
		ids := func(n int) []string {
			out := make([]string, n)
			for i := range out {
				out[i] = fmt.Sprintf("SERIES%02d", i)
			}
			return out
		}
		limits := Limits{SeriesPerRequest: 2, YearsPerRequest: 3}

		Convey("single chunk when everything fits", func() {
			chunks, err := Plan(ids(2), YearRange{Start: 2020, End: 2022}, limits)
			So(err, ShouldBeNil)
			So(len(chunks), ShouldEqual, 1)
			So(chunks[0].SeriesIDs, ShouldResemble, []string{"SERIES00", "SERIES01"})
			So(chunks[0].Years, ShouldResemble, YearRange{Start: 2020, End: 2022})
		})

		Convey("splits both dimensions in group-major order", func() {
			chunks, err := Plan(ids(3), YearRange{Start: 2015, End: 2021}, limits)
			So(err, ShouldBeNil)
			// 2 identifier groups x 3 year sub-ranges.
			So(len(chunks), ShouldEqual, 6)
			So(chunks[0].SeriesIDs, ShouldResemble, []string{"SERIES00", "SERIES01"})
			So(chunks[0].Years, ShouldResemble, YearRange{Start: 2015, End: 2017})
			So(chunks[1].Years, ShouldResemble, YearRange{Start: 2018, End: 2020})
			So(chunks[2].Years, ShouldResemble, YearRange{Start: 2021, End: 2021})
			So(chunks[3].SeriesIDs, ShouldResemble, []string{"SERIES02"})
			So(chunks[3].Years, ShouldResemble, YearRange{Start: 2015, End: 2017})
		})

		Convey("sub-ranges tile the year range exactly", func() {
			chunks, err := Plan(ids(1), YearRange{Start: 2000, End: 2009}, limits)
			So(err, ShouldBeNil)
			total := 0
			year := 2000
			for _, c := range chunks {
				So(c.Years.Start, ShouldEqual, year)
				total += c.Years.NumYears()
				year = c.Years.End + 1
			}
			So(total, ShouldEqual, 10)
		})

		Convey("zero year range yields a single default sub-range", func() {
			chunks, err := Plan(ids(3), YearRange{}, limits)
			So(err, ShouldBeNil)
			So(len(chunks), ShouldEqual, 2)
			So(chunks[0].Years.IsZero(), ShouldBeTrue)
		})

		Convey("no identifiers is an error", func() {
			_, err := Plan(nil, YearRange{}, limits)
			So(err, ShouldNotBeNil)
		})

		Convey("invalid limits is an error", func() {
			_, err := Plan(ids(1), YearRange{}, Limits{})
			So(err, ShouldNotBeNil)
		})
	})
}
