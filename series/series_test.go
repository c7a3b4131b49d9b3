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
	"strings"
	"testing"

	"github.com/blsquery/blsquery/catalog"

	. "github.com/smartystreets/goconvey/convey"
)

func testCatalog() *catalog.Catalog {
	csv := `series_id,area_code,item_code,seasonality_code,periodicity_code
CUUR0000SA0,0000,SA0,U,R
CUSR0000SA0,0000,SA0,S,R
CUUR0000SA0E,0000,SA0E,U,R
CUURS49GSA0,S49G,SA0,U,R
`
	c, err := catalog.Read(strings.NewReader(csv))
	if err != nil {
		panic(err)
	}
	return c
}

func TestResolver(t *testing.T) {
	t.Parallel()

	mapping := Mapping{}
	mapping.Add("CPI All Items", "CUUR0000SA0")
	mapping.Add("cpi_energy", "CUUR0000SA0E")
	mapping.Add("cpi_both", "CUUR0000SA0")
	mapping.Add("cpi_both", "CUUR0000SA0E")

	Convey("NormKey folds case and punctuation", t, func() {
		So(NormKey("CPI All Items"), ShouldEqual, "cpiallitems")
		So(NormKey("cpi_all-items"), ShouldEqual, "cpiallitems")
		So(NormKey("  Cpi.All/Items "), ShouldEqual, "cpiallitems")
	})

	Convey("Resolve", t, func() {
		r := NewResolver(mapping, testCatalog())

		Convey("is case and punctuation insensitive", func() {
			for _, token := range []string{"CPI All Items", "cpi_all_items", "cpi-all-items"} {
				res, err := r.Resolve([]string{token})
				So(err, ShouldBeNil)
				So(res.SeriesIDs, ShouldResemble, []string{"CUUR0000SA0"})
				So(res.Alias("CUUR0000SA0"), ShouldEqual, token)
			}
		})

		Convey("one-to-many aliases preserve order", func() {
			res, err := r.Resolve([]string{"cpi_both"})
			So(err, ShouldBeNil)
			So(res.SeriesIDs, ShouldResemble, []string{"CUUR0000SA0", "CUUR0000SA0E"})
		})

		Convey("literal identifiers pass through without an alias", func() {
			res, err := r.Resolve([]string{"CES0000000001"})
			So(err, ShouldBeNil)
			So(res.SeriesIDs, ShouldResemble, []string{"CES0000000001"})
			So(res.Alias("CES0000000001"), ShouldEqual, "")
		})

		Convey("duplicates are removed preserving first position", func() {
			res, err := r.Resolve([]string{"cpi_all_items", "CUUR0000SA0E", "CUUR0000SA0"})
			So(err, ShouldBeNil)
			So(res.SeriesIDs, ShouldResemble, []string{"CUUR0000SA0", "CUUR0000SA0E"})
		})

		Convey("pattern expansion selects catalog entries", func() {
			res, err := r.Resolve([]string{"CU:area=S49G"})
			So(err, ShouldBeNil)
			So(res.SeriesIDs, ShouldResemble, []string{"CUURS49GSA0"})
			So(res.Alias("CUURS49GSA0"), ShouldEqual, "CU:area=S49G")

			res, err = r.Resolve([]string{"cu:item=SA0,seasonality=U"})
			So(err, ShouldBeNil)
			So(res.SeriesIDs, ShouldResemble, []string{"CUUR0000SA0", "CUURS49GSA0"})
		})

		Convey("empty pattern selects the whole catalog", func() {
			res, err := r.Resolve([]string{"CU:"})
			So(err, ShouldBeNil)
			So(len(res.SeriesIDs), ShouldEqual, 4)
		})

		Convey("unknown tokens fail all-or-nothing", func() {
			_, err := r.Resolve([]string{"cpi_all_items", "no_such_alias", "bogus!"})
			So(err, ShouldNotBeNil)
			re, ok := err.(*ResolutionError)
			So(ok, ShouldBeTrue)
			So(re.Tokens, ShouldResemble, []string{"bogus!", "no_such_alias"})
		})

		Convey("malformed patterns are unresolved tokens", func() {
			_, err := r.Resolve([]string{"CU:area"})
			So(err, ShouldNotBeNil)
			So(err, ShouldHaveSameTypeAs, &ResolutionError{})

			_, err = r.Resolve([]string{"CU:color=red"})
			So(err, ShouldHaveSameTypeAs, &ResolutionError{})
		})

		Convey("pattern matching nothing is unresolved", func() {
			_, err := r.Resolve([]string{"CU:area=XXXX"})
			So(err, ShouldHaveSameTypeAs, &ResolutionError{})
		})

		Convey("no tokens is an error", func() {
			_, err := r.Resolve(nil)
			So(err, ShouldNotBeNil)
			_, err = r.Resolve([]string{"", "  "})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Resolve without a catalog", t, func() {
		r := NewResolver(mapping, nil)

		Convey("fully constrained patterns use the identifier template", func() {
			res, err := r.Resolve([]string{"CU:area=0000,item=SA0"})
			So(err, ShouldBeNil)
			So(res.SeriesIDs, ShouldResemble, []string{"CUUR0000SA0"})

			res, err = r.Resolve([]string{"CU:area=0000,item=SA0,seasonality=S"})
			So(err, ShouldBeNil)
			So(res.SeriesIDs, ShouldResemble, []string{"CUSR0000SA0"})
		})

		Convey("underconstrained patterns are unresolved", func() {
			_, err := r.Resolve([]string{"CU:area=0000"})
			So(err, ShouldHaveSameTypeAs, &ResolutionError{})
		})
	})
}
