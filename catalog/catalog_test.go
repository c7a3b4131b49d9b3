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

package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

var testCSV = `series_id,area_code,item_code,seasonality_code,periodicity_code,series_title,area_name,item_name
CUUR0000SA0,0000,SA0,U,R,All items in U.S. city average,U.S. city average,All items
CUSR0000SA0,0000,SA0,S,R,All items in U.S. city average,U.S. city average,All items
CUUR0000SA0E,0000,SA0E,U,R,Energy in U.S. city average,U.S. city average,Energy
CUURS49GSA0,S49G,SA0,U,R,All items in Urban Alaska,Urban Alaska,All items
`

func TestCatalog(t *testing.T) {
	t.Parallel()

	Convey("Read parses the master list", t, func() {
		c, err := Read(strings.NewReader(testCSV))
		So(err, ShouldBeNil)
		So(c.Size(), ShouldEqual, 4)

		Convey("Lookup", func() {
			e, ok := c.Lookup("CUURS49GSA0")
			So(ok, ShouldBeTrue)
			So(e.AreaName, ShouldEqual, "Urban Alaska")
			_, ok = c.Lookup("NOSUCH")
			So(ok, ShouldBeFalse)
		})

		Convey("Select by one field", func() {
			selected, err := c.Select(map[string]string{"item_code": "SA0"})
			So(err, ShouldBeNil)
			So(len(selected), ShouldEqual, 3)
			So(selected[0].SeriesID, ShouldEqual, "CUUR0000SA0")
		})

		Convey("Select by multiple fields", func() {
			selected, err := c.Select(map[string]string{
				"area_code":        "0000",
				"item_code":        "SA0",
				"seasonality_code": "U",
			})
			So(err, ShouldBeNil)
			So(len(selected), ShouldEqual, 1)
			So(selected[0].SeriesID, ShouldEqual, "CUUR0000SA0")
		})

		Convey("Select with no filters returns everything in order", func() {
			selected, err := c.Select(nil)
			So(err, ShouldBeNil)
			So(len(selected), ShouldEqual, 4)
			So(selected[3].SeriesID, ShouldEqual, "CUURS49GSA0")
		})

		Convey("Select with an unknown field fails", func() {
			_, err := c.Select(map[string]string{"color": "red"})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Read validates input", t, func() {
		Convey("missing series_id column", func() {
			_, err := Read(strings.NewReader("area_code,item_code\n0000,SA0\n"))
			So(err, ShouldNotBeNil)
		})

		Convey("empty series_id cell names the row", func() {
			_, err := Read(strings.NewReader("series_id,area_code\nCUUR0000SA0,0000\n,0000\n"))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "row 3")
		})

		Convey("duplicate rows are dropped", func() {
			c, err := Read(strings.NewReader(
				"series_id\nCUUR0000SA0\nCUUR0000SA0\n"))
			So(err, ShouldBeNil)
			So(c.Size(), ShouldEqual, 1)
		})
	})

	Convey("Load reads from a file", t, func() {
		tmpdir, err := os.MkdirTemp("", "catalog_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tmpdir)

		path := filepath.Join(tmpdir, "master.csv")
		So(os.WriteFile(path, []byte(testCSV), 0644), ShouldBeNil)
		c, err := Load(path)
		So(err, ShouldBeNil)
		So(c.Size(), ShouldEqual, 4)

		_, err = Load(filepath.Join(tmpdir, "missing.csv"))
		So(err, ShouldNotBeNil)
	})

	Convey("CanonField accepts short and long spellings", t, func() {
		f, ok := CanonField("area")
		So(ok, ShouldBeTrue)
		So(f, ShouldEqual, "area_code")
		f, ok = CanonField("Seasonality_Code")
		So(ok, ShouldBeTrue)
		So(f, ShouldEqual, "seasonality_code")
		_, ok = CanonField("bogus")
		So(ok, ShouldBeFalse)
	})
}
