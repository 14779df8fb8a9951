package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/pumpmatch/internal/domain/matching"
	"github.com/okian/pumpmatch/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const testCatalog = `
pumps:
  - {id: a, type: centrifugal, rated_flow: 25, rated_head: 32}
  - {id: b, type: centrifugal, rated_flow: 25, rated_head: 30}
  - {id: c, type: centrifugal, rated_flow: 25, rated_head: 29}
  - {id: d, type: submersible, rated_flow: 10, rated_head: 20}
  - {id: e, type: submersible, rated_flow: 30, rated_head: 60, max_head: 70, rated_power: 7.5, rated_efficiency: 70}
`

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(testCatalog), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMatchCommand(t *testing.T) {
	Convey("Given a catalog file", t, func() {
		path := writeCatalog(t)

		Convey("When matching with JSON output", func() {
			out, err := execute("match", "-c", path, "--flow", "25", "--head", "30", "-f", "json")
			So(err, ShouldBeNil)

			var results []matching.Result
			So(json.Unmarshal([]byte(out), &results), ShouldBeNil)

			Convey("Then viable pumps are ranked best first", func() {
				So(len(results), ShouldEqual, 4)
				So(results[0].PumpID, ShouldEqual, "c")
				So(results[0].Score, ShouldEqual, 95)
				So(results[3].PumpID, ShouldEqual, "e")
			})
		})

		Convey("When matching with a type filter and limit", func() {
			out, err := execute("match", "-c", path, "--flow", "25", "--head", "30", "--type", "centrifugal", "-n", "2", "-f", "json")
			So(err, ShouldBeNil)

			var results []matching.Result
			So(json.Unmarshal([]byte(out), &results), ShouldBeNil)

			Convey("Then only the top two centrifugal pumps are printed", func() {
				So(len(results), ShouldEqual, 2)
				So(results[0].PumpID, ShouldEqual, "c")
				So(results[1].PumpID, ShouldEqual, "b")
			})
		})

		Convey("When matching with table output", func() {
			out, err := execute("match", "-c", path, "--flow", "25", "--head", "30")

			Convey("Then a header and one row per result are printed", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out), "\n")
				So(lines[0], ShouldStartWith, "RANK")
				So(len(lines), ShouldEqual, 5)
			})
		})

		Convey("When no pump reaches the duty point", func() {
			out, err := execute("match", "-c", path, "--flow", "25", "--head", "500")

			Convey("Then a notice is printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "no pump reaches the duty point")
			})
		})

		Convey("When the requirement is invalid", func() {
			_, err := execute("match", "-c", path, "--flow", "0", "--head", "30")

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the format is unknown", func() {
			_, err := execute("match", "-c", path, "--flow", "25", "--head", "30", "-f", "xml")

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unsupported format")
			})
		})

		Convey("When required flags are missing", func() {
			_, err := execute("match", "-c", path)

			Convey("Then cobra rejects the call", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestCurveCommand(t *testing.T) {
	Convey("Given a catalog file", t, func() {
		path := writeCatalog(t)

		Convey("When printing a curve as JSON", func() {
			out, err := execute("curve", "-c", path, "-p", "e", "--step", "6", "-f", "json")
			So(err, ShouldBeNil)

			var resp types.CurveResponse
			So(json.Unmarshal([]byte(out), &resp), ShouldBeNil)

			Convey("Then it starts at shut-off head with power and efficiency", func() {
				So(resp.PumpID, ShouldEqual, "e")
				So(resp.Points[0].Flow, ShouldEqual, 0)
				So(resp.Points[0].Head, ShouldEqual, 70)
				So(resp.Points[0].Power, ShouldNotBeNil)
				So(resp.Points[0].Efficiency, ShouldNotBeNil)
			})
		})

		Convey("When printing a curve with the estimate convention", func() {
			out, err := execute("curve", "-c", path, "-p", "a", "--step", "9", "--convention", "estimate")

			Convey("Then the table shows dashes for missing power data", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out), "\n")
				So(lines[0], ShouldStartWith, "FLOW")
				So(len(lines), ShouldEqual, 7)
				So(lines[1], ShouldContainSubstring, "40.00")
				So(lines[1], ShouldContainSubstring, "-")
			})
		})

		Convey("When the pump is unknown", func() {
			_, err := execute("curve", "-c", path, "-p", "zzz")

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "not found")
			})
		})

		Convey("When the step is not positive", func() {
			_, err := execute("curve", "-c", path, "-p", "a", "--step", "0")

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
