package credibility_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/newslens/hypetrack/internal/domain/credibility"
)

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credibility.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTable(t *testing.T) {
	Convey("Given a source credibility table", t, func() {
		Convey("Seeded weights win over the default", func() {
			tab := credibility.New(
				credibility.WithWeights(map[string]float64{"reuters.com": 0.95}),
				credibility.WithDefaultWeight(0.3),
			)
			So(tab.Weight("reuters.com"), ShouldEqual, 0.95)
			So(tab.Weight("never-heard-of.it"), ShouldEqual, 0.3)
			So(tab.Size(), ShouldEqual, 1)
		})

		Convey("Out-of-range default weights are ignored", func() {
			tab := credibility.New(credibility.WithDefaultWeight(1.5))
			So(tab.Weight("anything"), ShouldEqual, 0.5)
		})

		Convey("Loading a file swaps the table in", func() {
			path := writeTable(t, "sources:\n  reuters.com: 0.95\n  examplewire.net: 0.3\n")
			tab := credibility.New()
			So(tab.LoadFile(path), ShouldBeNil)
			So(tab.Size(), ShouldEqual, 2)
			So(tab.Weight("examplewire.net"), ShouldEqual, 0.3)

			Convey("And Reload re-reads the same path", func() {
				So(os.WriteFile(path, []byte("sources:\n  examplewire.net: 0.7\n"), 0o600), ShouldBeNil)
				So(tab.Reload(), ShouldBeNil)
				So(tab.Weight("examplewire.net"), ShouldEqual, 0.7)
				So(tab.Size(), ShouldEqual, 1)
			})
		})

		Convey("A weight outside [0,1] rejects the whole file", func() {
			path := writeTable(t, "sources:\n  shady.example: 1.3\n")
			tab := credibility.New()
			So(tab.LoadFile(path), ShouldNotBeNil)
			So(tab.Size(), ShouldEqual, 0)
		})

		Convey("Reload without a prior LoadFile fails", func() {
			So(credibility.New().Reload(), ShouldNotBeNil)
		})
	})
}
