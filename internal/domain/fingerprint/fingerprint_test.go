package fingerprint_test

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/newslens/hypetrack/internal/domain/fingerprint"
)

func TestNormalize(t *testing.T) {
	Convey("Given raw article text", t, func() {
		Convey("Casing and whitespace differences normalize away", func() {
			a := fingerprint.Normalize("Acme   Corp announces\n\n a   New Product")
			b := fingerprint.Normalize("acme corp announces a new product")
			So(a, ShouldEqual, b)
		})

		Convey("Boilerplate lines are stripped", func() {
			text := "acme corp announces a new product\nSubscribe to our newsletter today\nthe launch is next week"
			So(fingerprint.Normalize(text), ShouldEqual, "acme corp announces a new product the launch is next week")
		})
	})
}

func TestComputeAndSimilarity(t *testing.T) {
	Convey("Given the fingerprint service", t, func() {
		svc := fingerprint.NewService()

		Convey("Identical text after normalization has similarity 1", func() {
			a := svc.Compute("Acme Corp Announces a New Product Line for Enterprise")
			b := svc.Compute("acme corp announces   a new product line for enterprise")
			So(a.ExactHash, ShouldEqual, b.ExactHash)
			So(fingerprint.Similarity(a, b), ShouldEqual, 1.0)
		})

		Convey("Lightly edited copies score high, unrelated text scores low", func() {
			base := "acme corp reported quarterly revenue above guidance and raised its forecast for the full year citing strong enterprise demand across all regions"
			edited := base + " according to the company"
			other := "globex announced a merger with initech pending regulatory approval in three jurisdictions next spring"

			fpBase := svc.Compute(base)
			fpEdited := svc.Compute(edited)
			fpOther := svc.Compute(other)

			So(fingerprint.Similarity(fpBase, fpEdited), ShouldBeGreaterThan, 0.5)
			So(fingerprint.Similarity(fpBase, fpOther), ShouldBeLessThan, 0.2)
		})

		Convey("Sub-shingle-length text compares as zero unless exact", func() {
			a := svc.Compute("one two")
			b := svc.Compute("three four")
			So(a.Shingles, ShouldEqual, 0)
			So(fingerprint.Similarity(a, b), ShouldEqual, 0)
			So(fingerprint.Similarity(a, a), ShouldEqual, 1.0)
		})
	})
}

func TestIndex(t *testing.T) {
	Convey("Given a bounded fingerprint index", t, func() {
		svc := fingerprint.NewService()
		idx := fingerprint.NewIndex(
			fingerprint.WithMaxSize(3),
			fingerprint.WithNearDupThreshold(0.9),
		)

		Convey("The first sighting is unique, the second is an exact duplicate", func() {
			fp := svc.Compute("acme corp announces a new product line for enterprise customers today")
			So(idx.SeenAndRecord("a1", fp).Duplicate, ShouldBeFalse)

			dec := idx.SeenAndRecord("a2", fp)
			So(dec.Duplicate, ShouldBeTrue)
			So(dec.Kind, ShouldEqual, fingerprint.DupExact)
			So(dec.Of, ShouldEqual, "a1")
		})

		Convey("A syndicated copy with extra repetition is caught as a near duplicate", func() {
			phrase := "acme revenue guidance quarter enterprise demand strong regions forecast "
			fpBase := svc.Compute(strings.Repeat(phrase, 5))
			fpNear := svc.Compute(strings.Repeat(phrase, 6))
			So(fpBase.ExactHash, ShouldNotEqual, fpNear.ExactHash)

			So(idx.SeenAndRecord("a1", fpBase).Duplicate, ShouldBeFalse)
			dec := idx.SeenAndRecord("a2", fpNear)
			So(dec.Duplicate, ShouldBeTrue)
			So(dec.Kind, ShouldEqual, fingerprint.DupNear)
			So(dec.Of, ShouldEqual, "a1")
		})

		Convey("A forgotten fingerprint can be screened again by the same article", func() {
			fp := svc.Compute("acme corp announces a new product line for enterprise customers today")
			other := svc.Compute("globex announced a merger with initech pending regulatory approval overseas")
			So(idx.SeenAndRecord("a1", fp).Duplicate, ShouldBeFalse)
			So(idx.SeenAndRecord("b1", other).Duplicate, ShouldBeFalse)

			idx.Forget("a1", fp)

			So(idx.SeenAndRecord("a1", fp).Duplicate, ShouldBeFalse)

			Convey("And unrelated entries still screen duplicates", func() {
				dec := idx.SeenAndRecord("b2", other)
				So(dec.Duplicate, ShouldBeTrue)
				So(dec.Of, ShouldEqual, "b1")
			})

			Convey("And forgetting under a different id leaves the record alone", func() {
				idx.Forget("someone-else", fp)
				dec := idx.SeenAndRecord("a2", fp)
				So(dec.Duplicate, ShouldBeTrue)
				So(dec.Of, ShouldEqual, "a1")
			})
		})

		Convey("Eviction forgets the oldest signature once full", func() {
			texts := []string{
				"first story about a merger between two large industrial firms announced",
				"second story covering a data breach at a regional bank over the weekend",
				"third story on a product recall affecting thousands of vehicles this month",
				"fourth story describing a labor strike at the port entering its second week",
			}
			for i, txt := range texts {
				So(idx.SeenAndRecord(string(rune('a'+i)), svc.Compute(txt)).Duplicate, ShouldBeFalse)
			}
			So(idx.Size(), ShouldEqual, 3)

			// The first text was evicted, so it reads as unique again.
			So(idx.SeenAndRecord("again", svc.Compute(texts[0])).Duplicate, ShouldBeFalse)
		})
	})
}
