package labels_test

import (
	"errors"
	"testing"

	"github.com/subnetlab/minerscope/internal/domain/labels"
	"github.com/subnetlab/minerscope/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVocabularyResolve(t *testing.T) {
	Convey("Given the default vocabulary", t, func() {
		vocab := labels.New()

		Convey("When resolving recognized tokens", func() {
			Convey("Then real tokens map to the real class", func() {
				c, err := vocab.Resolve("real")
				So(err, ShouldBeNil)
				So(c, ShouldEqual, model.ClassReal)

				c, err = vocab.Resolve("  REAL ")
				So(err, ShouldBeNil)
				So(c, ShouldEqual, model.ClassReal)
			})

			Convey("Then fake and synthetic map to the synthetic class", func() {
				for _, token := range []string{"fake", "synthetic", "Fake"} {
					c, err := vocab.Resolve(token)
					So(err, ShouldBeNil)
					So(c, ShouldEqual, model.ClassSynthetic)
				}
			})

			Convey("Then semisynthetic variants map to the semisynthetic class", func() {
				for _, token := range []string{"semisynthetic", "semi-synthetic"} {
					c, err := vocab.Resolve(token)
					So(err, ShouldBeNil)
					So(c, ShouldEqual, model.ClassSemisynthetic)
				}
			})

			Convey("Then numeric tokens name classes directly", func() {
				c, err := vocab.Resolve("2")
				So(err, ShouldBeNil)
				So(c, ShouldEqual, model.ClassSemisynthetic)
			})
		})

		Convey("When resolving unknown tokens", func() {
			Convey("Then resolution fails with ErrUnresolvedLabel", func() {
				for _, token := range []string{"", "   ", "bogus", "3", "-1"} {
					_, err := vocab.Resolve(token)
					So(errors.Is(err, labels.ErrUnresolvedLabel), ShouldBeTrue)
				}
			})
		})

		Convey("When resolving the same token repeatedly", func() {
			Convey("Then the result is order-independent", func() {
				first, err := vocab.Resolve("fake")
				So(err, ShouldBeNil)
				_, _ = vocab.Resolve("real")
				_, _ = vocab.Resolve("semisynthetic")
				again, err := vocab.Resolve("fake")
				So(err, ShouldBeNil)
				So(again, ShouldEqual, first)
			})
		})

		Convey("When collapsing to the binary space", func() {
			Convey("Then every generated class is positive", func() {
				c, err := vocab.ResolveBinary("semisynthetic")
				So(err, ShouldBeNil)
				So(c, ShouldEqual, model.ClassSynthetic)

				c, err = vocab.ResolveBinary("real")
				So(err, ShouldBeNil)
				So(c, ShouldEqual, model.ClassReal)
			})
		})
	})
}

func TestVocabularyOptions(t *testing.T) {
	Convey("Given vocabulary options", t, func() {
		Convey("When classes are overridden with duplicates", func() {
			vocab := labels.New(labels.WithClasses(
				model.ClassReal, model.ClassSynthetic, model.ClassSynthetic,
			))

			Convey("Then the enumeration is de-duplicated in order", func() {
				So(vocab.Classes(), ShouldResemble, []model.Class{model.ClassReal, model.ClassSynthetic})
				So(vocab.Size(), ShouldEqual, 2)
			})

			Convey("Then tokens outside the narrowed space fail", func() {
				_, err := vocab.Resolve("semisynthetic")
				So(errors.Is(err, labels.ErrUnresolvedLabel), ShouldBeTrue)
			})
		})

		Convey("When an extra alias is registered", func() {
			vocab := labels.New(labels.WithAlias("genuine", model.ClassReal))
			c, err := vocab.Resolve("GENUINE")
			So(err, ShouldBeNil)
			So(c, ShouldEqual, model.ClassReal)
		})
	})
}

func TestVocabularyScores(t *testing.T) {
	Convey("Given the default vocabulary", t, func() {
		vocab := labels.New()

		Convey("When converting a probability vector to a class", func() {
			Convey("Then the arg-max class is returned", func() {
				c, ok := vocab.ClassFromScores([]float64{0.1, 0.7, 0.2})
				So(ok, ShouldBeTrue)
				So(c, ShouldEqual, model.ClassSynthetic)
			})

			Convey("Then an empty vector is rejected", func() {
				_, ok := vocab.ClassFromScores(nil)
				So(ok, ShouldBeFalse)
			})

			Convey("Then an arg-max outside the vocabulary is rejected", func() {
				_, ok := vocab.ClassFromScores([]float64{0.1, 0.1, 0.1, 0.7})
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When collapsing scores to a binary probability", func() {
			Convey("Then non-real entries are summed", func() {
				score, ok := vocab.BinaryScore([]float64{0.2, 0.5, 0.3})
				So(ok, ShouldBeTrue)
				So(score, ShouldAlmostEqual, 0.8, 1e-12)
			})

			Convey("Then a missing vector yields no score", func() {
				_, ok := vocab.BinaryScore(nil)
				So(ok, ShouldBeFalse)
			})
		})
	})
}
