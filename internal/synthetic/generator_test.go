package synthetic_test

import (
	"testing"

	"github.com/subnetlab/minerscope/internal/synthetic"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	Convey("Given a small workload configuration", t, func() {
		cfg := synthetic.NewConfig()
		cfg.Challenges = 40
		cfg.Miners = 8

		Convey("When generating a dataset", func() {
			ds := synthetic.Generate(cfg)

			Convey("Then every challenge has a label and a unique id", func() {
				So(ds.Challenges, ShouldHaveLength, 40)
				seen := map[string]bool{}
				for _, ch := range ds.Challenges {
					So(seen[ch.ID], ShouldBeFalse)
					seen[ch.ID] = true
					So(ch.Label, ShouldBeIn, "0", "1", "2")
					So(ds.Labels[ch.ID], ShouldBeBetweenOrEqual, 0, 2)
				}
			})

			Convey("Then every miner answers every challenge", func() {
				So(ds.Predictions, ShouldHaveLength, 40*8)
				counts := map[string]int{}
				for _, p := range ds.Predictions {
					counts[p.MinerID]++
					// every prediction carries exactly one of class or scores
					So(p.Class != "" || len(p.Scores) == 3, ShouldBeTrue)
				}
				So(counts, ShouldHaveLength, 8)
				for _, n := range counts {
					So(n, ShouldEqual, 40)
				}
			})

			Convey("Then archetypes cycle across miners", func() {
				So(ds.Archetypes, ShouldHaveLength, 8)
				So(ds.Archetypes["miner-000"], ShouldEqual, 0)
				So(ds.Archetypes["miner-001"], ShouldEqual, 1)
				So(ds.Archetypes["miner-004"], ShouldEqual, 0)
			})

			Convey("Then score vectors are normalized and peaked", func() {
				for _, p := range ds.Predictions {
					if len(p.Scores) == 0 {
						continue
					}
					sum := 0.0
					for _, s := range p.Scores {
						sum += s
					}
					So(sum, ShouldAlmostEqual, 1.0, 1e-9)
				}
			})
		})
	})
}
