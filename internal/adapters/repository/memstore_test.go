package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/subnetlab/minerscope/internal/adapters/repository"
	"github.com/subnetlab/minerscope/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemStoreChallenges(t *testing.T) {
	Convey("Given an empty store", t, func() {
		store := repository.NewMemStore()
		ctx := context.Background()

		Convey("When storing challenges", func() {
			So(store.PutChallenge(ctx, model.Challenge{ID: "c1", RawLabel: "real"}), ShouldBeNil)
			So(store.PutChallenge(ctx, model.Challenge{ID: "c2", RawLabel: "fake"}), ShouldBeNil)

			Convey("Then they are retrievable with assigned sequences", func() {
				ch, err := store.Challenge(ctx, "c1")
				So(err, ShouldBeNil)
				So(ch.Seq, ShouldEqual, 1)

				ch, err = store.Challenge(ctx, "c2")
				So(err, ShouldBeNil)
				So(ch.Seq, ShouldEqual, 2)
			})

			Convey("Then an unknown id yields ErrNotFound", func() {
				_, err := store.Challenge(ctx, "ghost")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then a duplicate id is rejected", func() {
				err := store.PutChallenge(ctx, model.Challenge{ID: "c1", RawLabel: "real"})
				So(errors.Is(err, repository.ErrDuplicate), ShouldBeTrue)
			})
		})

		Convey("When storing a structurally invalid challenge", func() {
			err := store.PutChallenge(ctx, model.Challenge{ID: "", RawLabel: "real"})

			Convey("Then it fails at the boundary", func() {
				So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
			})
		})
	})
}

func TestMemStoreSnapshot(t *testing.T) {
	Convey("Given a populated store", t, func() {
		store := repository.NewMemStore(repository.WithShardCount(4))
		ctx := context.Background()

		for i := 1; i <= 3; i++ {
			id := fmt.Sprintf("c%d", i)
			So(store.PutChallenge(ctx, model.Challenge{ID: id, RawLabel: "real"}), ShouldBeNil)
		}
		for _, miner := range []string{"m2", "m1", "m3"} {
			So(store.PutPrediction(ctx, model.Prediction{
				MinerID: miner, ChallengeID: "c1", RawClass: "real",
			}), ShouldBeNil)
		}

		Convey("When taking a snapshot", func() {
			snap, err := store.Snapshot(ctx)
			So(err, ShouldBeNil)

			Convey("Then challenges keep ingestion order", func() {
				So(snap.Challenges, ShouldHaveLength, 3)
				for i := 1; i < len(snap.Challenges); i++ {
					So(snap.Challenges[i-1].Seq, ShouldBeLessThan, snap.Challenges[i].Seq)
				}
			})

			Convey("Then predictions come out grouped by miner", func() {
				So(snap.Predictions, ShouldHaveLength, 3)
				So(snap.Predictions[0].MinerID, ShouldEqual, "m1")
				So(snap.Predictions[2].MinerID, ShouldEqual, "m3")
			})

			Convey("Then the snapshot is a copy, not a view", func() {
				snap.Challenges[0].RawLabel = "mutated"
				ch, err := store.Challenge(ctx, "c1")
				So(err, ShouldBeNil)
				So(ch.RawLabel, ShouldEqual, "real")
			})
		})

		Convey("When asking for counts", func() {
			nc, np := store.Counts(ctx)
			So(nc, ShouldEqual, 3)
			So(np, ShouldEqual, 3)
		})
	})
}

func TestMemStoreConcurrency(t *testing.T) {
	Convey("Given concurrent ingestion", t, func() {
		store := repository.NewMemStore()
		ctx := context.Background()

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					_ = store.PutChallenge(ctx, model.Challenge{
						ID: fmt.Sprintf("g%d-c%d", g, i), RawLabel: "fake",
					})
					_ = store.PutPrediction(ctx, model.Prediction{
						MinerID: fmt.Sprintf("m%d", g), ChallengeID: fmt.Sprintf("g%d-c%d", g, i),
						RawClass: "fake",
					})
				}
			}(g)
		}
		wg.Wait()

		Convey("Then all records land exactly once with unique sequences", func() {
			nc, np := store.Counts(ctx)
			So(nc, ShouldEqual, 400)
			So(np, ShouldEqual, 400)

			snap, err := store.Snapshot(ctx)
			So(err, ShouldBeNil)
			seqs := make(map[uint64]bool, nc)
			for _, ch := range snap.Challenges {
				So(seqs[ch.Seq], ShouldBeFalse)
				seqs[ch.Seq] = true
			}
		})
	})
}
