package worker_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/subnetlab/minerscope/internal/adapters/mq/queue"
	"github.com/subnetlab/minerscope/internal/adapters/mq/worker"
	"github.com/subnetlab/minerscope/internal/adapters/repository"
	"github.com/subnetlab/minerscope/internal/domain/model"
	"github.com/subnetlab/minerscope/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func waitForCounts(store *repository.MemStore, challenges, predictions int) bool {
	deadline := time.After(2 * time.Second)
	for {
		nc, np := store.Counts(context.Background())
		if nc == challenges && np == predictions {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestIngestWorker(t *testing.T) {
	Convey("Given a worker pool over a queue and store", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		store := repository.NewMemStore()
		pool := worker.NewPool(4, q, store)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		Convey("When challenge and prediction records are enqueued", func() {
			ok := q.Enqueue(ctx, queue.Record{
				ID:        "c1",
				Challenge: &model.Challenge{ID: "c1", RawLabel: "fake"},
			})
			So(ok, ShouldBeTrue)
			ok = q.Enqueue(ctx, queue.Record{
				ID: "m1|c1",
				Prediction: &model.Prediction{
					MinerID: "m1", ChallengeID: "c1", RawClass: "fake",
				},
			})
			So(ok, ShouldBeTrue)

			Convey("Then both land in the store", func() {
				So(waitForCounts(store, 1, 1), ShouldBeTrue)

				ch, err := store.Challenge(ctx, "c1")
				So(err, ShouldBeNil)
				So(ch.RawLabel, ShouldEqual, "fake")
			})
		})

		Convey("When the same challenge id arrives twice", func() {
			for i := 0; i < 2; i++ {
				So(q.Enqueue(ctx, queue.Record{
					ID:        "dup",
					Challenge: &model.Challenge{ID: "dup", RawLabel: "real"},
				}), ShouldBeTrue)
			}

			Convey("Then the duplicate is absorbed without error", func() {
				So(waitForCounts(store, 1, 0), ShouldBeTrue)
			})
		})

		Convey("When shutting the pool down", func() {
			So(q.Enqueue(ctx, queue.Record{
				ID:        "final",
				Challenge: &model.Challenge{ID: "final", RawLabel: "real"},
			}), ShouldBeTrue)

			So(pool.Shutdown(ctx), ShouldBeNil)

			Convey("Then queued records were drained before stopping", func() {
				nc, _ := store.Counts(ctx)
				So(nc, ShouldEqual, 1)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})
}

func TestWorkerRejectsEmptyRecord(t *testing.T) {
	Convey("Given a running worker", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		store := repository.NewMemStore()
		w := worker.NewIngestWorker(q, store, worker.WithName("lone"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		Convey("When a record with no payload is enqueued", func() {
			So(q.Enqueue(ctx, queue.Record{ID: "empty"}), ShouldBeTrue)

			Convey("Then nothing is stored", func() {
				time.Sleep(50 * time.Millisecond)
				nc, np := store.Counts(ctx)
				So(nc, ShouldEqual, 0)
				So(np, ShouldEqual, 0)
			})
		})
	})
}
