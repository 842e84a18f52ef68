package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/subnetlab/minerscope/internal/adapters/mq/queue"
	"github.com/subnetlab/minerscope/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func challengeRecord(id string) queue.Record {
	return queue.Record{
		ID:        id,
		Challenge: &model.Challenge{ID: id, RawLabel: "real"},
	}
}

func TestEnqueueDequeue(t *testing.T) {
	Convey("Given a bounded queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		ctx := context.Background()

		Convey("When enqueuing within capacity", func() {
			for i := 0; i < 4; i++ {
				So(q.Enqueue(ctx, challengeRecord(fmt.Sprintf("c%d", i))), ShouldBeTrue)
			}
			So(q.Len(ctx), ShouldEqual, 4)

			Convey("Then a full queue rejects further records", func() {
				So(q.Enqueue(ctx, challengeRecord("overflow")), ShouldBeFalse)
			})

			Convey("Then dequeue yields records in order", func() {
				out := q.Dequeue(ctx)
				first := <-out
				So(first.ID, ShouldEqual, "c0")
				So(first.Challenge, ShouldNotBeNil)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueue is rejected", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, challengeRecord("late")), ShouldBeFalse)
			})

			Convey("Then closing again is harmless", func() {
				So(q.Close(), ShouldBeNil)
			})

			Convey("Then the dequeue channel drains and closes", func() {
				out := q.Dequeue(ctx)
				select {
				case _, open := <-out:
					So(open, ShouldBeFalse)
				case <-time.After(time.Second):
					t.Fatal("dequeue channel did not close")
				}
			})
		})
	})
}

func TestDequeueCancellation(t *testing.T) {
	Convey("Given a queue with a pending record", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		ctx, cancel := context.WithCancel(context.Background())
		So(q.Enqueue(ctx, challengeRecord("c1")), ShouldBeTrue)

		Convey("When the consumer context is cancelled", func() {
			out := q.Dequeue(ctx)
			cancel()

			Convey("Then the channel closes without blocking", func() {
				deadline := time.After(time.Second)
				for {
					select {
					case _, open := <-out:
						if !open {
							return
						}
					case <-deadline:
						t.Fatal("dequeue channel did not close after cancel")
					}
				}
			})
		})
	})
}
