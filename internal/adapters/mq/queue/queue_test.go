package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/pumpmatch/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("Then it starts empty and open", func() {
			So(q.Len(), ShouldEqual, 0)
			So(q.IsClosed(), ShouldBeFalse)
		})

		Convey("When jobs are enqueued", func() {
			So(q.Enqueue(ctx, queue.Job{PumpID: "a"}), ShouldBeNil)
			So(q.Enqueue(ctx, queue.Job{PumpID: "b"}), ShouldBeNil)

			Convey("Then they are dequeued in order", func() {
				So(q.Len(), ShouldEqual, 2)
				So((<-q.Dequeue()).PumpID, ShouldEqual, "a")
				So((<-q.Dequeue()).PumpID, ShouldEqual, "b")
				So(q.Len(), ShouldEqual, 0)
			})

			Convey("Then a third job is rejected as full", func() {
				err := q.Enqueue(ctx, queue.Job{PumpID: "c"})
				So(errors.Is(err, queue.ErrFull), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then enqueue reports the context error", func() {
				So(errors.Is(q.Enqueue(cctx, queue.Job{PumpID: "a"}), context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, queue.Job{PumpID: "a"}), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then new jobs are rejected", func() {
				So(errors.Is(q.Enqueue(ctx, queue.Job{PumpID: "b"}), queue.ErrClosed), ShouldBeTrue)
				So(q.IsClosed(), ShouldBeTrue)
			})

			Convey("Then queued jobs still drain and the channel closes", func() {
				var got []string
				for j := range q.Dequeue() {
					got = append(got, j.PumpID)
				}
				So(got, ShouldResemble, []string{"a"})
			})

			Convey("Then closing twice is harmless", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}

func TestInMemoryQueue_ConcurrentEnqueue(t *testing.T) {
	Convey("Given many concurrent producers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					_ = q.Enqueue(ctx, queue.Job{PumpID: "p"})
				}
			}()
		}
		wg.Wait()

		Convey("Then every job within capacity is accepted", func() {
			So(q.Len(), ShouldEqual, 100)
		})
	})
}
