package queue_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/newslens/hypetrack/internal/adapters/mq/queue"
	"github.com/newslens/hypetrack/internal/domain/model"
)

func article(id string) *model.Article {
	return &model.Article{ID: id, Entity: "acme", Text: "x"}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a small bounded queue", t, func() {
		q := queue.NewInMemory(queue.WithCapacity(2))

		Convey("Articles flow through in order", func() {
			So(q.Enqueue(ctx, article("a1")), ShouldBeTrue)
			So(q.Enqueue(ctx, article("a2")), ShouldBeTrue)
			So(q.Len(), ShouldEqual, 2)

			out := q.Dequeue(ctx)
			So((<-out).ID, ShouldEqual, "a1")
			So((<-out).ID, ShouldEqual, "a2")
		})

		Convey("A full queue reports backpressure instead of blocking", func() {
			So(q.Enqueue(ctx, article("a1")), ShouldBeTrue)
			So(q.Enqueue(ctx, article("a2")), ShouldBeTrue)
			So(q.Enqueue(ctx, article("a3")), ShouldBeFalse)
			So(q.Len(), ShouldEqual, 2)
		})

		Convey("A closed queue refuses intake but drains its buffer", func() {
			So(q.Enqueue(ctx, article("a1")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
			So(q.Enqueue(ctx, article("a2")), ShouldBeFalse)

			out := q.Dequeue(ctx)
			So((<-out).ID, ShouldEqual, "a1")
			_, open := <-out
			So(open, ShouldBeFalse)

			Convey("And closing twice is harmless", func() {
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("A full queue with a cancelled context still refuses the article", func() {
			So(q.Enqueue(ctx, article("a1")), ShouldBeTrue)
			So(q.Enqueue(ctx, article("a2")), ShouldBeTrue)
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(q.Enqueue(cctx, article("a3")), ShouldBeFalse)
			So(q.Len(), ShouldEqual, 2)
		})
	})
}
