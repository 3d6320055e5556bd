package queue_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tesserae/tess-jobs/internal/queue"
	"github.com/tesserae/tess-jobs/internal/store/model"
)

func item(id string) queue.WorkItem {
	return queue.WorkItem{JobID: id, JobType: model.JobTypeMulti, Parameters: []byte(`{}`)}
}

var _ = Describe("BoundedQueue", func() {
	It("accepts items up to its capacity", func() {
		q := queue.NewBoundedQueue(2)
		Expect(q.Enqueue(context.TODO(), item("a"))).To(Succeed())
		Expect(q.Enqueue(context.TODO(), item("b"))).To(Succeed())
		Expect(q.Depth()).To(Equal(2))
		Expect(q.Capacity()).To(Equal(2))
	})

	It("rejects without blocking once full", func() {
		q := queue.NewBoundedQueue(1)
		Expect(q.Enqueue(context.TODO(), item("a"))).To(Succeed())

		done := make(chan error, 1)
		go func() { done <- q.Enqueue(context.TODO(), item("b")) }()
		Eventually(done, time.Second).Should(Receive(Equal(queue.ErrQueueSaturated)))
	})

	It("has room again once a worker drained an item", func() {
		q := queue.NewBoundedQueue(1)
		Expect(q.Enqueue(context.TODO(), item("a"))).To(Succeed())
		Expect(q.Enqueue(context.TODO(), item("b"))).To(Equal(queue.ErrQueueSaturated))

		got := <-q.Items()
		Expect(got.JobID).To(Equal("a"))
		Expect(q.Enqueue(context.TODO(), item("b"))).To(Succeed())
	})

	It("treats a zero capacity queue as always saturated", func() {
		q := queue.NewBoundedQueue(0)
		Expect(q.Enqueue(context.TODO(), item("a"))).To(Equal(queue.ErrQueueSaturated))
	})

	It("rejects items over the admission rate", func() {
		q := queue.NewBoundedQueue(10, queue.WithRateLimit(0.001, 1))
		Expect(q.Enqueue(context.TODO(), item("a"))).To(Succeed())
		Expect(q.Enqueue(context.TODO(), item("b"))).To(Equal(queue.ErrQueueSaturated))
		Expect(q.Depth()).To(Equal(1))
	})

	It("does not enqueue on a cancelled context", func() {
		q := queue.NewBoundedQueue(1)
		ctx, cancel := context.WithCancel(context.TODO())
		cancel()
		Expect(q.Enqueue(ctx, item("a"))).To(MatchError(context.Canceled))
		Expect(q.Depth()).To(Equal(0))
	})
})
