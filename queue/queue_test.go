/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package queue_test

import (
	"net"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/mingoose/queue"
)

var _ = Describe("AcceptQueue", func() {
	It("rejects a non-positive capacity", func() {
		_, err := queue.New(0)
		Expect(err).ToNot(BeNil())
	})

	It("enqueues and dequeues in FIFO order", func() {
		q, err := queue.New(4)
		Expect(err).To(BeNil())

		for i := 0; i < 3; i++ {
			Expect(q.Enqueue(queue.Accepted{Local: &net.TCPAddr{Port: i}})).To(BeTrue())
		}
		Expect(q.Occupancy()).To(Equal(3))

		first, more := q.Dequeue()
		Expect(more).To(BeTrue())
		Expect(first.Local).To(Equal(&net.TCPAddr{Port: 0}))
		Expect(q.Occupancy()).To(Equal(2))

		second, more := q.Dequeue()
		Expect(more).To(BeTrue())
		Expect(second.Local).To(Equal(&net.TCPAddr{Port: 1}))
	})

	It("blocks Enqueue while full and wakes on Dequeue", func() {
		q, _ := queue.New(1)
		Expect(q.Enqueue(queue.Accepted{})).To(BeTrue())

		done := make(chan bool, 1)
		go func() {
			done <- q.Enqueue(queue.Accepted{})
		}()

		Consistently(done, 100*time.Millisecond).ShouldNot(Receive())

		_, _ = q.Dequeue()
		Eventually(done, time.Second).Should(Receive(BeTrue()))
	})

	It("wakes all parked dequeuers on Stop with an empty queue", func() {
		q, _ := queue.New(2)

		var wg sync.WaitGroup
		results := make([]bool, 4)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, more := q.Dequeue()
				results[i] = more
			}(i)
		}

		time.Sleep(50 * time.Millisecond)
		q.Stop()
		wg.Wait()

		for _, more := range results {
			Expect(more).To(BeFalse())
		}
	})

	It("refuses to enqueue once stopping, without blocking the caller", func() {
		q, _ := queue.New(2)
		q.Stop()

		ok := q.Enqueue(queue.Accepted{})
		Expect(ok).To(BeFalse())
	})

	It("keeps occupancy within [0, capacity] and rebases head/tail", func() {
		q, _ := queue.New(3)

		for round := 0; round < 10; round++ {
			Expect(q.Enqueue(queue.Accepted{})).To(BeTrue())
			Expect(q.Occupancy()).To(BeNumerically("<=", q.Capacity()))
			_, more := q.Dequeue()
			Expect(more).To(BeTrue())
			Expect(q.Occupancy()).To(Equal(0))
		}
	})
})
