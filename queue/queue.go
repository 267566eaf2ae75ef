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

// Package queue implements the bounded ring buffer handed between the
// Acceptor (sole producer) and the Worker pool (sole consumers). It is
// the Go analogue of the source's produce_socket/consume_socket pair:
// two condition variables guarding a single mutex, with monotonically
// increasing head/tail counters rebased by capacity to bound their
// magnitude rather than indexing the array directly.
package queue

import (
	"net"
	"sync"

	liberr "github.com/sabouaram/mingoose/errors"
)

// Accepted is one socket handed off from the Acceptor to a Worker,
// carrying both endpoints' addresses alongside the live connection.
type Accepted struct {
	Conn  *net.TCPConn
	Local net.Addr
	Peer  net.Addr
}

// AcceptQueue is the bounded FIFO between Acceptor and Workers.
type AcceptQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buf  []Accepted
	cap  int
	head int
	tail int

	stopping bool
}

// New builds an AcceptQueue with the given ring-buffer capacity.
func New(capacity int) (*AcceptQueue, liberr.Error) {
	if capacity <= 0 {
		return nil, ErrorInvalidCapacity.Error(nil)
	}

	q := &AcceptQueue{
		buf: make([]Accepted, capacity),
		cap: capacity,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)

	return q, nil
}

// occupancy returns head-tail without locking; callers must hold mu.
func (q *AcceptQueue) occupancy() int {
	return q.head - q.tail
}

// Stop marks the queue as stopping and wakes every goroutine parked in
// Enqueue or Dequeue so they can observe it and return.
func (q *AcceptQueue) Stop() {
	q.mu.Lock()
	q.stopping = true
	q.mu.Unlock()

	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Enqueue blocks until there is room or the queue is stopping. On stop it
// returns false without enqueuing; the Acceptor should simply drop the
// socket (closing it) in that case.
func (q *AcceptQueue) Enqueue(a Accepted) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.occupancy() >= q.cap && !q.stopping {
		q.notFull.Wait()
	}

	if q.stopping {
		return false
	}

	q.buf[q.head%q.cap] = a
	q.head++
	q.rebase()

	q.notEmpty.Signal()
	return true
}

// Dequeue blocks while the queue is empty and not stopping. more is false
// as soon as the queue is stopping — the worker should exit. A socket
// popped while stopping is still returned in a, alongside more = false.
func (q *AcceptQueue) Dequeue() (a Accepted, more bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.occupancy() == 0 && !q.stopping {
		q.notEmpty.Wait()
	}

	if q.head > q.tail {
		a = q.buf[q.tail%q.cap]
		q.buf[q.tail%q.cap] = Accepted{}
		q.tail++
		q.rebase()
		q.notFull.Signal()
		return a, !q.stopping
	}

	return Accepted{}, false
}

// rebase subtracts cap from both counters once tail exceeds it, keeping
// head/tail bounded the way the source periodically does under its lock.
// Callers must hold mu.
func (q *AcceptQueue) rebase() {
	for q.tail >= q.cap {
		q.head -= q.cap
		q.tail -= q.cap
	}
}

// Occupancy reports the current number of queued sockets, mostly useful
// for tests and diagnostics.
func (q *AcceptQueue) Occupancy() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.occupancy()
}

// Capacity returns the configured ring-buffer size.
func (q *AcceptQueue) Capacity() int {
	return q.cap
}
