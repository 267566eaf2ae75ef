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

package engine

import (
	"time"

	"github.com/sabouaram/mingoose/handler"
	"github.com/sabouaram/mingoose/request"
	"github.com/sabouaram/mingoose/sock"
)

// runWorker is one of N identical goroutines draining the accept queue.
// It allocates a single Connection and reuses it for every socket it
// services, matching §4.5's "allocate once, reuse" rule. THREAD_BEGIN and
// THREAD_END bracket the goroutine's whole lifetime, not any one
// connection, mirroring callback_worker_thread firing MG_THREAD_BEGIN
// once before its consume_socket loop and MG_THREAD_END once after it
// returns.
func (s *Server) runWorker() error {
	var conn *request.Connection

	opt := request.Options{
		RequestTimeout:  time.Duration(s.settings.RequestTimeoutMs) * time.Millisecond,
		EnableKeepAlive: s.settings.EnableKeepAlive,
	}

	s.handler.Handle(handler.Event{Kind: handler.ThreadBegin})
	defer s.handler.Handle(handler.Event{Kind: handler.ThreadEnd})

	for {
		accepted, more := s.q.Dequeue()
		if !more {
			return nil
		}

		if conn == nil {
			conn = request.NewConnection(accepted.Conn, accepted.Local, accepted.Peer, s.settings.ThrottleBytesPerSec)
		} else {
			conn.Reset(accepted.Conn, accepted.Local, accepted.Peer)
		}

		request.Serve(conn, s.handler, opt, s.stopping)

		_ = sock.GracefulClose(accepted.Conn)
	}
}

// logEvent builds the handler.Event for a LOG notification.
func logEvent(message string) handler.Event {
	return handler.Event{Kind: handler.Log, Message: message}
}
