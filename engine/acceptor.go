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
	"net"
	"time"

	"github.com/sabouaram/mingoose/queue"
	"github.com/sabouaram/mingoose/sock"
)

// runAcceptor is the sole goroutine that ever touches s.ln. It loops
// accept-with-deadline (the Go analogue of poll+accept), handing each
// accepted socket to the queue, until a stop is requested. On exit it
// closes the listener and wakes every parked Worker.
func (s *Server) runAcceptor() {
	ln := s.ln
	q := s.q
	requestTimeout := time.Duration(s.settings.RequestTimeoutMs) * time.Millisecond

	defer func() {
		_ = ln.Close()
		q.Stop()
		close(s.acceptorDone)
	}()

	for {
		if s.stopping() {
			return
		}

		_ = ln.SetDeadline(time.Now().Add(acceptPollInterval))
		conn, err := ln.AcceptTCP()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if s.stopping() {
				return
			}
			s.logAcceptError(err)
			continue
		}

		if err := sock.PrepareAccepted(conn, requestTimeout); err != nil {
			_ = conn.Close()
			continue
		}

		accepted := queue.Accepted{
			Conn:  conn,
			Local: conn.LocalAddr(),
			Peer:  conn.RemoteAddr(),
		}

		if !q.Enqueue(accepted) {
			_ = conn.Close()
		}
	}
}

// logAcceptError reports a non-timeout accept failure via the embedder's
// LOG event; the Acceptor never dies from a single bad accept.
func (s *Server) logAcceptError(err error) {
	s.handler.Handle(logEvent("accept error: " + err.Error()))
}
