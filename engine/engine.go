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

// Package engine wires the Settings, Socket primitives, Accept Queue,
// Request Loop and Handler into a runnable server: one Acceptor
// goroutine, N Worker goroutines, and the two-phase shutdown
// coordinator described by the component design. Grounded on the
// teacher's run.sRun/pool.pool split (a small mutex-guarded state
// struct plus Start/Stop/Restart/IsRunning methods and a
// StartWaitNotify signal-driven blocking helper) generalised from
// wrapping *http.Server to driving the Acceptor/Worker pair directly,
// since this engine owns the accept loop rather than delegating it to
// net/http.
package engine

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sabouaram/mingoose/config"
	liberr "github.com/sabouaram/mingoose/errors"
	"github.com/sabouaram/mingoose/handler"
	"github.com/sabouaram/mingoose/queue"
	"github.com/sabouaram/mingoose/sock"
)

// stopIdle, stopRequested and stopDone are the three values stop_flag
// may hold, monotonically increasing per §3's invariant.
const (
	stopIdle      int32 = 0
	stopRequested int32 = 1
	stopDone      int32 = 2
)

// acceptPollInterval bounds the Acceptor's accept-with-deadline loop,
// and so the upper bound on shutdown latency for an idle server.
const acceptPollInterval = 200 * time.Millisecond

// Server is the C4/C5/C8 runtime: one bound listener, one accept queue,
// one Acceptor goroutine and a pool of Worker goroutines.
type Server struct {
	mu sync.RWMutex

	settings *config.Settings
	handler  handler.Handler

	ln *net.TCPListener
	q  *queue.AcceptQueue

	stopFlag atomic.Int32

	acceptorDone chan struct{}
	workers      errgroup.Group

	startedAt time.Time
}

// New builds a Server from frozen settings and the embedder's handler.
// If h is nil, handler.NewBadHandler is used, matching the source's
// behaviour of still answering (with a 500) rather than refusing to
// start.
func New(settings *config.Settings, h handler.Handler) *Server {
	if h == nil {
		h = handler.NewBadHandler()
	}
	return &Server{settings: settings, handler: h}
}

// IsRunning reports whether the Acceptor loop is active.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopFlag.Load() == stopIdle && s.ln != nil && !s.startedAt.IsZero()
}

// Uptime reports how long the engine has been accepting connections;
// zero if it was never started.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// Start binds the listening socket, allocates the accept queue, and
// launches the Acceptor plus the configured number of Workers in one
// call. Embedders that need to drop privileges between the bind and
// the first goroutine spawn — the original source's "UID must be set
// last, but before mg_start_thread" ordering — should call Bind and
// Launch separately instead of Start.
func (s *Server) Start(ctx context.Context) liberr.Error {
	if err := s.Bind(ctx); err != nil {
		return err
	}
	return s.Launch()
}

// Bind parses the configured listening ports, opens and binds the
// listening socket and allocates the accept queue, but does not start
// the Acceptor or any Worker. It is the seam an embedder drops
// privileges in before calling Launch.
func (s *Server) Bind(ctx context.Context) liberr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil {
		return ErrorNotConfigured.Error(nil)
	}
	if s.ln != nil {
		return ErrorAlreadyRunning.Error(nil)
	}

	host, port, perr := config.ParsePortSpec(s.settings.ListeningPorts)
	if perr != nil {
		return ErrorBind.Error(perr)
	}

	ln, berr := sock.BindAndListen(ctx, host, port)
	if berr != nil {
		return ErrorBind.Error(berr)
	}

	q, qerr := queue.New(s.settings.QueueCapacity)
	if qerr != nil {
		_ = ln.Close()
		return qerr
	}

	s.ln = ln
	s.q = q
	s.stopFlag.Store(stopIdle)
	s.acceptorDone = make(chan struct{})
	s.startedAt = time.Time{}

	return nil
}

// Launch starts the Acceptor and the configured number of Workers over
// an already-bound listener. It fails if Bind has not run yet.
func (s *Server) Launch() liberr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return ErrorNotConfigured.Error(nil)
	}

	go s.runAcceptor()

	for i := 0; i < s.settings.NumThreads; i++ {
		s.workers.Go(s.runWorker)
	}

	s.startedAt = time.Now()
	return nil
}

// Stop runs the two-phase shutdown protocol: it requests the stop, waits
// for the Acceptor to observe it, close the listener, drain the queue
// and join every Worker, then publishes stop_flag = 2. It blocks until
// that publication or ctx expires, whichever comes first.
func (s *Server) Stop(ctx context.Context) liberr.Error {
	s.mu.RLock()
	ln := s.ln
	done := s.acceptorDone
	s.mu.RUnlock()

	if ln == nil {
		return ErrorNotRunning.Error(nil)
	}

	s.stopFlag.CompareAndSwap(stopIdle, stopRequested)

	select {
	case <-done:
	case <-ctx.Done():
		return ErrorNotRunning.Error(ctx.Err())
	}

	joined := make(chan struct{})
	go func() {
		_ = s.workers.Wait()
		close(joined)
	}()

	select {
	case <-joined:
	case <-ctx.Done():
		return ErrorNotRunning.Error(ctx.Err())
	}

	s.mu.Lock()
	s.ln = nil
	s.q = nil
	s.stopFlag.Store(stopDone)
	s.mu.Unlock()

	return nil
}

// StopFlag exposes the raw state for diagnostics and for tests asserting
// the monotonic 0→1→2 progression.
func (s *Server) StopFlag() int32 {
	return s.stopFlag.Load()
}

// stopping reports whether a shutdown has been requested; passed into
// the Request Loop as its StopFunc.
func (s *Server) stopping() bool {
	return s.stopFlag.Load() != stopIdle
}
