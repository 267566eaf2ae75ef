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

// Package transport pushes response bytes to the peer with an optional
// bytes-per-second ceiling. The throttle keeps the source's tick-bucket
// shape: accumulate bytes sent since the tick started, and once the
// bucket is full, sleep out the remainder of the one-second tick and
// start a new one. Grounded directly on mg_write in the original source.
package transport

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	liberr "github.com/sabouaram/mingoose/errors"
)

// StopFunc reports whether an in-flight transfer should abort early,
// checked between chunks so a shutdown can cut a slow response short
// without blocking on the remaining bytes.
type StopFunc func() bool

// Writer wraps a connection with the engine's throttled-write behaviour.
// A Writer is built once per accepted connection and reused across every
// keep-alive request served on it.
type Writer struct {
	conn net.Conn

	limit int64 // bytes per second; zero means unthrottled

	mu        sync.Mutex
	tickStart time.Time
	sentTick  int64

	total atomic.Int64
}

// New builds a Writer over conn. limitBytesPerSec of zero disables the
// throttle entirely, matching the source's "throttle == 0 means off".
func New(conn net.Conn, limitBytesPerSec int64) *Writer {
	return &Writer{
		conn:  conn,
		limit: limitBytesPerSec,
	}
}

// SetLimit adjusts the throttle for subsequent writes; it does not
// retroactively affect a write already in progress.
func (w *Writer) SetLimit(limitBytesPerSec int64) {
	w.mu.Lock()
	w.limit = limitBytesPerSec
	w.mu.Unlock()
}

// Write pushes p to the peer, capping each underlying Write at whatever
// remains of the current tick's byte budget so a single large payload
// cannot outrun the limit by reaching the kernel in one call. Once a
// tick's budget is spent, it sleeps out the remainder of that tick before
// starting the next chunk.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	written := 0
	for written < len(p) {
		chunk := p[written:]

		if w.limit > 0 {
			if w.tickStart.IsZero() {
				w.tickStart = time.Now()
			}

			allowed := w.limit - w.sentTick
			if allowed <= 0 {
				if elapsed := time.Since(w.tickStart); elapsed < time.Second {
					time.Sleep(time.Second - elapsed)
				}
				w.tickStart = time.Now()
				w.sentTick = 0
				allowed = w.limit
			}

			if int64(len(chunk)) > allowed {
				chunk = chunk[:allowed]
			}
		}

		n, err := w.conn.Write(chunk)
		written += n
		w.total.Add(int64(n))

		if w.limit > 0 {
			w.sentTick += int64(n)
		}

		if err != nil {
			return written, ErrorWrite.Error(err)
		}
	}

	return written, nil
}

// BytesWritten reports the cumulative byte count pushed since New, across
// every request served on this connection.
func (w *Writer) BytesWritten() int64 {
	return w.total.Load()
}

// CopyFrom streams r to the Writer in fixed-size chunks, checking stop
// before reading each chunk so a shutdown in progress can interrupt a
// long response body — the analogue of the source checking its exit
// flag between produce/consume cycles rather than only at the top of the
// connection loop. It reports ErrorStopped when stop aborts the transfer.
func CopyFrom(w *Writer, r io.Reader, stop StopFunc) (int64, liberr.Error) {
	buf := make([]byte, 32*1024)
	var total int64

	for {
		if stop != nil && stop() {
			return total, ErrorStopped.Error(nil)
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, ErrorWrite.Error(werr)
			}
		}

		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, ErrorWrite.Error(rerr)
		}
	}
}
