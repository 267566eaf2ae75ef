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

package transport_test

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sabouaram/mingoose/transport"
)

type sinkConn struct {
	net.Conn
	buf bytes.Buffer
}

func (s *sinkConn) Write(p []byte) (int, error) { return s.buf.Write(p) }

func TestWriteUnthrottledPassesThrough(t *testing.T) {
	sink := &sinkConn{}
	w := transport.New(sink, 0)

	n, err := w.Write([]byte("hello world"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 11 {
		t.Fatalf("expected 11 bytes written, got %d", n)
	}
	if sink.buf.String() != "hello world" {
		t.Fatalf("unexpected sink content %q", sink.buf.String())
	}
	if w.BytesWritten() != 11 {
		t.Fatalf("expected BytesWritten 11, got %d", w.BytesWritten())
	}
}

func TestWriteThrottleSleepsOnceBucketFull(t *testing.T) {
	sink := &sinkConn{}
	w := transport.New(sink, 4) // 4 bytes/sec

	start := time.Now()
	_, err := w.Write([]byte("12345678")) // two ticks worth
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed < 500*time.Millisecond {
		t.Fatalf("expected throttle to introduce a delay, elapsed=%s", elapsed)
	}
}

func TestWriteThrottleCapsEachChunkToTickBudget(t *testing.T) {
	sink := &sinkConn{}
	w := transport.New(sink, 1024) // 1024 bytes/sec

	payload := bytes.Repeat([]byte("z"), 4096) // four ticks worth

	start := time.Now()
	n, err := w.Write(payload)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("expected %d bytes written, got %d", len(payload), n)
	}
	if elapsed < 3*time.Second {
		t.Fatalf("expected a single Write call to span at least 3 tick boundaries, elapsed=%s", elapsed)
	}
}

func TestCopyFromStopsEarly(t *testing.T) {
	sink := &sinkConn{}
	w := transport.New(sink, 0)

	r := io.NopCloser(bytes.NewReader(bytes.Repeat([]byte("x"), 1024)))
	stopped := false
	stop := func() bool {
		stopped = true
		return true
	}

	_, cerr := transport.CopyFrom(w, r, stop)
	if cerr == nil {
		t.Fatal("expected ErrorStopped, got nil")
	}
	if !cerr.IsCode(transport.ErrorStopped) {
		t.Fatalf("expected ErrorStopped code, got %v", cerr)
	}
	if !stopped {
		t.Fatal("stop func was never invoked")
	}
}

func TestCopyFromCopiesUntilEOF(t *testing.T) {
	sink := &sinkConn{}
	w := transport.New(sink, 0)

	payload := bytes.Repeat([]byte("y"), 1000)
	r := bytes.NewReader(payload)

	n, cerr := transport.CopyFrom(w, r, nil)
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
	if n != int64(len(payload)) {
		t.Fatalf("expected %d bytes copied, got %d", len(payload), n)
	}
}
