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

// Package handler defines the contract the embedder implements: a single
// event callback taking a tagged Event, grounded on the source's
// call_user(MG_REQUEST, ...)/call_user(MG_REQUEST_END, ...) dispatch and
// on the teacher's FuncHandler/BadHandler fallback pattern in
// httpserver/types — generalised here from "map of registered
// http.Handler by key" to "one tagged-event callback", since the engine
// has no router of its own.
package handler

import "net"

// Kind tags an Event with which lifecycle point produced it.
type Kind uint8

const (
	// Request is fired once per parsed request; the embedder must write
	// a response via Event.Writer and call Event.SetStatus.
	Request Kind = iota
	// RequestEnd fires after dispatch; Event.StatusCode carries the
	// final status code that was set during Request.
	RequestEnd
	// ThreadBegin fires once when a worker goroutine starts.
	ThreadBegin
	// ThreadEnd fires once when a worker goroutine exits.
	ThreadEnd
	// Log carries an access-log or diagnostic line; Event.Message holds it.
	Log
)

func (k Kind) String() string {
	switch k {
	case Request:
		return "REQUEST"
	case RequestEnd:
		return "REQUEST_END"
	case ThreadBegin:
		return "THREAD_BEGIN"
	case ThreadEnd:
		return "THREAD_END"
	case Log:
		return "LOG"
	default:
		return "UNKNOWN"
	}
}

// Header is one parsed request header; Name comparison is case-insensitive
// by convention (use Info.Header to look one up).
type Header struct {
	Name  string
	Value string
}

// RequestInfo is the parsed request line plus headers and peer info. It is
// valid only for the duration of the Request event that carries it —
// the Request Loop may reuse or compact its backing buffer immediately
// after Handle returns.
type RequestInfo struct {
	Method      string
	URI         string
	HTTPVersion string
	Headers     []Header
	RemoteAddr  net.Addr
	LocalAddr   net.Addr
	RemoteUser  string
	ContentLen  int64
}

// Header looks up the first header matching name, case-insensitively.
// ok is false if no such header was present.
func (r *RequestInfo) Header(name string) (value string, ok bool) {
	for _, h := range r.Headers {
		if equalFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Writer is the minimal surface the handler needs to produce a response;
// it is satisfied by transport.Writer without handler importing transport,
// keeping the dependency one-directional (request/engine import handler,
// handler imports nothing of this module's own packages).
type Writer interface {
	Write(p []byte) (n int, err error)
}

// Event is the single tagged argument passed to Handle.
type Event struct {
	Kind Kind

	// Info is populated for Request; nil otherwise.
	Info *RequestInfo

	// Writer is populated for Request; the handler writes the full
	// response (status line, headers, body) through it.
	Writer Writer

	// SetStatus is populated for Request; the handler must call it
	// exactly once with the status code it wrote, so the Request Loop
	// can evaluate should_keep_alive and the access log.
	SetStatus func(code int)

	// StatusCode is populated for RequestEnd with the code passed to
	// SetStatus during the matching Request event.
	StatusCode int

	// Message is populated for Log.
	Message string
}

// Handler is the contract the embedder implements.
type Handler interface {
	// Handle processes one tagged Event. The return value is reserved
	// for future use, matching the source's call_user return convention.
	Handle(ev Event) int
}

// Func adapts a plain function to Handler, mirroring the teacher's
// FuncHandler-as-map-constructor idiom generalised to a single callback.
type Func func(ev Event) int

func (f Func) Handle(ev Event) int { return f(ev) }

// BadHandlerName is the diagnostic name used by NewBadHandler, carried
// over from the teacher's types.BadHandlerName constant.
const BadHandlerName = "no handler"

// NewBadHandler returns a Handler that answers every Request with 500,
// used when an embedder starts the engine without registering its own
// handler — mirrors the teacher's types.NewBadHandler fallback.
func NewBadHandler() Handler {
	return Func(func(ev Event) int {
		switch ev.Kind {
		case Request:
			ev.SetStatus(500)
			_, _ = ev.Writer.Write([]byte("HTTP/1.1 500 Internal Server Error\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"))
		}
		return 0
	})
}
