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

// Package request drives the per-connection HTTP/1.1 request/response
// cycle: read headers into a reused buffer, parse and validate the
// request line, dispatch to the embedder's handler, decide whether the
// transport is reused for another iteration, and compact the buffer so
// a pipelined request already sitting past the current one survives
// into the next iteration. Grounded on process_new_connection/getreq in
// mingoose.c, reworked from its fixed-size C buffer and manual
// data_len/request_len bookkeeping into a Go slice with the same
// cursor fields.
package request

import (
	"net"
	"time"

	"github.com/sabouaram/mingoose/handler"
	"github.com/sabouaram/mingoose/transport"
)

// DefaultBufferSize is the initial capacity of a Connection's read
// buffer; it grows only if a single header block does not fit, up to
// MaxBufferSize.
const DefaultBufferSize = 8 * 1024

// MaxBufferSize bounds how large the header buffer may grow before the
// loop gives up and answers 500, matching the source's fixed-size
// buffer's effective ceiling.
const MaxBufferSize = 64 * 1024

// Connection is allocated once per Worker and reused across every
// keep-alive iteration served on a given accepted socket.
type Connection struct {
	Conn  net.Conn
	Local net.Addr
	Peer  net.Addr

	Birth time.Time

	buf        []byte
	dataLen    int
	requestLen int

	contentLen   int64
	numBytesRead int64

	statusCode int
	mustClose  bool
	remoteUser string

	throttleBytesPerSec int64
	writer              *transport.Writer
}

// NewConnection wraps conn for servicing; throttleBytesPerSec of zero
// disables the Transport Writer's rate limit.
func NewConnection(conn net.Conn, local, peer net.Addr, throttleBytesPerSec int64) *Connection {
	return &Connection{
		Conn:                conn,
		Local:               local,
		Peer:                peer,
		Birth:               time.Now(),
		buf:                 make([]byte, DefaultBufferSize),
		contentLen:          -1,
		throttleBytesPerSec: throttleBytesPerSec,
		writer:              transport.New(conn, throttleBytesPerSec),
	}
}

// Reset points the Connection at a new accepted socket, clears its
// per-connection state and keeps the buffer for reuse. A Worker calls it
// once for every socket after the first; state that only lasts one
// request is cleared by endIteration.
func (c *Connection) Reset(conn net.Conn, local, peer net.Addr) {
	c.Conn = conn
	c.Local = local
	c.Peer = peer
	c.Birth = time.Now()
	c.dataLen = 0
	c.requestLen = 0
	c.contentLen = -1
	c.numBytesRead = 0
	c.statusCode = 0
	c.mustClose = false
	c.remoteUser = ""
	c.writer = transport.New(conn, c.throttleBytesPerSec)
}

// Writer exposes the Transport Writer for the handler to push a response.
func (c *Connection) Writer() *transport.Writer {
	return c.writer
}

// endIteration clears per-request heap state before the loop decides
// whether to continue — mirrors the source freeing remote_user between
// iterations so it cannot leak into an unauthenticated follow-up request.
func (c *Connection) endIteration() {
	c.remoteUser = ""
}

// freeResponseEvent builds the handler.Event used for the REQUEST_END
// notification, carrying the status code set during dispatch.
func (c *Connection) freeResponseEvent() handler.Event {
	return handler.Event{Kind: handler.RequestEnd, StatusCode: c.statusCode}
}
