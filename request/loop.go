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

package request

import (
	"fmt"
	"io"
	"time"

	"github.com/sabouaram/mingoose/handler"
	"github.com/sabouaram/mingoose/sock"

	liberr "github.com/sabouaram/mingoose/errors"
)

// StopFunc reports whether the server is shutting down; the loop checks
// it between iterations and (via transport.CopyFrom, for response bodies
// streamed by the handler) between chunks, the analogue of Pull's
// negative return on a set exit flag.
type StopFunc func() bool

// Options bundles the per-iteration knobs the loop needs from Settings,
// kept narrow so this package does not import config directly and stays
// testable with bare values.
type Options struct {
	RequestTimeout  time.Duration
	EnableKeepAlive bool
}

// Serve drives c through one or more HTTP/1.1 request/response
// iterations until the peer or the handler asks to close, the server is
// stopping, or an I/O error ends the connection early. It always leaves
// c.Conn ready for the caller to close. ThreadBegin/ThreadEnd are not
// fired here: they bracket a Worker's whole lifetime, not a single
// connection, and so are the caller's responsibility.
func Serve(c *Connection, h handler.Handler, opt Options, stop StopFunc) {
	for {
		if stop != nil && stop() {
			return
		}

		keepGoing, err := serveOneIteration(c, h, opt, stop)
		if err != nil {
			logIOError(h, err)
			return
		}
		if !keepGoing {
			return
		}
	}
}

// serveOneIteration runs READ_HEADERS → PARSED → DISPATCH → COMPACT for
// a single request and reports whether the loop should run another
// iteration on the same connection.
func serveOneIteration(c *Connection, h handler.Handler, opt Options, stop StopFunc) (bool, error) {
	if err := sock.ApplyDeadline(c.Conn, opt.RequestTimeout); err != nil {
		return false, err
	}

	ok, err := readHeaders(c)
	if err != nil {
		if le, isLib := err.(liberr.Error); isLib && le.IsCode(ErrorHeadersTooLarge) {
			writeErrorResponse(c, 500)
			return false, nil
		}
		return false, err
	}
	if !ok {
		// peer closed before sending any bytes for this iteration; this
		// is the ordinary end of a keep-alive connection, not an error.
		return false, nil
	}

	pr, perr := parseRequest(c.buf, c.requestLen)
	if perr != nil {
		writeErrorResponse(c, 400)
		c.mustClose = true
		c.statusCode = 400
		dispatchEnd(c, h, pr)
		compact(c)
		return false, nil
	}

	status, verr := validateRequestLine(pr)
	if verr != nil {
		h.Handle(handler.Event{Kind: handler.Log, Message: verr.Error()})
		writeErrorResponse(c, status)
		c.mustClose = true
		c.statusCode = status
		dispatchEnd(c, h, pr)
		compact(c)
		return false, nil
	}

	c.contentLen = contentLengthOf(pr.headers)
	// Without a Content-Length header only POST and PUT carry a body of
	// unknown length; every other method is taken to have an empty body.
	if c.contentLen < 0 && pr.method != "POST" && pr.method != "PUT" {
		c.contentLen = 0
	}

	info := &handler.RequestInfo{
		Method:      pr.method,
		URI:         pr.uri,
		HTTPVersion: httpVersionShort(pr.version),
		Headers:     pr.headers,
		RemoteAddr:  c.Peer,
		LocalAddr:   c.Local,
		ContentLen:  c.contentLen,
	}

	c.statusCode = 0
	h.Handle(handler.Event{
		Kind:   handler.Request,
		Info:   info,
		Writer: c.writer,
		SetStatus: func(code int) {
			c.statusCode = code
		},
	})

	dispatchEnd(c, h, pr)

	keep := opt.EnableKeepAlive &&
		c.contentLen >= 0 &&
		shouldKeepAlive(c.mustClose, c.statusCode, opt.EnableKeepAlive, pr.version, pr.headers)

	if stop != nil && stop() {
		keep = false
	}

	compact(c)
	c.endIteration()

	return keep, nil
}

// dispatchEnd fires REQUEST_END and immediately appends an access log
// line through the embedder's LOG sink, mirroring call_user(MG_REQUEST_END,
// ...) followed by log_access(conn) in the original source.
func dispatchEnd(c *Connection, h handler.Handler, pr parsedRequest) {
	h.Handle(c.freeResponseEvent())
	h.Handle(handler.Event{Kind: handler.Log, Message: accessLogLine(c, pr)})
}

// accessLogLine formats a single access-log entry: peer, method, URI,
// final status and the bytes written on this connection so far. The
// byte count is cumulative, so on a keep-alive connection it includes
// the earlier responses as well.
func accessLogLine(c *Connection, pr parsedRequest) string {
	return fmt.Sprintf("%s %q %d %d", c.Peer, pr.method+" "+pr.uri, c.statusCode, c.writer.BytesWritten())
}

// readHeaders fills c.buf until the "\r\n\r\n" terminator is seen,
// growing the buffer up to MaxBufferSize if a single header block does
// not fit. ok is false if the peer closed before any bytes arrived.
func readHeaders(c *Connection) (ok bool, err error) {
	for {
		if end := findHeaderEnd(c.buf, c.dataLen); end >= 0 {
			c.requestLen = end
			return true, nil
		}

		if c.dataLen >= len(c.buf) {
			if len(c.buf) >= MaxBufferSize {
				return false, ErrorHeadersTooLarge.Error(nil)
			}
			grown := make([]byte, len(c.buf)*2)
			copy(grown, c.buf[:c.dataLen])
			c.buf = grown
		}

		n, rerr := c.Conn.Read(c.buf[c.dataLen:])
		if n > 0 {
			c.dataLen += n
			c.numBytesRead += int64(n)
		}
		if rerr != nil {
			if rerr == io.EOF && c.dataLen == 0 {
				return false, nil
			}
			if rerr == io.EOF {
				return false, ErrorPeerClosed.Error(nil)
			}
			return false, ErrorIo.Error(rerr)
		}
	}
}

// compact implements §4.6's COMPACT step, sliding any pipelined residue
// to the front of the buffer.
func compact(c *Connection) {
	discard := computeDiscard(c.requestLen, c.contentLen, c.dataLen)

	remaining := c.dataLen - discard
	if remaining > 0 {
		copy(c.buf, c.buf[discard:c.dataLen])
	}
	c.dataLen = remaining
	c.requestLen = 0
}

// writeErrorResponse answers a malformed or unsupported request with a
// minimal, connection-closing response; the handler never sees these.
func writeErrorResponse(c *Connection, status int) {
	reason := statusReason(status)
	resp := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", status, reason)
	_, _ = c.writer.Write([]byte(resp))
}

func statusReason(status int) string {
	switch status {
	case 400:
		return "Bad Request"
	case 505:
		return "HTTP Version Not Supported"
	case 500:
		return "Internal Server Error"
	default:
		return "Error"
	}
}

func logIOError(h handler.Handler, err error) {
	h.Handle(handler.Event{Kind: handler.Log, Message: fmt.Sprintf("connection closed: %v", err)})
}
