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
	"bytes"
	"strconv"
	"strings"

	liberr "github.com/sabouaram/mingoose/errors"
	"github.com/sabouaram/mingoose/handler"
)

// parsedRequest is the result of splitting one header block into a
// request line plus headers, before validation runs.
type parsedRequest struct {
	method  string
	uri     string
	version string
	headers []handler.Header
}

// findHeaderEnd returns the offset just past "\r\n\r\n" in buf[:n], or -1
// if the terminator is not yet present.
func findHeaderEnd(buf []byte, n int) int {
	idx := bytes.Index(buf[:n], []byte("\r\n\r\n"))
	if idx < 0 {
		return -1
	}
	return idx + 4
}

// parseRequest splits buf[:requestLen], the bytes up to and including
// the "\r\n\r\n" terminator, into a request line and headers. It only
// rejects a request line that is not three fields; URI and version are
// checked afterwards by validateRequestLine.
func parseRequest(buf []byte, requestLen int) (parsedRequest, liberr.Error) {
	block := string(buf[:requestLen])
	block = strings.TrimSuffix(block, "\r\n\r\n")
	lines := strings.Split(block, "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return parsedRequest{}, ErrorMalformedRequestLine.Error(nil)
	}

	fields := strings.Fields(lines[0])
	if len(fields) != 3 {
		return parsedRequest{}, ErrorMalformedRequestLine.Error(nil)
	}

	pr := parsedRequest{
		method:  fields[0],
		uri:     fields[1],
		version: fields[2],
	}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		pr.headers = append(pr.headers, handler.Header{Name: name, Value: value})
	}

	return pr, nil
}

func headerValue(headers []handler.Header, name string) (string, bool) {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// validateRequestLine enforces §4.6's URI and version rules, returning
// the status code to answer with on failure (400 or 505) and the
// matching CodeError for diagnostics. The caller sets must_close on a
// failure, matching the source's "violations force a close".
func validateRequestLine(pr parsedRequest) (status int, verr liberr.Error) {
	if pr.uri != "*" && !strings.HasPrefix(pr.uri, "/") {
		return 400, ErrorInvalidURI.Error(nil)
	}
	if pr.version != "HTTP/1.0" && pr.version != "HTTP/1.1" {
		return 505, ErrorUnsupportedVersion.Error(nil)
	}
	return 0, nil
}

// httpVersionShort strips the "HTTP/" prefix, e.g. "HTTP/1.1" -> "1.1".
func httpVersionShort(version string) string {
	return strings.TrimPrefix(version, "HTTP/")
}

// contentLengthOf returns the parsed Content-Length header value, or -1
// if absent or malformed (malformed is treated as absent, matching the
// source leaving content_len at its -1 default on a bad header).
func contentLengthOf(headers []handler.Header) int64 {
	v, ok := headerValue(headers, "Content-Length")
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// shouldKeepAlive implements §4.6's exhaustive truth table.
func shouldKeepAlive(mustClose bool, statusCode int, globalKeepAlive bool, version string, headers []handler.Header) bool {
	if mustClose || statusCode == 401 || !globalKeepAlive {
		return false
	}

	if v, ok := headerValue(headers, "Connection"); ok {
		return strings.EqualFold(strings.TrimSpace(v), "keep-alive")
	}

	return version == "HTTP/1.1"
}

// computeDiscard implements §4.6's COMPACT step: how many buffered bytes
// the just-finished iteration consumed, clamped to dataLen.
func computeDiscard(requestLen int, contentLen int64, dataLen int) int {
	if contentLen < 0 || requestLen <= 0 {
		return dataLen
	}

	discard := requestLen + int(contentLen)
	if discard > dataLen {
		discard = dataLen
	}
	return discard
}
