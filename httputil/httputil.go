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

// Package httputil carries the small wire-format helpers the Request
// Loop and embedder handlers both need: percent-decoding/encoding,
// query-string and cookie variable extraction, Range header parsing,
// GMT timestamp formatting, and ETag construction. Each function
// is grounded on its mingoose.c namesake (mg_url_decode, mg_get_var,
// mg_get_cookie, mg_url_encode, parse_range_header, gmt_time_string,
// construct_etag) reworked around Go strings instead of fixed-size
// destination buffers. Header-token validity is delegated to
// golang.org/x/net/http/httpguts rather than hand-rolled, since the
// source's own validation was limited to hex-digit checks around '%'.
package httputil

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	liberr "github.com/sabouaram/mingoose/errors"
)

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

// URLDecode percent-decodes src. When formURLEncoded is true, '+' is
// also decoded to a space, matching mg_url_decode's is_form_url_encoded
// flag used for query strings and bodies but not for the request URI.
func URLDecode(src string, formURLEncoded bool) string {
	var b strings.Builder
	b.Grow(len(src))

	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == '%' && i+2 < len(src) {
			if hi, ok1 := hexVal(src[i+1]); ok1 {
				if lo, ok2 := hexVal(src[i+2]); ok2 {
					b.WriteByte(byte(hi<<4 | lo))
					i += 2
					continue
				}
			}
		}
		if formURLEncoded && c == '+' {
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(c)
	}

	return b.String()
}

// URLEncode percent-encodes src, leaving alphanumerics and the source's
// dont_escape set (._-$,;~()) untouched, matching mg_url_encode.
func URLEncode(src string) string {
	const dontEscape = "._-$,;~()"
	const hex = "0123456789abcdef"

	var b strings.Builder
	b.Grow(len(src))

	for i := 0; i < len(src); i++ {
		c := src[i]
		if isAlnum(c) || strings.IndexByte(dontEscape, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0xf])
	}

	return b.String()
}

func isAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// GetVar looks up name in data, a query string shaped "var1=val1&var2=val2",
// decoding the matched value the way mg_get_var does. ok is false if the
// variable is not present.
func GetVar(data, name string) (value string, ok bool) {
	if data == "" || name == "" {
		return "", false
	}

	for _, pair := range strings.Split(data, "&") {
		eq := strings.IndexByte(pair, '=')
		if eq < 0 {
			continue
		}
		if strings.EqualFold(pair[:eq], name) {
			return URLDecode(pair[eq+1:], true), true
		}
	}

	return "", false
}

// GetCookie looks up varName inside a Cookie header value shaped
// "a=1; b=2", stripping a single layer of surrounding quotes, mirroring
// mg_get_cookie.
func GetCookie(cookieHeader, varName string) (value string, ok bool) {
	if cookieHeader == "" || varName == "" {
		return "", false
	}

	for _, part := range strings.Split(cookieHeader, ";") {
		part = strings.TrimSpace(part)
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		name, val := part[:eq], part[eq+1:]
		if !strings.EqualFold(strings.TrimSpace(name), varName) {
			continue
		}
		if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
			val = val[1 : len(val)-1]
		}
		return val, true
	}

	return "", false
}

// ParseRange parses a "bytes=A-B" Range header value, matching
// parse_range_header's sscanf grammar. Either bound may be omitted
// (signalled by -1) to express the open-ended "A-" and "-B" forms.
func ParseRange(header string) (a, b int64, err liberr.Error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, ErrorInvalidRange.Error(nil)
	}

	spec := header[len(prefix):]
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return 0, 0, ErrorInvalidRange.Error(nil)
	}

	a = -1
	b = -1

	if left := spec[:dash]; left != "" {
		v, perr := strconv.ParseInt(left, 10, 64)
		if perr != nil {
			return 0, 0, ErrorInvalidRange.Error(perr)
		}
		a = v
	}
	if right := spec[dash+1:]; right != "" {
		v, perr := strconv.ParseInt(right, 10, 64)
		if perr != nil {
			return 0, 0, ErrorInvalidRange.Error(perr)
		}
		b = v
	}

	if a == -1 && b == -1 {
		return 0, 0, ErrorInvalidRange.Error(nil)
	}

	return a, b, nil
}

// GMTTimeString formats t per RFC 7231's IMF-fixdate, e.g.
// "Sun, 06 Nov 1994 08:49:37 GMT", matching gmt_time_string's strftime
// pattern.
func GMTTimeString(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}

// ConstructETag builds a quoted entity tag (without the W/ weak prefix)
// from a modification time and a size, matching construct_etag's
// "mtime-in-hex.size" shape.
func ConstructETag(modTime time.Time, size int64) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%x.%d", modTime.Unix(), size))
}

// ValidHeaderToken reports whether s is a syntactically valid HTTP
// header field name per RFC 7230 token grammar, delegated to
// golang.org/x/net/http/httpguts rather than re-deriving the token
// character class by hand.
func ValidHeaderToken(s string) bool {
	return httpguts.ValidHeaderFieldName(s)
}
