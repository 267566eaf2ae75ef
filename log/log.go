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

// Package log is the C12 sink: a thin logrus façade carrying the fields
// every other component's diagnostics and access-log lines get tagged
// with, so the embedder can swap formatter/output without every package
// importing logrus directly. Grounded on the teacher's own pattern of a
// package-level constructor returning a configured instance plus a
// with-fields entry builder, generalised from the teacher's multi-output
// hook-based logger to a single logrus.Logger since the engine has no
// need for the teacher's fan-out-to-many-writers feature.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger from the engine's log_level/log_format
// settings. An unrecognised level falls back to Info; an unrecognised
// format falls back to the text formatter.
func New(level, format string, out io.Writer) *logrus.Logger {
	l := logrus.New()

	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return l
}

// Component returns an entry pre-tagged with a component name, the base
// every package's own logger field set is built from.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}

// WithBind adds the bound address to an entry under the "bind" field.
func WithBind(e *logrus.Entry, bind string) *logrus.Entry {
	return e.WithField("bind", bind)
}

// WithRequest adds request-scoped fields, the peer under "remote" and the
// method under "method".
func WithRequest(e *logrus.Entry, remote, method string) *logrus.Entry {
	return e.WithFields(logrus.Fields{"remote": remote, "method": method})
}
