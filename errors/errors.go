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

// Package errors is this repo's error-code mechanism: a CodeError per
// failure a package wants to expose, and an Error that lets a caller ask
// "is this that specific failure?" without string-matching. Every
// package's error.go follows the same shape: a block of
// `iota + liberr.MinPkgX` constants, an init that registers their
// messages, and a getMessage switch.
package errors

// Error is the standard error interface plus a code a caller can branch
// on and a way to attach context that shouldn't replace the original
// message — config.Settings.Validate, for instance, attaches every
// validator.FieldError it collects to a single ErrorValidate.
type Error interface {
	error

	// IsCode reports whether this error was built from code.
	IsCode(code CodeError) bool

	// Add attaches parent to this error's context. Nil entries are
	// ignored so callers can pass a possibly-nil error directly.
	Add(parent ...error)
}

type ers struct {
	code   uint16
	msg    string
	parent []error
}

func newError(code uint16, msg string, parent ...error) Error {
	e := &ers{code: code, msg: msg}
	e.Add(parent...)
	return e
}

func (e *ers) Error() string {
	return e.msg
}

func (e *ers) IsCode(code CodeError) bool {
	return e.code == uint16(code)
}

func (e *ers) Add(parent ...error) {
	for _, p := range parent {
		if p != nil {
			e.parent = append(e.parent, p)
		}
	}
}
