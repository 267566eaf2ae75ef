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

package errors

// CodeError is a numeric error classification, one constant per failure a
// package wants callers to be able to branch on without parsing strings.
// Each package picks its constants starting at its MinPkg* range from
// modules.go and registers their messages with RegisterIdFctMessage.
type CodeError uint16

const (
	// UnknownError is the code of an error built without going through a
	// package's CodeError constants.
	UnknownError CodeError = 0

	// UnknownMessage is returned by Message when no registered function
	// produces a non-empty message for the code.
	UnknownMessage = "unknown error"
)

// Message renders a CodeError into the text shown to callers. A package
// registers one of these per MinPkg* range; everything past UnknownError
// and below the next range's MinPkg* constant falls into that range.
type Message func(code CodeError) (message string)

var idMsgFct = make(map[CodeError]Message)

// RegisterIdFctMessage associates every CodeError at or above minCode,
// and below the next registered range, with fct. Called once from each
// package's init, keyed by that package's MinPkg* constant.
func RegisterIdFctMessage(minCode CodeError, fct Message) {
	idMsgFct[minCode] = fct
}

// ExistInMapMessage reports whether code falls into an already-registered
// range and that range's function produces a message for it. Packages use
// this in init to catch a CodeError constant that collides with a range
// registered earlier.
func ExistInMapMessage(code CodeError) bool {
	f, ok := idMsgFct[rangeOf(code)]
	return ok && f(code) != ""
}

// Message looks up the text for c within its registered range, falling
// back to UnknownMessage if no range covers it or the range's function
// has nothing to say about it.
func (c CodeError) Message() string {
	if c == UnknownError {
		return UnknownMessage
	}

	if f, ok := idMsgFct[rangeOf(c)]; ok {
		if m := f(c); m != "" {
			return m
		}
	}

	return UnknownMessage
}

// Error builds an Error carrying c's code and message, with parent folded
// in via Add. A nil entry in parent is skipped, so callers can write
// SomeCode.Error(err) without a separate nil check on err.
func (c CodeError) Error(parent ...error) Error {
	return newError(uint16(c), c.Message(), parent...)
}

// rangeOf finds the highest registered range at or below code, i.e. the
// range code belongs to.
func rangeOf(code CodeError) CodeError {
	var best CodeError
	for k := range idMsgFct {
		if k <= code && k > best {
			best = k
		}
	}
	return best
}
