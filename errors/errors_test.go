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

package errors_test

import (
	"errors"
	"testing"

	liberr "github.com/sabouaram/mingoose/errors"
)

// testMinCode sits well above every MinPkg* range and MinAvailable so it
// cannot collide with a constant any other package in this module
// registers.
const testMinCode liberr.CodeError = liberr.MinAvailable + 100

const (
	errOne liberr.CodeError = iota + testMinCode
	errTwo
)

func init() {
	liberr.RegisterIdFctMessage(errOne, func(code liberr.CodeError) string {
		switch code {
		case errOne:
			return "one"
		case errTwo:
			return "two"
		}
		return ""
	})
}

func TestCodeErrorMessageByRange(t *testing.T) {
	if got := errOne.Message(); got != "one" {
		t.Fatalf("expected %q, got %q", "one", got)
	}
	if got := errTwo.Message(); got != "two" {
		t.Fatalf("expected %q, got %q", "two", got)
	}
	if got := liberr.UnknownError.Message(); got != liberr.UnknownMessage {
		t.Fatalf("expected %q, got %q", liberr.UnknownMessage, got)
	}
}

func TestExistInMapMessage(t *testing.T) {
	if !liberr.ExistInMapMessage(errOne) {
		t.Fatal("expected errOne's range to already be registered")
	}
	if liberr.ExistInMapMessage(liberr.UnknownError) {
		t.Fatal("UnknownError must never report as registered")
	}
}

func TestCodeErrorErrorIsCode(t *testing.T) {
	err := errOne.Error(nil)
	if !err.IsCode(errOne) {
		t.Fatal("expected IsCode(errOne) to be true")
	}
	if err.IsCode(errTwo) {
		t.Fatal("expected IsCode(errTwo) to be false")
	}
	if err.Error() != "one" {
		t.Fatalf("expected message %q, got %q", "one", err.Error())
	}
}

func TestCodeErrorErrorWithParentKeepsOwnMessage(t *testing.T) {
	cause := errors.New("underlying failure")
	err := errTwo.Error(cause)

	if err.Error() != "two" {
		t.Fatalf("expected the code's own message, got %q", err.Error())
	}
	if !err.IsCode(errTwo) {
		t.Fatal("expected IsCode(errTwo) to be true")
	}
}
