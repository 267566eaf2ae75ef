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

import liberr "github.com/sabouaram/mingoose/errors"

const (
	ErrorHeadersTooLarge liberr.CodeError = iota + liberr.MinPkgRequest
	ErrorPeerClosed
	ErrorMalformedRequestLine
	ErrorInvalidURI
	ErrorUnsupportedVersion
	ErrorIo
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = liberr.ExistInMapMessage(ErrorHeadersTooLarge)
	liberr.RegisterIdFctMessage(ErrorHeadersTooLarge, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case liberr.UnknownError:
		return ""
	case ErrorHeadersTooLarge:
		return "request headers exceed the connection buffer"
	case ErrorPeerClosed:
		return "peer closed the connection before headers completed"
	case ErrorMalformedRequestLine:
		return "malformed request line"
	case ErrorInvalidURI:
		return "request URI must be '*' or start with '/'"
	case ErrorUnsupportedVersion:
		return "unsupported HTTP version"
	case ErrorIo:
		return "i/o error reading or writing the connection"
	}

	return ""
}
