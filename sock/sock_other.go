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

//go:build !unix

package sock

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	liberr "github.com/sabouaram/mingoose/errors"
)

// BindAndListen on non-unix platforms relies on the platform's own default
// address-reuse behaviour; golang.org/x/sys/unix's SO_REUSEADDR control
// hook only applies to unix-family targets, see sock.go.
func BindAndListen(ctx context.Context, host string, port int) (*net.TCPListener, liberr.Error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, ErrorBindFailed.Error(err)
	}

	tln, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return nil, ErrorBindFailed.Error(fmt.Errorf("listener is not a TCP listener"))
	}

	return tln, nil
}

func PrepareAccepted(conn *net.TCPConn, requestTimeout time.Duration) error {
	if err := conn.SetKeepAlive(true); err != nil {
		return err
	}

	return ApplyDeadline(conn, requestTimeout)
}

func ApplyDeadline(conn net.Conn, timeout time.Duration) error {
	if timeout <= 0 {
		return conn.SetDeadline(time.Time{})
	}
	return conn.SetDeadline(time.Now().Add(timeout))
}

func GracefulClose(conn *net.TCPConn) error {
	_ = conn.SetLinger(1)
	_ = conn.CloseWrite()
	return conn.Close()
}

func PortInUse(ctx context.Context, listen string) liberr.Error {
	dialAddr, err := dialableAddr(listen)
	if err != nil {
		return ErrorInvalidAddress.Error(err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 250*time.Millisecond)
		defer cancel()
	}

	d := net.Dialer{}
	conn, derr := d.DialContext(ctx, "tcp", dialAddr)
	if derr != nil {
		return nil
	}
	_ = conn.Close()

	return ErrorPortInUse.Error(nil)
}

func dialableAddr(listen string) (string, error) {
	idx := strings.LastIndex(listen, ":")
	if idx < 0 {
		return "", fmt.Errorf("missing port in address %q", listen)
	}

	host, port := listen[:idx], listen[idx+1:]
	if host == "" || strings.HasPrefix(host, "0.0.0.0") || strings.HasPrefix(host, "::") {
		host = "127.0.0.1"
	}

	return host + ":" + port, nil
}
