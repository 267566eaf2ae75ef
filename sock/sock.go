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

//go:build unix

// Package sock wraps the handful of socket-level primitives the engine
// needs: bind-and-listen with SO_REUSEADDR, per-connection timeouts,
// TCP keep-alive on accepted sockets, and the linger-then-half-close
// sequence used to release a connection without ephemeral-port exhaustion.
//
// Every socket Go's net package opens already carries close-on-exec and
// non-blocking mode by default, so unlike the source this package never
// sets either explicitly.
package sock

import (
	"context"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	liberr "github.com/sabouaram/mingoose/errors"
)

// BindAndListen opens a TCP listener on host:port (host and port already
// parsed from the port spec) with SO_REUSEADDR set on the underlying file
// descriptor, and returns it.
// Any partially opened resource is released before the error surfaces.
func BindAndListen(ctx context.Context, host string, port int) (*net.TCPListener, liberr.Error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var ctlErr error
			err := c.Control(func(fd uintptr) {
				ctlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return ctlErr
		},
	}

	ln, err := lc.Listen(ctx, "tcp", addr)
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

// PrepareAccepted applies the per-accepted-socket primitives the acceptor
// runs once per connection: TCP keep-alive (so a silent peer is reaped even
// under HTTP keep-alive) and the request timeout as both read and write
// deadline.
func PrepareAccepted(conn *net.TCPConn, requestTimeout time.Duration) error {
	if err := conn.SetKeepAlive(true); err != nil {
		return err
	}

	return ApplyDeadline(conn, requestTimeout)
}

// ApplyDeadline resets both the read and write deadline to now+timeout.
// The request loop calls this once at the start of every request
// iteration, so the configured timeout bounds each iteration (header
// read, dispatch and response), not the whole connection lifetime.
func ApplyDeadline(conn net.Conn, timeout time.Duration) error {
	if timeout <= 0 {
		return conn.SetDeadline(time.Time{})
	}
	return conn.SetDeadline(time.Now().Add(timeout))
}

// GracefulClose sets SO_LINGER (onoff=1, linger=1s), half-closes the write
// side so the FIN reaches the peer, then closes the socket. The linger plus
// half-close sequence waits for FIN-ACK before the descriptor is released,
// avoiding ephemeral-port exhaustion under sustained load.
func GracefulClose(conn *net.TCPConn) error {
	_ = conn.SetLinger(1)
	_ = conn.CloseWrite()
	return conn.Close()
}

// PortInUse dials the given "host:port" with a short timeout to detect
// whether something is already listening there. It returns
// ErrorPortInUse when the port answered, ErrorInvalidAddress when listen
// has no port, and nil when nothing answered.
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

// dialableAddr rewrites a wildcard bind address (0.0.0.0, ::) into
// 127.0.0.1 so a loopback probe can actually connect to it.
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
