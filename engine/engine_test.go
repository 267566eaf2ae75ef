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

package engine_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/mingoose/config"
	"github.com/sabouaram/mingoose/engine"
	"github.com/sabouaram/mingoose/handler"
)

type pongHandler struct{}

func (pongHandler) Handle(ev handler.Event) int {
	if ev.Kind == handler.Request {
		ev.SetStatus(200)
		body := "pong"
		resp := fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
		_, _ = ev.Writer.Write([]byte(resp))
	}
	return 0
}

func freePort() int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).To(BeNil())
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

var _ = Describe("Server", func() {
	It("accepts a connection, serves one request, and shuts down cleanly", func() {
		port := freePort()

		s := config.New(
			config.WithListeningPorts(fmt.Sprintf("127.0.0.1:%d", port)),
			config.WithNumThreads(2),
			config.WithQueueCapacity(4),
		)
		Expect(s.Validate()).To(BeNil())

		srv := engine.New(s, pongHandler{})
		Expect(srv.Start(context.Background())).To(BeNil())
		Expect(srv.IsRunning()).To(BeTrue())

		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
		Expect(err).To(BeNil())

		_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
		Expect(err).To(BeNil())

		resp, err := io.ReadAll(conn)
		Expect(err).To(BeNil())
		Expect(string(resp)).To(ContainSubstring("200 OK"))
		Expect(string(resp)).To(ContainSubstring("pong"))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		Expect(srv.Stop(ctx)).To(BeNil())
		Expect(srv.StopFlag()).To(Equal(int32(2)))
	})

	It("refuses to start twice", func() {
		port := freePort()

		s := config.New(config.WithListeningPorts(fmt.Sprintf("127.0.0.1:%d", port)))
		Expect(s.Validate()).To(BeNil())

		srv := engine.New(s, pongHandler{})
		Expect(srv.Start(context.Background())).To(BeNil())

		err := srv.Start(context.Background())
		Expect(err).ToNot(BeNil())

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})

	It("accepts connections only after Launch, once Bind has already bound the socket", func() {
		port := freePort()

		s := config.New(
			config.WithListeningPorts(fmt.Sprintf("127.0.0.1:%d", port)),
			config.WithNumThreads(1),
			config.WithQueueCapacity(4),
		)
		Expect(s.Validate()).To(BeNil())

		srv := engine.New(s, pongHandler{})
		Expect(srv.Bind(context.Background())).To(BeNil())
		Expect(srv.IsRunning()).To(BeFalse())

		Expect(srv.Launch()).To(BeNil())
		Expect(srv.IsRunning()).To(BeTrue())

		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
		Expect(err).To(BeNil())
		_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
		Expect(err).To(BeNil())

		resp, err := io.ReadAll(conn)
		Expect(err).To(BeNil())
		Expect(string(resp)).To(ContainSubstring("pong"))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		Expect(srv.Stop(ctx)).To(BeNil())
	})
})
