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

package request_test

import (
	"io"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/mingoose/handler"
	"github.com/sabouaram/mingoose/request"
)

const echoResponse = "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"

type echoHandler struct{}

func (echoHandler) Handle(ev handler.Event) int {
	if ev.Kind == handler.Request {
		ev.SetStatus(200)
		_, _ = ev.Writer.Write([]byte(echoResponse))
	}
	return 0
}

func runServe(conn net.Conn, opt request.Options) <-chan struct{} {
	done := make(chan struct{})
	c := request.NewConnection(conn, conn.LocalAddr(), conn.RemoteAddr(), 0)
	go func() {
		request.Serve(c, echoHandler{}, opt, nil)
		close(done)
	}()
	return done
}

var _ = Describe("Request Loop", func() {
	var client, server net.Conn

	BeforeEach(func() {
		client, server = net.Pipe()
	})

	AfterEach(func() {
		_ = client.Close()
		_ = server.Close()
	})

	It("keeps the connection alive by default on HTTP/1.1 with no Connection header", func() {
		done := runServe(server, request.Options{RequestTimeout: time.Second, EnableKeepAlive: true})

		_, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
		Expect(err).To(BeNil())

		resp := make([]byte, len(echoResponse))
		_, err = io.ReadFull(client, resp)
		Expect(err).To(BeNil())
		Expect(string(resp)).To(Equal(echoResponse))

		// connection must still be alive: a second request gets served too.
		_, err = client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
		Expect(err).To(BeNil())

		resp2 := make([]byte, len(echoResponse))
		_, err = io.ReadFull(client, resp2)
		Expect(err).To(BeNil())
		Expect(string(resp2)).To(Equal(echoResponse))

		_ = client.Close()
		Eventually(done, time.Second).Should(BeClosed())
	})

	It("closes after one iteration when the request asks for Connection: close", func() {
		done := runServe(server, request.Options{RequestTimeout: time.Second, EnableKeepAlive: true})

		_, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
		Expect(err).To(BeNil())

		resp := make([]byte, len(echoResponse))
		_, err = io.ReadFull(client, resp)
		Expect(err).To(BeNil())

		Eventually(done, time.Second).Should(BeClosed())
	})

	It("closes by default on HTTP/1.0 with no Connection header", func() {
		done := runServe(server, request.Options{RequestTimeout: time.Second, EnableKeepAlive: true})

		_, err := client.Write([]byte("GET / HTTP/1.0\r\nHost: x\r\n\r\n"))
		Expect(err).To(BeNil())

		resp := make([]byte, len(echoResponse))
		_, err = io.ReadFull(client, resp)
		Expect(err).To(BeNil())

		Eventually(done, time.Second).Should(BeClosed())
	})

	It("answers 400 and closes on an invalid request URI", func() {
		done := runServe(server, request.Options{RequestTimeout: time.Second, EnableKeepAlive: true})

		_, err := client.Write([]byte("GET nopath HTTP/1.1\r\nHost: x\r\n\r\n"))
		Expect(err).To(BeNil())

		resp := make([]byte, 12)
		_, err = io.ReadFull(client, resp)
		Expect(err).To(BeNil())
		Expect(string(resp)).To(Equal("HTTP/1.1 400"))

		Eventually(done, time.Second).Should(BeClosed())
	})

	It("never keeps alive when the global switch is off, even for HTTP/1.1", func() {
		done := runServe(server, request.Options{RequestTimeout: time.Second, EnableKeepAlive: false})

		_, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
		Expect(err).To(BeNil())

		resp := make([]byte, len(echoResponse))
		_, err = io.ReadFull(client, resp)
		Expect(err).To(BeNil())

		Eventually(done, time.Second).Should(BeClosed())
	})
})
