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

// Package config freezes the engine's Settings before the server starts.
//
// A Settings value is produced once, validated, and handed to the engine
// as an immutable snapshot: nothing in this package mutates a Settings in
// place after Freeze returns it, matching the original source's intent
// that options never change for the life of a running server (without
// the original's manual-free bookkeeping, since Go's garbage collector
// owns the value once nothing references the builder anymore).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	liberr "github.com/sabouaram/mingoose/errors"
)

// PortSpec is the address the engine binds its single listening socket to.
// Grammar: [ipv4:]port, port in (0, 65535); any trailing character after
// the port number invalidates the spec.
type PortSpec string

// ParsePortSpec validates a PortSpec per §4.1's grammar and splits it into
// a host (possibly empty, meaning INADDR_ANY) and a numeric port.
func ParsePortSpec(s string) (host string, port int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, fmt.Errorf("empty port spec")
	}

	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		host = s[:idx]
		s = s[idx+1:]
	}

	if s == "" {
		return "", 0, fmt.Errorf("missing port in spec")
	}

	for _, c := range s {
		if c < '0' || c > '9' {
			return "", 0, fmt.Errorf("trailing characters in port spec: %q", s)
		}
	}

	n, e := strconv.Atoi(s)
	if e != nil {
		return "", 0, fmt.Errorf("invalid port number: %w", e)
	}

	if n <= 0 || n >= 65535 {
		return "", 0, fmt.Errorf("port out of range (0,65535): %d", n)
	}

	if host != "" {
		if net := strings.Count(host, "."); net != 3 {
			return "", 0, fmt.Errorf("invalid ipv4 host in port spec: %q", host)
		}
	}

	return host, n, nil
}

// Settings is the frozen configuration consumed by every other component.
// It is built through New + functional Options, then validated and frozen
// with Freeze; nothing past that point may mutate it — callers that need
// an evolving copy should Clone before changing fields.
type Settings struct {
	// ListeningPorts is the port spec consumed by the socket primitives.
	ListeningPorts string `mapstructure:"listening_ports" yaml:"listening_ports" validate:"required"`

	// NumThreads is the size of the worker pool.
	NumThreads int `mapstructure:"num_threads" yaml:"num_threads" validate:"required,min=1,max=20000"`

	// RequestTimeoutMs bounds every blocking read/write on an accepted socket.
	RequestTimeoutMs int `mapstructure:"request_timeout_ms" yaml:"request_timeout_ms" validate:"required,min=1"`

	// EnableKeepAlive is the global HTTP/1.1 keep-alive switch.
	EnableKeepAlive bool `mapstructure:"enable_keep_alive" yaml:"enable_keep_alive"`

	// ThrottleBytesPerSec is 0 to disable the write-rate limiter.
	ThrottleBytesPerSec int64 `mapstructure:"throttle" yaml:"throttle" validate:"min=0"`

	// QueueCapacity is the accept-queue ring buffer size.
	QueueCapacity int `mapstructure:"queue_capacity" yaml:"queue_capacity" validate:"required,min=1,max=65536"`

	// RunAsUser, if non-empty, is the system user workers drop privileges to.
	RunAsUser string `mapstructure:"run_as_user" yaml:"run_as_user"`

	// DocumentRoot is handler-consumed; the core never opens files itself.
	DocumentRoot string `mapstructure:"document_root" yaml:"document_root"`

	// GlobalAuthFile is existence-checked at Freeze time if non-empty.
	GlobalAuthFile string `mapstructure:"global_auth_file" yaml:"global_auth_file"`

	// HideFilesPatterns is handler-consumed prefix-match patterns.
	HideFilesPatterns []string `mapstructure:"hide_files_patterns" yaml:"hide_files_patterns"`

	// LogLevel and LogFormat configure the C12 logging sink.
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	frozen bool
	mu     sync.Mutex
}

// Option mutates a Settings value before it is frozen.
type Option func(*Settings)

// New returns a Settings populated with the engine's defaults, matching
// num_threads=50 from §6's configuration-knob table.
func New(opts ...Option) *Settings {
	s := &Settings{
		NumThreads:       50,
		RequestTimeoutMs: 30000,
		EnableKeepAlive:  true,
		QueueCapacity:    20,
		LogLevel:         "info",
		LogFormat:        "text",
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

func WithListeningPorts(spec string) Option {
	return func(s *Settings) { s.ListeningPorts = spec }
}

func WithNumThreads(n int) Option {
	return func(s *Settings) { s.NumThreads = n }
}

func WithRequestTimeoutMs(ms int) Option {
	return func(s *Settings) { s.RequestTimeoutMs = ms }
}

func WithKeepAlive(enabled bool) Option {
	return func(s *Settings) { s.EnableKeepAlive = enabled }
}

func WithThrottle(bytesPerSec int64) Option {
	return func(s *Settings) { s.ThrottleBytesPerSec = bytesPerSec }
}

func WithQueueCapacity(n int) Option {
	return func(s *Settings) { s.QueueCapacity = n }
}

func WithRunAsUser(user string) Option {
	return func(s *Settings) { s.RunAsUser = user }
}

func WithDocumentRoot(path string) Option {
	return func(s *Settings) { s.DocumentRoot = path }
}

func WithGlobalAuthFile(path string) Option {
	return func(s *Settings) { s.GlobalAuthFile = path }
}

func WithHideFilesPatterns(patterns ...string) Option {
	return func(s *Settings) { s.HideFilesPatterns = patterns }
}

func WithLogging(level, format string) Option {
	return func(s *Settings) {
		if level != "" {
			s.LogLevel = level
		}
		if format != "" {
			s.LogFormat = format
		}
	}
}

// Clone returns an independent copy that may still be mutated with Options,
// even if the receiver has already been frozen.
func (s *Settings) Clone() *Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *s
	c.frozen = false
	c.mu = sync.Mutex{}
	c.HideFilesPatterns = append([]string(nil), s.HideFilesPatterns...)
	return &c
}

// Validate runs struct-tag validation plus the port-spec and filesystem
// checks the generated tags cannot express, mirroring the teacher's
// validator.New()-per-call pattern in httpserver.ServerConfig.Validate.
func (s *Settings) Validate() liberr.Error {
	val := validator.New()

	if err := val.Struct(s); err != nil {
		out := ErrorValidate.Error(nil)

		if ive, ok := err.(*validator.InvalidValidationError); ok {
			out.Add(ive)
			return out
		}

		for _, fe := range err.(validator.ValidationErrors) {
			out.Add(fmt.Errorf("field '%s' failed constraint '%s'", fe.Field(), fe.ActualTag()))
		}

		return out
	}

	if _, _, err := ParsePortSpec(s.ListeningPorts); err != nil {
		return ErrorPortSpec.Error(err)
	}

	if s.RunAsUser != "" {
		if _, err := lookupUser(s.RunAsUser); err != nil {
			return ErrorUnknownUser.Error(err)
		}
	}

	if s.GlobalAuthFile != "" {
		if _, err := os.Stat(s.GlobalAuthFile); err != nil {
			return ErrorAuthFileMissing.Error(err)
		}
	}

	return nil
}

// Freeze validates the Settings and marks it immutable. The returned error,
// if any, is the same liberr.Error Validate would have returned.
func (s *Settings) Freeze() liberr.Error {
	if err := s.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
	return nil
}

// IsFrozen reports whether Freeze has already succeeded on this value.
func (s *Settings) IsFrozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}
