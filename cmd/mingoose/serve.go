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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sabouaram/mingoose/engine"
	"github.com/sabouaram/mingoose/handler"
	"github.com/sabouaram/mingoose/log"
)

// shutdownTimeout bounds how long runServe waits for the two-phase
// shutdown protocol before giving up and exiting anyway.
const shutdownTimeout = 10 * time.Second

// runServe loads Settings, starts the engine and blocks until a shutdown
// signal arrives. SIGINT/SIGTERM each request a graceful stop exactly
// once; a second signal of either kind forces an immediate exit rather
// than waiting on workers that may never drain, matching the process
// shell's documented signal semantics.
func runServe(cmd *cobra.Command) error {
	settings, err := loadSettings(vpr)
	if err != nil {
		return ErrorStartup.Error(err)
	}

	logger := log.New(settings.LogLevel, settings.LogFormat, os.Stderr)
	entry := log.Component(logger, "mingoose")

	srv := engine.New(settings, handler.NewBadHandler())

	if err := srv.Bind(context.Background()); err != nil {
		entry.WithError(err).Error("engine failed to bind")
		return ErrorStartup.Error(err)
	}
	entry.WithField("listen", settings.ListeningPorts).Info("engine bound")

	// Privileges drop after the socket is bound but strictly before any
	// Acceptor or Worker goroutine starts, matching the original source's
	// "UID must be set last" ordering relative to bind but ahead of
	// mg_start_thread.
	if err := settings.DropPrivileges(); err != nil {
		entry.WithError(err).Error("failed to drop privileges")
		return ErrorStartup.Error(err)
	}

	if err := srv.Launch(); err != nil {
		entry.WithError(err).Error("engine failed to start")
		return ErrorStartup.Error(err)
	}
	entry.Info("engine started")

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigCh
	entry.WithField("signal", sig.String()).Info("shutdown requested")

	go func() {
		second := <-sigCh
		entry.WithField("signal", second.String()).Warn("second signal received, forcing exit")
		os.Exit(1)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		entry.WithError(err).Error("engine failed to stop cleanly")
		return fmt.Errorf("shutdown: %w", err)
	}

	entry.Info("engine stopped")
	return nil
}
