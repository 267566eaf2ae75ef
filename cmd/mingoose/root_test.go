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
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestRegisterFlagsBindsEveryKey(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()

	if err := registerFlags(cmd, v); err != nil {
		t.Fatalf("registerFlags: %v", err)
	}

	if cmd.PersistentFlags().Lookup("listen") == nil {
		t.Fatal("expected --listen flag to be registered")
	}
	if cmd.PersistentFlags().Lookup("workers") == nil {
		t.Fatal("expected --workers flag to be registered")
	}
}

func TestLoadSettingsAppliesFlagOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()
	if err := registerFlags(cmd, v); err != nil {
		t.Fatalf("registerFlags: %v", err)
	}

	if err := cmd.PersistentFlags().Set("listen", "127.0.0.1:9090"); err != nil {
		t.Fatalf("Set(listen): %v", err)
	}
	if err := cmd.PersistentFlags().Set("workers", "7"); err != nil {
		t.Fatalf("Set(workers): %v", err)
	}

	s, err := loadSettings(v)
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}

	if s.ListeningPorts != "127.0.0.1:9090" {
		t.Fatalf("ListeningPorts = %q, want 127.0.0.1:9090", s.ListeningPorts)
	}
	if s.NumThreads != 7 {
		t.Fatalf("NumThreads = %d, want 7", s.NumThreads)
	}
	if !s.IsFrozen() {
		t.Fatal("expected loadSettings to freeze the result")
	}
}

func TestLoadSettingsReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mingoose.yaml")
	body := "listening_ports: \"0.0.0.0:8181\"\nnum_threads: 12\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cmd := &cobra.Command{Use: "test"}
	v := viper.New()
	if err := registerFlags(cmd, v); err != nil {
		t.Fatalf("registerFlags: %v", err)
	}
	if err := cmd.PersistentFlags().Set("config", path); err != nil {
		t.Fatalf("Set(config): %v", err)
	}

	s, err := loadSettings(v)
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.ListeningPorts != "0.0.0.0:8181" {
		t.Fatalf("ListeningPorts = %q, want 0.0.0.0:8181", s.ListeningPorts)
	}
	if s.NumThreads != 12 {
		t.Fatalf("NumThreads = %d, want 12", s.NumThreads)
	}
}

func TestLoadSettingsRejectsMissingListeningPorts(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()
	if err := registerFlags(cmd, v); err != nil {
		t.Fatalf("registerFlags: %v", err)
	}

	if _, err := loadSettings(v); err == nil {
		t.Fatal("expected loadSettings to fail without a listening port spec")
	}
}
