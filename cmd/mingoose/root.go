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

// Command mingoose is the process shell around the engine: it parses
// flags and an optional config file into a Settings, starts the engine,
// and waits for a shutdown signal. Flag registration follows the
// RegisterFlag(Command, Viper) shape the configuration components use
// throughout the retrieved pack, generalised here to build the root
// command itself rather than contribute flags to one owned elsewhere.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sabouaram/mingoose/config"
)

var vpr = viper.New()

// newRootCommand builds the mingoose root command: flags bound into vpr
// through BindPFlag exactly as the pack's component RegisterFlag methods
// do, a config file optionally merged on top, and a RunE that drives the
// engine to completion.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mingoose",
		Short:         "embeddable HTTP/1.x serving engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	if err := registerFlags(cmd, vpr); err != nil {
		panic(err)
	}

	// -h/--help prints usage and exits with status 1.
	defaultHelp := cmd.HelpFunc()
	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		defaultHelp(c, args)
		os.Exit(1)
	})

	return cmd
}

// registerFlags declares every flag on Command and binds each one into
// Viper by key, matching the pack's
// RegisterFlag(Command *cobra.Command, Viper *viper.Viper) error idiom.
func registerFlags(Command *cobra.Command, Viper *viper.Viper) error {
	Command.PersistentFlags().String("config", "", "path to a YAML configuration file")
	if err := Viper.BindPFlag("config", Command.PersistentFlags().Lookup("config")); err != nil {
		return err
	}

	Command.PersistentFlags().String("listen", "", "listening port spec, e.g. 0.0.0.0:8080")
	if err := Viper.BindPFlag("listening_ports", Command.PersistentFlags().Lookup("listen")); err != nil {
		return err
	}

	Command.PersistentFlags().Int("workers", 0, "worker pool size (0 keeps the config/default value)")
	if err := Viper.BindPFlag("num_threads", Command.PersistentFlags().Lookup("workers")); err != nil {
		return err
	}

	Command.PersistentFlags().String("document-root", "", "directory served by the default handler")
	if err := Viper.BindPFlag("document_root", Command.PersistentFlags().Lookup("document-root")); err != nil {
		return err
	}

	Command.PersistentFlags().String("run-as-user", "", "system user to validate privilege drop against")
	if err := Viper.BindPFlag("run_as_user", Command.PersistentFlags().Lookup("run-as-user")); err != nil {
		return err
	}

	Command.PersistentFlags().String("log-level", "", "logrus level: trace, debug, info, warn, error")
	if err := Viper.BindPFlag("log_level", Command.PersistentFlags().Lookup("log-level")); err != nil {
		return err
	}

	return nil
}

// loadSettings merges defaults, an optional config file and the bound
// flags into a single Settings, then freezes it. The defaults/file/env
// layer is config.Load's job; this function only applies the flag
// overrides Load has no way to see.
func loadSettings(Viper *viper.Viper) (*config.Settings, error) {
	s, err := config.Load(Viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if v := Viper.GetString("listening_ports"); v != "" {
		s.ListeningPorts = v
	}
	if v := Viper.GetInt("num_threads"); v > 0 {
		s.NumThreads = v
	}
	if v := Viper.GetString("document_root"); v != "" {
		s.DocumentRoot = v
	}
	if v := Viper.GetString("run_as_user"); v != "" {
		s.RunAsUser = v
	}
	if v := Viper.GetString("log_level"); v != "" {
		s.LogLevel = v
	}

	if err := s.Freeze(); err != nil {
		return nil, err
	}

	return s, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mingoose:", err)
		os.Exit(1)
	}
}
