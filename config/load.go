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

package config

import (
	"github.com/spf13/viper"
)

// Load merges built-in defaults, an optional config file (YAML, TOML, or
// anything else viper's codec registry recognises by extension), and
// environment variables prefixed MINGOOSE_, lowest precedence first. The
// returned Settings is not yet validated — call Freeze before handing it
// to the engine.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("mingoose")
	v.AutomaticEnv()

	s := New()
	v.SetDefault("listening_ports", s.ListeningPorts)
	v.SetDefault("num_threads", s.NumThreads)
	v.SetDefault("request_timeout_ms", s.RequestTimeoutMs)
	v.SetDefault("enable_keep_alive", s.EnableKeepAlive)
	v.SetDefault("throttle", s.ThrottleBytesPerSec)
	v.SetDefault("queue_capacity", s.QueueCapacity)
	v.SetDefault("run_as_user", s.RunAsUser)
	v.SetDefault("document_root", s.DocumentRoot)
	v.SetDefault("global_auth_file", s.GlobalAuthFile)
	v.SetDefault("hide_files_patterns", s.HideFilesPatterns)
	v.SetDefault("log_level", s.LogLevel)
	v.SetDefault("log_format", s.LogFormat)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	out := &Settings{}
	if err := v.Unmarshal(out); err != nil {
		return nil, err
	}

	return out, nil
}
