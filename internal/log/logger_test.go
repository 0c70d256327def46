/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, c := range cases {
		got := parseLevel(c.in)
		if got.Level() != c.want {
			t.Errorf("parseLevel(%q) = %v, want %v", c.in, got.Level(), c.want)
		}
	}
}

func TestPrettyHandlerWritesAttrs(t *testing.T) {
	var sb strings.Builder
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelDebug}, w: &sb}
	l := slog.New(h).With(slog.String("component", "test"))
	l.Info("hello", slog.Int("n", 3))
	out := sb.String()
	if !strings.Contains(out, "INF") || !strings.Contains(out, "hello") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(out, "component=test") || !strings.Contains(out, "n=3") {
		t.Fatalf("attrs missing from output: %q", out)
	}
}

func TestPrettyHandlerLevelGate(t *testing.T) {
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelWarn}, w: &strings.Builder{}}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("error should be enabled at warn level")
	}
}

func TestWithComponentAndOperation(t *testing.T) {
	Init(Options{Level: "error"})
	l := WithOperation(WithComponent("render"), "compose")
	if l == nil {
		t.Fatal("nil logger")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("WS_LOG_LEVEL", "")
	t.Setenv("WS_LOG_FORMAT", "")
	opts := FromEnv()
	if opts.Level != "info" || opts.Format != "console" {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}
