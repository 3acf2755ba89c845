// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points HOME at a temp dir and clears RAGTERM_* variables.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"RAGTERM_API_URL", "RAGTERM_HOST", "RAGTERM_LOG_LEVEL", "RAGTERM_STATE_PATH", "RAGTERM_POLL_INTERVAL"} {
		t.Setenv(key, "")
	}
	return home
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Tasks.PollInterval.Duration != 2*time.Second {
		t.Errorf("poll_interval = %v, want 2s", cfg.Tasks.PollInterval)
	}
	if cfg.Tasks.CompletedWindow.Duration != 60*time.Second {
		t.Errorf("completed_window = %v, want 60s", cfg.Tasks.CompletedWindow)
	}
	if got := cfg.ResolveBaseURL(""); got != "http://localhost:8000" {
		t.Errorf("ResolveBaseURL = %q", got)
	}
}

func TestLoad_TOMLAndPartialDefaults(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[api]
host = "rag.internal"
timeout = "5s"

[tasks]
poll_interval = "750ms"

[watch]
strategy = "overwrite"
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.API.Timeout.Duration != 5*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.Tasks.PollInterval.Duration != 750*time.Millisecond {
		t.Errorf("poll_interval = %v", cfg.Tasks.PollInterval)
	}
	if cfg.Tasks.Type != "ingestion" {
		t.Errorf("tasks.type default not applied: %q", cfg.Tasks.Type)
	}
	if cfg.Watch.Strategy != "overwrite" {
		t.Errorf("watch.strategy = %q", cfg.Watch.Strategy)
	}
	if got := cfg.ResolveBaseURL(""); got != "http://rag.internal:8000" {
		t.Errorf("ResolveBaseURL = %q", got)
	}
}

func TestResolveBaseURL_Precedence(t *testing.T) {
	isolate(t)

	cfg := Default()
	cfg.API.Host = "hostonly"
	if got := cfg.ResolveBaseURL(""); got != "http://hostonly:8000" {
		t.Errorf("host: got %q", got)
	}

	cfg.API.URL = "https://rag.example.com/"
	if got := cfg.ResolveBaseURL(""); got != "https://rag.example.com" {
		t.Errorf("url: got %q", got)
	}

	if got := cfg.ResolveBaseURL("http://flag:9000/"); got != "http://flag:9000" {
		t.Errorf("flag: got %q", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RAGTERM_API_URL", "http://env:8000")
	t.Setenv("RAGTERM_LOG_LEVEL", "debug")
	t.Setenv("RAGTERM_POLL_INTERVAL", "5")
	t.Setenv("RAGTERM_STATE_PATH", "/tmp/ragterm-state.db")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.URL != "http://env:8000" {
		t.Errorf("api.url = %q", cfg.API.URL)
	}
	if cfg.UI.LogLevel != "debug" {
		t.Errorf("ui.log_level = %q", cfg.UI.LogLevel)
	}
	if cfg.Tasks.PollInterval.Duration != 5*time.Second {
		t.Errorf("poll_interval = %v", cfg.Tasks.PollInterval)
	}
	path, err := cfg.StatePath()
	if err != nil || path != "/tmp/ragterm-state.db" {
		t.Errorf("StatePath = %q, %v", path, err)
	}
}

func TestLoad_DotEnvDoesNotOverrideEnv(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".ragterm")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	env := "RAGTERM_HOST=dotenv-host\nRAGTERM_LOG_LEVEL=error\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0600); err != nil {
		t.Fatal(err)
	}
	os.Unsetenv("RAGTERM_HOST")
	t.Setenv("RAGTERM_LOG_LEVEL", "info")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.Host != "dotenv-host" {
		t.Errorf("api.host = %q, want value from .env", cfg.API.Host)
	}
	if cfg.UI.LogLevel != "info" {
		t.Errorf("ui.log_level = %q, real env must win", cfg.UI.LogLevel)
	}
	os.Unsetenv("RAGTERM_HOST")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.API.URL = "ftp://nope"
	cfg.Tasks.PollInterval = D(10 * time.Millisecond)
	cfg.UI.Theme = "neon"
	cfg.UI.LogLevel = "chatty"
	cfg.Watch.Strategy = "merge"

	err := cfg.Validate()
	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidateErrors, got %v", err)
	}

	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, f := range []string{"api.url", "tasks.poll_interval", "ui.theme", "ui.log_level", "watch.strategy"} {
		if !fields[f] {
			t.Errorf("missing validation error for %s", f)
		}
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.API.URL = "http://saved:8000"
	cfg.Tasks.PollInterval = D(3 * time.Second)
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.API.URL != "http://saved:8000" || loaded.Tasks.PollInterval.Duration != 3*time.Second {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("chat.show_reasoning", "false"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if cfg.Chat.ShowReasoning {
		t.Error("show_reasoning not updated")
	}
	if err := cfg.Set("tasks.poll_interval", "4s"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := cfg.Get("tasks.poll_interval"); v != "4s" {
		t.Errorf("Get = %v", v)
	}
	if err := cfg.Set("api.rate_limit", "2.5"); err != nil || cfg.API.RateLimit != 2.5 {
		t.Errorf("rate_limit = %v, err %v", cfg.API.RateLimit, err)
	}

	if err := cfg.Set("api", "x"); err == nil {
		t.Error("setting a section should fail")
	}
	if _, err := cfg.Get("nope.key"); err == nil {
		t.Error("unknown key should fail")
	}
	if err := cfg.Set("chat.show_reasoning", "maybe"); err == nil {
		t.Error("bad boolean should fail")
	}

	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%s): %v", key, err)
		}
	}
}
