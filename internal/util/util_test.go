// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_CreatesAndOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.json")

	if err := AtomicWriteFile(path, []byte("first"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("second"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestAtomicWriteFile_Permissions(t *testing.T) {
	if os.PathSeparator == '\\' {
		t.Skip("permissions are not enforced on Windows")
	}
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := AtomicWriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

// =============================================================================
// DISPLAY TESTS
// =============================================================================

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 0, ""},
		{"hello", 2, "he"},
		{"日本語テキスト", 7, "日本..."},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestOneLine(t *testing.T) {
	if got := OneLine("  a\n\nb\tc  "); got != "a b c" {
		t.Errorf("OneLine = %q", got)
	}
}

func TestBytesAndCount(t *testing.T) {
	if got := Bytes(0); got != "-" {
		t.Errorf("Bytes(0) = %q", got)
	}
	if got := Bytes(1500); got != "1.5 kB" {
		t.Errorf("Bytes(1500) = %q", got)
	}
	if got := Count(1, "document"); got != "1 document" {
		t.Errorf("Count(1) = %q", got)
	}
	if got := Count(1200, "document"); got != "1,200 documents" {
		t.Errorf("Count(1200) = %q", got)
	}
}

func TestAgo(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := Ago(now.Add(-3*time.Minute), now); got != "3 minutes ago" {
		t.Errorf("Ago = %q", got)
	}
	if got := Ago(time.Time{}, now); got != "-" {
		t.Errorf("Ago(zero) = %q", got)
	}
}
