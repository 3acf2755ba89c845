// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/muesli/termenv"
)

func TestNewTheme_Modes(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark {
		t.Error("dark mode should set IsDark")
	}
	light := NewTheme("light")
	if light.IsDark {
		t.Error("light mode should clear IsDark")
	}
	plain := NewTheme("none")
	if plain.ColorProfile != termenv.Ascii {
		t.Errorf("none mode profile = %v, want Ascii", plain.ColorProfile)
	}
	if got := plain.ErrorText.Render("boom"); got != "boom" {
		t.Errorf("none mode should render without escapes, got %q", got)
	}
}

func TestLayoutFor(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	for _, tt := range tests {
		if got := LayoutFor(tt.width); got != tt.want {
			t.Errorf("LayoutFor(%d) = %v, want %v", tt.width, got, tt.want)
		}
	}
}
