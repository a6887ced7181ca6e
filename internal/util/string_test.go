// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "testing"

// =============================================================================
// STRING HELPER TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"tiny budget", "hello", 2, "he"},
		{"zero", "hello", 0, ""},
		{"multibyte", "héllo wörld", 8, "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateRunes(tt.input, tt.maxRunes); got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	// CJK characters render two cells wide.
	if got := TruncateWidth("日本語テスト", 20); got != "日本語テスト" {
		t.Errorf("got %q, want unchanged", got)
	}
	got := TruncateWidth("日本語テスト", 8)
	if StringWidth(got) > 8 {
		t.Errorf("TruncateWidth result %q is %d cells wide", got, StringWidth(got))
	}
	if TruncateWidth("anything", 0) != "" {
		t.Error("zero width must yield empty")
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("ab", 5); got != "ab   " {
		t.Errorf("PadRight = %q", got)
	}
	// Wide runes count as two cells.
	if got := PadRight("日", 4); StringWidth(got) != 4 {
		t.Errorf("PadRight(日, 4) = %q (%d cells)", got, StringWidth(got))
	}
}
