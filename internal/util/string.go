// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "strings"

// TruncateString shortens s to at most maxLen runes, appending an
// ellipsis when it had to cut. Rune-safe, so multibyte names in
// officer fields and document titles never split mid-character.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}

// MaskTail hides all but the last visible characters of a secret-ish
// value for display, such as API keys in config output.
func MaskTail(s string, visible int) string {
	runes := []rune(s)
	if len(runes) <= visible {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-visible) + string(runes[len(runes)-visible:])
}
