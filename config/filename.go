package config

import (
	"strings"
	"unicode"
)

// CleanFileName turns in into a name of a single file in the destination
// directory: separators, reserved and control characters are removed,
// leading dots are dropped so results are never hidden, trailing dots and
// spaces are dropped since some file systems refuse them.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if unicode.IsControl(sym) || strings.ContainsRune(reservedRunes, sym) {
			return -1
		}
		return sym
	}, in)
	out = strings.TrimRight(strings.TrimLeft(out, "."), ". ")
	if len(out) == 0 {
		out = "_bad_file_name_"
	}
	return out
}
