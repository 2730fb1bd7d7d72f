// Package debug has helpers producing human readable diagnostic dumps.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter builds indented text tree, two spaces per level.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes "label: value" with value quoted when not empty.
func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Property writes CSS declaration line.
func (tw TreeWriter) Property(depth int, name, value string, important bool) {
	tw.indent(depth)
	tw.w.WriteString(name)
	tw.w.WriteString(" = ")
	tw.w.WriteString(encodeText(value))
	if important {
		tw.w.WriteString(" !important")
	}
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
