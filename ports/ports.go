// Package ports declares the contracts between the grayscale pipeline and
// the host it runs in: the live stylesheet object model and the rendering
// environment used to canonicalize colors.
package ports

import (
	"context"
	"errors"
	"iter"
)

// ErrStale is returned when writing to a style which was removed from the
// document.
var ErrStale = errors.New("style is no longer attached to the document")

// Style is a mutable, ordered set of declarations of a single rule.
type Style interface {
	// All yields (name, value) pairs in declaration order. The sequence is a
	// snapshot: writes made while iterating are not observed.
	All() iter.Seq2[string, string]
	// Get returns current value of the named property.
	Get(name string) (string, bool)
	// Set overwrites (or adds) the named property. Returns an error when the
	// style no longer belongs to a live rule.
	Set(name, value string) error
}

// Rule is a single stylesheet rule.
type Rule interface {
	// Style returns nil for rules without declarations (@import, @media...).
	Style() Style
}

// StyleSheet is a single stylesheet attached to the document.
type StyleSheet interface {
	// Href is the absolute location of the sheet, empty for inline sheets.
	Href() string
	// Rules returns top level rules. Fails for sheets whose rules are not
	// accessible to the document (cross-origin).
	Rules() ([]Rule, error)
}

// Document is the live document whose stylesheets are rewritten.
type Document interface {
	// Location is the absolute URL of the document.
	Location() string
	StyleSheets() []StyleSheet
}

// Probe is a detached element used to have the environment canonicalize a
// color value.
type Probe interface {
	SetColor(value string)
	Attach() error
	// ComputedColor returns canonical rgb()/rgba() text, empty when the
	// probe has no usable color.
	ComputedColor() string
	Detach()
}

// Environment is the rendering host.
type Environment interface {
	// RootProperty returns computed value of the custom property on the
	// document root, empty when not defined.
	RootProperty(name string) string
	NewProbe() Probe
	// NextFrame blocks until the next rendering opportunity.
	NextFrame(ctx context.Context) error
}
