// Package grayscale rewrites colors of live stylesheets to their grayscale
// equivalents.
package grayscale

import (
	"fmt"
	"strconv"
)

// Quad is a normalized color: byte channels and alpha in [0, 1].
type Quad struct {
	R, G, B uint8
	A       float64
}

// String returns CSS text of the color, always in rgba() form.
func (q Quad) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", q.R, q.G, q.B, strconv.FormatFloat(q.A, 'f', -1, 64))
}

// IsGray reports whether all three channels are equal.
func (q Quad) IsGray() bool {
	return q.R == q.G && q.G == q.B
}

// Result is the outcome of color resolution. Zero value is Unresolved.
type Result struct {
	Quad Quad
	OK   bool
}

// Unresolved means color could not be turned into a Quad and the value it
// came from must be left as is.
var Unresolved = Result{}

func resolved(q Quad) Result {
	return Result{Quad: q, OK: true}
}

// Luminance weights in percent, they add up to 100.
const (
	weightR = 30
	weightG = 59
	weightB = 11
)

// blend is the desaturation strength in percent. Always full.
const blend = 100

// Transform returns grayscale equivalent of q with the same alpha.
//
// Channel is floor(L*k + c*(1-k)) where L = 0.3r + 0.59g + 0.11b and k is
// the blend. Integer arithmetic keeps gray inputs exact, so the transform is
// idempotent.
func Transform(q Quad) Quad {
	l := weightR*int(q.R) + weightG*int(q.G) + weightB*int(q.B)
	channel := func(c uint8) uint8 {
		return uint8((l*blend + int(c)*100*(100-blend)) / (100 * 100))
	}
	return Quad{R: channel(q.R), G: channel(q.G), B: channel(q.B), A: q.A}
}
