package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/image/colornames"
)

// computed is a color as the host reports it.
type computed struct {
	r, g, b uint8
	a       float64
}

// String serializes color the way computed style does: rgb() when opaque,
// rgba() otherwise.
func (c computed) String() string {
	if c.a >= 1 {
		return "rgb(" + strconv.Itoa(int(c.r)) + ", " + strconv.Itoa(int(c.g)) + ", " + strconv.Itoa(int(c.b)) + ")"
	}
	a := strconv.FormatFloat(math.Round(c.a*1000)/1000, 'f', -1, 64)
	return "rgba(" + strconv.Itoa(int(c.r)) + ", " + strconv.Itoa(int(c.g)) + ", " + strconv.Itoa(int(c.b)) + ", " + a + ")"
}

type token struct {
	typ  css.TokenType
	data string
}

// Canonical returns computed form of CSS color value. Empty string is
// returned for anything which is not a color.
func Canonical(value string) string {
	c, ok := parseColor(tokenize(value))
	if !ok {
		return ""
	}
	return c.String()
}

// tokenize returns significant tokens of value, whitespace is kept only
// inside functions where it separates arguments.
func tokenize(value string) []token {
	l := css.NewLexer(parse.NewInputString(value))
	var tokens []token
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			return trimSpace(tokens)
		case css.CommentToken:
			continue
		case css.WhitespaceToken:
			if len(tokens) > 0 && tokens[len(tokens)-1].typ == css.WhitespaceToken {
				continue
			}
			data = []byte(" ")
		}
		tokens = append(tokens, token{typ: tt, data: string(data)})
	}
}

func trimSpace(tokens []token) []token {
	for len(tokens) > 0 && tokens[0].typ == css.WhitespaceToken {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].typ == css.WhitespaceToken {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

func parseColor(tokens []token) (computed, bool) {
	if len(tokens) == 0 {
		return computed{}, false
	}
	first := tokens[0]
	switch first.typ {
	case css.IdentToken:
		if len(tokens) != 1 {
			return computed{}, false
		}
		return namedColor(strings.ToLower(first.data))
	case css.HashToken:
		if len(tokens) != 1 {
			return computed{}, false
		}
		return hexColor(first.data)
	case css.FunctionToken:
		if tokens[len(tokens)-1].typ != css.RightParenthesisToken {
			return computed{}, false
		}
		args, ok := arguments(tokens[1 : len(tokens)-1])
		if !ok {
			return computed{}, false
		}
		switch strings.ToLower(strings.TrimSuffix(first.data, "(")) {
		case "rgb", "rgba":
			return rgbColor(args)
		case "hsl", "hsla":
			return hslColor(args)
		}
	}
	return computed{}, false
}

func namedColor(name string) (computed, bool) {
	switch name {
	case "transparent":
		return computed{}, true
	case "currentcolor":
		// probe inherits initial color
		return computed{a: 1}, true
	}
	c, ok := colornames.Map[name]
	if !ok {
		return computed{}, false
	}
	return computed{r: c.R, g: c.G, b: c.B, a: float64(c.A) / 255}, true
}

func hexColor(hash string) (computed, bool) {
	digits := strings.TrimPrefix(hash, "#")
	alpha := 1.0
	switch len(digits) {
	case 4, 8:
		n := len(digits) / 4
		a, err := strconv.ParseUint(strings.Repeat(digits[len(digits)-n:], 3-n), 16, 8)
		if err != nil {
			return computed{}, false
		}
		alpha = float64(a) / 255
		digits = digits[:len(digits)-n]
	case 3, 6:
	default:
		return computed{}, false
	}
	c, err := colorful.Hex("#" + digits)
	if err != nil {
		return computed{}, false
	}
	r, g, b := c.RGB255()
	return computed{r: r, g: g, b: b, a: alpha}, true
}

// arguments splits function arguments separated either by commas or by
// whitespace with optional "/" before alpha.
func arguments(tokens []token) ([]token, bool) {
	tokens = trimSpace(tokens)
	var (
		args   []token
		commas bool
	)
	for i, t := range tokens {
		switch t.typ {
		case css.WhitespaceToken:
		case css.CommaToken:
			if i == 0 || len(args) == 0 {
				return nil, false
			}
			commas = true
		case css.DelimToken:
			if t.data != "/" || commas || len(args) != 3 {
				return nil, false
			}
		case css.NumberToken, css.PercentageToken, css.DimensionToken:
			args = append(args, t)
		default:
			return nil, false
		}
	}
	if len(args) != 3 && len(args) != 4 {
		return nil, false
	}
	return args, true
}

func rgbColor(args []token) (computed, bool) {
	var ch [3]uint8
	for i := range ch {
		v, ok := channel(args[i])
		if !ok {
			return computed{}, false
		}
		ch[i] = v
	}
	a, ok := alpha(args)
	if !ok {
		return computed{}, false
	}
	return computed{r: ch[0], g: ch[1], b: ch[2], a: a}, true
}

func hslColor(args []token) (computed, bool) {
	h, ok := hue(args[0])
	if !ok {
		return computed{}, false
	}
	if args[1].typ != css.PercentageToken || args[2].typ != css.PercentageToken {
		return computed{}, false
	}
	s, err1 := strconv.ParseFloat(strings.TrimSuffix(args[1].data, "%"), 64)
	l, err2 := strconv.ParseFloat(strings.TrimSuffix(args[2].data, "%"), 64)
	if err1 != nil || err2 != nil {
		return computed{}, false
	}
	a, ok := alpha(args)
	if !ok {
		return computed{}, false
	}
	r, g, b := colorful.Hsl(h, clamp(s/100, 0, 1), clamp(l/100, 0, 1)).Clamped().RGB255()
	return computed{r: r, g: g, b: b, a: a}, true
}

func channel(t token) (uint8, bool) {
	switch t.typ {
	case css.NumberToken:
		v, err := strconv.ParseFloat(t.data, 64)
		if err != nil {
			return 0, false
		}
		return uint8(math.Round(clamp(v, 0, 255))), true
	case css.PercentageToken:
		v, err := strconv.ParseFloat(strings.TrimSuffix(t.data, "%"), 64)
		if err != nil {
			return 0, false
		}
		return uint8(math.Round(clamp(v, 0, 100) * 2.55)), true
	}
	return 0, false
}

func alpha(args []token) (float64, bool) {
	if len(args) < 4 {
		return 1, true
	}
	t := args[3]
	switch t.typ {
	case css.NumberToken:
		v, err := strconv.ParseFloat(t.data, 64)
		if err != nil {
			return 0, false
		}
		return clamp(v, 0, 1), true
	case css.PercentageToken:
		v, err := strconv.ParseFloat(strings.TrimSuffix(t.data, "%"), 64)
		if err != nil {
			return 0, false
		}
		return clamp(v/100, 0, 1), true
	}
	return 0, false
}

// hue returns angle in degrees normalized to [0, 360).
func hue(t token) (float64, bool) {
	var (
		num  = t.data
		unit string
	)
	switch t.typ {
	case css.NumberToken:
	case css.DimensionToken:
		i := strings.IndexFunc(num, func(r rune) bool {
			return (r < '0' || r > '9') && r != '.' && r != '-' && r != '+'
		})
		if i <= 0 {
			return 0, false
		}
		num, unit = num[:i], strings.ToLower(num[i:])
	default:
		return 0, false
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	switch unit {
	case "", "deg":
	case "turn":
		v *= 360
	case "rad":
		v *= 180 / math.Pi
	case "grad":
		v *= 0.9
	default:
		return 0, false
	}
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
