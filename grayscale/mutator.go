package grayscale

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"pleasant/metrics"
	"pleasant/ports"
)

var (
	reColorToken = regexp.MustCompile(`rgba?\([^)]+\)`)
	reVarToken   = regexp.MustCompile(`^var\([^,)]+.*\)$`)
)

// FilterProperty and FilterGrayscale are used to desaturate rules which
// reference images.
const (
	FilterProperty  = "filter"
	FilterGrayscale = "grayscale(100%)"
)

// Substitutions maps color token text found in a declaration value to its
// grayscale replacement.
type Substitutions map[string]string

// Apply replaces every occurrence of every known token in value.
func (s Substitutions) Apply(value string) string {
	for from, to := range s {
		value = strings.ReplaceAll(value, from, to)
	}
	return value
}

// ExtractColorTokens returns functional color substrings of value. When there
// are none and the whole value is a var() reference, it is the only token.
func ExtractColorTokens(value string) []string {
	if tokens := reColorToken.FindAllString(value, -1); len(tokens) > 0 {
		return tokens
	}
	if reVarToken.MatchString(value) {
		return []string{value}
	}
	return nil
}

// Mutator writes grayscale colors back into styles.
type Mutator struct {
	resolver *Resolver
	log      *zap.Logger
	metrics  *metrics.Recorder
}

// NewMutator creates mutator using resolver for color values.
func NewMutator(resolver *Resolver, log *zap.Logger, rec *metrics.Recorder) *Mutator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mutator{resolver: resolver, log: log.Named("mutator"), metrics: rec}
}

// Color replaces the whole value of a color declaration. Returns true when
// something was written.
func (m *Mutator) Color(ctx context.Context, style ports.Style, name, value string) bool {
	res := m.resolver.Resolve(ctx, value)
	if !res.OK {
		return false
	}
	gray := Transform(res.Quad).String()
	if gray == value {
		return false
	}
	return m.write(ctx, style, name, gray, "color")
}

// Shadow substitutes every color token of a shadow declaration. Tokens which
// cannot be resolved keep their text. Returns true when something was written.
func (m *Mutator) Shadow(ctx context.Context, style ports.Style, name, value string) bool {
	tokens := ExtractColorTokens(value)
	if len(tokens) == 0 {
		return false
	}

	subs := make(Substitutions, len(tokens))
	for _, token := range tokens {
		if _, seen := subs[token]; seen {
			continue
		}
		res := m.resolver.Resolve(ctx, token)
		if !res.OK {
			continue
		}
		if gray := Transform(res.Quad).String(); gray != token {
			subs[token] = gray
		}
	}
	if len(subs) == 0 {
		return false
	}

	// value may have changed while resolving, substitute into what is there now
	current, ok := style.Get(name)
	if !ok {
		return false
	}
	updated := subs.Apply(current)
	if updated == current {
		return false
	}
	return m.write(ctx, style, name, updated, "shadow")
}

// Filter makes sure the rule filter list ends with full desaturation.
// Returns true when something was written.
func (m *Mutator) Filter(ctx context.Context, style ports.Style) bool {
	current, _ := style.Get(FilterProperty)
	updated := GrayscaleFilter(current)
	if updated == current {
		return false
	}
	return m.write(ctx, style, FilterProperty, updated, "filter")
}

// GrayscaleFilter drops any grayscale() entry from the space separated
// filter list and appends grayscale(100%).
func GrayscaleFilter(filter string) string {
	var parts []string
	for part := range strings.SplitSeq(filter, " ") {
		if part == "" || strings.Contains(part, "grayscale") {
			continue
		}
		parts = append(parts, part)
	}
	return strings.Join(append(parts, FilterGrayscale), " ")
}

// write returns true only when the live value actually changed.
func (m *Mutator) write(ctx context.Context, style ports.Style, name, value, kind string) bool {
	if current, ok := style.Get(name); ok && current == value {
		// concurrent pipeline got there first
		return false
	}
	if err := style.Set(name, value); err != nil {
		if !errors.Is(err, ports.ErrStale) {
			m.log.Debug("Unable to update declaration", zap.String("property", name), zap.Error(err))
		}
		return false
	}
	m.metrics.Written(ctx, kind)
	return true
}
