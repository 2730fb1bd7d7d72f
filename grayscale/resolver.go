package grayscale

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"pleasant/metrics"
	"pleasant/ports"
)

var (
	// rgb(r, g, b) or rgba(r, g, b, a), at most one space after commas.
	reRGBAValue = regexp.MustCompile(`^rgba?\((\d{1,3}),\s?(\d{1,3}),\s?(\d{1,3})(?:,\s?([0-9.]+))?\)$`)
	reVarName   = regexp.MustCompile(`^var\(([^,)]+).*\)$`)
)

// Resolver turns arbitrary color values into Quads.
type Resolver struct {
	env     ports.Environment
	log     *zap.Logger
	metrics *metrics.Recorder
}

// NewResolver creates resolver which uses env for everything it cannot parse
// by itself.
func NewResolver(env ports.Environment, log *zap.Logger, rec *metrics.Recorder) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{env: env, log: log.Named("resolver"), metrics: rec}
}

// Resolve returns normalized color for value. Values in canonical rgb()/rgba()
// syntax are parsed directly, var() references are looked up in the root
// scope, everything else goes through the rendering environment. It may block
// for a couple of frames.
func (r *Resolver) Resolve(ctx context.Context, value string) Result {
	var (
		res  Result
		kind string
	)
	switch {
	case reRGBAValue.MatchString(value):
		kind = "direct"
		res = r.parse(value)
	case strings.HasPrefix(value, "var("):
		kind = "variable"
		res = r.fromVariable(ctx, strings.TrimSpace(value))
	default:
		kind = "environment"
		res = r.fromEnvironment(ctx, strings.TrimSpace(value))
	}
	r.metrics.Resolved(ctx, kind, res.OK)
	return res
}

func (r *Resolver) fromVariable(ctx context.Context, ref string) Result {
	m := reVarName.FindStringSubmatch(ref)
	if m == nil {
		r.log.Debug("Unable to extract variable name", zap.String("value", ref))
		return Unresolved
	}
	name := strings.TrimSpace(m[1])
	value := strings.TrimSpace(r.env.RootProperty(name))
	if value == "" {
		r.log.Debug("Variable is not defined in root scope", zap.String("name", name))
		return Unresolved
	}
	return r.fromEnvironment(ctx, value)
}

// fromEnvironment has the host normalize value on a throwaway probe: apply,
// wait a frame, read computed color, wait another frame, detach.
func (r *Resolver) fromEnvironment(ctx context.Context, value string) Result {
	probe := r.env.NewProbe()
	probe.SetColor(value)

	if err := r.env.NextFrame(ctx); err != nil {
		r.log.Debug("Frame wait interrupted", zap.String("value", value), zap.Error(err))
		return Unresolved
	}
	if err := probe.Attach(); err != nil {
		r.log.Debug("Unable to attach probe", zap.String("value", value), zap.Error(err))
		return Unresolved
	}
	computed := probe.ComputedColor()

	// detach only after the read, even when frame wait fails
	_ = r.env.NextFrame(ctx)
	probe.Detach()

	if computed == "" {
		r.log.Debug("Environment could not compute color", zap.String("value", value))
		return Unresolved
	}
	return r.parse(computed)
}

func (r *Resolver) parse(value string) Result {
	q, ok := ParseRGBA(value)
	if !ok {
		r.log.Debug("Color is not a numeric quad", zap.String("value", value))
		return Unresolved
	}
	return resolved(q)
}

// ParseRGBA parses canonical rgb(r, g, b) and rgba(r, g, b, a) text. Alpha
// defaults to 1.
func ParseRGBA(value string) (Quad, bool) {
	m := reRGBAValue.FindStringSubmatch(value)
	if m == nil {
		return Quad{}, false
	}
	var ch [3]uint8
	for i := range ch {
		n, err := strconv.ParseUint(m[i+1], 10, 8)
		if err != nil {
			// 256..999 match the pattern but are not bytes
			return Quad{}, false
		}
		ch[i] = uint8(n)
	}
	a := 1.0
	if m[4] != "" {
		var err error
		if a, err = strconv.ParseFloat(m[4], 64); err != nil || a > 1 {
			return Quad{}, false
		}
	}
	return Quad{R: ch[0], G: ch[1], B: ch[2], A: a}, true
}
