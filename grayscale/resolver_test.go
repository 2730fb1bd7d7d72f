package grayscale

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		want   Result
		probes int
	}{
		{name: "direct", value: "rgb(255, 0, 0)", want: resolved(Quad{R: 255, A: 1})},
		{name: "direct with alpha", value: "rgba(1, 2, 3, 0.5)", want: resolved(Quad{R: 1, G: 2, B: 3, A: 0.5})},
		{name: "direct out of range", value: "rgb(300, 0, 0)", want: Unresolved},
		{name: "named", value: "red", want: resolved(Quad{R: 255, A: 1}), probes: 1},
		{name: "hex", value: " #00ff00 ", want: resolved(Quad{G: 255, A: 1}), probes: 1},
		{name: "variable", value: "var(--main)", want: resolved(Quad{B: 255, A: 1}), probes: 1},
		{name: "variable with fallback", value: "var(--main, red)", want: resolved(Quad{B: 255, A: 1}), probes: 1},
		{name: "undefined variable", value: "var(--missing)", want: Unresolved},
		{name: "unknown", value: "not-a-color", want: Unresolved, probes: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv()
			env.props["--main"] = " blue"
			r := NewResolver(env, zaptest.NewLogger(t), nil)

			got := r.Resolve(context.Background(), tt.value)
			if got != tt.want {
				t.Errorf("Resolve(%q) = %+v, want %+v", tt.value, got, tt.want)
			}
			probes, attached := env.stats()
			if probes != tt.probes {
				t.Errorf("probes created = %d, want %d", probes, tt.probes)
			}
			if attached != 0 {
				t.Errorf("%d probes left attached", attached)
			}
		})
	}
}

func TestResolver_WaitsForFrames(t *testing.T) {
	env := newEnv()
	r := NewResolver(env, zaptest.NewLogger(t), nil)

	if res := r.Resolve(context.Background(), "red"); !res.OK {
		t.Fatal("red was not resolved")
	}
	if n := env.frames.Load(); n != 2 {
		t.Errorf("frames waited = %d, want 2", n)
	}
}

func TestResolver_Canceled(t *testing.T) {
	env := newEnv()
	r := NewResolver(env, zaptest.NewLogger(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if res := r.Resolve(ctx, "red"); res.OK {
		t.Errorf("Resolve() with canceled context = %+v, want unresolved", res)
	}
	if _, attached := env.stats(); attached != 0 {
		t.Errorf("%d probes left attached", attached)
	}
}
