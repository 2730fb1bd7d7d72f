package grayscale

import (
	"context"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"pleasant/ports"
)

type decl struct {
	name, value string
}

type fakeStyle struct {
	mu     sync.Mutex
	decls  []decl
	stale  bool
	sticky bool // Set succeeds but keeps old value
	frozen []decl // when set, All keeps yielding these
	sets   int
}

func newStyle(pairs ...string) *fakeStyle {
	s := &fakeStyle{}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.decls = append(s.decls, decl{pairs[i], pairs[i+1]})
	}
	return s
}

func (s *fakeStyle) All() iter.Seq2[string, string] {
	s.mu.Lock()
	decls := slices.Clone(s.decls)
	if s.frozen != nil {
		decls = slices.Clone(s.frozen)
	}
	s.mu.Unlock()
	return func(yield func(string, string) bool) {
		for _, d := range decls {
			if !yield(d.name, d.value) {
				return
			}
		}
	}
}

func (s *fakeStyle) Get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.decls {
		if d.name == name {
			return d.value, true
		}
	}
	return "", false
}

func (s *fakeStyle) Set(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		return ports.ErrStale
	}
	s.sets++
	if s.sticky {
		return nil
	}
	for i := range s.decls {
		if s.decls[i].name == name {
			s.decls[i].value = value
			return nil
		}
	}
	s.decls = append(s.decls, decl{name, value})
	return nil
}

func (s *fakeStyle) value(name string) string {
	v, _ := s.Get(name)
	return v
}

type fakeRule struct {
	style ports.Style
}

func (r fakeRule) Style() ports.Style {
	return r.style
}

type fakeSheet struct {
	href    string
	rules   []ports.Rule
	err     error
	onRules func()
}

func (s *fakeSheet) Href() string {
	return s.href
}

func (s *fakeSheet) Rules() ([]ports.Rule, error) {
	if s.onRules != nil {
		s.onRules()
	}
	return s.rules, s.err
}

func sheetOf(href string, styles ...*fakeStyle) *fakeSheet {
	s := &fakeSheet{href: href}
	for _, st := range styles {
		s.rules = append(s.rules, fakeRule{style: st})
	}
	return s
}

type fakeDoc struct {
	location string
	sheets   []ports.StyleSheet
}

func (d *fakeDoc) Location() string {
	return d.location
}

func (d *fakeDoc) StyleSheets() []ports.StyleSheet {
	return d.sheets
}

// fakeEnv computes colors from a fixed table and paints frames on demand.
type fakeEnv struct {
	props  map[string]string
	colors map[string]string

	mu       sync.Mutex
	probes   int
	attached int
	frames   atomic.Int64
}

func newEnv() *fakeEnv {
	return &fakeEnv{
		props: map[string]string{},
		colors: map[string]string{
			"red":     "rgb(255, 0, 0)",
			"blue":    "rgb(0, 0, 255)",
			"#00ff00": "rgb(0, 255, 0)",
		},
	}
}

func (e *fakeEnv) RootProperty(name string) string {
	return e.props[name]
}

func (e *fakeEnv) NewProbe() ports.Probe {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.probes++
	return &fakeProbe{env: e}
}

func (e *fakeEnv) NextFrame(ctx context.Context) error {
	e.frames.Add(1)
	return ctx.Err()
}

func (e *fakeEnv) stats() (probes, attached int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.probes, e.attached
}

type fakeProbe struct {
	env      *fakeEnv
	color    string
	attached bool
}

func (p *fakeProbe) SetColor(value string) {
	p.color = value
}

func (p *fakeProbe) Attach() error {
	p.env.mu.Lock()
	defer p.env.mu.Unlock()
	p.env.attached++
	p.attached = true
	return nil
}

func (p *fakeProbe) ComputedColor() string {
	if !p.attached {
		return ""
	}
	return p.env.colors[p.color]
}

func (p *fakeProbe) Detach() {
	p.env.mu.Lock()
	defer p.env.mu.Unlock()
	if p.attached {
		p.env.attached--
		p.attached = false
	}
}
