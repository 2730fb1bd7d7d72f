package dom

import (
	"iter"
	"slices"
	"sync"

	"pleasant/css"
	"pleasant/ports"
)

// Style is a live, ordered declaration block. Safe for concurrent use.
type Style struct {
	mu       sync.RWMutex
	decls    []css.Declaration
	detached bool
	doc      *Document
}

func newStyle(decls []css.Declaration, doc *Document) *Style {
	return &Style{decls: slices.Clone(decls), doc: doc}
}

// All yields snapshot of (name, value) pairs in declaration order, one pair
// per property: the declaration in effect. Overridden duplicates stay in the
// sheet text as fallbacks but are not part of the object model.
func (s *Style) All() iter.Seq2[string, string] {
	decls := s.Declarations()
	return func(yield func(string, string) bool) {
		for i, d := range decls {
			if effective(decls, d.Property) != i {
				continue
			}
			if !yield(d.Property, d.Value) {
				return
			}
		}
	}
}

// Declarations returns copy of current declarations.
func (s *Style) Declarations() []css.Declaration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.decls)
}

// Get returns value of the declaration in effect.
func (s *Style) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(name); i >= 0 {
		return s.decls[i].Value, true
	}
	return "", false
}

// Set overwrites value of the property keeping its priority, or appends a
// new declaration.
func (s *Style) Set(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return ports.ErrStale
	}
	if i := s.index(name); i >= 0 {
		if s.decls[i].Value == value {
			return nil
		}
		s.decls[i].Value = value
	} else {
		s.decls = append(s.decls, css.Declaration{Property: name, Value: value})
	}
	s.doc.touch()
	return nil
}

// Remove deletes all declarations of the property.
func (s *Style) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.decls)
	s.decls = slices.DeleteFunc(s.decls, func(d css.Declaration) bool { return d.Property == name })
	if len(s.decls) == n {
		return false
	}
	s.doc.touch()
	return true
}

func (s *Style) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = true
}

func (s *Style) index(name string) int {
	return effective(s.decls, name)
}

// effective returns position of the declaration in effect, -1 if absent.
func effective(decls []css.Declaration, name string) int {
	found := -1
	for i, d := range decls {
		if d.Property != name {
			continue
		}
		// !important wins over later normal declarations
		if found >= 0 && decls[found].Important && !d.Important {
			continue
		}
		found = i
	}
	return found
}

// Rule is a live stylesheet rule.
type Rule struct {
	kind    css.RuleKind
	prelude string
	style   *Style
	rules   []*Rule
}

func newRule(r *css.Rule, doc *Document) *Rule {
	rule := &Rule{kind: r.Kind, prelude: r.Prelude}
	if r.Kind == css.KindStyle || r.Kind == css.KindDescriptor {
		rule.style = newStyle(r.Declarations, doc)
	}
	for _, nested := range r.Rules {
		rule.rules = append(rule.rules, newRule(nested, doc))
	}
	return rule
}

// Style returns rule declarations, nil for rules which have none.
func (r *Rule) Style() ports.Style {
	if r.style == nil {
		return nil
	}
	return r.style
}

// Prelude returns selector text or at-rule with its prelude.
func (r *Rule) Prelude() string {
	return r.prelude
}

// Kind returns what the rule carries.
func (r *Rule) Kind() css.RuleKind {
	return r.kind
}

func (r *Rule) snapshot() *css.Rule {
	out := &css.Rule{Kind: r.kind, Prelude: r.prelude}
	if r.style != nil {
		out.Declarations = r.style.Declarations()
	}
	for _, nested := range r.rules {
		out.Rules = append(out.Rules, nested.snapshot())
	}
	return out
}

func (r *Rule) detach() {
	if r.style != nil {
		r.style.detach()
	}
	for _, nested := range r.rules {
		nested.detach()
	}
}
