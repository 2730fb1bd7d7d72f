package dom

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"golang.org/x/net/html"

	"pleasant/css"
	"pleasant/ports"
)

// ErrCrossOrigin is returned when rules of a sheet loaded from another
// origin are requested.
var ErrCrossOrigin = errors.New("stylesheet rules are not accessible from document origin")

// StyleSheet is a live stylesheet attached to a document.
type StyleSheet struct {
	href        string
	path        string     // backing file, empty for inline and cross-origin sheets
	owner       *html.Node // <style> element of inline sheet in HTML document
	crossOrigin bool
	injected    bool

	mu    sync.RWMutex
	rules []*Rule
	seen  []byte // file content last read or written
	doc   *Document
}

// Href returns absolute location of the sheet, empty for inline sheets.
func (s *StyleSheet) Href() string {
	return s.href
}

// Path returns file backing the sheet.
func (s *StyleSheet) Path() string {
	return s.path
}

// CrossOrigin reports whether sheet came from another origin.
func (s *StyleSheet) CrossOrigin() bool {
	return s.crossOrigin
}

// Injected reports whether sheet was added by InjectGlobal.
func (s *StyleSheet) Injected() bool {
	return s.injected
}

// Rules returns top level rules.
func (s *StyleSheet) Rules() ([]ports.Rule, error) {
	if s.crossOrigin {
		return nil, fmt.Errorf("%s: %w", s.href, ErrCrossOrigin)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]ports.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		rules = append(rules, r)
	}
	return rules, nil
}

// InsertRule parses rule text and inserts it at index.
func (s *StyleSheet) InsertRule(text string, index int) error {
	parsed := s.doc.parser.Parse([]byte(text))
	if len(parsed.Rules) != 1 {
		return fmt.Errorf("expected single rule, got %d", len(parsed.Rules))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index > len(s.rules) {
		return fmt.Errorf("rule index %d is out of range", index)
	}
	s.rules = slices.Insert(s.rules, index, newRule(parsed.Rules[0], s.doc))
	s.doc.touch()
	return nil
}

// DeleteRule removes rule at index, its style becomes stale.
func (s *StyleSheet) DeleteRule(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.rules) {
		return fmt.Errorf("rule index %d is out of range", index)
	}
	s.rules[index].detach()
	s.rules = slices.Delete(s.rules, index, index+1)
	s.doc.touch()
	return nil
}

// Replace swaps all rules for the parsed ones. Styles of old rules become
// stale.
func (s *StyleSheet) Replace(sheet *css.Stylesheet) {
	rules := make([]*Rule, 0, len(sheet.Rules))
	for _, r := range sheet.Rules {
		rules = append(rules, newRule(r, s.doc))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rules {
		r.detach()
	}
	s.rules = rules
	s.doc.touch()
}

// Snapshot returns copy of current sheet content.
func (s *StyleSheet) Snapshot() *css.Stylesheet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &css.Stylesheet{Rules: make([]*css.Rule, 0, len(s.rules))}
	for _, r := range s.rules {
		out.Rules = append(out.Rules, r.snapshot())
	}
	return out
}

// WriteTo writes current CSS text of the sheet.
func (s *StyleSheet) WriteTo(w io.Writer) (int64, error) {
	return s.Snapshot().WriteTo(w)
}

// String returns current CSS text of the sheet.
func (s *StyleSheet) String() string {
	return s.Snapshot().String()
}

func (s *StyleSheet) styleRules() []*Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rules)
}

func (s *StyleSheet) lastSeen() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen
}

func (s *StyleSheet) markSeen(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = data
}
