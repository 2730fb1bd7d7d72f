// Package dom keeps the live document: its stylesheets, rules and
// declarations which are read and rewritten while the document is displayed.
package dom

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pleasant/css"
	"pleasant/ports"
	"pleasant/utils/debug"
)

// GlobalCSS is injected once into every document: media and form controls
// and elements with inline background images are always desaturated.
const GlobalCSS = `img, svg, object, canvas, video, select,
input, [style*="url("] {
  filter: grayscale(100%) !important;
}`

// Document is a live document with attached stylesheets.
type Document struct {
	location string
	origin   string
	root     string // directory matching location directory
	name     string // document file name
	node     *html.Node
	parser   *css.Parser
	log      *zap.Logger

	mu     sync.RWMutex
	sheets []*StyleSheet

	injectMu sync.Mutex
	injected *StyleSheet

	version atomic.Uint64
}

// New creates empty document located at location, backed by files under root.
func New(location, root string, log *zap.Logger) (*Document, error) {
	if log == nil {
		log = zap.NewNop()
	}
	origin, err := ports.Origin(location)
	if err != nil {
		return nil, fmt.Errorf("bad document location %q: %w", location, err)
	}
	return &Document{
		location: location,
		origin:   origin,
		root:     root,
		parser:   css.NewParser(log),
		log:      log.Named("dom"),
	}, nil
}

// Location returns absolute URL of the document.
func (d *Document) Location() string {
	return d.location
}

// StyleSheets returns attached sheets in document order.
func (d *Document) StyleSheets() []ports.StyleSheet {
	sheets := d.Sheets()
	out := make([]ports.StyleSheet, 0, len(sheets))
	for _, s := range sheets {
		out = append(out, s)
	}
	return out
}

// Sheets returns attached sheets in document order.
func (d *Document) Sheets() []*StyleSheet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.sheets)
}

// AddStyleSheet attaches parsed sheet found at href (empty for inline) and
// backed by path (empty when there is no file).
func (d *Document) AddStyleSheet(href, path string, parsed *css.Stylesheet) *StyleSheet {
	s := &StyleSheet{href: href, path: path, doc: d}
	if href != "" {
		if o, err := ports.Origin(href); err != nil || o != d.origin {
			s.crossOrigin = true
		}
	}
	if parsed != nil && !s.crossOrigin {
		for _, r := range parsed.Rules {
			s.rules = append(s.rules, newRule(r, d))
		}
	}
	for _, w := range warnings(parsed) {
		d.log.Debug("Stylesheet warning", zap.String("href", href), zap.String("warning", w))
	}

	d.mu.Lock()
	d.sheets = append(d.sheets, s)
	d.mu.Unlock()

	d.touch()
	return s
}

// RemoveStyleSheet detaches sheet from the document.
func (d *Document) RemoveStyleSheet(s *StyleSheet) bool {
	d.mu.Lock()
	i := slices.Index(d.sheets, s)
	if i >= 0 {
		d.sheets = slices.Delete(d.sheets, i, i+1)
	}
	d.mu.Unlock()

	if i < 0 {
		return false
	}
	for _, r := range s.styleRules() {
		r.detach()
	}
	d.touch()
	return true
}

// InjectGlobal attaches GlobalCSS sheet. Only the first call has an effect.
func (d *Document) InjectGlobal() *StyleSheet {
	d.injectMu.Lock()
	defer d.injectMu.Unlock()

	if d.injected != nil {
		return d.injected
	}
	s := d.AddStyleSheet("", "", d.parser.Parse([]byte(GlobalCSS), "global"))
	s.injected = true
	if d.node != nil {
		s.owner = appendStyleElement(d.node)
	}
	d.injected = s
	return s
}

// RootProperty returns declared value of the custom property for the
// document root element, empty when undefined. Later declarations win,
// !important ones win over normal.
func (d *Document) RootProperty(name string) string {
	var (
		value     string
		important bool
	)
	for _, s := range d.Sheets() {
		if s.crossOrigin {
			continue
		}
		for _, r := range s.styleRules() {
			if r.kind != css.KindStyle || !matchesRoot(r.prelude) {
				continue
			}
			for _, decl := range r.style.Declarations() {
				if decl.Property != name || (important && !decl.Important) {
					continue
				}
				value, important = decl.Value, decl.Important
			}
		}
	}
	return value
}

// matchesRoot checks if any selector in the list targets the root element.
func matchesRoot(selectors string) bool {
	for sel := range strings.SplitSeq(selectors, ",") {
		switch strings.ToLower(strings.TrimSpace(sel)) {
		case ":root", "html", "*":
			return true
		}
	}
	return false
}

// Version changes every time document content changes.
func (d *Document) Version() uint64 {
	if d == nil {
		return 0
	}
	return d.version.Load()
}

func (d *Document) touch() {
	if d != nil {
		d.version.Add(1)
	}
}

// Dump returns human readable tree of the document for diagnostics.
func (d *Document) Dump() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "document %s", d.location)
	for i, s := range d.Sheets() {
		switch {
		case s.injected:
			tw.Line(1, "sheet #%d injected", i)
		case s.href == "":
			tw.Line(1, "sheet #%d inline", i)
		default:
			tw.Line(1, "sheet #%d %s", i, s.href)
		}
		if s.crossOrigin {
			tw.Line(2, "(cross-origin, not accessible)")
			continue
		}
		for _, r := range s.styleRules() {
			dumpRule(tw, r, 2)
		}
	}
	return tw.String()
}

func dumpRule(tw *debug.TreeWriter, r *Rule, depth int) {
	tw.TextBlock(depth, r.kind.String(), r.prelude)
	if r.style != nil {
		for _, decl := range r.style.Declarations() {
			tw.Property(depth+1, decl.Property, decl.Value, decl.Important)
		}
	}
	for _, nested := range r.rules {
		dumpRule(tw, nested, depth+1)
	}
}

func warnings(parsed *css.Stylesheet) []string {
	if parsed == nil {
		return nil
	}
	return parsed.Warnings
}

// appendStyleElement adds empty <style> element to the document head.
func appendStyleElement(doc *html.Node) *html.Node {
	head := findElement(doc, atom.Head)
	if head == nil {
		head = doc
	}
	style := &html.Node{Type: html.ElementNode, DataAtom: atom.Style, Data: "style"}
	head.AppendChild(style)
	return style
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
