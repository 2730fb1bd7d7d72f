package dom

import (
	"bytes"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"pleasant/css"
	"pleasant/ports"
)

// Loader builds documents out of files.
type Loader struct {
	origin string
	parser *css.Parser
	log    *zap.Logger
}

// NewLoader creates loader placing documents under origin.
func NewLoader(origin string, log *zap.Logger) (*Loader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	o, err := ports.Origin(origin)
	if err != nil {
		return nil, fmt.Errorf("bad document origin: %w", err)
	}
	return &Loader{origin: o, parser: css.NewParser(log), log: log.Named("loader")}, nil
}

// Load creates document from src which could be an HTML file, a stylesheet
// or a directory with stylesheets.
func (l *Loader) Load(src string) (*Document, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("input source was not found: %w", err)
	}
	switch {
	case fi.IsDir():
		return l.LoadDir(src)
	case isHTMLFile(src):
		return l.LoadHTML(src)
	case fi.Mode().IsRegular():
		return l.LoadCSS(src)
	}
	return nil, fmt.Errorf("unexpected path mode for (%s)", src)
}

func isHTMLFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

// LoadCSS creates document with a single stylesheet.
func (l *Loader) LoadCSS(path string) (*Document, error) {
	doc, err := New(l.origin+"/", filepath.Dir(path), l.log)
	if err != nil {
		return nil, err
	}
	doc.name = filepath.Base(path)
	if err := l.attachFile(doc, path); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadDir creates document with every stylesheet found under dir in natural
// path order.
func (l *Loader) LoadDir(dir string) (*Document, error) {
	doc, err := New(l.origin+"/", dir, l.log)
	if err != nil {
		return nil, err
	}
	doc.name = filepath.Base(dir) + ".css"

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(path), ".css") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to walk directory: %w", err)
	}
	if len(paths) == 0 {
		l.log.Debug("Nothing to process", zap.String("dir", dir))
	}
	slices.SortFunc(paths, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}
		return 0
	})

	for _, path := range paths {
		if err := l.attachFile(doc, path); err != nil {
			l.log.Error("Unable to load stylesheet", zap.String("file", path), zap.Error(err))
		}
	}
	return doc, nil
}

// LoadHTML creates document out of HTML page attaching its <link> and
// <style> stylesheets in document order. Linked sheets from the page origin
// are read from files relative to page directory, sheets from other origins
// are attached but stay inaccessible.
func (l *Loader) LoadHTML(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := charset.NewReader(f, "text/html")
	if err != nil {
		return nil, fmt.Errorf("unable to detect page encoding: %w", err)
	}
	node, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("unable to parse page: %w", err)
	}

	doc, err := New(l.origin+"/"+url.PathEscape(filepath.Base(path)), filepath.Dir(path), l.log)
	if err != nil {
		return nil, err
	}
	doc.name = filepath.Base(path)
	doc.node = node

	base, _ := url.Parse(doc.location)
	for n := range node.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}
		switch n.DataAtom {
		case atom.Link:
			if !isStylesheetLink(n) {
				continue
			}
			href := attr(n, "href")
			ref, err := base.Parse(href)
			if err != nil {
				l.log.Warn("Skipping stylesheet with bad location", zap.String("href", href), zap.Error(err))
				continue
			}
			if o, _ := ports.Origin(ref.String()); o != doc.origin {
				l.log.Debug("Cross-origin stylesheet", zap.String("href", ref.String()))
				doc.AddStyleSheet(ref.String(), "", nil)
				continue
			}
			file := filepath.Join(doc.root, filepath.FromSlash(strings.TrimPrefix(ref.Path, "/")))
			if err := l.attachFile(doc, file); err != nil {
				// browser drops sheets which fail to load
				l.log.Warn("Unable to load stylesheet", zap.String("href", ref.String()), zap.Error(err))
			}
		case atom.Style:
			var text bytes.Buffer
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					text.WriteString(c.Data)
				}
			}
			s := doc.AddStyleSheet("", "", l.parser.Parse(text.Bytes(), "inline"))
			s.owner = n
		}
	}
	return doc, nil
}

func isStylesheetLink(n *html.Node) bool {
	if attr(n, "href") == "" {
		return false
	}
	return slices.ContainsFunc(strings.Fields(attr(n, "rel")), func(rel string) bool {
		return strings.EqualFold(rel, "stylesheet")
	})
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func (l *Loader) attachFile(doc *Document, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	data, err := css.Decode(raw)
	if err != nil {
		return err
	}
	s := doc.AddStyleSheet(doc.hrefOf(path), path, l.parser.Parse(data, path))
	s.markSeen(raw)
	return nil
}

// hrefOf maps file under document root to its URL.
func (d *Document) hrefOf(path string) string {
	rel, err := filepath.Rel(d.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	u := url.URL{Path: "/" + filepath.ToSlash(rel)}
	return d.origin + u.EscapedPath()
}

// Refresh re-reads stylesheet files which changed on disk since they were
// last read or written. Returns number of refreshed sheets.
func (l *Loader) Refresh(doc *Document) (int, error) {
	var (
		count int
		errs  error
	)
	for _, s := range doc.Sheets() {
		if s.path == "" || s.crossOrigin {
			continue
		}
		raw, err := os.ReadFile(s.path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unable to read %s: %w", s.path, err))
			continue
		}
		if bytes.Equal(raw, s.lastSeen()) {
			continue
		}
		data, err := css.Decode(raw)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		l.log.Debug("Stylesheet changed, reloading", zap.String("file", s.path))
		s.Replace(l.parser.Parse(data, s.path))
		s.markSeen(raw)
		count++
	}
	return count, errs
}
