package dom

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// InjectedName is file name of the injected sheet for documents without page.
const InjectedName = "pleasant.css"

// WriteOptions control how document is saved.
type WriteOptions struct {
	Merged     bool   // write every accessible sheet into single file
	MergedName string // name of merged file, document name with .css extension when empty
	Overwrite  bool   // replace existing files
}

// Save writes current document content under dir and returns names of the
// written files. Sheets backed by files keep their paths relative to the
// document root, inline sheets are written back into the page.
func (d *Document) Save(dir string, opts WriteOptions) ([]string, error) {
	var (
		written []string
		errs    error
	)
	save := func(name string, data []byte, s *StyleSheet) {
		if err := writeFile(name, data, opts.Overwrite, d.log); err != nil {
			errs = multierr.Append(errs, err)
			return
		}
		written = append(written, name)
		if s != nil && sameFile(name, s.path) {
			s.markSeen(data)
		}
	}

	sheets := d.Sheets()
	if d.node != nil {
		for _, s := range sheets {
			if s.owner != nil {
				setText(s.owner, "\n"+s.String())
			}
		}
	}

	if opts.Merged {
		name := opts.MergedName
		if name == "" {
			name = strings.TrimSuffix(d.name, filepath.Ext(d.name)) + ".css"
		}
		save(filepath.Join(dir, name), d.merged(sheets), nil)
	} else {
		for _, s := range sheets {
			switch {
			case s.crossOrigin:
				continue
			case s.path != "":
				save(filepath.Join(dir, d.relative(s.path)), []byte(s.String()), s)
			case s.injected && d.node == nil:
				save(filepath.Join(dir, InjectedName), []byte(s.String()), nil)
			}
		}
	}

	if d.node != nil {
		var buf bytes.Buffer
		if err := html.Render(&buf, d.node); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unable to render page: %w", err))
		} else {
			save(filepath.Join(dir, d.name), buf.Bytes(), nil)
		}
	}
	return written, errs
}

// merged returns text of every accessible sheet, each preceded by comment
// naming where it came from.
func (d *Document) merged(sheets []*StyleSheet) []byte {
	var buf bytes.Buffer
	for _, s := range sheets {
		if s.crossOrigin {
			continue
		}
		label := s.href
		switch {
		case s.injected:
			label = "injected"
		case label == "":
			label = "inline"
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "/* %s */\n", strings.ReplaceAll(label, "*/", "*\\/"))
		s.WriteTo(&buf)
	}
	return buf.Bytes()
}

func (d *Document) relative(path string) string {
	rel, err := filepath.Rel(d.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return rel
}

func writeFile(name string, data []byte, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(name); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		log.Debug("Overwriting existing file", zap.String("file", name))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("unable to write %s: %w", name, err)
	}
	return nil
}

func sameFile(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}

// setText replaces children of the element with single text node.
func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}
