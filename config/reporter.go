package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"pleasant/misc"
)

// ReporterConfig points to the debug archive. Source documents, converted
// sheets, document dumps and logs of the run end up there.
type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates initialized empty reporter. When destination could not be
// created archive goes to temporary directory.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{entries: make(map[string]entry), file: f}, nil
}

// entry is either in-memory data or a file system path (file or directory).
type entry struct {
	original string
	actual   string
	stamp    time.Time
	data     []byte
}

// Report accumulates everything which goes into debug archive on Close.
// Safe for concurrent use, watch mode stores results while passes run. Nil
// *Report is valid and ignores everything, so callers never check whether
// report was requested.
type Report struct {
	mu      sync.Mutex
	entries map[string]entry
	file    *os.File
}

// Close writes the archive.
func (r *Report) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	defer r.file.Close()
	return r.finalize()
}

// Name returns absolute name of the archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store remembers file or directory to be archived under name when report is closed, so
// archive gets file content as of that moment (logs, final results).
func (r *Report) Store(name, file string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.entries[name]; exists && old.original != file {
		panic(fmt.Sprintf("Attempt to overwrite file in the report for [%s]: was %s, now %s", name, old.original, file))
	}
	actual := file
	if p, err := filepath.Abs(file); err == nil {
		actual = p
	}
	r.entries[name] = entry{original: file, actual: actual}
}

// StoreData puts data into archive under name. Repeated names are versioned.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	r.add(name, entry{data: data, stamp: time.Now()})
}

// StoreCopy snapshots file or directory src now, so later changes (watch
// mode rewriting sources in place) do not affect what is archived. Repeated
// names are versioned.
func (r *Report) StoreCopy(name, src string) error {
	if r == nil {
		return nil
	}

	abs, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", misc.GetAppName()+"-r-")
	if err != nil {
		return err
	}

	e := entry{original: src, actual: dir, stamp: time.Now()}
	switch {
	case info.IsDir():
		if err := os.CopyFS(dir, os.DirFS(abs)); err != nil {
			return fmt.Errorf("unable to copy %s: %w", src, err)
		}
	case info.Mode().IsRegular():
		data, err := os.ReadFile(abs)
		if err != nil {
			return err
		}
		e.actual = filepath.Join(dir, filepath.Base(abs))
		if err := os.WriteFile(e.actual, data, 0600); err != nil {
			return err
		}
		if err := os.Chtimes(e.actual, info.ModTime(), info.ModTime()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unable to copy %s: not a regular file or directory", src)
	}
	r.add(name, e)
	return nil
}

func (r *Report) add(name string, e entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		name = fmt.Sprintf("%s-%d", name, e.stamp.UnixNano())
	}
	r.entries[name] = e
}

func (r *Report) finalize() error {
	arc := zip.NewWriter(r.file)
	defer arc.Close()

	names, manifest := prepareManifest(r.entries)
	if err := saveFile(arc, "MANIFEST", time.Now(), manifest); err != nil {
		return err
	}
	for _, name := range names {
		e := r.entries[name]
		if len(e.data) > 0 {
			if err := saveFile(arc, name, e.stamp, bytes.NewReader(e.data)); err != nil {
				return err
			}
			continue
		}
		// files which never appeared (logs of a run that did not log) are skipped
		info, err := os.Stat(e.actual)
		if err != nil {
			continue
		}
		switch {
		case info.IsDir():
			err = saveTree(arc, name, os.DirFS(e.actual))
		case info.Mode().IsRegular():
			err = saveOne(arc, name, e.actual, info.ModTime())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// prepareManifest lists entries sorted by name, one line each.
func prepareManifest(entries map[string]entry) ([]string, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	if len(entries) == 0 {
		return nil, buf
	}

	now := time.Now()
	keys := slices.Sorted(maps.Keys(entries))
	for _, k := range keys {
		e := entries[k]
		if e.stamp.IsZero() {
			e.stamp = now
		}
		fmt.Fprintf(buf, "%s\t%s\t%s : %s\n", e.stamp.UTC().Format(time.UnixDate), k, e.original, e.actual)
	}
	return keys, buf
}

func saveFile(dst *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func saveOne(dst *zip.Writer, name, file string, t time.Time) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	return saveFile(dst, name, t, f)
}

// saveTree puts every regular file of fsys into archive under prefix.
func saveTree(dst *zip.Writer, prefix string, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			// ignore links, sockets, etc.
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		f, err := fsys.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		return saveFile(dst, path.Join(prefix, p), info.ModTime(), f)
	})
}
