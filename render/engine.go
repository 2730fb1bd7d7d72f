// Package render simulates the rendering host of a live document: it runs
// the frame clock, resolves root scope custom properties and computes colors
// of probe elements.
package render

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pleasant/ports"
)

// DefaultFrameInterval is 60 frames per second.
const DefaultFrameInterval = time.Second / 60

// maxVarDepth limits var() substitution, deeper references are treated as
// cycles.
const maxVarDepth = 16

// ErrStopped is returned when waiting for a frame after the engine stopped.
var ErrStopped = errors.New("rendering engine stopped")

// Root gives access to declared custom properties of the document root.
type Root interface {
	RootProperty(name string) string
}

// Engine is a rendering host for a single document.
type Engine struct {
	root     Root
	log      *zap.Logger
	interval time.Duration

	mu     sync.Mutex
	frame  chan struct{} // closed when the next frame is painted
	probes map[uuid.UUID]*Probe

	frames  atomic.Uint64
	stopped chan struct{}
	stop    sync.Once
}

// New creates engine for root. Non positive interval selects
// DefaultFrameInterval.
func New(root Root, interval time.Duration, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Engine{
		root:     root,
		log:      log.Named("render"),
		interval: interval,
		frame:    make(chan struct{}),
		probes:   make(map[uuid.UUID]*Probe),
		stopped:  make(chan struct{}),
	}
}

// Run paints frames until ctx is done. Once Run returns every pending and
// future NextFrame fails with ErrStopped.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Debug("Frame clock started", zap.Duration("interval", e.interval))
	ticker := time.NewTicker(e.interval)
	defer func() {
		ticker.Stop()
		e.Stop()
		e.log.Debug("Frame clock stopped", zap.Uint64("frames", e.frames.Load()))
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopped:
			return nil
		case <-ticker.C:
			e.Paint()
		}
	}
}

// Stop releases everybody waiting for a frame.
func (e *Engine) Stop() {
	e.stop.Do(func() { close(e.stopped) })
}

// Paint completes current frame waking all NextFrame callers.
func (e *Engine) Paint() {
	e.mu.Lock()
	close(e.frame)
	e.frame = make(chan struct{})
	e.mu.Unlock()
	e.frames.Add(1)
}

// Frames returns number of painted frames.
func (e *Engine) Frames() uint64 {
	return e.frames.Load()
}

// NextFrame blocks until the next frame is painted.
func (e *Engine) NextFrame(ctx context.Context) error {
	e.mu.Lock()
	frame := e.frame
	e.mu.Unlock()

	select {
	case <-frame:
		return nil
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RootProperty returns computed value of custom property on the document
// root: declared value with all var() references substituted. Empty string
// is returned for undefined properties and for invalid references.
func (e *Engine) RootProperty(name string) string {
	value, ok := e.substitute(e.root.RootProperty(name), 0)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// substitute replaces every var(--name[, fallback]) in value.
func (e *Engine) substitute(value string, depth int) (string, bool) {
	if depth > maxVarDepth {
		return "", false
	}
	var b strings.Builder
	for {
		start := strings.Index(value, "var(")
		if start < 0 {
			b.WriteString(value)
			return b.String(), true
		}
		end := closingParen(value, start+len("var("))
		if end < 0 {
			return "", false
		}
		b.WriteString(value[:start])

		name, fallback, hasFallback := strings.Cut(value[start+len("var("):end], ",")
		name = strings.TrimSpace(name)
		if !strings.HasPrefix(name, "--") {
			return "", false
		}
		ref := strings.TrimSpace(e.root.RootProperty(name))
		if ref == "" {
			if !hasFallback {
				return "", false
			}
			ref = strings.TrimSpace(fallback)
		}
		resolved, ok := e.substitute(ref, depth+1)
		if !ok {
			return "", false
		}
		b.WriteString(resolved)
		value = value[end+1:]
	}
}

// closingParen returns index of ")" balancing "(" which ends right before
// from.
func closingParen(value string, from int) int {
	level := 1
	for i := from; i < len(value); i++ {
		switch value[i] {
		case '(':
			level++
		case ')':
			level--
			if level == 0 {
				return i
			}
		}
	}
	return -1
}

// NewProbe creates detached probe element.
func (e *Engine) NewProbe() ports.Probe {
	return &Probe{id: uuid.New(), engine: e}
}

// Attached returns number of probes currently attached to the document.
func (e *Engine) Attached() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.probes)
}

func (e *Engine) attach(p *Probe) error {
	select {
	case <-e.stopped:
		return ErrStopped
	default:
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.probes[p.id] = p
	return nil
}

func (e *Engine) detach(p *Probe) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.probes, p.id)
}
