package render

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Probe is an element with only its color set. Computed color is available
// only while the probe is attached.
type Probe struct {
	id     uuid.UUID
	engine *Engine

	mu       sync.Mutex
	color    string
	attached bool
}

// ID identifies probe element.
func (p *Probe) ID() uuid.UUID {
	return p.id
}

// SetColor sets inline color of the probe.
func (p *Probe) SetColor(value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.color = value
}

// Attach adds probe to the document.
func (p *Probe) Attach() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attached {
		return nil
	}
	if err := p.engine.attach(p); err != nil {
		return err
	}
	p.attached = true
	return nil
}

// ComputedColor returns canonical color of the probe, empty when probe is
// detached or its color is invalid.
func (p *Probe) ComputedColor() string {
	p.mu.Lock()
	value, attached := p.color, p.attached
	p.mu.Unlock()

	if !attached {
		return ""
	}
	value, ok := p.engine.substitute(value, 0)
	if !ok {
		return ""
	}
	computed := Canonical(value)
	if computed == "" {
		p.engine.log.Debug("Invalid probe color", zap.Stringer("probe", p.id), zap.String("color", value))
	}
	return computed
}

// Detach removes probe from the document.
func (p *Probe) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.attached {
		return
	}
	p.engine.detach(p)
	p.attached = false
}
