package grayscale

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"pleasant/metrics"
	"pleasant/ports"
)

// PassInterval is how often the next frame-gated pass is armed.
const PassInterval = 200 * time.Millisecond

// Scheduler repeatedly sweeps all accessible stylesheets of a document and
// converts their colors.
type Scheduler struct {
	doc      ports.Document
	env      ports.Environment
	mutator  *Mutator
	log      *zap.Logger
	metrics  *metrics.Recorder
	interval time.Duration

	scanning atomic.Bool
}

// SchedulerOption customizes Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval changes pass interval, intended for tests.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithMetrics makes scheduler and its pipeline report to rec.
func WithMetrics(rec *metrics.Recorder) SchedulerOption {
	return func(s *Scheduler) {
		s.metrics = rec
	}
}

// NewScheduler creates scheduler for doc rendered by env.
func NewScheduler(doc ports.Document, env ports.Environment, log *zap.Logger, options ...SchedulerOption) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		doc:      doc,
		env:      env,
		log:      log.Named("scheduler"),
		interval: PassInterval,
	}
	for _, opt := range options {
		opt(s)
	}
	s.mutator = NewMutator(NewResolver(env, log, s.metrics), log, s.metrics)
	return s
}

// Run schedules a pass on the next frame every interval until ctx is done.
// Passes never overlap, a pass armed while another is scanning is dropped.
// Run returns once work of every started pass is finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Debug("Scheduler started", zap.Duration("interval", s.interval))
	defer s.log.Debug("Scheduler stopped")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var armed sync.WaitGroup
	defer armed.Wait()

	arm := func() {
		armed.Go(func() {
			if err := s.env.NextFrame(ctx); err != nil {
				return
			}
			if p, ok := s.tryScan(ctx); ok {
				p.work.Wait()
			}
		})
	}

	arm()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			arm()
		}
	}
}

// Pass runs one synchronous walk over the document. Color resolution started
// by the walk continues in background. Returns false if another walk was in
// progress.
func (s *Scheduler) Pass(ctx context.Context) bool {
	_, ok := s.tryScan(ctx)
	return ok
}

func (s *Scheduler) tryScan(ctx context.Context) (*pass, bool) {
	if !s.scanning.CompareAndSwap(false, true) {
		return nil, false
	}
	defer s.scanning.Store(false)
	return s.scan(ctx), true
}

// Settle runs passes, waiting for all work of each, until a pass changes
// nothing or limit passes were made. Returns number of passes made.
func (s *Scheduler) Settle(ctx context.Context, limit int) (int, error) {
	for n := 1; n <= limit; n++ {
		if err := ctx.Err(); err != nil {
			return n - 1, err
		}
		for !s.scanning.CompareAndSwap(false, true) {
			// continuous scheduler is walking, give it a frame
			if err := s.env.NextFrame(ctx); err != nil {
				return n - 1, err
			}
		}
		p := s.scan(ctx)
		s.scanning.Store(false)

		p.work.Wait()
		if p.writes.Load() == 0 {
			s.log.Debug("Document settled", zap.Int("passes", n))
			return n, nil
		}
	}
	return limit, fmt.Errorf("document did not settle after %d passes", limit)
}

// pass tracks background work started by a single walk.
type pass struct {
	work   sync.WaitGroup
	writes atomic.Int64
}

func (s *Scheduler) scan(ctx context.Context) (p *pass) {
	p = &pass{}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Pass failed", zap.Any("panic", r))
		}
		s.metrics.Pass(ctx, time.Since(start))
	}()

	origin, err := ports.Origin(s.doc.Location())
	if err != nil {
		s.log.Error("Unable to determine document origin", zap.String("location", s.doc.Location()), zap.Error(err))
		return p
	}

	for _, sheet := range s.doc.StyleSheets() {
		href := sheet.Href()
		if href == "" {
			href = s.doc.Location()
		}
		if o, err := ports.Origin(href); err != nil || o != origin {
			s.metrics.SheetSkipped(ctx)
			continue
		}

		rules, err := sheet.Rules()
		if err != nil {
			s.log.Debug("Unable to access stylesheet rules", zap.String("href", sheet.Href()), zap.Error(err))
			continue
		}
		for _, rule := range rules {
			style := rule.Style()
			if style == nil {
				continue
			}
			s.scanStyle(ctx, p, style)
		}
	}
	return p
}

func (s *Scheduler) scanStyle(ctx context.Context, p *pass, style ports.Style) {
	for name, value := range style.All() {
		if value == "" {
			continue
		}
		lower := strings.ToLower(value)

		if IsColorValue(name, lower) {
			s.background(p, name, func() bool {
				return s.mutator.Color(ctx, style, name, value)
			})
		}
		if IsShadowValue(name, lower) {
			s.background(p, name, func() bool {
				return s.mutator.Shadow(ctx, style, name, value)
			})
		}
		if HasImageReference(value) {
			if s.mutator.Filter(ctx, style) {
				p.writes.Add(1)
			}
		}
	}
}

// background runs declaration update independently of the walk and of every
// other declaration.
func (s *Scheduler) background(p *pass, name string, update func() bool) {
	p.work.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("Declaration update failed", zap.String("property", name), zap.Any("panic", r))
			}
		}()
		if update() {
			p.writes.Add(1)
		}
	})
}
