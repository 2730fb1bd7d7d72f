package convert

import (
	"context"
	"sync"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"pleasant/dom"
	"pleasant/grayscale"
	"pleasant/render"
	"pleasant/state"
)

// Watch keeps document stylesheets converted until interrupted. Stylesheet
// files changed on disk are reloaded, results are written every time the
// document settles after a change and once more on exit.
func Watch(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("watch")

	src, dst, err := arguments(cmd, log)
	if err != nil {
		return err
	}
	prepareEnv(env, cmd, log)

	log.Info("Watching", zap.String("source", src), zap.String("destination", dst), zap.Stringer("output", env.Output))
	defer func(start time.Time) {
		log.Info("Watching stopped", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	loader, doc, err := load(src, env, log)
	if err != nil {
		return err
	}
	return watch(ctx, loader, doc, src, dst, grayscale.PassInterval, env, log)
}

// watch runs continuous scheduler over doc polling its files every interval.
func watch(ctx context.Context, loader *dom.Loader, doc *dom.Document, src, dst string, interval time.Duration, env *state.LocalEnv, log *zap.Logger) (errs error) {
	runCtx, cancel := context.WithCancel(ctx)
	engine := render.New(doc, env.Cfg.Document.FrameInterval, log)
	sched := grayscale.NewScheduler(doc, engine, log, grayscale.WithMetrics(env.Metrics))

	var workers sync.WaitGroup
	workers.Go(func() {
		_ = engine.Run(runCtx)
	})
	workers.Go(func() {
		_ = sched.Run(runCtx)
	})

	var (
		overwrite = env.Overwrite
		saved     uint64
		last      = doc.Version()
	)
	flush := func() {
		v := doc.Version()
		if v == saved {
			return
		}
		// failed version is not retried, next change will write again
		saved = v
		if _, err := save(doc, src, dst, overwrite, env, log); err != nil {
			log.Error("Unable to write results", zap.Error(err))
			errs = multierr.Append(errs, err)
			return
		}
		// everything in destination is ours from now on
		overwrite = true
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			if n, err := loader.Refresh(doc); err != nil {
				log.Warn("Unable to refresh stylesheets", zap.Error(err))
			} else if n > 0 {
				log.Info("Stylesheets reloaded", zap.Int("count", n))
			}
			// write only when nothing changed for a whole interval
			if v := doc.Version(); v == last {
				flush()
			} else {
				last = v
			}
		}
	}

	cancel()
	workers.Wait()
	flush()

	env.Rpt.StoreData("document.txt", []byte(doc.Dump()))
	return errs
}
