package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"pleasant/common"
	"pleasant/dom"
	"pleasant/grayscale"
	"pleasant/render"
	"pleasant/state"
)

// Run converts stylesheets of a document to grayscale once: it loads the
// document, runs passes until nothing changes and writes the result.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src, dst, err := arguments(cmd, log)
	if err != nil {
		return err
	}
	prepareEnv(env, cmd, log)

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("output", env.Output))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, env, log)
}

// arguments returns absolute source and destination, destination defaults
// to working directory.
func arguments(cmd *cli.Command, log *zap.Logger) (src, dst string, err error) {
	src = cmd.Args().Get(0)
	if len(src) == 0 {
		return "", "", errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return "", "", err
	}

	dst = cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return "", "", fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return "", "", err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}
	return src, dst, nil
}

// prepareEnv merges command line flags with configuration.
func prepareEnv(env *state.LocalEnv, cmd *cli.Command, log *zap.Logger) {
	env.Overwrite = cmd.Bool("overwrite")

	env.Output = env.Cfg.Document.Output
	if cmd.IsSet("output") {
		mode, err := common.ParseOutputMode(cmd.String("output"))
		if err != nil {
			log.Warn("Unknown output mode requested, using configured one", zap.Error(err), zap.Stringer("output", env.Output))
		} else {
			env.Output = mode
		}
	}

	env.Origin = env.Cfg.Document.Origin
	if origin := cmd.String("origin"); origin != "" {
		env.Origin = origin
	}
}

// process handles the conversion independently of CLI framework.
func process(ctx context.Context, src, dst string, env *state.LocalEnv, log *zap.Logger) (rerr error) {
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		}
	}(time.Now())

	_, doc, err := load(src, env, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	engine := render.New(doc, env.Cfg.Document.FrameInterval, log)
	var frames sync.WaitGroup
	frames.Go(func() {
		_ = engine.Run(ctx)
	})
	defer func() {
		cancel()
		frames.Wait()
	}()

	sched := grayscale.NewScheduler(doc, engine, log, grayscale.WithMetrics(env.Metrics))
	passes, err := sched.Settle(ctx, env.Cfg.Document.MaxPasses)
	switch {
	case err != nil && ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		log.Warn("Document did not reach stable state, writing what we have", zap.Int("passes", passes), zap.Error(err))
	default:
		log.Debug("Document converted", zap.Int("passes", passes), zap.Uint64("frames", engine.Frames()))
	}

	env.Rpt.StoreData("document.txt", []byte(doc.Dump()))
	_, err = save(doc, src, dst, env.Overwrite, env, log)
	return err
}

// load builds document from src and attaches global stylesheet to it.
func load(src string, env *state.LocalEnv, log *zap.Logger) (*dom.Loader, *dom.Document, error) {
	loader, err := dom.NewLoader(env.Origin, log)
	if err != nil {
		return nil, nil, err
	}
	doc, err := loader.Load(src)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to load document (%s): %w", src, err)
	}
	doc.InjectGlobal()

	if err := env.Rpt.StoreCopy("source", src); err != nil {
		log.Warn("Unable to store source in report", zap.Error(err))
	}
	log.Debug("Document loaded", zap.String("location", doc.Location()), zap.Int("sheets", len(doc.Sheets())))
	return loader, doc, nil
}

// save writes document under dst and records results in the report.
func save(doc *dom.Document, src, dst string, overwrite bool, env *state.LocalEnv, log *zap.Logger) ([]string, error) {
	opts := dom.WriteOptions{
		Merged:    env.Output == common.OutputModeMerged,
		Overwrite: overwrite,
	}
	if opts.Merged {
		opts.MergedName = buildMergedName(doc, src, env)
	}

	written, err := doc.Save(dst, opts)
	for _, name := range written {
		log.Debug("Written", zap.String("file", name))
		if rel, err := filepath.Rel(dst, name); err == nil {
			env.Rpt.Store("result/"+filepath.ToSlash(rel), name)
		}
	}
	if err != nil {
		return written, fmt.Errorf("unable to save document: %w", err)
	}
	log.Info("Document saved", zap.Int("files", len(written)), zap.String("destination", dst))
	return written, nil
}
