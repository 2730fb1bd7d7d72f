package convert

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"pleasant/grayscale"
	"pleasant/render"
)

func TestSettle_DuplicateDeclarations(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"site.css": `p { color: red; color: blue; }
q { color: red !important; color: blue; }
`})
	env := testEnv(t)

	_, doc, err := load(filepath.Join(src, "site.css"), env, env.Log)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	engine := render.New(doc, env.Cfg.Document.FrameInterval, env.Log)
	var frames sync.WaitGroup
	frames.Go(func() {
		_ = engine.Run(ctx)
	})
	defer func() {
		cancel()
		frames.Wait()
	}()

	passes, err := grayscale.NewScheduler(doc, engine, env.Log).Settle(ctx, 10)
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if passes != 2 {
		t.Errorf("passes = %d, want 2", passes)
	}

	var text string
	for _, s := range doc.Sheets() {
		if !s.Injected() {
			text = s.String()
		}
	}
	// only the declaration in effect is converted, overridden ones are kept as they are
	assertContains(t, "site.css", text,
		"p {\n  color: red;\n  color: rgba(28, 28, 28, 1);\n}",
		"q {\n  color: rgba(76, 76, 76, 1) !important;\n  color: blue;\n}",
	)
}
