package convert

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"pleasant/common"
	"pleasant/config"
	"pleasant/metrics"
	"pleasant/state"
)

func testEnv(t *testing.T) *state.LocalEnv {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Document.FrameInterval = time.Millisecond
	return &state.LocalEnv{
		Cfg:     cfg,
		Log:     zaptest.NewLogger(t),
		Metrics: metrics.NewNop(),
		Output:  cfg.Document.Output,
		Origin:  cfg.Document.Origin,
	}
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("unable to read result: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, name, text string, parts ...string) {
	t.Helper()
	for _, part := range parts {
		if !strings.Contains(text, part) {
			t.Errorf("%s does not contain %q:\n%s", name, part, text)
		}
	}
}

const sitePage = `<!DOCTYPE html>
<html>
<head>
<link rel="stylesheet" href="css/site.css">
<link rel="stylesheet" href="https://fonts.example.net/font.css">
<style>p { color: blue; text-shadow: 1px 1px 2px rgba(255, 0, 0, 0.5); }</style>
</head>
<body style="background-image: url(bg.png)"><p>Hello</p></body>
</html>`

const siteCSS = `:root { --accent: #00ff00; }
body { color: red; background: url(bg.png) no-repeat; box-shadow: 1px 1px rgb(0, 0, 255), 2px 2px red; }
a { color: var(--accent); border-color: currentcolor; }
@media print { b { color: red; } }
`

func TestProcess_HTML(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFiles(t, src, map[string]string{
		"index.html":   sitePage,
		"css/site.css": siteCSS,
	})
	env := testEnv(t)

	if err := process(context.Background(), filepath.Join(src, "index.html"), dst, env, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	css := readFile(t, filepath.Join(dst, "css", "site.css"))
	assertContains(t, "site.css", css,
		"--accent: #00ff00;",
		"color: rgba(76, 76, 76, 1);",
		"filter: grayscale(100%);",
		"box-shadow: 1px 1px rgba(28, 28, 28, 1), 2px 2px red;",
		"color: rgba(150, 150, 150, 1);",
		"border-color: currentcolor;",
		// group rules are not walked
		"@media print {\n  b {\n    color: red;",
	)

	page := readFile(t, filepath.Join(dst, "index.html"))
	assertContains(t, "index.html", page,
		"color: rgba(28, 28, 28, 1);",
		"text-shadow: 1px 1px 2px rgba(76, 76, 76, 0.5);",
		"filter: grayscale(100%) !important;",
		"https://fonts.example.net/font.css",
	)
}

func TestProcess_Idempotent(t *testing.T) {
	src, first, second := t.TempDir(), t.TempDir(), t.TempDir()
	writeFiles(t, src, map[string]string{"site.css": siteCSS})
	env := testEnv(t)

	if err := process(context.Background(), filepath.Join(src, "site.css"), first, env, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	once := readFile(t, filepath.Join(first, "site.css"))

	if err := process(context.Background(), filepath.Join(first, "site.css"), second, env, env.Log); err != nil {
		t.Fatalf("second process() error = %v", err)
	}
	if twice := readFile(t, filepath.Join(second, "site.css")); twice != once {
		t.Errorf("converting result again changed it:\n%s\n---\n%s", once, twice)
	}
}

func TestProcess_Merged(t *testing.T) {
	src := filepath.Join(t.TempDir(), "styles")
	dst := t.TempDir()
	writeFiles(t, src, map[string]string{
		"base.css":       "a { color: red; }",
		"theme/dark.css": "b { background-color: #0000ff; }",
	})
	env := testEnv(t)
	env.Output = common.OutputModeMerged

	if err := process(context.Background(), src, dst, env, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	merged := readFile(t, filepath.Join(dst, "styles.css"))
	assertContains(t, "styles.css", merged,
		"/* http://localhost/base.css */",
		"/* http://localhost/theme/dark.css */",
		"/* injected */",
		"color: rgba(76, 76, 76, 1);",
		"background-color: rgba(28, 28, 28, 1);",
	)
	if _, err := os.Stat(filepath.Join(dst, "base.css")); !os.IsNotExist(err) {
		t.Error("separate files must not be written in merged mode")
	}
}

func TestProcess_RefusesOverwrite(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFiles(t, src, map[string]string{"site.css": "a { color: red; }"})
	writeFiles(t, dst, map[string]string{"site.css": "keep"})
	env := testEnv(t)

	if err := process(context.Background(), filepath.Join(src, "site.css"), dst, env, env.Log); err == nil {
		t.Fatal("expected error for existing output")
	}
	if got := readFile(t, filepath.Join(dst, "site.css")); got != "keep" {
		t.Errorf("existing output was replaced: %s", got)
	}

	env.Overwrite = true
	if err := process(context.Background(), filepath.Join(src, "site.css"), dst, env, env.Log); err != nil {
		t.Fatalf("process() with overwrite error = %v", err)
	}
	assertContains(t, "site.css", readFile(t, filepath.Join(dst, "site.css")), "rgba(76, 76, 76, 1)")
}

func TestProcess_MissingSource(t *testing.T) {
	env := testEnv(t)
	if err := process(context.Background(), filepath.Join(t.TempDir(), "none.css"), t.TempDir(), env, env.Log); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestProcess_Canceled(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"site.css": "a { color: red; }"})
	env := testEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := process(ctx, filepath.Join(src, "site.css"), t.TempDir(), env, zap.NewNop()); err == nil {
		t.Error("expected error for canceled context")
	}
}
