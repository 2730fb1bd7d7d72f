package convert

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"pleasant/common"
	"pleasant/dom"
)

func TestBuildMergedName(t *testing.T) {
	tests := []struct {
		name          string
		template      string
		transliterate bool
		want          string
	}{
		{name: "source name", want: "My Style.css"},
		{name: "template", template: "{{ .SourceFile | upper }}-{{ .Format }}", want: "MY STYLE-merged.css"},
		{name: "template with extension", template: "{{ .SourceFile }}.css", want: "My Style.css"},
		{name: "template with directories", template: "out/{{ .SourceFile }}", want: "My Style.css"},
		{name: "template values", template: "{{ .Sheets }}-{{ .Origin | trimPrefix \"https://\" }}", want: "0-example.com.css"},
		{name: "empty template result", template: "{{ if false }}x{{ end }}", want: "My Style.css"},
		{name: "bad template", template: "{{ .Unknown }}", want: "My Style.css"},
		{name: "transliterate", template: "Café {{ .SourceFile }}", transliterate: true, want: "cafe-my-style.css"},
		{name: "hidden file", template: "..hidden", want: "hidden.css"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testEnv(t)
			env.Output = common.OutputModeMerged
			env.Origin = "https://example.com"
			env.Cfg.Document.MergedNameTemplate = tt.template
			env.Cfg.Document.FileNameTransliterate = tt.transliterate

			doc, err := dom.New(env.Origin+"/", t.TempDir(), zaptest.NewLogger(t))
			if err != nil {
				t.Fatal(err)
			}
			src := filepath.Join(t.TempDir(), "My Style.css")
			if got := buildMergedName(doc, src, env); got != tt.want {
				t.Errorf("buildMergedName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildValues(t *testing.T) {
	env := testEnv(t)
	doc, err := dom.New("http://localhost/", t.TempDir(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	doc.InjectGlobal()
	doc.AddStyleSheet("https://cdn.example.org/a.css", "", nil)

	v := buildValues("test", doc, "/src/page.html", env)
	if v.Context != "test" || v.SourceFile != "page" || v.Location != "http://localhost/" {
		t.Errorf("unexpected values: %+v", v)
	}
	if v.Sheets != 1 {
		t.Errorf("Sheets = %d, cross-origin sheets are not counted", v.Sheets)
	}
	if v.Format != "separate" {
		t.Errorf("Format = %q", v.Format)
	}
}
