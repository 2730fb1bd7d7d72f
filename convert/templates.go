package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"pleasant/config"
	"pleasant/dom"
	"pleasant/state"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	SourceFile string
	Location   string
	Origin     string
	Sheets     int
	Format     string
}

func buildValues(name config.TemplateFieldName, doc *dom.Document, src string, env *state.LocalEnv) Values {
	var sheets int
	for _, s := range doc.Sheets() {
		if !s.CrossOrigin() {
			sheets++
		}
	}
	return Values{
		Context:    string(name),
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Location:   doc.Location(),
		Origin:     env.Origin,
		Sheets:     sheets,
		Format:     env.Output.String(),
	}
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
