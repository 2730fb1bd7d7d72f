package convert

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"pleasant/config"
	"pleasant/dom"
	"pleasant/state"
)

// buildMergedName returns file name of merged stylesheet based on source
// name or user-defined template. It cleans up the name and if requested
// transliterates it.
func buildMergedName(doc *dom.Document, src string, env *state.LocalEnv) string {
	baseName := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))

	if tmpl := env.Cfg.Document.MergedNameTemplate; tmpl != "" {
		if expanded := expandMergedNameTemplate(doc, src, tmpl, env); expanded != "" {
			baseName = expanded
		}
	}
	baseName = strings.TrimSuffix(baseName, ".css")

	if env.Cfg.Document.FileNameTransliterate {
		baseName = slug.Make(baseName)
	}
	return config.CleanFileName(baseName) + ".css"
}

func expandMergedNameTemplate(doc *dom.Document, src, tmpl string, env *state.LocalEnv) string {
	values := buildValues(config.MergedNameTemplateFieldName, doc, src, env)
	expanded, err := expandTemplate(config.MergedNameTemplateFieldName, tmpl, values)
	if err != nil {
		env.Log.Warn("Unable to prepare merged stylesheet name", zap.Error(err))
		return ""
	}
	expanded = strings.TrimSpace(expanded)
	if expanded == "" {
		return ""
	}
	// merged sheet always goes directly into destination
	return filepath.Base(filepath.FromSlash(expanded))
}
