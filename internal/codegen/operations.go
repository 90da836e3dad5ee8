package codegen

import (
	"log/slog"
	"strings"
)

const (
	MediaTypeJSON = "application/json"
	MediaTypeForm = "application/x-www-form-urlencoded"
)

// TemplatePath turns "{id}" placeholders into "${id}" so the path can be used
// inside a template literal. Openers that are already templated are kept.
func TemplatePath(path string) string {
	var b strings.Builder
	b.Grow(len(path) + strings.Count(path, "{"))
	for i := 0; i < len(path); i++ {
		if path[i] == '{' && (i == 0 || path[i-1] != '$') {
			b.WriteByte('$')
		}
		b.WriteByte(path[i])
	}
	return b.String()
}

// InferConsumes fills in a single consumes entry for operations that send a
// body or form but whose document declared no media type.
func InferConsumes(op *Operation) {
	if !op.HasBodyOrFormParams() || len(op.Consumes) > 0 {
		return
	}
	mediaType := MediaTypeJSON
	if op.HasFormParams {
		mediaType = MediaTypeForm
	}
	op.Consumes = []Consumes{{
		IsJSON:    op.HasBodyParam && !op.HasFormParams,
		MediaType: mediaType,
	}}
	op.HasConsumes = true
}

// NormalizeImports mirrors each resolved import path into Filename.
func NormalizeImports(g *OperationGroup) {
	for i := range g.Imports {
		g.Imports[i].Filename = g.Imports[i].Import
	}
}

// ProcessOperations is the second phase. It reads the post-processed models
// and returns new operation groups with templated paths, consumes metadata and
// normalized imports.
func (p *Processor) ProcessOperations(groups []*OperationGroup, models []*ModelFile) []*OperationGroup {
	known := make(map[string]struct{}, len(models))
	for _, mf := range models {
		known[mf.Model.Name] = struct{}{}
	}

	out := make([]*OperationGroup, 0, len(groups))
	for _, g := range groups {
		g = g.clone()
		for _, op := range g.Operations {
			op.Path = TemplatePath(op.Path)
			InferConsumes(op)
			if len(op.Consumes) > 0 {
				op.HasConsumes = true
			}
		}
		NormalizeImports(g)
		for _, im := range g.Imports {
			if _, ok := known[im.Classname]; !ok {
				p.logger.Debug("operation import has no generated model",
					slog.String("group", g.Tag), slog.String("import", im.Classname))
			}
		}
		out = append(out, g)
	}
	return out
}
