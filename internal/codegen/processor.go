// Package codegen post-processes the model graph of a k6 client: it resolves
// file names and imports, rewrites discriminated inheritance into tagged
// unions and prepares operations for rendering.
package codegen

import (
	"log/slog"
	"sort"
)

// Processor runs the post-processing pass. It is safe to reuse across runs;
// it keeps no state besides its options.
type Processor struct {
	opts     Options
	resolver *Resolver
	logger   *slog.Logger
}

// ProcessorOption mutates a Processor at construction time.
type ProcessorOption func(*Processor)

// WithLogger routes warnings and debug tracing to logger.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = logger }
}

// New validates opts and returns a Processor. A *ConfigError is returned for
// invalid options.
func New(opts Options, popts ...ProcessorOption) (*Processor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	p := &Processor{opts: opts, resolver: NewResolver(opts)}
	for _, o := range popts {
		o(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

func (p *Processor) Options() Options     { return p.opts }
func (p *Processor) Resolver() *Resolver { return p.resolver }

// ProcessModels is the first phase. The input is not modified; the returned
// model files carry copies with rewritten imports and stamped discriminator
// values, sorted by model name.
func (p *Processor) ProcessModels(models []*Model) []*ModelFile {
	copies := make([]*Model, 0, len(models))
	for _, m := range models {
		copies = append(copies, m.clone())
	}
	sort.SliceStable(copies, func(i, j int) bool { return copies[i].Name < copies[j].Name })

	p.rewriteUnions(copies)

	out := make([]*ModelFile, 0, len(copies))
	for _, m := range copies {
		out = append(out, &ModelFile{
			Model:        m,
			TaggedUnions: p.opts.TaggedUnions,
			Imports:      p.resolver.BuildImports(m),
		})
		p.logger.Debug("post-processed model",
			slog.String("model", m.Name),
			slog.Int("imports", len(m.Imports)))
	}
	return out
}

// Process runs both phases in order.
func (p *Processor) Process(g *Graph) *Result {
	models := p.ProcessModels(g.Models)
	return &Result{
		Options:    p.opts,
		Models:     models,
		Operations: p.ProcessOperations(g.Operations, models),
	}
}

// ModelsOf returns the models behind a set of model files, e.g. to feed a
// processed graph back into ProcessModels.
func ModelsOf(files []*ModelFile) []*Model {
	out := make([]*Model, 0, len(files))
	for _, f := range files {
		out = append(out, f.Model)
	}
	return out
}
