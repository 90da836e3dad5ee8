// Package k6emitter renders a post-processed model graph as a TypeScript k6
// client: one file per model, one service class per operations collection
// and a README.
package k6emitter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/swagger2k6/internal/codegen"
)

// Options controls where and how the client is written.
type Options struct {
	OutDir  string // required; target directory to write the client
	Force   bool   // overwrite existing files
	DryRun  bool   // don't write, only plan
	Verbose bool
	Logger  *slog.Logger
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result lists the planned files in path order.
type Result struct {
	Planned []PlannedFile
	Models  int
	APIs    int
}

// Emit renders res into opts.OutDir.
func Emit(ctx context.Context, res *codegen.Result, opts Options) (*Result, error) {
	if res == nil {
		return nil, fmt.Errorf("k6emitter: nil result")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("k6emitter: OutDir is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	files, err := newRenderer(res).render()
	if err != nil {
		return nil, fmt.Errorf("k6emitter: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	out := &Result{Planned: make([]PlannedFile, 0, len(rels)), APIs: len(res.Operations)}
	modelDir := res.Options.ModelPackage + "/"
	for _, rel := range rels {
		out.Planned = append(out.Planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
		if strings.HasPrefix(rel, modelDir) && rel != modelDir+"index.ts" {
			out.Models++
		}
		if opts.Verbose {
			logger.Debug("planned file", slog.String("path", rel), slog.Int("size", len(files[rel])))
		}
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("k6emitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}
