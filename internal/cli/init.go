package cli

import (
    "context"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

const defaultConfigFile = "swagger2k6.yaml"

var initRunner = runInit

func newInitCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "init",
        Short: "Scaffold a sample swagger2k6 configuration file",
        Long:  "Scaffold a commented swagger2k6 configuration file that documents available options.",
        RunE: func(cmd *cobra.Command, args []string) error {
            out, err := cmd.Flags().GetString("out")
            if err != nil {
                return err
            }
            force, err := cmd.Flags().GetBool("force")
            if err != nil {
                return err
            }
            verbose, err := cmd.Flags().GetBool("verbose")
            if err != nil {
                return err
            }
            cfg := &InitConfig{
                OutputPath: out,
                Force:      force,
                Verbose:    verbose,
            }
            return initRunner(cmd.Context(), cfg)
        },
    }

    cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
    cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

    return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
    if err := ctx.Err(); err != nil {
        return err
    }

    out := strings.TrimSpace(cfg.OutputPath)
    if out == "" {
        out = defaultConfigFile
    }
    absPath, err := filepath.Abs(out)
    if err != nil {
        return fmt.Errorf("init: resolve output path: %w", err)
    }

    if st, err := os.Stat(absPath); err == nil && !cfg.Force {
        if st.Mode().IsRegular() {
            return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
        }
    }

    if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
        return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
    }

    content := strings.TrimSpace(sampleConfigYAML) + "\n"

    // Atomic write via temp + rename
    tmp := absPath + ".tmp"
    if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
        return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
    }
    if err := os.Rename(tmp, absPath); err != nil {
        _ = os.Remove(tmp)
        return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
    }
    if cfg.Verbose {
        newLogger(os.Stderr, true).Debug("wrote sample config", slog.String("path", absPath), slog.Int("bytes", len(content)))
    }
    fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
    return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# swagger2k6 configuration (YAML)
# All fields are optional. Precedence: defaults < SWAGGER2K6_* environment
# variables < this file < command-line flags.

# Path or URL to the Swagger/OpenAPI document (http/https or local file).
# input: ./openapi.yaml

# Output directory. When omitted, derived from the document title.
# out: ./petstore-k6

# Only include operations with these tags (comma-separated or list).
# includeTags: [pets,store]

# Exclude operations with these tags (comma-separated or list).
# excludeTags: [internal]

# Only include operations using these HTTP methods.
# methods: [get,post]

# Only include paths matching one of these regular expressions.
# pathPatterns: ['^/pets']

# File naming convention for models and APIs (camelCase|kebab-case).
# fileNaming: camelCase

# Render discriminated hierarchies as tagged unions instead of interface
# inheritance.
# taggedUnions: false

# Emit inline enums at the top level with model-prefixed names.
# stringEnums: false

# Use the k6 jslib URLSearchParams for query strings and urlencoded forms.
# useJslib: true

# k6 version named in the generated README.
# k6Version: 0.48.0

# Class and file name affixes. Class affixes must be alphanumeric.
# modelSuffix: Model
# modelFileSuffix: .model
# modelNamePrefix: api
# modelNameSuffix: dto

# Models provided by external modules instead of generated files.
# importMapping:
#   Money: '@acme/money'

# Output sub-directories.
# modelPackage: model
# apiPackage: api

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite non-empty output directory.
# force: false

# Enable verbose logging.
# verbose: false
`
