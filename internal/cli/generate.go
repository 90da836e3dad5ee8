package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	env "github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swagger2k6/internal/codegen"
	"github.com/mark3labs/swagger2k6/internal/emitter/k6emitter"
	genspec "github.com/mark3labs/swagger2k6/internal/spec"
)

// envPrefix namespaces every environment variable the generate command reads.
const envPrefix = "SWAGGER2K6_"

const defaultOutDir = "k6-client"

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, environment, config file values, and CLI overrides.
type GenerateConfig struct {
	Input        string   `env:"INPUT"`
	Out          string   `env:"OUT"`
	IncludeTags  []string `env:"INCLUDE_TAGS"`
	ExcludeTags  []string `env:"EXCLUDE_TAGS"`
	Methods      []string `env:"METHODS"`
	PathPatterns []string `env:"PATH_PATTERNS" envSeparator:";"`
	ConfigPath   string
	DryRun       bool `env:"DRY_RUN"`
	Force        bool `env:"FORCE"`
	Verbose      bool `env:"VERBOSE"`
	Options      codegen.Options
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Options: codegen.DefaultOptions()}
}

var generateRunner = runGenerate

var allowedMethods = []genspec.HttpMethod{
	genspec.GET, genspec.POST, genspec.PUT, genspec.DELETE,
	genspec.PATCH, genspec.HEAD, genspec.OPTIONS, genspec.TRACE,
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a k6 TypeScript client from an OpenAPI/Swagger document",
		Long: "Generate a k6 TypeScript client from an OpenAPI/Swagger document. " +
			"Options can be provided via flags, a config file, " + envPrefix + "* environment variables, or defaults.",
		Example: strings.TrimSpace(`  swagger2k6 generate --input petstore.yaml --out ./client
  swagger2k6 generate --input https://example.com/openapi.json --tagged-unions --file-naming kebab-case
  swagger2k6 --config swagger2k6.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	defaults := codegen.DefaultOptions()
	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the Swagger/OpenAPI document")
	flags.String("out", "", "Output directory (derived from the document title when omitted)")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include operations using these HTTP methods")
	flags.StringArray("path-pattern", nil, "Only include paths matching this regular expression (repeatable)")
	flags.String("file-naming", defaults.FileNaming, "File naming convention (camelCase|kebab-case)")
	flags.Bool("tagged-unions", defaults.TaggedUnions, "Render discriminated hierarchies as tagged unions")
	flags.Bool("string-enums", defaults.StringEnums, "Emit inline enums at the top level with prefixed names")
	flags.Bool("use-jslib", defaults.UseJslib, "Use the k6 jslib URLSearchParams for query strings and forms")
	flags.String("k6-version", defaults.K6Version, "k6 version named in the generated README")
	flags.String("model-suffix", "", "Suffix appended to every model class name")
	flags.String("model-file-suffix", "", "Suffix appended to every model file name")
	flags.String("model-name-prefix", "", "Prefix applied to model names")
	flags.String("model-name-suffix", "", "Suffix applied to model names")
	flags.StringToString("import-mapping", nil, "Map model names to external modules (Name=module)")
	flags.String("model-package", defaults.ModelPackage, "Directory that receives the models")
	flags.String("api-package", defaults.APIPackage, "Directory that receives the API classes")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, newUsageError(fmt.Sprintf("generate: environment: %v", err))
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"input":             &cfg.Input,
		"out":               &cfg.Out,
		"file-naming":       &cfg.Options.FileNaming,
		"k6-version":        &cfg.Options.K6Version,
		"model-suffix":      &cfg.Options.ModelSuffix,
		"model-file-suffix": &cfg.Options.ModelFileSuffix,
		"model-name-prefix": &cfg.Options.ModelNamePrefix,
		"model-name-suffix": &cfg.Options.ModelNameSuffix,
		"model-package":     &cfg.Options.ModelPackage,
		"api-package":       &cfg.Options.APIPackage,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	bools := map[string]*bool{
		"tagged-unions": &cfg.Options.TaggedUnions,
		"string-enums":  &cfg.Options.StringEnums,
		"use-jslib":     &cfg.Options.UseJslib,
		"dry-run":       &cfg.DryRun,
		"force":         &cfg.Force,
		"verbose":       &cfg.Verbose,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	slices := map[string]*[]string{
		"include-tags": &cfg.IncludeTags,
		"exclude-tags": &cfg.ExcludeTags,
		"methods":      &cfg.Methods,
	}
	for name, dst := range slices {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Changed("path-pattern") {
		value, err := flags.GetStringArray("path-pattern")
		if err != nil {
			return err
		}
		cfg.PathPatterns = value
	}
	if flags.Changed("import-mapping") {
		value, err := flags.GetStringToString("import-mapping")
		if err != nil {
			return err
		}
		cfg.Options.ImportMapping = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.Methods = sanitizeTags(c.Methods)
	for i, m := range c.Methods {
		c.Methods[i] = strings.ToLower(m)
	}
	c.PathPatterns = sanitizeTags(c.PathPatterns)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag, config file or " + envPrefix + "INPUT)")
	}

	for _, m := range c.Methods {
		if !isAllowedMethod(m) {
			return newUsageError(fmt.Sprintf("generate: unsupported method %q (allowed: %s)", m, joinMethods(allowedMethods)))
		}
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	if err := c.Options.Validate(); err != nil {
		return configUsageError(err)
	}
	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	logger := newLogger(os.Stderr, cfg.Verbose)

	// 1) Load the document (file or http/https URL) with validation and conversion
	doc, err := genspec.Load(ctx, cfg.Input, genspec.WithLogger(logger))
	if err != nil {
		return specUsageError(err)
	}

	// 2) The processor validates the generator options before any work
	processor, err := codegen.New(cfg.Options, codegen.WithLogger(logger))
	if err != nil {
		return configUsageError(err)
	}

	// 3) Build the model graph with the processor's naming rules and filters
	methods := make([]genspec.HttpMethod, 0, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methods = append(methods, genspec.HttpMethod(m))
	}
	graph, err := genspec.BuildGraph(ctx, doc, processor.Resolver(),
		genspec.WithIncludeTags(cfg.IncludeTags),
		genspec.WithExcludeTags(cfg.ExcludeTags),
		genspec.WithMethods(methods),
		genspec.WithPathPatterns(cfg.PathPatterns),
		genspec.WithGraphLogger(logger),
	)
	if err != nil {
		return specUsageError(err)
	}

	// 4) Post-process models, then operations
	res := processor.Process(graph)

	// 5) Emit
	outDir := cfg.Out
	if outDir == "" {
		title := ""
		if doc.Info != nil {
			title = doc.Info.Title
		}
		outDir = deriveOutDir(title)
	}
	absOut := outDir
	if ap, err := filepath.Abs(outDir); err == nil {
		absOut = ap
	}

	emitted, err := k6emitter.Emit(ctx, res, k6emitter.Options{
		OutDir:  outDir,
		Force:   cfg.Force,
		DryRun:  cfg.DryRun,
		Verbose: cfg.Verbose,
		Logger:  logger,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}
	if cfg.DryRun {
		paths := make([]string, 0, len(emitted.Planned))
		for _, p := range emitted.Planned {
			paths = append(paths, p.RelPath)
		}
		printPlan(absOut, len(paths), paths)
		return nil
	}
	fmt.Fprintf(os.Stdout, "Generated %d models and %d APIs in %s\n", emitted.Models, emitted.APIs, absOut)
	return nil
}

// specUsageError turns structured loader and graph errors into friendly
// messages.
func specUsageError(err error) error {
	var se *genspec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("spec: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return wrapUsageError(msg, err)
}

func configUsageError(err error) error {
	var ce *codegen.ConfigError
	if errors.As(err, &ce) {
		return wrapUsageError("generate: "+ce.Error(), err)
	}
	return err
}

func printPlan(outDir string, count int, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, count)
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

// deriveOutDir turns a document title into a directory name.
func deriveOutDir(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	repl := strings.NewReplacer("/", " ", "_", " ", ".", " ", ",", " ", ":", " ")
	parts := strings.Fields(repl.Replace(t))
	var kept []string
	for _, p := range parts {
		var b strings.Builder
		for _, r := range p {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			kept = append(kept, b.String())
		}
	}
	if len(kept) == 0 {
		return defaultOutDir
	}
	return strings.Join(kept, "-") + "-k6"
}

func isAllowedMethod(m string) bool {
	for _, a := range allowedMethods {
		if string(a) == m {
			return true
		}
	}
	return false
}

func joinMethods(methods []genspec.HttpMethod) string {
	parts := make([]string, 0, len(methods))
	for _, m := range methods {
		parts = append(parts, string(m))
	}
	return strings.Join(parts, ", ")
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	opts := &cfg.Options
	for key, value := range raw {
		var err error
		switch normalizeKey(key) {
		case "input":
			cfg.Input, err = valueAsString(value)
		case "out":
			cfg.Out, err = valueAsString(value)
		case "includetags":
			cfg.IncludeTags, err = valueAsStringSlice(value)
		case "excludetags":
			cfg.ExcludeTags, err = valueAsStringSlice(value)
		case "methods":
			cfg.Methods, err = valueAsStringSlice(value)
		case "pathpatterns":
			cfg.PathPatterns, err = valueAsList(value)
		case "dryrun":
			cfg.DryRun, err = valueAsBool(value)
		case "force":
			cfg.Force, err = valueAsBool(value)
		case "verbose":
			cfg.Verbose, err = valueAsBool(value)
		case "filenaming":
			opts.FileNaming, err = valueAsString(value)
		case "taggedunions":
			opts.TaggedUnions, err = valueAsBool(value)
		case "stringenums":
			opts.StringEnums, err = valueAsBool(value)
		case "usejslib":
			opts.UseJslib, err = valueAsBool(value)
		case "k6version":
			opts.K6Version, err = valueAsString(value)
		case "modelsuffix":
			opts.ModelSuffix, err = valueAsString(value)
		case "modelfilesuffix":
			opts.ModelFileSuffix, err = valueAsString(value)
		case "modelnameprefix":
			opts.ModelNamePrefix, err = valueAsString(value)
		case "modelnamesuffix":
			opts.ModelNameSuffix, err = valueAsString(value)
		case "importmapping":
			opts.ImportMapping, err = valueAsStringMap(value)
		case "modelpackage":
			opts.ModelPackage, err = valueAsString(value)
		case "apipackage":
			opts.APIPackage, err = valueAsString(value)
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return splitAndTrim(s), nil
	}
	return valueAsList(v)
}

// valueAsList accepts a single string or a list and never splits on commas,
// so regular expressions survive intact.
func valueAsList(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return []string{strings.TrimSpace(val)}, nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsStringMap(v any) (map[string]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		out := make(map[string]string, len(val))
		for k, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[strings.TrimSpace(k)] = str
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected mapping, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
