package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/swagger2k6/internal/codegen"
)

// captureGenerate swaps the runner; callers must not run in parallel.
func captureGenerate(t *testing.T, args ...string) (*GenerateConfig, error) {
	t.Helper()

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs(args)
	err := root.Execute()
	return captured, err
}

func TestGenerateConfigFromFlags(t *testing.T) {
	captured, err := captureGenerate(t,
		"--verbose",
		"generate",
		"--input", "spec.yaml",
		"--out", "./build",
		"--include-tags", "foo,bar",
		"--exclude-tags", "baz",
		"--methods", "GET,post",
		"--path-pattern", "^/pets/{1,2}",
		"--file-naming", "kebab-case",
		"--tagged-unions",
		"--string-enums",
		"--use-jslib=false",
		"--k6-version", "0.50.0",
		"--model-suffix", "Model",
		"--model-file-suffix", ".model",
		"--model-name-prefix", "api",
		"--model-name-suffix", "dto",
		"--import-mapping", "Money=@acme/money",
		"--model-package", "models",
		"--api-package", "services",
		"--dry-run",
		"--force",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.Input != "spec.yaml" {
		t.Errorf("input mismatch: got %q", captured.Input)
	}
	if captured.Out != "./build" {
		t.Errorf("out mismatch: got %q", captured.Out)
	}
	if want := []string{"foo", "bar"}; !equalStringSlices(captured.IncludeTags, want) {
		t.Errorf("include tags mismatch: got %v", captured.IncludeTags)
	}
	if want := []string{"baz"}; !equalStringSlices(captured.ExcludeTags, want) {
		t.Errorf("exclude tags mismatch: got %v", captured.ExcludeTags)
	}
	if want := []string{"get", "post"}; !equalStringSlices(captured.Methods, want) {
		t.Errorf("methods mismatch: got %v", captured.Methods)
	}
	if want := []string{"^/pets/{1,2}"}; !equalStringSlices(captured.PathPatterns, want) {
		t.Errorf("path patterns mismatch: got %v", captured.PathPatterns)
	}

	want := codegen.Options{
		FileNaming:      codegen.FileNamingKebabCase,
		TaggedUnions:    true,
		StringEnums:     true,
		UseJslib:        false,
		K6Version:       "0.50.0",
		ModelSuffix:     "Model",
		ModelFileSuffix: ".model",
		ModelNamePrefix: "api",
		ModelNameSuffix: "dto",
		ImportMapping:   map[string]string{"Money": "@acme/money"},
		ModelPackage:    "models",
		APIPackage:      "services",
	}
	got := captured.Options
	if got.FileNaming != want.FileNaming || got.TaggedUnions != want.TaggedUnions ||
		got.StringEnums != want.StringEnums || got.UseJslib != want.UseJslib ||
		got.K6Version != want.K6Version || got.ModelSuffix != want.ModelSuffix ||
		got.ModelFileSuffix != want.ModelFileSuffix || got.ModelNamePrefix != want.ModelNamePrefix ||
		got.ModelNameSuffix != want.ModelNameSuffix || got.ModelPackage != want.ModelPackage ||
		got.APIPackage != want.APIPackage {
		t.Errorf("options mismatch:\n got  %+v\n want %+v", got, want)
	}
	if got.ImportMapping["Money"] != "@acme/money" || len(got.ImportMapping) != 1 {
		t.Errorf("import mapping mismatch: got %v", got.ImportMapping)
	}
	if !captured.DryRun {
		t.Errorf("expected dry-run true")
	}
	if !captured.Force {
		t.Errorf("expected force true")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true")
	}
}

func TestGenerateConfigDefaults(t *testing.T) {
	captured, err := captureGenerate(t, "generate", "--input", "spec.yaml")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	defaults := codegen.DefaultOptions()
	if captured.Options.FileNaming != defaults.FileNaming || !captured.Options.UseJslib ||
		captured.Options.K6Version != defaults.K6Version || captured.Options.ModelPackage != "model" ||
		captured.Options.APIPackage != "api" {
		t.Fatalf("unexpected defaults: %+v", captured.Options)
	}
}

func TestGenerateConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := strings.TrimSpace(`input: config-spec.yaml
out: from-config
includeTags:
  - cfgFoo
excludeTags: cfgBar
pathPatterns: '^/a{1,2}'
taggedUnions: true
model-suffix: Dto
importMapping:
  Money: '@acme/money'
dryRun: true
force: false
verbose: true
`) + "\n"

	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(envPrefix+"OUT", "from-env")
	t.Setenv(envPrefix+"K6_VERSION", "0.49.0")
	t.Setenv(envPrefix+"MODEL_SUFFIX", "Env")

	captured, err := captureGenerate(t,
		"--config", configPath,
		"generate",
		"--input", "flag-spec.yaml",
		"--include-tags", "flagTag",
		"--dry-run=false",
		"--force",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if captured.Input != "flag-spec.yaml" {
		t.Errorf("input: want %q got %q", "flag-spec.yaml", captured.Input)
	}
	if captured.Out != "from-config" {
		t.Errorf("out: config file must override environment, got %q", captured.Out)
	}
	if captured.Options.K6Version != "0.49.0" {
		t.Errorf("k6 version: want environment value, got %q", captured.Options.K6Version)
	}
	if captured.Options.ModelSuffix != "Dto" {
		t.Errorf("model suffix: want config value Dto, got %q", captured.Options.ModelSuffix)
	}
	if !captured.Options.TaggedUnions {
		t.Errorf("expected tagged unions from config file")
	}
	if captured.Options.ImportMapping["Money"] != "@acme/money" {
		t.Errorf("import mapping: got %v", captured.Options.ImportMapping)
	}
	if want := []string{"^/a{1,2}"}; !equalStringSlices(captured.PathPatterns, want) {
		t.Errorf("path patterns: want %v got %v", want, captured.PathPatterns)
	}
	if want := []string{"flagTag"}; !equalStringSlices(captured.IncludeTags, want) {
		t.Errorf("include tags: want %v got %v", want, captured.IncludeTags)
	}
	if want := []string{"cfgBar"}; !equalStringSlices(captured.ExcludeTags, want) {
		t.Errorf("exclude tags: want %v got %v", want, captured.ExcludeTags)
	}
	if captured.DryRun {
		t.Errorf("expected dry-run false after flag override")
	}
	if !captured.Force {
		t.Errorf("expected force true after flag override")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true from config file")
	}
	if captured.ConfigPath != configPath {
		t.Errorf("config path mismatch: got %q", captured.ConfigPath)
	}
}

func TestGenerateConfigFromEnvironment(t *testing.T) {
	t.Setenv(envPrefix+"INPUT", "env-spec.yaml")
	t.Setenv(envPrefix+"TAGGED_UNIONS", "true")
	t.Setenv(envPrefix+"IMPORT_MAPPING", "Money=@acme/money,Id=./id")
	t.Setenv(envPrefix+"EXCLUDE_TAGS", "internal,admin")

	captured, err := captureGenerate(t, "generate")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured.Input != "env-spec.yaml" {
		t.Errorf("input: got %q", captured.Input)
	}
	if !captured.Options.TaggedUnions {
		t.Errorf("expected tagged unions from environment")
	}
	if captured.Options.ImportMapping["Money"] != "@acme/money" || captured.Options.ImportMapping["Id"] != "./id" {
		t.Errorf("import mapping: got %v", captured.Options.ImportMapping)
	}
	if want := []string{"internal", "admin"}; !equalStringSlices(captured.ExcludeTags, want) {
		t.Errorf("exclude tags: got %v", captured.ExcludeTags)
	}
}

func TestGenerateConfigUnknownKey(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("unknown: value\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := captureGenerate(t, "--config", configPath, "generate", "--input", "spec.yaml")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestGenerateConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing input", []string{"generate"}, "--input is required"},
		{"bad method", []string{"generate", "--input", "s.yaml", "--methods", "fetch"}, `unsupported method "fetch"`},
		{"tag overlap", []string{"generate", "--input", "s.yaml", "--include-tags", "a", "--exclude-tags", "a"}, "overlap: a"},
		{"class suffix", []string{"generate", "--input", "s.yaml", "--model-suffix", "Model_2"}, "invalid modelSuffix"},
		{"file suffix", []string{"generate", "--input", "s.yaml", "--model-file-suffix", "/model"}, "invalid modelFileSuffix"},
		{"file naming", []string{"generate", "--input", "s.yaml", "--file-naming", "snake_case"}, "invalid fileNaming"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			captured, err := captureGenerate(t, tc.args...)
			if err == nil {
				t.Fatalf("expected error, got config %+v", captured)
			}
			if !errors.Is(err, ErrUsage) {
				t.Fatalf("expected usage error, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestDeriveOutDir(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"Swagger Petstore":    "swagger-petstore-k6",
		"  Acme: Orders/v2 ":  "acme-orders-v2-k6",
		"":                    defaultOutDir,
		"!!!":                 defaultOutDir,
		"billing_api.service": "billing-api-service-k6",
	}
	for in, want := range cases {
		if got := deriveOutDir(in); got != want {
			t.Errorf("deriveOutDir(%q) = %q, want %q", in, got, want)
		}
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
