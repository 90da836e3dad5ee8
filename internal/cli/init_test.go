package cli

import (
    "io"
    "os"
    "path/filepath"
    "regexp"
    "strings"
    "testing"
)

func TestInit_WritesSampleConfig(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    path := filepath.Join(dir, "config.yaml")

    root := NewRootCmd()
    root.SetOut(io.Discard)
    root.SetErr(io.Discard)
    root.SetArgs([]string{"init", "--out", path})

    if err := root.Execute(); err != nil {
        t.Fatalf("init execute: %v", err)
    }

    data, err := os.ReadFile(path)
    if err != nil {
        t.Fatalf("read config: %v", err)
    }
    s := string(data)
    if !strings.Contains(s, "swagger2k6 configuration") {
        t.Fatalf("unexpected config contents: %s", s)
    }
}

func TestInit_ExistingWithoutForce(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    path := filepath.Join(dir, "config.yaml")
    if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
        t.Fatalf("prewrite: %v", err)
    }

    root := NewRootCmd()
    root.SetOut(io.Discard)
    root.SetErr(io.Discard)
    root.SetArgs([]string{"init", "--out", path})

    err := root.Execute()
    if err == nil {
        t.Fatalf("expected error for existing file without --force")
    }
    if _, ok := err.(usageError); !ok {
        t.Fatalf("expected usage error, got %T: %v", err, err)
    }
}


// Every documented key in the sample config must be accepted by generate.
func TestInit_SampleConfigKeysAreKnown(t *testing.T) {
    t.Parallel()
    var b strings.Builder
    for _, line := range strings.Split(sampleConfigYAML, "\n") {
        switch {
        case strings.HasPrefix(line, "#   "):
            b.WriteString(strings.TrimPrefix(line, "#") + "\n")
        case sampleKeyLine.MatchString(line):
            b.WriteString(strings.TrimPrefix(line, "# ") + "\n")
        }
    }
    path := filepath.Join(t.TempDir(), "uncommented.yaml")
    if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }

    cfg := defaultGenerateConfig()
    if err := applyGenerateConfigFromFile(&cfg, path); err != nil {
        t.Fatalf("apply sample config: %v\n%s", err, b.String())
    }
    cfg.normalize()
    if err := cfg.validate(); err != nil {
        t.Fatalf("sample config does not validate: %v", err)
    }
    if cfg.Options.ImportMapping["Money"] != "@acme/money" {
        t.Fatalf("import mapping not parsed: %v", cfg.Options.ImportMapping)
    }
    if cfg.Options.ModelFileSuffix != ".model" || cfg.Input != "./openapi.yaml" {
        t.Fatalf("unexpected values: %+v", cfg)
    }
}

var sampleKeyLine = regexp.MustCompile(`^# [a-zA-Z0-9]+:`)
