package cli

import (
    "errors"
    "io"
    "strings"
    "testing"
)

func TestUnknownFlag_ShowsHelpAndUsageError(t *testing.T) {
    t.Parallel()
    cases := []struct {
        name string
        args []string
        // flags the subcommand's usage text must list
        wantUsage []string
    }{
        {"generate", []string{"generate", "--input", "petstore.yaml", "--tagged-union"}, []string{"--tagged-unions", "--k6-version", "--import-mapping"}},
        {"init", []string{"init", "--k6-version", "0.50.0"}, []string{"--force"}},
        {"root", []string{"--model-suffix", "Dto"}, []string{"--config", "--verbose"}},
    }
    for _, tc := range cases {
        tc := tc
        t.Run(tc.name, func(t *testing.T) {
            t.Parallel()
            root := NewRootCmd()
            root.SetOut(io.Discard)
            root.SetErr(io.Discard)
            root.SetArgs(tc.args)

            err := root.Execute()
            if err == nil {
                t.Fatalf("expected error for unknown flag")
            }
            if _, ok := err.(usageError); !ok || !errors.Is(err, ErrUsage) {
                t.Fatalf("expected usage error, got %T: %v", err, err)
            }
            if !strings.Contains(err.Error(), "unknown flag") || !strings.Contains(err.Error(), "Usage:") {
                t.Fatalf("unexpected error text: %v", err)
            }
            for _, flag := range tc.wantUsage {
                if !strings.Contains(err.Error(), flag) {
                    t.Fatalf("usage text is missing %s:\n%v", flag, err)
                }
            }
        })
    }
}
