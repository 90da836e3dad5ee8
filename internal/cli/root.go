package cli

import (
    "context"
    "fmt"
    "io"
    "log/slog"

    "github.com/spf13/cobra"
)

// Execute runs the swagger2k6 CLI; ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
    return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:           "swagger2k6",
        Short:         "Generate k6 TypeScript clients from Swagger/OpenAPI documents",
        Long:          "swagger2k6 turns Swagger 2.0 and OpenAPI 3.x documents into TypeScript API clients for k6 load tests.",
        SilenceErrors: true,
        SilenceUsage:  true,
        RunE: func(cmd *cobra.Command, args []string) error {
            return cmd.Help()
        },
    }

    // Convert Cobra flag errors (like unknown flags) into friendly usage errors
    // that also show the command's help text.
    cmd.SetFlagErrorFunc(flagUsageError)

    cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
    cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

    for _, sub := range []*cobra.Command{newGenerateCmd(), newInitCmd()} {
        sub.SetFlagErrorFunc(flagUsageError)
        cmd.AddCommand(sub)
    }

    return cmd
}

func flagUsageError(c *cobra.Command, err error) error {
    return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}

// newLogger returns a text logger on w; verbose enables debug output.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
    level := slog.LevelInfo
    if verbose {
        level = slog.LevelDebug
    }
    return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
