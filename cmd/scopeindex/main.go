// # cmd/scopeindex/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"scopeindex/internal/core/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		slog.Error("scopeindex failed", "error", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps usage errors to 2 and unindexable input to 3.
func exitCode(err error) int {
	switch {
	case stderrors.Is(err, errUsage):
		return 2
	case errors.IsCode(err, errors.CodeSyntax):
		return 3
	default:
		return 1
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintf(stdout, "scopeindex v%s\n", versionString)
		return nil
	}

	logLevel := slog.LevelInfo
	if opts.verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel})))

	if len(opts.args) == 0 {
		usage(stderr)
		return errUsage
	}
	cmd, ok := commands[opts.args[0]]
	if !ok {
		usage(stderr)
		return fmt.Errorf("%w: unknown command %q", errUsage, opts.args[0])
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	return cmd(ctx, rt, opts, opts.args[1:], stdout)
}
