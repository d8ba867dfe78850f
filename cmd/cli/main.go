package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/adcanvas/internal/app"
	"github.com/specialistvlad/adcanvas/internal/cli"
	"github.com/specialistvlad/adcanvas/internal/hcl_adapter"
)

// main is the entrypoint for the adcanvas server.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW, os.LookupEnv)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on configuration errors, so we recover here to return a
	// clean exit error to the caller.
	defer func() {
		if r := recover(); r != nil {
			err = &cli.ExitError{Code: 2, Message: fmt.Sprintf("application startup panicked: %v", r)}
		}
	}()

	// Instantiate the concrete HCL loader to pass to the app.
	loader := hcl_adapter.NewLoader()
	canvasApp := app.NewApp(outW, appConfig, loader)

	return canvasApp.Run(ctx)
}
