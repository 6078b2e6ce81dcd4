// Command hull runs a command inside an isolated filesystem root,
// optionally populated from a pulled registry image.
//
// Usage:
//
//	hull run <image:tag|skip> <command> [arg...]
//
// The sandboxed command's exit code becomes hull's exit code. Passing
// "skip" as the image runs the command in a bare root without any
// registry pull.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hullproject/hull/cmd/hull/config"
	"github.com/hullproject/hull/lib/image"
	"github.com/hullproject/hull/lib/launcher"
	"github.com/hullproject/hull/lib/registry"
	"github.com/hullproject/hull/lib/sandbox"
)

// skipImage disables the registry pull for the invocation.
const skipImage = "skip"

func main() {
	// Logs go to stderr; stdout belongs to the sandboxed command.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 4 || os.Args[1] != "run" {
		fmt.Fprintf(os.Stderr, "Usage: %s run <image:tag|%s> <command> [arg...]\n", os.Args[0], skipImage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := run(ctx, os.Args[2], os.Args[3], os.Args[4:])
	stop()
	if err != nil {
		if errors.Is(err, image.ErrInvalidReference) {
			slog.Error(err.Error())
			os.Exit(2)
		}
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run(ctx context.Context, imageArg, command string, args []string) (int, error) {
	cfg := config.Load()

	var ref *image.Reference
	if imageArg != skipImage {
		var err error
		ref, err = image.Parse(imageArg)
		if err != nil {
			return 0, err
		}
	}

	client := registry.New(registry.Config{
		RegistryURL:   cfg.RegistryURL,
		AuthURL:       cfg.AuthURL,
		Service:       cfg.Service,
		Timeout:       cfg.HTTPTimeout,
		MaxLayerBytes: cfg.MaxLayerBytes,
		Logger:        slog.Default(),
	})

	l := launcher.New(client, sandbox.NewChroot(), slog.Default())

	return l.Run(ctx, launcher.RunSpec{
		Image:   ref,
		Command: command,
		Args:    args,
	})
}
