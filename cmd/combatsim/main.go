// Package main provides the combat balance simulator CLI.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	combatsimcmd "github.com/louisbranch/combatsim/internal/cmd/combatsim"
	platformcmd "github.com/louisbranch/combatsim/internal/platform/cmd"
	"github.com/louisbranch/combatsim/internal/platform/config"
	apperrors "github.com/louisbranch/combatsim/internal/platform/errors"
)

func main() {
	cfg, err := combatsimcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.ExitCodef(apperrors.CodeInvalidConfig.ExitCode(), "%s", combatsimcmd.FormatError(apperrors.Wrap(apperrors.CodeInvalidConfig, "parse config", err)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceCombatsim, func(ctx context.Context) error {
		return combatsimcmd.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err != nil {
		stop()
		config.ExitCodef(apperrors.CodeOf(err).ExitCode(), "%s", combatsimcmd.FormatError(err))
	}
}
