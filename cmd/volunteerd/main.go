// Command volunteerd serves the volunteer application lifecycle API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"volunteercore/internal/app"
	"volunteercore/internal/config"
	"volunteercore/internal/logging"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	exitFunc(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("volunteerd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "optional YAML config file")
	envFile := fs.String("env-file", ".env", "optional dotenv file")
	addr := fs.String("addr", "", "listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.LoadFiles(*envFile, *configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "logging: %v\n", err)
		return 1
	}

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("startup failed")
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.WithError(err).Warn("close backends")
		}
	}()
	if err := a.Serve(ctx); err != nil {
		logger.WithError(err).Error("server stopped")
		return 1
	}
	return 0
}
