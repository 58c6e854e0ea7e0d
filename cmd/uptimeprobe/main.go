package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeprobe/internal/config"
	"github.com/hamed0406/uptimeprobe/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		// a second interrupt kills the process
		<-ctx.Done()
		stop()
	}()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, time.Now())
	if errors.Is(err, config.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "uptimeprobe: %v\n\n%s", err, config.Usage())
		return 1
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "uptimeprobe: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, logger, stdout)
	if err != nil {
		logger.Error("setup_failed", zap.Error(err))
		fmt.Fprintf(stderr, "uptimeprobe: %v\n", err)
		return 1
	}
	if err := a.run(ctx); err != nil {
		logger.Error("run_failed", zap.Error(err))
		fmt.Fprintf(stderr, "uptimeprobe: %v\n", err)
		return 1
	}
	return 0
}
