// Package main is the entry point for the map viewer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/mapview/internal/admin"
	"github.com/Faultbox/mapview/internal/app"
	"github.com/Faultbox/mapview/internal/config"
	"github.com/Faultbox/mapview/internal/logger"
	"github.com/Faultbox/mapview/internal/roommap"
)

func main() {
	flags, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== mapview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	graph := roommap.New()

	adminDone := make(chan struct{})
	if cfg.Admin.Addr != "" {
		go func() {
			defer close(adminDone)
			admin.ListenAndServe(ctx, &http.Server{Addr: cfg.Admin.Addr, Handler: admin.Handler(graph)})
		}()
	} else {
		close(adminDone)
	}

	a, err := app.New(ctx, cfg, graph)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		stop()
		<-adminDone
		os.Exit(1)
	}

	runErr := a.Run(ctx)
	a.Close()
	stop()
	<-adminDone

	if runErr != nil {
		logger.Error("viewer error", zap.Error(runErr))
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}
