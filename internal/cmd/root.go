// SPDX-License-Identifier: AGPL-3.0-or-later
// sbn-go - Software Bus Network bridge for cross-processor message forwarding
// Copyright (C) 2026 sbn-go contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package cmd wires configuration loading, logging, and the assembled
// bridge (internal/sbn) into a cobra command, following how the teacher
// repository's own root command wires config, scheduler, and servers.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/USA-RedDragon/configulator"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
	"golang.org/x/sync/errgroup"

	sbnclock "sbn-go/internal/clock"
	"sbn-go/internal/config"
	"sbn-go/internal/metrics"
	"sbn-go/internal/sbn"
)

const shutdownTimeout = 10 * time.Second

// NewCommand constructs the root cobra command: loading configuration,
// configuring slog, and running the assembled bridge until a termination
// signal or unexpected failure.
func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sbn-go",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	if err := configulator.New[config.Config]().Cobra(cmd); err != nil {
		panic(fmt.Sprintf("failed to wire configuration flags: %v", err))
	}
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("sbn-go - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return fmt.Errorf("failed to get config from context: %w", err)
	}

	cfg, err := c.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewServer(cfg.Metrics)
	var metricsSet *metrics.Metrics
	if cfg.Metrics.Enabled {
		metricsSet = metrics.NewMetrics()
	}

	app, err := sbn.New(cfg, sbnclock.New(), metricsSet, logger)
	if err != nil {
		return fmt.Errorf("failed to assemble bridge: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return m.Run(gctx)
	})
	statusCh := make(chan sbn.Status, 1)
	g.Go(func() error {
		status, err := app.Run(gctx)
		statusCh <- status
		return err
	})

	// exit is the single process-termination path, shared by a signal
	// arriving (stop, below) and the bridge or metrics server failing on
	// their own. Either one races to call it; sync.Once keeps the exit
	// code from whichever happens first.
	var exitOnce sync.Once
	exit := func(code int) {
		exitOnce.Do(func() {
			os.Exit(code)
		})
	}

	// waitDone closes once every supervised goroutine has returned, after
	// deciding the exit code from the bridge's reported Status and any
	// error g.Wait() surfaces. It fires this even if runRoot never
	// receives an OS signal, so a failure during steady-state running
	// still terminates the process instead of leaving shutdown.Listen
	// blocked forever below.
	waitDone := make(chan struct{})
	go func() {
		defer close(waitDone)
		err := g.Wait()
		status := sbn.StatusExitNormal
		select {
		case s := <-statusCh:
			status = s
		default:
		}
		if err != nil {
			logger.Error("bridge exited with error", "error", err)
			exit(1)
			return
		}
		if status == sbn.StatusExitError {
			exit(1)
			return
		}
		logger.Info("shutdown complete")
		exit(0)
	}()

	stop := func(sig os.Signal) {
		logger.Warn("shutting down due to signal", "signal", sig)
		cancel()

		select {
		case <-waitDone:
		case <-time.After(shutdownTimeout):
			logger.Error("shutdown timed out")
			exit(1)
		}
	}
	defer stop(syscall.SIGINT)

	shutdown.AddWithParam(stop)
	shutdown.Listen(syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	return nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	switch level {
	case config.LogLevelDebug:
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelWarn:
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
}
