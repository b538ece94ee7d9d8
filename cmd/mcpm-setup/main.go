package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/keppylab/mcpm/internal/mcpm/cmd"
	"github.com/keppylab/mcpm/internal/mcpm/common"
	"github.com/keppylab/mcpm/internal/mcpm/logging"
)

func main() {
	os.Exit(common.ExitCodeOf(run()))
}

func run() (err error) {
	ctx, cancel := notifyContext(context.Background())
	defer func() {
		cancel()
		if r := recover(); r != nil {
			err = errors.Join(err, fmt.Errorf("panic: %v", r))
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
		}
	}()
	err = cmd.Execute(ctx)
	return
}

// notifyContext is [signal.NotifyContext] that logs the signal and restores
// default handling after the first one, so a second Ctrl-C kills the process.
// Child processes (venv, uv, pip, mcpm.py) receive the same signal from the
// terminal and are given time to exit.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info("Received interrupt signal, press control-C again to exit", zap.Stringer("signal", sig))
			signal.Stop(sigChan)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		cancel()
		signal.Stop(sigChan)
	}
}
