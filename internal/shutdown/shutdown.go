// Package shutdown runs cleanup when the editor exits, whether it quit on its
// own or was interrupted by a signal.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Func releases one resource.
type Func func(ctx context.Context) error

type step struct {
	name string
	fn   Func
}

// Stack holds cleanups and runs them in reverse registration order, once.
type Stack struct {
	logger *slog.Logger

	mu    sync.Mutex
	steps []step
	ran   bool
}

// NewStack returns an empty Stack.
func NewStack(logger *slog.Logger) *Stack {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stack{logger: logger}
}

// Push registers fn. Cleanups pushed after Run are ignored.
func (s *Stack) Push(name string, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ran {
		return
	}
	s.steps = append(s.steps, step{name: name, fn: fn})
}

// Run executes every cleanup, last pushed first. Later calls are no-ops.
// Failures are logged and joined; one failing step does not stop the rest.
func (s *Stack) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return nil
	}
	s.ran = true
	steps := s.steps
	s.steps = nil
	s.mu.Unlock()

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		st := steps[i]
		if err := st.fn(ctx); err != nil {
			s.logger.Error("cleanup failed", "step", st.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", st.name, err))
			continue
		}
		s.logger.Debug("cleanup done", "step", st.name)
	}
	return errors.Join(errs...)
}

// RunWithGracefulShutdown runs runner until it returns or SIGINT/SIGTERM
// arrives, then runs cleanup with a fresh context bounded by timeout.
// Both paths end in the same cleanup.
func RunWithGracefulShutdown(
	ctx context.Context,
	logger *slog.Logger,
	timeout time.Duration,
	runner func(ctx context.Context) error,
	cleanup *Stack,
) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	return run(ctx, logger, timeout, runner, cleanup, sigChan)
}

func run(
	ctx context.Context,
	logger *slog.Logger,
	timeout time.Duration,
	runner func(ctx context.Context) error,
	cleanup *Stack,
	sigChan <-chan os.Signal,
) error {
	// Create cancellable context for the runner
	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	// Channel to receive runner completion
	runDone := make(chan error, 1)
	go func() {
		runDone <- runner(runCtx)
	}()

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received signal, initiating shutdown", "signal", sig)
		runCancel()

		// Give the runner the same budget as cleanup to unwind.
		select {
		case err := <-runDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				runErr = err
			}
		case <-time.After(timeout):
			logger.Warn("shutdown timeout exceeded")
		}

	case runErr = <-runDone:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()
	if err := cleanup.Run(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	logger.Info("shutdown complete")
	return runErr
}
