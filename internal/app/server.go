package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"
)

const shutdownTimeout = 5 * time.Second

// Serve runs handler on listener until ctx is cancelled, then shuts the
// server down gracefully.
func Serve(ctx context.Context, logger *slog.Logger, listener net.Listener, handler http.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			err = fmt.Errorf("server panic: %v", r)
			if logger != nil {
				logger.Error("server panic recovered",
					slog.Any("panic", r),
					slog.String("stack", string(stack)))
			}
		}
	}()

	if ctx == nil {
		return errors.New("context must not be nil")
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()
	if logger != nil {
		logger.Info("http server listening", slog.String("addr", listener.Addr().String()))
	}

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return ctx.Err()
}
