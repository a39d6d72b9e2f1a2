package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/mufaro-dev/wabank/core/logger"
)

const shutdownGrace = 10 * time.Second

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests within a grace period.
func Serve(ctx context.Context, listen string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "web", "listen", slog.String("addr", listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	logger.Info(shutdownCtx, "web", "shutdown.begin")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info(shutdownCtx, "web", "shutdown.done")
	return nil
}
