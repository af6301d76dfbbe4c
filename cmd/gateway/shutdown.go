package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cklinker/emfgw/internal/observability"
)

// runGateway serves until a shutdown signal or a listener failure,
// then drains both listeners within the configured timeout.
func runGateway(app *application) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		app.logger.Info("proxy listening", observability.String("addr", app.proxyServer.Addr))
		if err := app.proxyServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("proxy server: %w", err)
		}
	}()

	go func() {
		if err := app.apiServer.Start(); err != nil {
			errCh <- err
		}
	}()

	if app.consumer != nil {
		if err := app.consumer.Start(ctx); err != nil {
			app.shutdown(cancel)
			return fmt.Errorf("start event consumer: %w", err)
		}
	}

	if app.watcher != nil {
		if err := app.watcher.Start(ctx); err != nil {
			app.logger.Warn("config watcher failed to start", observability.Error(err))
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		app.logger.Info("shutdown signal received", observability.String("signal", sig.String()))
		app.shutdown(cancel)
		return nil
	case err := <-errCh:
		app.logger.Error("listener failed", observability.Error(err))
		app.shutdown(cancel)
		return err
	}
}

// shutdown drains listeners, then closes the event transport, the
// store, and the tracer. cancel stops the consumer and watcher loops.
func (a *application) shutdown(cancel context.CancelFunc) {
	timeout := a.cfg.Spec.Server.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, done := context.WithTimeout(context.Background(), timeout)
	defer done()

	cancel()

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("stopping config watcher", observability.Error(err))
		}
	}

	if err := a.proxyServer.Shutdown(ctx); err != nil {
		a.logger.Warn("draining proxy server", observability.Error(err))
	}
	if err := a.apiServer.Shutdown(ctx); err != nil {
		a.logger.Warn("draining internal API", observability.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Warn("closing event consumer", observability.Error(err))
		}
	}
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("closing event publisher", observability.Error(err))
	}

	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", observability.Error(err))
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("shutting down tracer", observability.Error(err))
	}

	a.logger.Info("shutdown complete")
}
