package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ShutdownTimeout bounds how long in-flight requests (uploads included) may
// drain once shutdown starts.
var ShutdownTimeout = 10 * time.Second

// Serve runs the server until ctx is cancelled or the listener fails, then
// drains open connections. A clean shutdown returns nil.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	return s.Shutdown(shutdownCtx)
}
