// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
//   • ReadHeaderTimeout – abort slow-loris headers (5 s)
//   • ReadTimeout       – cap body upload for a form post (10 s)
//   • WriteTimeout      – must exceed contact.submit_timeout, because POST
//                         /contact waits for delivery before responding
//   • IdleTimeout       – close keep-alives on idle clients (60 s)

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// New constructs an *http.Server.  submitTimeout is the controller's
// delivery bound; the write timeout leaves headroom for rendering.
func New(addr string, handler http.Handler, submitTimeout time.Duration) *http.Server {
	write := 15 * time.Second
	if min := submitTimeout + 5*time.Second; write < min {
		write = min
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       60 * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// grace.  It returns nil on a clean shutdown.
func Run(ctx context.Context, srv *http.Server, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.S().Infow("http server shutting down", "grace", grace)
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
