package infra

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServer ties the API listener's lifecycle to a context: Run serves
// until the context is cancelled, then drains in-flight requests before
// returning. The worker binary manages its scheduler loop the same way.
type HTTPServer struct {
	server *http.Server
	logger Logger
	drain  time.Duration
}

// NewHTTPServer builds the listener from the service's HTTP timeouts.
func NewHTTPServer(cfg *Config, handler http.Handler, logger Logger) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.HTTPReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.HTTPWriteTimeout,
			IdleTimeout:       cfg.HTTPIdleTimeout,
		},
		logger: logger,
		drain:  cfg.HTTPIdleTimeout,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully. In-flight
// requests get up to the idle timeout to finish; a clean drain returns nil.
func (s *HTTPServer) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.server.ListenAndServe()
	}()
	s.logger.Info().Str("addr", s.server.Addr).Msg("http server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("http server draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.drain)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
