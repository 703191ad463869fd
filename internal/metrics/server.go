package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// NewRouter exposes the gatherer's metrics and a liveness endpoint
func NewRouter(gatherer prometheus.Gatherer) *chi.Mux {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := chi.NewRouter()
	router.Get("/healthcheck", healthcheck)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return router
}

func healthcheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Server serves the metrics router until ctx is cancelled
type Server struct {
	srv  *http.Server
	done chan struct{}
}

func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(gatherer),
			ReadHeaderTimeout: 10 * time.Second,
		},
		done: make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		err := s.srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("failed to shut down metrics server")
		}
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	return s
}

// Done is closed once the listener has stopped
func (s *Server) Done() <-chan struct{} {
	return s.done
}
