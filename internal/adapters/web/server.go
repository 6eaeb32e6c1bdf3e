package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/K13094/tap/internal/telemetry"
)

// Server is the optional local debug listener: Prometheus metrics, a
// health probe and a JSON status snapshot. It never faces the network the
// collector lives on; deployments bind it to localhost or leave it off.
type Server struct {
	log      zerolog.Logger
	addr     string
	counters *telemetry.Counters
	started  time.Time

	srv *http.Server
}

// NewServer creates the debug listener for addr.
func NewServer(log zerolog.Logger, addr string, counters *telemetry.Counters) *Server {
	s := &Server{
		log:      log.With().Str("component", "web").Logger(),
		addr:     addr,
		counters: counters,
		started:  time.Now(),
	}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, "tap-debug"),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.addr).Msg("debug listener up")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"uptime_s":        time.Since(s.started).Seconds(),
		"frames_total":    s.counters.FramesTotal.Load(),
		"frames_parsed":   s.counters.FramesParsed.Load(),
		"parse_errors":    s.counters.ParseErrors.Load(),
		"capture_errors":  s.counters.CaptureErrors.Load(),
		"publish_drops":   s.counters.PublishDrops.Load(),
		"current_channel": s.counters.CurrentChannel.Load(),
		"tracked_uavs":    s.counters.TrackedUavs.Load(),
	})
}
