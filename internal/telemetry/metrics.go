package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the pump counters. A nil *Metrics is valid and records
// nothing, so tests and library callers can skip telemetry entirely.
type Metrics struct {
	LinesRead       prometheus.Counter
	LinesEmitted    prometheus.Counter
	TransformErrors prometheus.Counter
	TallyFlushes    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linepump_lines_read_total",
			Help: "Input lines handed to the transformer.",
		}),
		LinesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linepump_lines_emitted_total",
			Help: "String results pushed to the sinks.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linepump_transform_errors_total",
			Help: "Transformer failures (each one stops the pump).",
		}),
		TallyFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linepump_tally_flushes_total",
			Help: "Tally summaries written, periodic and at exit.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.LinesRead, m.LinesEmitted, m.TransformErrors, m.TallyFlushes)
	}
	return m
}

func (m *Metrics) IncRead() {
	if m != nil {
		m.LinesRead.Inc()
	}
}

func (m *Metrics) IncEmitted() {
	if m != nil {
		m.LinesEmitted.Inc()
	}
}

func (m *Metrics) IncTransformError() {
	if m != nil {
		m.TransformErrors.Inc()
	}
}

func (m *Metrics) IncFlush() {
	if m != nil {
		m.TallyFlushes.Inc()
	}
}

// Server serves /metrics for one registry.
type Server struct {
	srv *http.Server
	lis net.Listener
}

func Listen(addr string, g prometheus.Gatherer) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		lis: lis,
	}, nil
}

func (s *Server) Addr() string { return s.lis.Addr().String() }

// Serve blocks until Shutdown is called.
func (s *Server) Serve() error {
	if err := s.srv.Serve(s.lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
