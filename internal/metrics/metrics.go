// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "replyguard"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	events          *prometheus.CounterVec
	transactions    *prometheus.CounterVec
	classifications prometheus.Counter
	interrupts      prometheus.Counter
	feedErrors      prometheus.Counter
	journalErrors   prometheus.Counter
	dedupPending    prometheus.GaugeFunc
	dedupSize       prometheus.GaugeFunc
}

// Gauges supplies values read at scrape time.
type Gauges struct {
	DedupPending func() int
	DedupSize    func() int
}

// New registers every collector. Nil gauge functions read as zero.
func New(g Gauges) *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Events consumed from the feed by prefilter verdict",
	}, []string{"verdict"})
	m.transactions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_total",
		Help:      "Actions performed by result",
	}, []string{"result"})
	m.classifications = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classifications_total",
		Help:      "Classifier invocations",
	})
	m.interrupts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "interrupts_total",
		Help:      "Interrupt signals received",
	})
	m.feedErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_errors_total",
		Help:      "Errors returned by the feed source",
	})
	m.journalErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "journal_errors_total",
		Help:      "Failed journal writes",
	})
	m.dedupPending = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dedup_pending",
		Help:      "Handled identifiers not yet durable",
	}, intFunc(g.DedupPending))
	m.dedupSize = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dedup_size",
		Help:      "Handled identifiers known in memory",
	}, intFunc(g.DedupSize))

	m.Registry.MustRegister(
		m.events, m.transactions, m.classifications, m.interrupts,
		m.feedErrors, m.journalErrors, m.dedupPending, m.dedupSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func intFunc(fn func() int) func() float64 {
	return func() float64 {
		if fn == nil {
			return 0
		}
		return float64(fn())
	}
}

// The recording methods are nil-safe so callers can run without metrics.

func (m *Metrics) Event(verdict string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(verdict).Inc()
}

func (m *Metrics) Transaction(result string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(result).Inc()
}

func (m *Metrics) Classified() {
	if m == nil {
		return
	}
	m.classifications.Inc()
}

func (m *Metrics) Interrupted() {
	if m == nil {
		return
	}
	m.interrupts.Inc()
}

func (m *Metrics) FeedError() {
	if m == nil {
		return
	}
	m.feedErrors.Inc()
}

func (m *Metrics) JournalError() {
	if m == nil {
		return
	}
	m.journalErrors.Inc()
}

// Server serves /metrics and /healthz.
type Server struct {
	server *http.Server
}

// NewServer builds the HTTP server for m on addr.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}
