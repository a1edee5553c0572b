package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hdscan"

//nolint:gochecknoglobals // Prometheus collectors are process-wide
var (
	once sync.Once

	scansStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "started_total",
		Help:      "Total number of gap-limit scans started",
	})

	scansFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "finished_total",
		Help:      "Total number of gap-limit scans finished, by outcome",
	}, []string{"outcome"})

	scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "duration_seconds",
		Help:      "Wall time of gap-limit scans",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	})

	batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "batch_size",
		Help:      "Number of addresses per query batch",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
	})

	addressesChecked = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "addresses_checked_total",
		Help:      "Total number of addresses checked by completed scans",
	})

	addressesUsed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "addresses_used_total",
		Help:      "Total number of used addresses reported by completed scans",
	})

	queriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "oracle",
		Name:      "queries_total",
		Help:      "Total number of oracle queries, by oracle and result",
	}, []string{"oracle", "result"})

	queryLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "oracle",
		Name:      "query_duration_seconds",
		Help:      "Oracle query latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"oracle"})

	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Activity cache lookups, by result",
	}, []string{"result"})
)

// Collectors returns every collector owned by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		scansStarted,
		scansFinished,
		scanDuration,
		batchSize,
		addressesChecked,
		addressesUsed,
		queriesTotal,
		queryLatency,
		cacheLookups,
	}
}

// Register registers the collectors into the default Prometheus registry
// (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(Collectors()...)
	})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx) //nolint:contextcheck // parent is already done
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
