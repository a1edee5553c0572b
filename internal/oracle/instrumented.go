package oracle

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/clock"

	"github.com/mrz1836/hdscan/internal/discovery"
	"github.com/mrz1836/hdscan/internal/metrics"
)

// Instrumented records the latency and outcome of every query made through
// the wrapped querier.
type Instrumented struct {
	inner   discovery.Querier
	name    string
	metrics *metrics.Metrics
	clock   clock.Clock
}

// NewInstrumented wraps inner, labelling its queries with name. A nil m
// uses metrics.Global.
func NewInstrumented(inner discovery.Querier, name string, m *metrics.Metrics) *Instrumented {
	if m == nil {
		m = metrics.Global
	}
	return &Instrumented{inner: inner, name: name, metrics: m, clock: clock.NewDefaultClock()}
}

// WithClock replaces the clock used to time queries.
func (q *Instrumented) WithClock(clk clock.Clock) *Instrumented {
	q.clock = clk
	return q
}

// Query implements discovery.Querier. Only the first reply is measured.
func (q *Instrumented) Query(ctx context.Context, batch []string, reply discovery.Reply) {
	start := q.clock.Now()
	var once sync.Once
	q.inner.Query(ctx, batch, func(result any, err error) {
		once.Do(func() {
			q.metrics.RecordQuery(q.name, q.clock.Now().Sub(start), err)
		})
		reply(result, err)
	})
}

// Name returns the metrics label.
func (q *Instrumented) Name() string { return q.name }
