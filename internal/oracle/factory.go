package oracle

import (
	"context"
	"time"

	"github.com/mrz1836/hdscan/internal/cache"
	"github.com/mrz1836/hdscan/internal/discovery"
	"github.com/mrz1836/hdscan/internal/metrics"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Settings selects and configures an oracle.
type Settings struct {
	Kind          string
	UsedFile      string // static: YAML/JSON list of used addresses
	EsploraURL    string
	EthRPC        string
	RatePerSecond float64
	Burst         int
	RetryAttempts int
	MaxConcurrent int

	// Cache, when set, wraps the oracle in a Cached querier keyed by Network.
	Cache          cache.Cache
	Network        string
	CacheStaleness time.Duration

	// Metrics receives query and cache metrics. Nil uses metrics.Global.
	Metrics *metrics.Metrics
}

// Build constructs the querier described by s. The returned close function
// releases any connections and is never nil.
func Build(ctx context.Context, s Settings) (discovery.Querier, func(), error) {
	kind, err := ParseKind(s.Kind)
	if err != nil {
		return nil, nil, err
	}

	m := s.Metrics
	if m == nil {
		m = metrics.Global
	}

	retry := DefaultRetryConfig()
	if s.RetryAttempts > 0 {
		retry.MaxAttempts = s.RetryAttempts
	}

	var limiter *RateLimiter
	if s.RatePerSecond > 0 {
		burst := s.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = NewRateLimiter(s.RatePerSecond, burst)
	}

	closeFn := func() {}
	var q discovery.Querier
	switch kind {
	case KindStatic:
		if s.UsedFile == "" {
			return nil, nil, scanerr.WithSuggestion(
				scanerr.WithDetails(scanerr.ErrConfigInvalid, map[string]string{"oracle": kind}),
				"pass --used-file with a list of used addresses",
			)
		}
		static, err := LoadStatic(s.UsedFile)
		if err != nil {
			return nil, nil, err
		}
		q = static
	case KindEsplora:
		esplora, err := NewEsplora(EsploraOptions{
			BaseURL:       s.EsploraURL,
			RateLimiter:   limiter,
			Retry:         retry,
			MaxConcurrent: s.MaxConcurrent,
		})
		if err != nil {
			return nil, nil, err
		}
		q = esplora
	case KindEthereum:
		if s.EthRPC == "" {
			return nil, nil, scanerr.WithSuggestion(
				scanerr.WithDetails(scanerr.ErrConfigInvalid, map[string]string{"oracle": kind}),
				"set oracle.eth_rpc or HDSCAN_ETH_RPC",
			)
		}
		eth, err := DialEthereum(ctx, s.EthRPC, retry, s.MaxConcurrent)
		if err != nil {
			return nil, nil, err
		}
		q = eth
		closeFn = eth.Close
	}

	q = NewInstrumented(q, kind, m)
	if s.Cache != nil {
		q = NewCached(q, s.Cache, s.Network, s.CacheStaleness, m)
	}
	return q, closeFn, nil
}
