package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/hdscan/internal/discovery"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// DefaultEsploraURL is the public Blockstream Esplora API.
const DefaultEsploraURL = "https://blockstream.info/api"

// DefaultMaxConcurrent limits parallel requests per batch.
const DefaultMaxConcurrent = 4

// maxResponseBytes bounds the size of a single address response.
const maxResponseBytes = 1 << 20

// ErrUnexpectedStatus indicates a non-retryable HTTP status.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// EsploraOptions configures an Esplora oracle.
type EsploraOptions struct {
	// BaseURL is the API root, e.g. https://blockstream.info/api.
	BaseURL string

	// HTTPClient is used for requests. Default: a client with a 30s timeout.
	HTTPClient *http.Client

	// RateLimiter throttles requests per host. Default: DefaultRateLimiter().
	RateLimiter *RateLimiter

	// Retry configures retries of 429, 5xx and timeouts.
	Retry RetryConfig

	// MaxConcurrent bounds in-flight requests per batch.
	MaxConcurrent int
}

// Esplora reports addresses used when they have confirmed or mempool
// transactions, using GET {base}/address/{addr}.
type Esplora struct {
	base    string
	host    string
	client  *http.Client
	limiter *RateLimiter
	retry   RetryConfig
	limit   int
}

// esploraStats mirrors the chain_stats/mempool_stats objects.
type esploraStats struct {
	TxCount int `json:"tx_count"`
}

type esploraAddress struct {
	Address      string       `json:"address"`
	ChainStats   esploraStats `json:"chain_stats"`
	MempoolStats esploraStats `json:"mempool_stats"`
}

// NewEsplora creates an Esplora oracle.
func NewEsplora(opts EsploraOptions) (*Esplora, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultEsploraURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, scanerr.WithDetails(scanerr.ErrConfigInvalid, map[string]string{"esplora_url": base})
	}

	e := &Esplora{
		base:    base,
		host:    u.Host,
		client:  opts.HTTPClient,
		limiter: opts.RateLimiter,
		retry:   opts.Retry,
		limit:   opts.MaxConcurrent,
	}
	if e.client == nil {
		e.client = &http.Client{Timeout: 30 * time.Second}
	}
	if e.limiter == nil {
		e.limiter = DefaultRateLimiter()
	}
	if e.retry.MaxAttempts == 0 {
		e.retry = DefaultRetryConfig()
	}
	if e.limit <= 0 {
		e.limit = DefaultMaxConcurrent
	}
	return e, nil
}

// Query looks up every batch address concurrently and replies from a
// background goroutine once all lookups finish. The first failure fails the
// whole batch.
func (e *Esplora) Query(ctx context.Context, batch []string, reply discovery.Reply) {
	go func() {
		result, err := e.lookupBatch(ctx, batch)
		if err != nil {
			reply(nil, err)
			return
		}
		reply(result, nil)
	}()
}

func (e *Esplora) lookupBatch(ctx context.Context, batch []string) (map[string]bool, error) {
	var mu sync.Mutex
	result := make(map[string]bool, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for _, addr := range batch {
		g.Go(func() error {
			used, err := e.AddressUsed(gctx, addr)
			if err != nil {
				return err
			}
			if used {
				mu.Lock()
				result[addr] = true
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// AddressUsed reports whether addr has any confirmed or mempool transaction.
func (e *Esplora) AddressUsed(ctx context.Context, addr string) (bool, error) {
	info, err := RetryWithConfig(ctx, e.retry, func() (*esploraAddress, error) {
		if err := e.limiter.Wait(ctx, e.host); err != nil {
			return nil, err
		}
		return e.fetchAddress(ctx, addr)
	})
	if err != nil {
		return false, scanerr.WithCause(scanerr.ErrNetworkError, fmt.Errorf("esplora %s: %w", addr, err))
	}
	return info.ChainStats.TxCount+info.MempoolStats.TxCount > 0, nil
}

func (e *Esplora) fetchAddress(ctx context.Context, addr string) (*esploraAddress, error) {
	endpoint := e.base + "/address/" + url.PathEscape(addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, WrapRetryable(err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, WithRetryAfter(ErrRateLimited, ParseRetryAfter(resp.Header.Get("Retry-After")))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, WrapRetryable(fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info esploraAddress
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decoding address response: %w", err)
	}
	return &info, nil
}
