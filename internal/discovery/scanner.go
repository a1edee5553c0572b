package discovery

import (
	"context"
	"sync"

	"github.com/mrz1836/hdscan/internal/hdchain"
	"github.com/mrz1836/hdscan/internal/metrics"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Scanner runs gap-limit scans over address chains.
//
// A Scanner holds no per-run state and may run scans over distinct chains
// concurrently. A chain must not be touched by anything else while a scan
// over it is in progress.
type Scanner struct {
	querier Querier
	opts    *Options
}

// NewScanner creates a new gap-limit scanner.
func NewScanner(q Querier, opts *Options) *Scanner {
	return &Scanner{
		querier: q,
		opts:    opts.withDefaults(),
	}
}

// Options returns the scanner's effective options.
func (s *Scanner) Options() Options {
	return *s.opts
}

type queryReply struct {
	result any
	err    error
}

// Discover scans chain from its current address until GapLimit consecutive
// addresses are reported unused.
//
// Each batch is the chain's current address followed by GapLimit-1 newly
// derived ones. On success the chain is left with its last derived address
// at the end of the trailing gap; Rewind moves it back to the first unused
// address.
//
// Errors delivered through Reply are returned unchanged. A result that is
// not an address-keyed map fails with ErrQueryResultType. Cancellation of
// ctx fails with ErrScanCanceled. Addresses derived before a failure stay on
// the chain.
func (s *Scanner) Discover(ctx context.Context, chain *hdchain.Chain) (Result, error) {
	if err := s.opts.Validate(); err != nil {
		return Result{}, err
	}
	if s.querier == nil || chain == nil {
		return Result{}, scanerr.WithSuggestion(scanerr.ErrInvalidInput, "discovery needs a querier and a chain")
	}

	m := s.opts.Metrics
	start := s.opts.Clock.Now()
	if m != nil {
		m.RecordScanStart()
	}

	res, err := s.run(ctx, chain)
	res.Duration = s.opts.Clock.Now().Sub(start)

	if m != nil {
		outcome := metrics.OutcomeCompleted
		switch {
		case scanerr.Is(err, scanerr.ErrScanCanceled):
			outcome = metrics.OutcomeCanceled
		case err != nil:
			outcome = metrics.OutcomeFailed
		}
		m.RecordScanEnd(outcome, res.Used, res.Checked, res.Duration)
	}
	if err != nil {
		return Result{Checked: res.Checked, Batches: res.Batches, Duration: res.Duration}, err
	}
	return res, nil
}

// run is the scan loop. It never recurses: each batch is one iteration.
func (s *Scanner) run(ctx context.Context, chain *hdchain.Chain) (Result, error) {
	gapLimit := s.opts.GapLimit
	log := s.opts.Logger

	var res Result
	gap := 0
	for {
		if err := ctx.Err(); err != nil {
			return res, scanerr.WithCause(scanerr.ErrScanCanceled, err)
		}

		batch, err := nextBatch(chain, gapLimit)
		if err != nil {
			log.Error("discovery: batch %d: %v", res.Batches+1, err)
			return res, err
		}
		res.Checked += len(batch)
		res.Batches++
		if s.opts.Metrics != nil {
			s.opts.Metrics.RecordBatch(len(batch))
		}

		r, err := s.query(ctx, batch)
		if err != nil {
			return res, err
		}
		if r.err != nil {
			log.Error("discovery: query for batch %d failed: %v", res.Batches, r.err)
			return res, r.err
		}

		used, err := UsedSet(r.result)
		if err != nil {
			log.Error("discovery: batch %d: %v", res.Batches, err)
			return res, err
		}

		usedInBatch := 0
		for _, addr := range batch {
			if used(addr) {
				gap = 0
				usedInBatch++
				continue
			}
			gap++
		}

		log.Debug("discovery: batch %d from %s: %d used, gap %d/%d, checked %d",
			res.Batches, batch[0], usedInBatch, gap, gapLimit, res.Checked)
		s.reportProgress(ProgressUpdate{
			Batch:        res.Batches,
			FirstAddress: batch[0],
			Size:         len(batch),
			UsedInBatch:  usedInBatch,
			Checked:      res.Checked,
			Gap:          gap,
		})

		if gap >= gapLimit {
			res.Used = res.Checked - gap
			return res, nil
		}

		if _, err := chain.Next(); err != nil {
			log.Error("discovery: advancing chain: %v", err)
			return res, err
		}
	}
}

// maxBatchPrealloc caps the up-front batch allocation; larger batches grow.
const maxBatchPrealloc = 1024

// nextBatch returns the chain's current address followed by size-1 new ones.
func nextBatch(chain *hdchain.Chain, size int) ([]string, error) {
	batch := make([]string, 0, min(size, maxBatchPrealloc))
	first, err := chain.Get()
	if err != nil {
		return nil, err
	}
	batch = append(batch, first)
	for len(batch) < size {
		addr, err := chain.Next()
		if err != nil {
			return nil, err
		}
		batch = append(batch, addr)
	}
	return batch, nil
}

// query issues one query and waits for its first reply or for ctx.
func (s *Scanner) query(ctx context.Context, batch []string) (queryReply, error) {
	replies := make(chan queryReply, 1)
	var once sync.Once
	reply := func(result any, err error) {
		delivered := false
		once.Do(func() {
			delivered = true
			replies <- queryReply{result: result, err: err}
		})
		if !delivered {
			s.opts.Logger.Error("discovery: ignoring repeated reply for batch starting at %s", batch[0])
		}
	}

	s.querier.Query(ctx, append([]string(nil), batch...), reply)

	select {
	case r := <-replies:
		return r, nil
	case <-ctx.Done():
		return queryReply{}, scanerr.WithCause(scanerr.ErrScanCanceled, ctx.Err())
	}
}

// reportProgress safely calls the progress callback if configured.
func (s *Scanner) reportProgress(update ProgressUpdate) {
	if s.opts.ProgressCallback != nil {
		s.opts.ProgressCallback(update)
	}
}

// DiscoverAsync runs Discover in a new goroutine and calls done exactly once
// with its outcome. used and checked are zero when err is non-nil.
func (s *Scanner) DiscoverAsync(ctx context.Context, chain *hdchain.Chain, done func(err error, used, checked int)) {
	go func() {
		res, err := s.Discover(ctx, chain)
		if err != nil {
			done(err, 0, 0)
			return
		}
		done(nil, res.Used, res.Checked)
	}()
}

// Discover runs a single scan with default options and the given gap limit.
func Discover(ctx context.Context, chain *hdchain.Chain, gapLimit int, q Querier) (Result, error) {
	opts := DefaultOptions()
	opts.GapLimit = gapLimit
	return NewScanner(q, opts).Discover(ctx, chain)
}

// Rewind pops the trailing unused addresses of a completed scan except the
// first, so chain.Get returns the first unused address after the last used
// one. It returns the number of addresses popped.
func Rewind(chain *hdchain.Chain, res Result) int {
	popped := 0
	for i := 0; i < res.Gap()-1; i++ {
		if _, ok := chain.Pop(); !ok {
			break
		}
		popped++
	}
	return popped
}
