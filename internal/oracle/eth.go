package oracle

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/hdscan/internal/address"
	"github.com/mrz1836/hdscan/internal/discovery"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// EthBackend is the subset of an Ethereum client the oracle needs.
// *ethclient.Client satisfies it.
type EthBackend interface {
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Ethereum reports an address used when it has sent a transaction (nonce > 0)
// or holds a balance.
type Ethereum struct {
	backend EthBackend
	retry   RetryConfig
	limit   int
	closeFn func()
}

// NewEthereum creates an Ethereum oracle over backend.
func NewEthereum(backend EthBackend, retry RetryConfig, maxConcurrent int) *Ethereum {
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Ethereum{backend: backend, retry: retry, limit: maxConcurrent}
}

// DialEthereum connects to a JSON-RPC endpoint.
func DialEthereum(ctx context.Context, rpcURL string, retry RetryConfig, maxConcurrent int) (*Ethereum, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, scanerr.WithCause(scanerr.ErrNetworkError, fmt.Errorf("dialing %s: %w", rpcURL, err))
	}
	e := NewEthereum(client, retry, maxConcurrent)
	e.closeFn = client.Close
	return e, nil
}

// Close releases the RPC connection if the oracle owns one.
func (e *Ethereum) Close() {
	if e.closeFn != nil {
		e.closeFn()
	}
}

// Query checks every batch address concurrently and replies from a
// background goroutine.
func (e *Ethereum) Query(ctx context.Context, batch []string, reply discovery.Reply) {
	go func() {
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
			reply(nil, err)
			return
		}
		reply(result, nil)
	}()
}

// AddressUsed reports whether addr has a non-zero nonce or balance at the
// latest block.
func (e *Ethereum) AddressUsed(ctx context.Context, addr string) (bool, error) {
	if !address.IsValidETHAddress(addr) {
		return false, scanerr.WithDetails(scanerr.ErrInvalidInput, map[string]string{"address": addr})
	}
	account := common.HexToAddress(addr)

	nonce, err := RetryWithConfig(ctx, e.retry, func() (uint64, error) {
		n, err := e.backend.NonceAt(ctx, account, nil)
		return n, WrapRetryable(err)
	})
	if err != nil {
		return false, scanerr.WithCause(scanerr.ErrNetworkError, fmt.Errorf("nonce of %s: %w", addr, err))
	}
	if nonce > 0 {
		return true, nil
	}

	balance, err := RetryWithConfig(ctx, e.retry, func() (*big.Int, error) {
		b, err := e.backend.BalanceAt(ctx, account, nil)
		return b, WrapRetryable(err)
	})
	if err != nil {
		return false, scanerr.WithCause(scanerr.ErrNetworkError, fmt.Errorf("balance of %s: %w", addr, err))
	}
	return balance != nil && balance.Sign() > 0, nil
}
