package discovery

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/hdscan/internal/address"
	"github.com/mrz1836/hdscan/internal/hdchain"
	"github.com/mrz1836/hdscan/internal/keynode"
)

// indexNode is a fake key node whose children encode to "a<index>".
type indexNode struct {
	index uint32
}

func (n indexNode) Derive(i uint32) (keynode.Node, error) { return indexNode{index: i}, nil }
func (n indexNode) PublicKey() []byte                     { return []byte(n.String()) }
func (n indexNode) Neuter() (keynode.Node, error)         { return n, nil }
func (n indexNode) IsPrivate() bool                       { return false }
func (n indexNode) String() string                        { return fmt.Sprintf("a%d", n.index) }

func newIndexChain(t *testing.T) *hdchain.Chain {
	t.Helper()
	enc := address.Bind("index", func(node keynode.Node, _ *chaincfg.Params) (string, error) {
		return node.String(), nil
	}, nil)
	c, err := hdchain.New(indexNode{}, enc)
	require.NoError(t, err)
	return c
}

// setQuerier replies with a map[string]bool of the used addresses present in
// each batch. With async set, replies come from a new goroutine.
type setQuerier struct {
	mu      sync.Mutex
	used    map[string]bool
	batches [][]string
	async   bool
}

func newSetQuerier(used ...string) *setQuerier {
	q := &setQuerier{used: make(map[string]bool)}
	for _, a := range used {
		q.used[a] = true
	}
	return q
}

func (q *setQuerier) Query(_ context.Context, batch []string, reply Reply) {
	q.mu.Lock()
	q.batches = append(q.batches, batch)
	result := make(map[string]bool)
	for _, a := range batch {
		if q.used[a] {
			result[a] = true
		}
	}
	q.mu.Unlock()

	if q.async {
		go reply(result, nil)
		return
	}
	reply(result, nil)
}

func (q *setQuerier) Batches() [][]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][]string, len(q.batches))
	copy(out, q.batches)
	return out
}

// mockLogger implements the Logger interface for testing.
type mockLogger struct {
	mu     sync.Mutex
	debugs []string
	errors []string
}

func newMockLogger() *mockLogger {
	return &mockLogger{
		debugs: make([]string, 0),
		errors: make([]string, 0),
	}
}

func (l *mockLogger) Debug(format string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugs = append(l.debugs, format)
}

func (l *mockLogger) Error(format string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, format)
}

func (l *mockLogger) DebugCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.debugs)
}

func (l *mockLogger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func scanOpts(gapLimit int) *Options {
	opts := DefaultOptions()
	opts.GapLimit = gapLimit
	return opts
}
