// Package hdchain provides a lazily derived, append-only address chain over a
// single HD parent node, with an inverse index from address to child index.
//
// A Chain is not safe for concurrent use. Distinct chains, including clones,
// may be used from different goroutines because the parent node and encoder
// they share are immutable.
package hdchain

import (
	"fmt"
	"math"

	"github.com/mrz1836/hdscan/internal/address"
	"github.com/mrz1836/hdscan/internal/keynode"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Chain is the sequence of addresses derived from parent at consecutive child
// indices starting at the base index.
//
// addresses[i] is the address at base+i, and index is its exact inverse.
// While no address has been derived the chain is unmaterialized and k equals
// base.
type Chain struct {
	parent  keynode.Node
	encoder address.Encoder

	base      uint32
	k         uint32
	addresses []string
	index     map[string]uint32
}

// Option configures a Chain.
type Option func(*Chain)

// WithStartIndex sets the first child index of the chain.
func WithStartIndex(k uint32) Option {
	return func(c *Chain) {
		c.base = k
	}
}

// New creates an unmaterialized chain. Nothing is derived until the first
// call to Get, GetAll or Next.
func New(parent keynode.Node, encoder address.Encoder, opts ...Option) (*Chain, error) {
	if parent == nil {
		return nil, scanerr.WithSuggestion(scanerr.ErrInvalidInput, "a chain needs a parent key node")
	}
	if encoder == nil {
		return nil, scanerr.WithSuggestion(scanerr.ErrInvalidInput, "a chain needs an address encoder, e.g. address.Canonical")
	}

	c := &Chain{
		parent:  parent,
		encoder: encoder,
		index:   make(map[string]uint32),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.k = c.base
	return c, nil
}

// addressAt derives and encodes the child at i without touching chain state.
func (c *Chain) addressAt(i uint32) (string, error) {
	child, err := c.parent.Derive(i)
	if err != nil {
		return "", scanerr.WithCause(scanerr.ErrDerivation, fmt.Errorf("child %d: %w", i, err))
	}
	addr, err := c.encoder.Encode(child)
	if err != nil {
		return "", scanerr.WithCause(scanerr.ErrDerivation, fmt.Errorf("encoding child %d: %w", i, err))
	}
	return addr, nil
}

func (c *Chain) push(addr string, i uint32) {
	c.addresses = append(c.addresses, addr)
	c.index[addr] = i
	c.k = i
}

func (c *Chain) materialize() error {
	if len(c.addresses) > 0 {
		return nil
	}
	addr, err := c.addressAt(c.base)
	if err != nil {
		return err
	}
	c.push(addr, c.base)
	return nil
}

// Get returns the address at the highest materialized index, deriving the
// base address first if needed.
func (c *Chain) Get() (string, error) {
	if err := c.materialize(); err != nil {
		return "", err
	}
	return c.addresses[len(c.addresses)-1], nil
}

// GetAll returns a copy of every materialized address in index order,
// deriving the base address first if needed.
func (c *Chain) GetAll() ([]string, error) {
	if err := c.materialize(); err != nil {
		return nil, err
	}
	out := make([]string, len(c.addresses))
	copy(out, c.addresses)
	return out, nil
}

// Next derives the address at K()+1, appends it and returns it. On an
// unmaterialized chain the base address is derived first, so the first Next
// returns the address at base+1.
//
// If derivation fails the chain is left unchanged.
func (c *Chain) Next() (string, error) {
	if err := c.materialize(); err != nil {
		return "", err
	}
	if c.k == math.MaxUint32 {
		return "", scanerr.WithDetails(scanerr.ErrIndexOverflow, map[string]string{"index": fmt.Sprint(c.k)})
	}
	i := c.k + 1
	addr, err := c.addressAt(i)
	if err != nil {
		return "", err
	}
	c.push(addr, i)
	return addr, nil
}

// Pop removes the most recent address and returns it. It undoes exactly one
// Next. On an empty chain it returns false and changes nothing; popping the
// last address returns the chain to the unmaterialized state at its base.
func (c *Chain) Pop() (string, bool) {
	n := len(c.addresses)
	if n == 0 {
		return "", false
	}
	addr := c.addresses[n-1]
	c.addresses = c.addresses[:n-1]
	delete(c.index, addr)
	if n > 1 {
		c.k--
	}
	return addr, true
}

// Find returns the child index of a materialized address.
func (c *Chain) Find(addr string) (uint32, bool) {
	i, ok := c.index[addr]
	return i, ok
}

// Derive returns the chain parent's child node for a materialized address.
// It reports false for unknown addresses.
func (c *Chain) Derive(addr string) (keynode.Node, bool, error) {
	return c.DeriveFrom(nil, addr)
}

// DeriveFrom is like Derive but derives from parent, typically the private
// counterpart of a public chain parent. A nil parent uses the chain parent.
func (c *Chain) DeriveFrom(parent keynode.Node, addr string) (keynode.Node, bool, error) {
	i, ok := c.index[addr]
	if !ok {
		return nil, false, nil
	}
	if parent == nil {
		parent = c.parent
	}
	node, err := parent.Derive(i)
	if err != nil {
		return nil, true, scanerr.WithCause(scanerr.ErrDerivation, fmt.Errorf("child %d: %w", i, err))
	}
	return node, true, nil
}

// Clone returns an independent copy sharing the parent and encoder.
func (c *Chain) Clone() *Chain {
	clone := &Chain{
		parent:    c.parent,
		encoder:   c.encoder,
		base:      c.base,
		k:         c.k,
		addresses: make([]string, len(c.addresses)),
		index:     make(map[string]uint32, len(c.index)),
	}
	copy(clone.addresses, c.addresses)
	for addr, i := range c.index {
		clone.index[addr] = i
	}
	return clone
}

// AdvanceTo calls Next until K() reaches k. It materializes the chain and is
// a no-op when K() is already at or beyond k.
func (c *Chain) AdvanceTo(k uint32) error {
	if err := c.materialize(); err != nil {
		return err
	}
	for c.k < k {
		if _, err := c.Next(); err != nil {
			return err
		}
	}
	return nil
}

// K returns the highest materialized index, or the base index when the chain
// is unmaterialized.
func (c *Chain) K() uint32 { return c.k }

// BaseIndex returns the first child index of the chain.
func (c *Chain) BaseIndex() uint32 { return c.base }

// Len returns the number of materialized addresses.
func (c *Chain) Len() int { return len(c.addresses) }

// Materialized reports whether at least one address has been derived.
func (c *Chain) Materialized() bool { return len(c.addresses) > 0 }

// Parent returns the shared parent node.
func (c *Chain) Parent() keynode.Node { return c.parent }

// Encoder returns the chain's address encoder.
func (c *Chain) Encoder() address.Encoder { return c.encoder }
