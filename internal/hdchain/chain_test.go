package hdchain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/hdscan/internal/address"
	"github.com/mrz1836/hdscan/internal/keynode"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

var errDeriveFailed = errors.New("derive failed")

// pathNode is a fake key node whose String is its path. Derivation of an
// index listed in fail returns errDeriveFailed.
type pathNode struct {
	path    string
	private bool
	fail    map[uint32]bool
	derived *int
}

func newPathNode(private bool) *pathNode {
	return &pathNode{path: "m", private: private, derived: new(int)}
}

func (n *pathNode) Derive(i uint32) (keynode.Node, error) {
	*n.derived++
	if n.fail[i] {
		return nil, errDeriveFailed
	}
	if i >= keynode.Hardened && !n.private {
		return nil, errors.New("hardened child from public node")
	}
	return &pathNode{path: fmt.Sprintf("%s/%d", n.path, i), private: n.private, derived: n.derived}, nil
}

func (n *pathNode) PublicKey() []byte             { return []byte(n.path) }
func (n *pathNode) Neuter() (keynode.Node, error) { return &pathNode{path: n.path, derived: n.derived}, nil }
func (n *pathNode) IsPrivate() bool               { return n.private }
func (n *pathNode) String() string                { return n.path }

// pathEncoder renders the node's path as its address.
func pathEncoder() address.Encoder {
	return address.Bind("path", func(node keynode.Node, _ *chaincfg.Params) (string, error) {
		return "addr:" + node.String(), nil
	}, nil)
}

func newTestChain(t *testing.T, opts ...Option) (*Chain, *pathNode) {
	t.Helper()
	parent := newPathNode(false)
	c, err := New(parent, pathEncoder(), opts...)
	require.NoError(t, err)
	return c, parent
}

func TestNew_RequiresParentAndEncoder(t *testing.T) {
	t.Parallel()

	_, err := New(nil, pathEncoder())
	require.ErrorIs(t, err, scanerr.ErrInvalidInput)

	_, err = New(newPathNode(false), nil)
	require.ErrorIs(t, err, scanerr.ErrInvalidInput)
}

func TestNew_IsLazy(t *testing.T) {
	t.Parallel()

	c, parent := newTestChain(t, WithStartIndex(5))
	assert.Equal(t, 0, *parent.derived)
	assert.False(t, c.Materialized())
	assert.Equal(t, uint32(5), c.K())
	assert.Equal(t, uint32(5), c.BaseIndex())
	assert.Equal(t, 0, c.Len())
	assert.Same(t, parent, c.Parent())
	assert.Equal(t, "path", c.Encoder().Name())
}

func TestGet_MaterializesBase(t *testing.T) {
	t.Parallel()

	c, parent := newTestChain(t)
	addr, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, "addr:m/0", addr)
	assert.Equal(t, uint32(0), c.K())
	assert.Equal(t, 1, *parent.derived)

	// Repeated Get does not derive again.
	again, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, addr, again)
	assert.Equal(t, 1, *parent.derived)
}

func TestNext_FromFreshChainSkipsToBasePlusOne(t *testing.T) {
	t.Parallel()

	c, _ := newTestChain(t, WithStartIndex(3))
	addr, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, "addr:m/4", addr)
	assert.Equal(t, uint32(4), c.K())

	all, err := c.GetAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"addr:m/3", "addr:m/4"}, all)
}

func TestNextGetFind(t *testing.T) {
	t.Parallel()

	c, _ := newTestChain(t)
	_, err := c.Get()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		before := c.K()
		addr, err := c.Next()
		require.NoError(t, err)
		assert.Equal(t, before+1, c.K())

		got, err := c.Get()
		require.NoError(t, err)
		assert.Equal(t, addr, got)

		k, ok := c.Find(addr)
		require.True(t, ok)
		assert.Equal(t, c.K(), k)
	}

	all, err := c.GetAll()
	require.NoError(t, err)
	require.Len(t, all, int(c.K()-c.BaseIndex())+1)
	for i, addr := range all {
		k, ok := c.Find(addr)
		require.True(t, ok)
		assert.Equal(t, uint32(i), k)
	}

	_, ok := c.Find("addr:m/999")
	assert.False(t, ok)
}

func TestGetAll_ReturnsCopy(t *testing.T) {
	t.Parallel()

	c, _ := newTestChain(t)
	all, err := c.GetAll()
	require.NoError(t, err)
	all[0] = "mutated"

	got, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, "addr:m/0", got)
}

func TestPop_UndoesNext(t *testing.T) {
	t.Parallel()

	c, _ := newTestChain(t)
	_, err := c.Next()
	require.NoError(t, err)
	_, err = c.Next()
	require.NoError(t, err)

	before, err := c.GetAll()
	require.NoError(t, err)
	k := c.K()

	addr, err := c.Next()
	require.NoError(t, err)
	popped, ok := c.Pop()
	require.True(t, ok)
	assert.Equal(t, addr, popped)

	after, err := c.GetAll()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, k, c.K())

	_, ok = c.Find(addr)
	assert.False(t, ok)
}

func TestPop_Empty(t *testing.T) {
	t.Parallel()

	c, _ := newTestChain(t, WithStartIndex(2))
	addr, ok := c.Pop()
	assert.False(t, ok)
	assert.Empty(t, addr)
	assert.Equal(t, uint32(2), c.K())
}

func TestPop_LastAddressReturnsToLazyState(t *testing.T) {
	t.Parallel()

	c, _ := newTestChain(t)
	first, err := c.Get()
	require.NoError(t, err)

	popped, ok := c.Pop()
	require.True(t, ok)
	assert.Equal(t, first, popped)
	assert.False(t, c.Materialized())
	assert.Equal(t, uint32(0), c.K())

	// The chain re-materializes the same base address.
	again, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestClone_Independent(t *testing.T) {
	t.Parallel()

	c, _ := newTestChain(t)
	_, err := c.Next()
	require.NoError(t, err)

	clone := c.Clone()
	assert.Same(t, c.Parent(), clone.Parent())
	assert.Equal(t, c.K(), clone.K())

	origAll, err := c.GetAll()
	require.NoError(t, err)

	addr, err := clone.Next()
	require.NoError(t, err)
	_, ok := c.Find(addr)
	assert.False(t, ok)

	after, err := c.GetAll()
	require.NoError(t, err)
	assert.Equal(t, origAll, after)

	_, ok = c.Pop()
	require.True(t, ok)
	cloneAll, err := clone.GetAll()
	require.NoError(t, err)
	assert.Len(t, cloneAll, 3)
}

func TestClone_Unmaterialized(t *testing.T) {
	t.Parallel()

	c, _ := newTestChain(t, WithStartIndex(7))
	clone := c.Clone()
	assert.False(t, clone.Materialized())
	assert.Equal(t, uint32(7), clone.BaseIndex())

	addr, err := clone.Get()
	require.NoError(t, err)
	assert.Equal(t, "addr:m/7", addr)
	assert.False(t, c.Materialized())
}

func TestDerive(t *testing.T) {
	t.Parallel()

	c, parent := newTestChain(t)
	addr, err := c.Next()
	require.NoError(t, err)

	node, ok, err := c.Derive(addr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "m/1", node.String())
	assert.False(t, node.IsPrivate())

	private := newPathNode(true)
	node, ok, err = c.DeriveFrom(private, addr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "m/1", node.String())
	assert.True(t, node.IsPrivate())

	node, ok, err = c.Derive("unknown")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, node)

	// Derive never mutates the chain.
	assert.Equal(t, uint32(1), c.K())
	assert.Same(t, parent, c.Parent())
}

func TestNext_DerivationErrorLeavesChainUnchanged(t *testing.T) {
	t.Parallel()

	parent := newPathNode(false)
	parent.fail = map[uint32]bool{2: true}
	c, err := New(parent, pathEncoder())
	require.NoError(t, err)

	_, err = c.Next()
	require.NoError(t, err)

	_, err = c.Next()
	require.ErrorIs(t, err, scanerr.ErrDerivation)
	require.ErrorIs(t, err, errDeriveFailed)
	assert.Equal(t, uint32(1), c.K())
	assert.Equal(t, 2, c.Len())
}

func TestNext_HardenedFromPublicFails(t *testing.T) {
	t.Parallel()

	c, _ := newTestChain(t, WithStartIndex(keynode.Hardened))
	_, err := c.Get()
	require.ErrorIs(t, err, scanerr.ErrDerivation)
	assert.False(t, c.Materialized())
}

func TestNext_Overflow(t *testing.T) {
	t.Parallel()

	parent := newPathNode(true)
	c, err := New(parent, pathEncoder(), WithStartIndex(math.MaxUint32))
	require.NoError(t, err)

	addr, err := c.Get()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(addr, fmt.Sprint(uint32(math.MaxUint32))))

	_, err = c.Next()
	require.ErrorIs(t, err, scanerr.ErrIndexOverflow)
	assert.Equal(t, uint32(math.MaxUint32), c.K())
}

func TestAdvanceTo(t *testing.T) {
	t.Parallel()

	c, _ := newTestChain(t)
	require.NoError(t, c.AdvanceTo(4))
	assert.Equal(t, uint32(4), c.K())
	assert.Equal(t, 5, c.Len())

	require.NoError(t, c.AdvanceTo(2))
	assert.Equal(t, uint32(4), c.K())
}

func TestChain_RealKeys(t *testing.T) {
	t.Parallel()

	seed, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)
	master, err := keynode.FromSeed(seed, keynode.BackendBIP32)
	require.NoError(t, err)
	account, err := keynode.DerivePath(master, keynode.AccountPath(44, 0, 0))
	require.NoError(t, err)
	external, err := account.Derive(0)
	require.NoError(t, err)
	xpub, err := external.Neuter()
	require.NoError(t, err)

	c, err := New(xpub, address.Canonical(&chaincfg.MainNetParams))
	require.NoError(t, err)
	require.NoError(t, c.AdvanceTo(3))

	all, err := c.GetAll()
	require.NoError(t, err)
	for i, addr := range all {
		child, err := external.Derive(uint32(i))
		require.NoError(t, err)
		want, err := address.P2PKH(child, &chaincfg.MainNetParams)
		require.NoError(t, err)
		assert.Equal(t, want, addr)
	}

	// A private parent derives the private key for a public chain's address.
	node, ok, err := c.DeriveFrom(external, all[2])
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, node.IsPrivate())
	pub, _, err := c.Derive(all[2])
	require.NoError(t, err)
	assert.True(t, keynode.SameKey(node, pub))
}
