package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/hdscan/internal/chainstore"
	"github.com/mrz1836/hdscan/internal/output"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// putCursor stores a cursor in the environment's chain store.
func putCursor(t *testing.T, env *testEnv, c chainstore.Cursor) {
	t.Helper()
	store, err := chainstore.Open(env.cc.Config.StorePath())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	require.NoError(t, store.Put(c))
}

func TestRunAddressesList(t *testing.T) {
	xpub, addrs := testChain(t, 0, 15)

	tests := []struct {
		name  string
		start uint32
		count int
	}{
		{name: "from zero", start: 0, count: 5},
		{name: "single address", start: 0, count: 1},
		{name: "from start index", start: 10, count: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, output.FormatJSON)
			addressesStart = tc.start
			addressesCount = tc.count

			require.NoError(t, runAddressesList(env.command(), []string{xpub}))

			var resp AddressesResponse
			require.NoError(t, json.Unmarshal(env.stdout.Bytes(), &resp))
			assert.Equal(t, "p2pkh", resp.Format)
			assert.Equal(t, "mainnet", resp.Network)
			require.Len(t, resp.Addresses, tc.count)
			for i, e := range resp.Addresses {
				assert.Equal(t, tc.start+uint32(i), e.Index)
				assert.Equal(t, addrs[e.Index], e.Address)
			}
			assert.Equal(t, 0, env.queries, "listing never queries an oracle")
		})
	}
}

func TestRunAddressesList_Text(t *testing.T) {
	xpub, addrs := testChain(t, 0, 2)
	env := newTestEnv(t, output.FormatText)
	addressesCount = 2

	require.NoError(t, runAddressesList(env.command(), []string{xpub}))

	lines := strings.Split(strings.TrimRight(env.stdout.String(), "\n"), "\n")
	require.Len(t, lines, 4, "header, separator and two rows")
	assert.True(t, strings.HasPrefix(lines[0], "INDEX"))
	assert.Equal(t, "0      "+addrs[0], strings.TrimRight(lines[2], " "))
	assert.Equal(t, "1      "+addrs[1], strings.TrimRight(lines[3], " "))
}

func TestRunAddressesList_FromState(t *testing.T) {
	xpub, addrs := testChain(t, 0, 8)
	env := newTestEnv(t, output.FormatJSON)
	putCursor(t, env, chainstore.Cursor{
		Key: "main/0", Network: "mainnet", Format: "p2pkh", Parent: xpub, BaseIndex: 5, NextIndex: 6,
	})
	addressesState = "main/0"
	addressesCount = 3

	require.NoError(t, runAddressesList(env.command(), nil))

	var resp AddressesResponse
	require.NoError(t, json.Unmarshal(env.stdout.Bytes(), &resp))
	require.Len(t, resp.Addresses, 3)
	assert.Equal(t, uint32(5), resp.Addresses[0].Index, "a stored chain lists from its base")
	assert.Equal(t, addrs[5], resp.Addresses[0].Address)
	assert.Equal(t, addrs[7], resp.Addresses[2].Address)
}

func TestRunAddressesList_FormatOverride(t *testing.T) {
	xpub, _ := testChain(t, 0, 1)
	env := newTestEnv(t, output.FormatJSON)
	addressesFormat = "p2wpkh"
	addressesCount = 1

	require.NoError(t, runAddressesList(env.command(), []string{xpub}))

	var resp AddressesResponse
	require.NoError(t, json.Unmarshal(env.stdout.Bytes(), &resp))
	assert.Equal(t, "p2wpkh", resp.Format)
	assert.Equal(t, "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu", resp.Addresses[0].Address)
}

func TestRunAddressesList_Errors(t *testing.T) {
	xpub, _ := testChain(t, 0, 1)

	t.Run("zero count", func(t *testing.T) {
		env := newTestEnv(t, output.FormatJSON)
		addressesCount = 0
		err := runAddressesList(env.command(), []string{xpub})
		assert.True(t, scanerr.Is(err, scanerr.ErrInvalidInput))
	})

	t.Run("no key", func(t *testing.T) {
		env := newTestEnv(t, output.FormatJSON)
		err := runAddressesList(env.command(), nil)
		assert.True(t, scanerr.Is(err, scanerr.ErrInvalidInput))
		assert.Contains(t, suggestionOf(err), "--state")
	})

	t.Run("key with state", func(t *testing.T) {
		env := newTestEnv(t, output.FormatJSON)
		addressesState = "main/0"
		err := runAddressesList(env.command(), []string{xpub})
		assert.True(t, scanerr.Is(err, scanerr.ErrInvalidInput))
	})

	t.Run("cursor without parent", func(t *testing.T) {
		env := newTestEnv(t, output.FormatJSON)
		putCursor(t, env, chainstore.Cursor{Key: "orphan", Network: "mainnet"})
		addressesState = "orphan"
		err := runAddressesList(env.command(), nil)
		assert.True(t, scanerr.Is(err, scanerr.ErrStoreCorrupted))
	})
}

func TestRunAddressesFind(t *testing.T) {
	xpub, addrs := testChain(t, 0, 10)

	tests := []struct {
		name        string
		start       uint32
		limit       int
		target      string
		wantIndex   uint32
		wantChecked int
	}{
		{name: "first address", limit: 100, target: addrs[0], wantIndex: 0, wantChecked: 1},
		{name: "stops at match", limit: 100, target: addrs[7], wantIndex: 7, wantChecked: 8},
		{name: "match at limit", limit: 8, target: addrs[7], wantIndex: 7, wantChecked: 8},
		{name: "from start index", start: 3, limit: 100, target: addrs[7], wantIndex: 7, wantChecked: 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, output.FormatJSON)
			addressesStart = tc.start
			addressesLimit = tc.limit

			require.NoError(t, runAddressesFind(env.command(), []string{xpub, tc.target}))

			var resp FindResponse
			require.NoError(t, json.Unmarshal(env.stdout.Bytes(), &resp))
			assert.Equal(t, tc.target, resp.Address)
			assert.Equal(t, tc.wantIndex, resp.Index)
			assert.Equal(t, tc.wantChecked, resp.Checked)
		})
	}
}

func TestRunAddressesFind_Text(t *testing.T) {
	xpub, addrs := testChain(t, 0, 3)
	env := newTestEnv(t, output.FormatText)

	require.NoError(t, runAddressesFind(env.command(), []string{xpub, addrs[2]}))
	assert.Equal(t, addrs[2]+" is child 2 (searched 3 addresses)\n", env.stdout.String())
}

func TestRunAddressesFind_NotFound(t *testing.T) {
	xpub, addrs := testChain(t, 0, 8)

	t.Run("beyond limit", func(t *testing.T) {
		env := newTestEnv(t, output.FormatJSON)
		addressesLimit = 5

		err := runAddressesFind(env.command(), []string{xpub, addrs[7]})
		require.Error(t, err)
		assert.True(t, scanerr.Is(err, scanerr.ErrNotFound))
		assert.Contains(t, err.Error(), "checked: 5")
		assert.Contains(t, suggestionOf(err), "--limit")
	})

	t.Run("before start", func(t *testing.T) {
		env := newTestEnv(t, output.FormatJSON)
		addressesStart = 4
		addressesLimit = 10

		err := runAddressesFind(env.command(), []string{xpub, addrs[1]})
		assert.True(t, scanerr.Is(err, scanerr.ErrNotFound))
	})

	t.Run("zero limit", func(t *testing.T) {
		env := newTestEnv(t, output.FormatJSON)
		addressesLimit = 0

		err := runAddressesFind(env.command(), []string{xpub, addrs[0]})
		assert.True(t, scanerr.Is(err, scanerr.ErrInvalidInput))
	})

	t.Run("missing address", func(t *testing.T) {
		env := newTestEnv(t, output.FormatJSON)
		err := runAddressesFind(env.command(), []string{xpub})
		assert.True(t, scanerr.Is(err, scanerr.ErrInvalidInput))
	})
}
