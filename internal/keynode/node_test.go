package keynode_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/hdscan/internal/keynode"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// BIP32 test vector 1.
const (
	vector1Seed      = "000102030405060708090a0b0c0d0e0f"
	vector1MasterPub = "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8"
	vector1Child0H   = "xpub68Gmy5EdvgibQVfPdqkBBCHxA5htiqg55crXYuXoQRKfDBFA1WEjWgP6LHhwBZeNK1VTsfTFUHCdrfp1bgwQ9xv5ski8PX9rL2dZXvgGDnw"
	vector1Child0H1  = "xpub6ASuArnXKPbfEwhqN6e3mwBcDTgzisQN1wXN9BJcM47sSikHjJf3UFHKkNAWbWMiGj7Wf5uMash7SyYq527Hqck2AxYysAA7xmALppuCkwQ"
)

func vectorSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := hex.DecodeString(vector1Seed)
	require.NoError(t, err)
	return seed
}

func TestFromSeed_MatchesBIP32Vector(t *testing.T) {
	t.Parallel()

	// decred serializes with its own checksum, so only the xpub backends are
	// compared against the published strings.
	for _, backend := range []keynode.Backend{keynode.BackendBIP32, keynode.BackendBtcutil} {
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()

			master, err := keynode.FromSeed(vectorSeed(t), backend)
			require.NoError(t, err)
			assert.True(t, master.IsPrivate())

			pub, err := master.Neuter()
			require.NoError(t, err)
			assert.False(t, pub.IsPrivate())
			assert.Equal(t, vector1MasterPub, pub.String())

			path, err := keynode.ParsePath("m/0'/1")
			require.NoError(t, err)
			child, err := keynode.DerivePath(master, path)
			require.NoError(t, err)
			childPub, err := child.Neuter()
			require.NoError(t, err)
			assert.Equal(t, vector1Child0H1, childPub.String())
		})
	}
}

func TestBackendsAgreeOnPublicKeys(t *testing.T) {
	t.Parallel()

	seed := vectorSeed(t)
	path := keynode.AccountPath(44, 0, 0).Child(0).Child(7)

	var nodes []keynode.Node
	for _, backend := range keynode.Backends() {
		master, err := keynode.FromSeed(seed, backend)
		require.NoError(t, err)
		node, err := keynode.DerivePath(master, path)
		require.NoError(t, err, "backend %s", backend)
		assert.Len(t, node.PublicKey(), 33)
		nodes = append(nodes, node)
	}

	for i := 1; i < len(nodes); i++ {
		assert.True(t, keynode.SameKey(nodes[0], nodes[i]), "backend %s disagrees", keynode.Backends()[i])
	}
}

func TestPublicDerivationMatchesPrivate(t *testing.T) {
	t.Parallel()

	for _, backend := range keynode.Backends() {
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()

			master, err := keynode.FromSeed(vectorSeed(t), backend)
			require.NoError(t, err)
			account, err := master.Derive(keynode.Hardened)
			require.NoError(t, err)
			neutered, err := account.Neuter()
			require.NoError(t, err)

			for i := uint32(0); i < 5; i++ {
				fromPrivate, err := account.Derive(i)
				require.NoError(t, err)
				fromPublic, err := neutered.Derive(i)
				require.NoError(t, err)

				assert.True(t, fromPrivate.IsPrivate())
				assert.False(t, fromPublic.IsPrivate())
				assert.True(t, keynode.SameKey(fromPrivate, fromPublic))
			}
		})
	}
}

func TestHardenedFromPublicFails(t *testing.T) {
	t.Parallel()

	for _, backend := range keynode.Backends() {
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()

			master, err := keynode.FromSeed(vectorSeed(t), backend)
			require.NoError(t, err)
			pub, err := master.Neuter()
			require.NoError(t, err)

			_, err = pub.Derive(keynode.Hardened)
			assert.Error(t, err)
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	for _, backend := range []keynode.Backend{keynode.BackendBIP32, keynode.BackendBtcutil} {
		node, err := keynode.Parse(vector1Child0H, backend)
		require.NoError(t, err)
		assert.False(t, node.IsPrivate())
		assert.Equal(t, vector1Child0H, node.String())

		child, err := node.Derive(1)
		require.NoError(t, err)
		assert.Equal(t, vector1Child0H1, child.String())
	}

	_, err := keynode.Parse("", keynode.BackendBIP32)
	require.ErrorIs(t, err, scanerr.ErrInvalidKey)

	_, err = keynode.Parse("xpub-not-a-key", keynode.BackendBtcutil)
	require.ErrorIs(t, err, scanerr.ErrInvalidKey)

	_, err = keynode.Parse(vector1Child0H, keynode.Backend("nope"))
	require.ErrorIs(t, err, keynode.ErrUnknownBackend)
}

func TestDecredRoundTrip(t *testing.T) {
	t.Parallel()

	master, err := keynode.FromSeed(vectorSeed(t), keynode.BackendDecred)
	require.NoError(t, err)
	pub, err := master.Neuter()
	require.NoError(t, err)

	parsed, err := keynode.Parse(pub.String(), keynode.BackendDecred)
	require.NoError(t, err)
	assert.True(t, keynode.SameKey(pub, parsed))
}

func TestParseBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    keynode.Backend
		wantErr bool
	}{
		{"", keynode.DefaultBackend, false},
		{"bip32", keynode.BackendBIP32, false},
		{" BTCUTIL ", keynode.BackendBtcutil, false},
		{"decred", keynode.BackendDecred, false},
		{"openssl", "", true},
	}

	for _, tt := range tests {
		got, err := keynode.ParseBackend(tt.input)
		if tt.wantErr {
			require.ErrorIs(t, err, keynode.ErrUnknownBackend)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSameKey_Nil(t *testing.T) {
	t.Parallel()
	assert.False(t, keynode.SameKey(nil, nil))
}
