package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/hdscan/internal/address"
	"github.com/mrz1836/hdscan/internal/config"
	"github.com/mrz1836/hdscan/internal/discovery"
	"github.com/mrz1836/hdscan/internal/hdchain"
	"github.com/mrz1836/hdscan/internal/keynode"
	"github.com/mrz1836/hdscan/internal/metrics"
	"github.com/mrz1836/hdscan/internal/mnemonic"
	"github.com/mrz1836/hdscan/internal/oracle"
	"github.com/mrz1836/hdscan/internal/output"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
func withMockPrompts(t *testing.T, phrase, passphrase string) {
	t.Helper()
	origMnemonic := promptMnemonicFn
	origPassphrase := promptPassphraseFn
	t.Cleanup(func() {
		promptMnemonicFn = origMnemonic
		promptPassphraseFn = origPassphrase
	})
	promptMnemonicFn = func() (string, error) { return phrase, nil }
	promptPassphraseFn = func() (string, error) { return passphrase, nil }
}

// resetCommandFlags restores command flag variables after a test.
func resetCommandFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		discoverFormat, discoverStart, discoverSave, discoverResume = "", 0, "", ""
		accountsInput, accountsPassphrase, accountsScheme, accountsMax, accountsSave = "", false, "", 0, false
		addressesFormat, addressesStart, addressesState = "", 0, ""
		addressesCount, addressesLimit = defaultListCount, defaultFindLimit
		schemesWallet = ""
		configForce = false
	})
}

// testEnv is an isolated command environment backed by a static oracle.
type testEnv struct {
	cc      *CommandContext
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	oracle  *oracle.Static
	queries int
}

// newTestEnv builds a command context rooted in a temporary home with the
// given used addresses. Pass output.FormatJSON to decode responses.
func newTestEnv(t *testing.T, format output.Format, used ...string) *testEnv {
	t.Helper()
	resetCommandFlags(t)

	c := config.Defaults()
	c.Home = t.TempDir()
	c.Oracle.Kind = oracle.KindStatic
	c.Oracle.Cache = false
	c.Logging.Level = "off"

	env := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		oracle: oracle.NewStatic(used...),
	}
	env.cc = NewCommandContext(c, config.NullLogger(), output.NewFormatter(format, env.stdout)).
		WithStderr(env.stderr).
		WithOracleFactory(func(_ context.Context, _ oracle.Settings) (discovery.Querier, func(), error) {
			env.queries++
			return env.oracle, func() {}, nil
		})
	env.cc.Metrics = &metrics.Metrics{}
	return env
}

// command returns a bare command wired to the environment.
func (e *testEnv) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(e.stdout)
	cmd.SetContext(SetCmdContext(context.Background(), e.cc))
	return cmd
}

// testChainNode returns the private m/44'/0'/0'/change node of the test
// mnemonic.
func testChainNode(t *testing.T, change uint32) keynode.Node {
	t.Helper()

	master, err := mnemonic.Master(testMnemonic, "", keynode.BackendBIP32)
	require.NoError(t, err)
	path, err := keynode.ParsePath("m/44'/0'/0'")
	require.NoError(t, err)
	node, err := keynode.DerivePath(master, path.Child(change))
	require.NoError(t, err)
	return node
}

// testChain returns the neutered m/44'/0'/0'/change key of the test mnemonic
// and its first n P2PKH addresses.
func testChain(t *testing.T, change uint32, n int) (string, []string) {
	t.Helper()

	pub, err := testChainNode(t, change).Neuter()
	require.NoError(t, err)

	chain, err := hdchain.New(pub, address.Canonical(&chaincfg.MainNetParams))
	require.NoError(t, err)
	first, err := chain.Get()
	require.NoError(t, err)
	addrs := []string{first}
	for len(addrs) < n {
		addr, err := chain.Next()
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}
	return pub.String(), addrs
}

// suggestionOf returns the suggestion attached to err, if any.
func suggestionOf(err error) string {
	var se *scanerr.ScanError
	if scanerr.As(err, &se) {
		return se.Suggestion
	}
	return ""
}
