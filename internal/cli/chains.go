package cli

import (
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/mrz1836/hdscan/internal/address"
	"github.com/mrz1836/hdscan/internal/chainstore"
	"github.com/mrz1836/hdscan/internal/hdchain"
	"github.com/mrz1836/hdscan/internal/keynode"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// chainSource describes where a chain comes from: an extended key given on
// the command line, or a stored cursor.
type chainSource struct {
	Parent  string
	Network string
	Format  string
	Base    uint32
	Cursor  *chainstore.Cursor
}

// openStore opens the cursor database.
func (c *CommandContext) openStore() (*chainstore.Store, error) {
	return chainstore.Open(c.Config.StorePath())
}

// sourceFromKey builds a source from an extended key and flag values.
func (c *CommandContext) sourceFromKey(extendedKey, format string, start uint32) chainSource {
	if format == "" {
		format = c.Config.Discovery.Format
	}
	return chainSource{
		Parent:  extendedKey,
		Network: c.Config.Discovery.Network,
		Format:  format,
		Base:    start,
	}
}

// sourceFromState loads the cursor stored under key.
func (c *CommandContext) sourceFromState(key string) (chainSource, error) {
	store, err := c.openStore()
	if err != nil {
		return chainSource{}, err
	}
	defer func() { _ = store.Close() }()

	cursor, err := store.Get(key)
	if err != nil {
		return chainSource{}, err
	}
	if cursor.Parent == "" {
		return chainSource{}, scanerr.WithDetails(scanerr.ErrStoreCorrupted, map[string]string{"key": key, "field": "parent"})
	}
	return chainSource{
		Parent:  cursor.Parent,
		Network: cursor.Network,
		Format:  cursor.Format,
		Base:    cursor.BaseIndex,
		Cursor:  cursor,
	}, nil
}

// parseParent decodes an extended key with the configured backend. Private
// keys are neutered: chains only derive non-hardened children.
func (c *CommandContext) parseParent(extendedKey string) (keynode.Node, error) {
	backend, err := keynode.ParseBackend(c.Config.Discovery.Backend)
	if err != nil {
		return nil, scanerr.WithCause(scanerr.ErrConfigInvalid, err)
	}
	node, err := keynode.Parse(extendedKey, backend)
	if err != nil {
		return nil, err
	}
	if node.IsPrivate() {
		c.Logger.Debug("neutering private extended key")
		return node.Neuter()
	}
	return node, nil
}

// encoder resolves the network and address format of src.
func encoder(src chainSource) (address.Encoder, *chaincfg.Params, error) {
	net, err := address.Network(src.Network)
	if err != nil {
		return nil, nil, err
	}
	enc, err := address.ByName(src.Format, net)
	if err != nil {
		return nil, nil, err
	}
	return enc, net, nil
}

// newChain builds the chain described by src starting at start.
func (c *CommandContext) newChain(src chainSource, start uint32) (*hdchain.Chain, error) {
	parent, err := c.parseParent(src.Parent)
	if err != nil {
		return nil, err
	}
	enc, _, err := encoder(src)
	if err != nil {
		return nil, err
	}
	return hdchain.New(parent, enc, hdchain.WithStartIndex(start))
}

// chainArgs splits positional arguments into an optional extended key and the
// remaining arguments. With --state the key comes from the store.
func (c *CommandContext) chainArgs(args []string, stateKey, format string, start uint32, extra int) (chainSource, []string, error) {
	if stateKey != "" {
		if len(args) != extra {
			return chainSource{}, nil, scanerr.WithSuggestion(scanerr.ErrInvalidInput, "do not pass an extended key together with --state")
		}
		src, err := c.sourceFromState(stateKey)
		if err != nil {
			return chainSource{}, nil, err
		}
		if format != "" {
			src.Format = format
		}
		return src, args, nil
	}
	if len(args) != extra+1 {
		return chainSource{}, nil, scanerr.WithSuggestion(scanerr.ErrInvalidInput, "pass an extended public key or --state KEY")
	}
	return c.sourceFromKey(args[0], format, start), args[1:], nil
}
