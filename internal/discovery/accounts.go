package discovery

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/hdscan/internal/address"
	"github.com/mrz1836/hdscan/internal/hdchain"
	"github.com/mrz1836/hdscan/internal/keynode"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// ChainResult is the scan outcome of one external or internal chain.
type ChainResult struct {
	// Change is ChangeExternal or ChangeInternal.
	Change uint32 `json:"change"`

	// Path is the derivation path of the chain parent.
	Path string `json:"path"`

	// Used and Checked are the scan counts.
	Used    int `json:"used"`
	Checked int `json:"checked"`

	// NextAddress is the first unused address after the last used one, and
	// NextIndex its child index.
	NextAddress string `json:"next_address"`
	NextIndex   uint32 `json:"next_index"`

	// Chain is the rewound chain, positioned at NextAddress.
	Chain *hdchain.Chain `json:"-"`
}

// AccountResult is the outcome of one account.
type AccountResult struct {
	Account  uint32      `json:"account"`
	Path     string      `json:"path"`
	External ChainResult `json:"external"`
	Internal ChainResult `json:"internal"`
}

// Used reports whether the account's external chain has any used address.
func (a AccountResult) Used() bool {
	return a.External.Used > 0
}

// AccountsResult contains every used account found under a scheme.
type AccountsResult struct {
	Scheme   string          `json:"scheme"`
	Accounts []AccountResult `json:"accounts"`

	// Checked is the total number of addresses queried, including those of
	// the first unused account.
	Checked int `json:"checked"`

	// NextAccount is the first unused account index.
	NextAccount uint32 `json:"next_account"`
}

// AccountScanner performs BIP44 account discovery.
type AccountScanner struct {
	scanner *Scanner
}

// NewAccountScanner creates an account scanner. Every chain is scanned with
// the same querier and options.
func NewAccountScanner(q Querier, opts *Options) *AccountScanner {
	return &AccountScanner{scanner: NewScanner(q, opts)}
}

// Discover walks accounts 0..maxAccounts-1 under scheme from master, which
// must be a private node. Each account's external and internal chains are
// scanned concurrently. Discovery stops at the first account whose external
// chain has no used address; that account is not included in the result.
func (a *AccountScanner) Discover(ctx context.Context, master keynode.Node, scheme Scheme, net *chaincfg.Params, maxAccounts uint32) (*AccountsResult, error) {
	if master == nil {
		return nil, scanerr.WithSuggestion(scanerr.ErrInvalidInput, "account discovery needs a master key")
	}
	if !master.IsPrivate() {
		return nil, scanerr.WithSuggestion(scanerr.ErrInvalidKey, "account discovery derives hardened paths and needs a private master key")
	}
	if maxAccounts == 0 {
		maxAccounts = DefaultMaxAccounts
	}
	encoder, err := address.ByName(scheme.Format, net)
	if err != nil {
		return nil, err
	}

	log := a.scanner.opts.Logger
	result := &AccountsResult{Scheme: scheme.Name}
	for account := uint32(0); account < maxAccounts; account++ {
		acct, err := a.discoverAccount(ctx, master, scheme, encoder, account)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", account, err)
		}
		result.Checked += acct.External.Checked + acct.Internal.Checked
		result.NextAccount = account

		if !acct.Used() {
			log.Debug("discovery: %s account %d unused, stopping", scheme.Name, account)
			return result, nil
		}
		log.Debug("discovery: %s account %d: external %d used, internal %d used",
			scheme.Name, account, acct.External.Used, acct.Internal.Used)
		result.Accounts = append(result.Accounts, acct)
		result.NextAccount = account + 1
	}
	return result, nil
}

func (a *AccountScanner) discoverAccount(ctx context.Context, master keynode.Node, scheme Scheme, encoder address.Encoder, account uint32) (AccountResult, error) {
	path := scheme.AccountPath(account)
	node, err := keynode.DerivePath(master, path)
	if err != nil {
		return AccountResult{}, scanerr.WithCause(scanerr.ErrDerivation, err)
	}

	res := AccountResult{
		Account:  account,
		Path:     path.String(),
		External: ChainResult{Change: ChangeExternal},
		Internal: ChainResult{Change: ChangeInternal},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, cr := range []*ChainResult{&res.External, &res.Internal} {
		g.Go(func() error {
			return a.discoverChain(gctx, node, path, encoder, cr)
		})
	}
	if err := g.Wait(); err != nil {
		return AccountResult{}, err
	}
	return res, nil
}

// discoverChain scans account/change and fills cr.
func (a *AccountScanner) discoverChain(ctx context.Context, account keynode.Node, path keynode.Path, encoder address.Encoder, cr *ChainResult) error {
	changeNode, err := account.Derive(cr.Change)
	if err != nil {
		return scanerr.WithCause(scanerr.ErrDerivation, err)
	}
	parent, err := changeNode.Neuter()
	if err != nil {
		return scanerr.WithCause(scanerr.ErrDerivation, err)
	}

	chain, err := hdchain.New(parent, encoder)
	if err != nil {
		return err
	}
	scan, err := a.scanner.Discover(ctx, chain)
	if err != nil {
		return err
	}
	Rewind(chain, scan)

	next, err := chain.Get()
	if err != nil {
		return err
	}
	cr.Path = path.Child(cr.Change).String()
	cr.Used = scan.Used
	cr.Checked = scan.Checked
	cr.NextAddress = next
	cr.NextIndex = chain.K()
	cr.Chain = chain
	return nil
}
