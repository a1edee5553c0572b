// Package discovery implements gap-limit address discovery over HD address
// chains and BIP44 account discovery on top of it.
package discovery

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/mrz1836/hdscan/internal/address"
	"github.com/mrz1836/hdscan/internal/keynode"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Scheme defines a BIP44-style account layout:
// m/purpose'/coinType'/account'/change/index.
type Scheme struct {
	// Name is the lookup key, e.g. "bip44-btc".
	Name string `json:"name"`

	// Description is a short human-readable summary.
	Description string `json:"description"`

	// Wallets lists wallets known to use this derivation scheme.
	Wallets []string `json:"wallets,omitempty"`

	// Purpose is the BIP43 purpose (44 for BIP44, 84 for BIP84).
	Purpose uint32 `json:"purpose"`

	// CoinType is the SLIP-44 coin type (e.g., 0=BTC, 60=ETH, 145=BCH, 236=BSV).
	CoinType uint32 `json:"coin_type"`

	// Format is the address format name understood by address.ByName.
	Format string `json:"format"`
}

// BIP44 coin type constants.
const (
	// CoinTypeBTC is the Bitcoin coin type.
	CoinTypeBTC uint32 = 0

	// CoinTypeETH is the Ethereum coin type.
	CoinTypeETH uint32 = 60

	// CoinTypeBCH is the Bitcoin Cash coin type (used by Exodus, Simply.Cash).
	CoinTypeBCH uint32 = 145

	// CoinTypeBSV is the Bitcoin SV coin type (standard BSV wallets).
	CoinTypeBSV uint32 = 236
)

// BIP43 purpose constants.
const (
	// PurposeBIP44 is the standard BIP44 purpose.
	PurposeBIP44 uint32 = 44

	// PurposeBIP84 is the native segwit purpose.
	PurposeBIP84 uint32 = 84
)

// Chain indices below an account node.
const (
	ChangeExternal uint32 = 0
	ChangeInternal uint32 = 1
)

// DefaultSchemeName is the scheme used when none is given.
const DefaultSchemeName = "bip44-btc"

// Schemes returns the built-in schemes.
func Schemes() []Scheme {
	return []Scheme{
		{
			Name:        "bip44-btc",
			Description: "Bitcoin legacy P2PKH",
			Wallets:     []string{"Electrum", "Trezor", "Ledger", "MoneyButton"},
			Purpose:     PurposeBIP44,
			CoinType:    CoinTypeBTC,
			Format:      address.FormatP2PKH,
		},
		{
			Name:        "bip84-btc",
			Description: "Bitcoin native segwit P2WPKH",
			Wallets:     []string{"Electrum", "Trezor", "Ledger", "BlueWallet"},
			Purpose:     PurposeBIP84,
			CoinType:    CoinTypeBTC,
			Format:      address.FormatP2WPKH,
		},
		{
			Name:        "bip44-bsv",
			Description: "Bitcoin SV P2PKH",
			Wallets:     []string{"RelayX", "RockWallet", "Twetch", "KeepKey"},
			Purpose:     PurposeBIP44,
			CoinType:    CoinTypeBSV,
			Format:      address.FormatP2PKH,
		},
		{
			Name:        "bip44-bch",
			Description: "Bitcoin Cash P2PKH (legacy encoding)",
			Wallets:     []string{"Exodus", "Simply.Cash"},
			Purpose:     PurposeBIP44,
			CoinType:    CoinTypeBCH,
			Format:      address.FormatP2PKH,
		},
		{
			Name:        "bip44-eth",
			Description: "Ethereum",
			Wallets:     []string{"MetaMask", "Ledger", "Trezor"},
			Purpose:     PurposeBIP44,
			CoinType:    CoinTypeETH,
			Format:      address.FormatETH,
		},
	}
}

// SchemeNames returns the names of the built-in schemes.
func SchemeNames() []string {
	schemes := Schemes()
	names := make([]string, len(schemes))
	for i, s := range schemes {
		names[i] = s.Name
	}
	return names
}

// SchemeByName returns a built-in scheme. Unknown names fail with
// ErrUnknownScheme, suggesting the closest known name.
func SchemeByName(name string) (Scheme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultSchemeName
	}
	for _, scheme := range Schemes() {
		if scheme.Name == name {
			return scheme, nil
		}
	}

	err := scanerr.WithDetails(scanerr.ErrUnknownScheme, map[string]string{"scheme": name})
	best, bestDist := "", 4
	for _, candidate := range SchemeNames() {
		if d := levenshtein.ComputeDistance(name, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if best != "" {
		return Scheme{}, scanerr.WithSuggestion(err, "did you mean '"+best+"'?")
	}
	return Scheme{}, scanerr.WithSuggestion(err, "run 'hdscan schemes' to list schemes")
}

// SchemesForWallet returns all schemes that a specific wallet might use.
func SchemesForWallet(walletName string) []Scheme {
	var matches []Scheme
	for _, scheme := range Schemes() {
		for _, w := range scheme.Wallets {
			if strings.EqualFold(w, walletName) {
				matches = append(matches, scheme)
				break
			}
		}
	}
	return matches
}

// AccountPath returns m/purpose'/coinType'/account'.
func (s Scheme) AccountPath(account uint32) keynode.Path {
	return keynode.AccountPath(s.Purpose, s.CoinType, account)
}
