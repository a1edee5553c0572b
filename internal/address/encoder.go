// Package address turns key nodes into address strings.
//
// A chain holds exactly one Encoder for its lifetime. There is no
// process-wide default: callers pick one explicitly, usually with Canonical.
package address

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/mrz1836/hdscan/internal/keynode"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Func derives an address string from a key node for a network.
type Func func(node keynode.Node, net *chaincfg.Params) (string, error)

// Encoder is an address function bound to network parameters.
type Encoder interface {
	// Name returns the format name, e.g. "p2pkh".
	Name() string

	// Encode returns the address of node.
	Encode(node keynode.Node) (string, error)
}

// Format names.
const (
	FormatP2PKH  = "p2pkh"
	FormatP2WPKH = "p2wpkh"
	FormatETH    = "eth"
)

// ErrInvalidPublicKey indicates a node returned a malformed public key.
var ErrInvalidPublicKey = errors.New("invalid public key")

// compressedKeyLen is the length of a SEC1 compressed public key.
const compressedKeyLen = 33

//nolint:gochecknoglobals // registry of built-in formats
var formats = map[string]Func{
	FormatP2PKH:  P2PKH,
	FormatP2WPKH: P2WPKH,
	FormatETH:    ETH,
}

type bound struct {
	name string
	fn   Func
	net  *chaincfg.Params
}

func (b *bound) Name() string { return b.name }

func (b *bound) Encode(node keynode.Node) (string, error) {
	if node == nil {
		return "", fmt.Errorf("%w: nil node", ErrInvalidPublicKey)
	}
	return b.fn(node, b.net)
}

// Bind wraps fn as an Encoder for net.
func Bind(name string, fn Func, net *chaincfg.Params) Encoder {
	if net == nil {
		net = &chaincfg.MainNetParams
	}
	return &bound{name: name, fn: fn, net: net}
}

// Canonical returns the legacy P2PKH encoder for net.
func Canonical(net *chaincfg.Params) Encoder {
	return Bind(FormatP2PKH, P2PKH, net)
}

// ByName returns the encoder for a format name on net.
func ByName(name string, net *chaincfg.Params) (Encoder, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Canonical(net), nil
	}
	fn, ok := formats[name]
	if !ok {
		err := scanerr.WithDetails(scanerr.ErrUnknownFormat, map[string]string{"format": name})
		if s := closest(name, Formats()); s != "" {
			err = scanerr.WithSuggestion(err, "did you mean '"+s+"'?")
		}
		return nil, err
	}
	return Bind(name, fn, net), nil
}

// Formats lists the built-in format names.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func compressedKey(node keynode.Node) ([]byte, error) {
	pub := node.PublicKey()
	if len(pub) != compressedKeyLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, compressedKeyLen, len(pub))
	}
	return pub, nil
}

// P2PKH is Base58Check(version || Hash160(pubkey)).
func P2PKH(node keynode.Node, net *chaincfg.Params) (string, error) {
	pub, err := compressedKey(node)
	if err != nil {
		return "", err
	}
	return Base58Check(net.PubKeyHashAddrID, Hash160(pub)), nil
}

// P2WPKH is the BIP173 native segwit v0 address of the public key.
func P2WPKH(node keynode.Node, net *chaincfg.Params) (string, error) {
	pub, err := compressedKey(node)
	if err != nil {
		return "", err
	}
	addr, err := btcutil.NewAddressWitnessPubKeyHash(Hash160(pub), net)
	if err != nil {
		return "", fmt.Errorf("failed to encode witness address: %w", err)
	}
	return addr.EncodeAddress(), nil
}
