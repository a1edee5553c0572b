// Package keynode defines the hierarchical-deterministic key capability used
// by address chains, with adapters over the BIP32 libraries hdscan supports.
package keynode

import (
	"errors"
	"fmt"
	"strings"

	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Hardened is the first hardened child index (BIP32).
const Hardened uint32 = 0x80000000

// Node is an HD key from which children are derived by index.
//
// Implementations are immutable: Derive and Neuter return new nodes and never
// modify the receiver, so a node may be shared between chains.
type Node interface {
	// Derive returns the child at index (BIP32 CKD).
	Derive(index uint32) (Node, error)

	// PublicKey returns the 33-byte compressed SEC public key.
	PublicKey() []byte

	// Neuter returns the public-only variant of the node.
	Neuter() (Node, error)

	// IsPrivate reports whether the node carries private key material.
	IsPrivate() bool

	// String returns the serialized extended key.
	String() string
}

// Backend names a BIP32 implementation.
type Backend string

// Supported backends.
const (
	BackendBIP32   Backend = "bip32"
	BackendBtcutil Backend = "btcutil"
	BackendDecred  Backend = "decred"
)

// DefaultBackend is used when no backend is configured.
const DefaultBackend = BackendBIP32

// ErrUnknownBackend indicates an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown key backend")

// Backends lists the supported backend names.
func Backends() []Backend {
	return []Backend{BackendBIP32, BackendBtcutil, BackendDecred}
}

// ParseBackend parses a backend name. An empty name selects DefaultBackend.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultBackend, nil
	case BackendBIP32:
		return BackendBIP32, nil
	case BackendBtcutil:
		return BackendBtcutil, nil
	case BackendDecred:
		return BackendDecred, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// FromSeed creates a master node from a BIP39 seed using the given backend.
func FromSeed(seed []byte, backend Backend) (Node, error) {
	switch backend {
	case BackendBIP32, "":
		return NewBIP32Master(seed)
	case BackendBtcutil:
		return NewBtcutilMaster(seed)
	case BackendDecred:
		return NewDecredMaster(seed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// Parse decodes a serialized extended key (xpub/xprv) using the given backend.
func Parse(key string, backend Backend) (Node, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, scanerr.WithSuggestion(scanerr.ErrInvalidKey, "provide an extended key such as xpub...")
	}

	var (
		node Node
		err  error
	)
	switch backend {
	case BackendBIP32, "":
		node, err = ParseBIP32(key)
	case BackendBtcutil:
		node, err = ParseBtcutil(key)
	case BackendDecred:
		node, err = ParseDecred(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	if err != nil {
		return nil, scanerr.WithCause(scanerr.ErrInvalidKey, err)
	}
	return node, nil
}

// SameKey reports whether two nodes carry the same public key.
func SameKey(a, b Node) bool {
	if a == nil || b == nil {
		return false
	}
	pa, pb := a.PublicKey(), b.PublicKey()
	if len(pa) == 0 || len(pa) != len(pb) {
		return false
	}
	for i := range pa {
		if pa[i] != pb[i] {
			return false
		}
	}
	return true
}
