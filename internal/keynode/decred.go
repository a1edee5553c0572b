package keynode

import (
	"fmt"

	"github.com/decred/dcrd/hdkeychain/v3"
)

// hdNetParams satisfies hdkeychain.NetworkParams with Bitcoin mainnet HD
// version bytes.
type hdNetParams struct{}

func (hdNetParams) HDPrivKeyVersion() [4]byte { return [4]byte{0x04, 0x88, 0xAD, 0xE4} }
func (hdNetParams) HDPubKeyVersion() [4]byte  { return [4]byte{0x04, 0x88, 0xB2, 0x1E} }

// decredNode adapts github.com/decred/dcrd/hdkeychain/v3 keys using
// BIP32-standard child derivation.
//
// Serialized keys use Decred's BLAKE-256 checksum, so String output is only
// readable by ParseDecred.
type decredNode struct {
	key *hdkeychain.ExtendedKey
}

// NewDecredMaster creates a master node from seed.
func NewDecredMaster(seed []byte) (Node, error) {
	key, err := hdkeychain.NewMaster(seed, hdNetParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	return &decredNode{key: key}, nil
}

// ParseDecred decodes an extended key serialized by this backend.
func ParseDecred(s string) (Node, error) {
	key, err := hdkeychain.NewKeyFromString(s, hdNetParams{})
	if err != nil {
		return nil, err
	}
	return &decredNode{key: key}, nil
}

func (n *decredNode) Derive(index uint32) (Node, error) {
	child, err := n.key.ChildBIP32Std(index)
	if err != nil {
		return nil, fmt.Errorf("failed to derive child %d: %w", index, err)
	}
	return &decredNode{key: child}, nil
}

func (n *decredNode) PublicKey() []byte { return n.key.SerializedPubKey() }

func (n *decredNode) Neuter() (Node, error) { return &decredNode{key: n.key.Neuter()}, nil }

func (n *decredNode) IsPrivate() bool { return n.key.IsPrivate() }

func (n *decredNode) String() string { return n.key.String() }
