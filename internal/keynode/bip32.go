package keynode

import (
	"fmt"

	"github.com/tyler-smith/go-bip32"
)

// bip32Node adapts github.com/tyler-smith/go-bip32 keys.
type bip32Node struct {
	key *bip32.Key
}

// NewBIP32Master creates a master node from seed.
func NewBIP32Master(seed []byte) (Node, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	return &bip32Node{key: key}, nil
}

// ParseBIP32 decodes a base58 extended key.
func ParseBIP32(s string) (Node, error) {
	key, err := bip32.B58Deserialize(s)
	if err != nil {
		return nil, err
	}
	return &bip32Node{key: key}, nil
}

func (n *bip32Node) Derive(index uint32) (Node, error) {
	child, err := n.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("failed to derive child %d: %w", index, err)
	}
	return &bip32Node{key: child}, nil
}

func (n *bip32Node) PublicKey() []byte {
	if n.key.IsPrivate {
		return n.key.PublicKey().Key
	}
	return n.key.Key
}

func (n *bip32Node) Neuter() (Node, error) {
	if !n.key.IsPrivate {
		return n, nil
	}
	return &bip32Node{key: n.key.PublicKey()}, nil
}

func (n *bip32Node) IsPrivate() bool { return n.key.IsPrivate }

func (n *bip32Node) String() string { return n.key.B58Serialize() }
