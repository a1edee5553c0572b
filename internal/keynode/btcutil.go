package keynode

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// btcutilNode adapts github.com/btcsuite/btcd/btcutil/hdkeychain keys.
type btcutilNode struct {
	key    *hdkeychain.ExtendedKey
	pubKey []byte
}

// NewBtcutilMaster creates a master node from seed with mainnet version bytes.
func NewBtcutilMaster(seed []byte) (Node, error) {
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	return newBtcutilNode(key)
}

// ParseBtcutil decodes a base58 extended key.
func ParseBtcutil(s string) (Node, error) {
	key, err := hdkeychain.NewKeyFromString(s)
	if err != nil {
		return nil, err
	}
	return newBtcutilNode(key)
}

func newBtcutilNode(key *hdkeychain.ExtendedKey) (*btcutilNode, error) {
	pub, err := key.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	return &btcutilNode{key: key, pubKey: pub.SerializeCompressed()}, nil
}

func (n *btcutilNode) Derive(index uint32) (Node, error) {
	child, err := n.key.Derive(index)
	if err != nil {
		return nil, fmt.Errorf("failed to derive child %d: %w", index, err)
	}
	return newBtcutilNode(child)
}

func (n *btcutilNode) PublicKey() []byte { return n.pubKey }

func (n *btcutilNode) Neuter() (Node, error) {
	pub, err := n.key.Neuter()
	if err != nil {
		return nil, err
	}
	return &btcutilNode{key: pub, pubKey: n.pubKey}, nil
}

func (n *btcutilNode) IsPrivate() bool { return n.key.IsPrivate() }

func (n *btcutilNode) String() string { return n.key.String() }
