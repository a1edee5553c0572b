package address

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/mrz1836/hdscan/internal/keynode"
)

// ETH returns the EIP-55 checksummed Ethereum address of the node's key.
// The network parameters are ignored.
func ETH(node keynode.Node, _ *chaincfg.Params) (string, error) {
	pub, err := compressedKey(node)
	if err != nil {
		return "", err
	}
	key, err := ethcrypto.DecompressPubkey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to decompress public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*key).Hex(), nil
}

// IsValidETHAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsValidETHAddress(s string) bool {
	return len(s) == 42 && common.IsHexAddress(s)
}
