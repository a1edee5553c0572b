package address

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil/base58"

	// RIPEMD160 is required by the Bitcoin address format (Hash160).
	//nolint:gosec,staticcheck // G507,SA1019: RIPEMD160 required by Bitcoin protocol
	"golang.org/x/crypto/ripemd160"
)

// Hash160 computes RIPEMD160(SHA256(data)).
func Hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

// Base58Check encodes version || payload with a 4-byte double-SHA256 checksum.
func Base58Check(version byte, payload []byte) string {
	return base58.CheckEncode(payload, version)
}
