package cryptography

import (
	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

const DigestLength = 32

var transactionDataPrefix = []byte("TransactionData::")

// TransactionDigest computes the base58 digest the ledger will assign to the given transaction bytes.
func TransactionDigest(txBytes []byte) string {
	msg := make([]byte, 0, len(transactionDataPrefix)+len(txBytes))
	msg = append(msg, transactionDataPrefix...)
	msg = append(msg, txBytes...)
	sum := blake2b.Sum256(msg)
	return base58.Encode(sum[:])
}

// IsValidDigest validates that a string is a base58-encoded 32-byte digest.
func IsValidDigest(digest string) bool {
	return digest != "" && len(base58.Decode(digest)) == DigestLength
}
