package cryptography

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const HardenedOffset uint32 = 0x80000000

var ed25519Curve = []byte("ed25519 seed")

// ParseDerivationPath parses "m/44'/784'/0'/0'/0'" into hardened indexes.
// ed25519 only supports hardened derivation, so every segment must carry ' or h.
func ParseDerivationPath(path string) ([]uint32, error) {

	parts := strings.Split(strings.TrimSpace(path), "/")

	if len(parts) < 2 || parts[0] != "m" {
		return nil, fmt.Errorf("invalid derivation path %q", path)
	}

	indexes := make([]uint32, 0, len(parts)-1)

	for _, part := range parts[1:] {

		if !strings.HasSuffix(part, "'") && !strings.HasSuffix(part, "h") {
			return nil, fmt.Errorf("derivation path %q: segment %q is not hardened", path, part)
		}

		n, err := strconv.ParseUint(part[:len(part)-1], 10, 31)
		if err != nil {
			return nil, fmt.Errorf("derivation path %q: bad segment %q", path, part)
		}

		indexes = append(indexes, uint32(n)+HardenedOffset)
	}

	return indexes, nil
}

// DeriveEd25519Key runs SLIP-0010 ed25519 derivation and returns the 32-byte private seed.
func DeriveEd25519Key(seed []byte, path []uint32) ([]byte, error) {

	key, chainCode := slip10Master(seed)

	for _, index := range path {

		if index < HardenedOffset {
			return nil, errors.New("ed25519 derivation supports hardened indexes only")
		}

		key, chainCode = slip10Child(key, chainCode, index)
	}

	return key, nil
}

func slip10Master(seed []byte) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, ed25519Curve)
	mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

func slip10Child(key, chainCode []byte, index uint32) ([]byte, []byte) {

	data := make([]byte, 0, 1+32+4)
	data = append(data, 0x00)
	data = append(data, key...)
	data = binary.BigEndian.AppendUint32(data, index)

	mac := hmac.New(sha512.New, chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)

	return sum[:32], sum[32:]
}
