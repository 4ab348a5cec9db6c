package cryptography

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/modulrcloud/counter-relay/constants"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"
)

// Accepted raw secret lengths.
const (
	SecretLenPrefixed = 1 + ed25519.SeedSize
	SecretLenBare64   = ed25519.PrivateKeySize
	SecretLenBare32   = ed25519.SeedSize
)

var ErrNoIdentity = errors.New("no signing identity configured: set SUI_MNEMONIC or SUI_SECRET_KEY")

// Transaction intent: scope TransactionData, version V0, app Sui.
var transactionIntent = []byte{0, 0, 0}

// Identity is the relay's signing keypair. It is immutable once built.
type Identity struct {
	prv     ed25519.PrivateKey
	pub     ed25519.PublicKey
	address string
	source  string
}

// ResolveIdentity picks the mnemonic when present, otherwise the raw secret.
func ResolveIdentity(mnemonic, secret, derivationPath string) (*Identity, error) {

	switch {
	case mnemonic != "":
		return NewIdentityFromMnemonic(mnemonic, derivationPath)
	case secret != "":
		return NewIdentityFromSecret(secret)
	default:
		return nil, ErrNoIdentity
	}
}

// NewIdentityFromMnemonic derives the ed25519 key for a bip39 phrase along a SLIP-0010 path.
func NewIdentityFromMnemonic(mnemonic, derivationPath string) (*Identity, error) {

	mnemonic = strings.Join(strings.Fields(mnemonic), " ")

	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic phrase")
	}

	if derivationPath == "" {
		derivationPath = constants.DefaultDerivationPath
	}

	path, err := ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, err
	}

	// Seed has 64 bytes, no bip39 password
	seed := bip39.NewSeed(mnemonic, "")

	key, err := DeriveEd25519Key(seed, path)
	if err != nil {
		return nil, fmt.Errorf("derive key along %s: %w", derivationPath, err)
	}

	return newIdentity(ed25519.NewKeyFromSeed(key), "mnemonic"), nil
}

// NewIdentityFromSecret accepts a base64 secret of 33 (flag-prefixed), 64 or 32 bytes,
// or a bech32 "suiprivkey1..." string.
func NewIdentityFromSecret(secret string) (*Identity, error) {

	secret = strings.TrimSpace(secret)

	var raw []byte

	if strings.HasPrefix(strings.ToLower(secret), constants.SuiPrivateKeyPrefix+"1") {

		decoded, err := decodeSuiPrivateKey(secret)
		if err != nil {
			return nil, err
		}
		raw = decoded

	} else {

		decoded, err := base64.StdEncoding.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("secret key is not valid base64: %w", err)
		}
		raw = decoded

	}

	switch len(raw) {

	case SecretLenPrefixed:
		if raw[0] != constants.Ed25519SchemeFlag {
			return nil, fmt.Errorf("unsupported key scheme flag 0x%02x, only ed25519 is supported", raw[0])
		}
		return newIdentity(ed25519.NewKeyFromSeed(raw[1:]), "secret:prefixed"), nil

	case SecretLenBare64:
		prv := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !bytes.Equal(prv[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
			return nil, errors.New("64-byte secret key has a public half that does not match its seed")
		}
		return newIdentity(prv, "secret:bare64"), nil

	case SecretLenBare32:
		return newIdentity(ed25519.NewKeyFromSeed(raw), "secret:bare32"), nil

	default:
		return nil, fmt.Errorf("secret key must decode to %d, %d or %d bytes, got %d",
			SecretLenPrefixed, SecretLenBare64, SecretLenBare32, len(raw))
	}
}

func decodeSuiPrivateKey(encoded string) ([]byte, error) {

	hrp, data, err := bech32.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", constants.SuiPrivateKeyPrefix, err)
	}

	if hrp != constants.SuiPrivateKeyPrefix {
		return nil, fmt.Errorf("unexpected bech32 prefix %q", hrp)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", constants.SuiPrivateKeyPrefix, err)
	}

	if len(raw) != SecretLenPrefixed {
		return nil, fmt.Errorf("%s payload must be %d bytes, got %d", constants.SuiPrivateKeyPrefix, SecretLenPrefixed, len(raw))
	}

	return raw, nil
}

func newIdentity(prv ed25519.PrivateKey, source string) *Identity {
	pub, _ := prv.Public().(ed25519.PublicKey)
	return &Identity{prv: prv, pub: pub, address: SuiAddress(pub), source: source}
}

// Address is the 0x-prefixed Sui address of the identity.
func (id *Identity) Address() string { return id.address }

// Source tells which configuration form produced the identity (never the secret itself).
func (id *Identity) Source() string { return id.source }

func (id *Identity) PublicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), id.pub...)
}

// Sign produces a serialized Sui signature over transaction bytes:
// base64(flag || ed25519(blake2b256(intent || txBytes)) || pubkey).
func (id *Identity) Sign(txBytes []byte) (string, error) {

	digest := intentDigest(txBytes)

	sig := ed25519.Sign(id.prv, digest[:])

	serialized := make([]byte, 0, 1+ed25519.SignatureSize+ed25519.PublicKeySize)
	serialized = append(serialized, constants.Ed25519SchemeFlag)
	serialized = append(serialized, sig...)
	serialized = append(serialized, id.pub...)

	return base64.StdEncoding.EncodeToString(serialized), nil
}

// VerifySignature checks a serialized Sui ed25519 signature against transaction bytes.
func VerifySignature(txBytes []byte, base64Signature string) bool {

	serialized, err := base64.StdEncoding.DecodeString(base64Signature)
	if err != nil || len(serialized) != 1+ed25519.SignatureSize+ed25519.PublicKeySize {
		return false
	}

	if serialized[0] != constants.Ed25519SchemeFlag {
		return false
	}

	sig := serialized[1 : 1+ed25519.SignatureSize]
	pub := ed25519.PublicKey(serialized[1+ed25519.SignatureSize:])

	digest := intentDigest(txBytes)

	return ed25519.Verify(pub, digest[:], sig)
}

// SuiAddress is 0x + hex(blake2b256(flag || pubkey)).
func SuiAddress(pub ed25519.PublicKey) string {
	sum := blake2b.Sum256(append([]byte{constants.Ed25519SchemeFlag}, pub...))
	return "0x" + hex.EncodeToString(sum[:])
}

func intentDigest(txBytes []byte) [32]byte {
	msg := make([]byte, 0, len(transactionIntent)+len(txBytes))
	msg = append(msg, transactionIntent...)
	msg = append(msg, txBytes...)
	return blake2b.Sum256(msg)
}
