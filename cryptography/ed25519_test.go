package cryptography

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/btcsuite/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testSeed() []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return seed
}

func TestSlip10MasterVector(t *testing.T) {
	// SLIP-0010 test vector 1 for ed25519.
	seed, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")

	key, err := DeriveEd25519Key(seed, nil)
	require.NoError(t, err)
	assert.Equal(t, "2b4be7f19ee27bbf30c667b642d5f4aa69fd169872f8fc3059c08ebae2eb19e7", hex.EncodeToString(key))

	child, err := DeriveEd25519Key(seed, []uint32{HardenedOffset})
	require.NoError(t, err)
	assert.Equal(t, "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3", hex.EncodeToString(child))
}

func TestDeriveRejectsNonHardenedIndex(t *testing.T) {
	_, err := DeriveEd25519Key([]byte("seed"), []uint32{1})
	assert.Error(t, err)
}

func TestParseDerivationPath(t *testing.T) {
	path, err := ParseDerivationPath("m/44'/784'/0'/0'/0'")
	require.NoError(t, err)
	assert.Equal(t, []uint32{44 + HardenedOffset, 784 + HardenedOffset, HardenedOffset, HardenedOffset, HardenedOffset}, path)

	_, err = ParseDerivationPath("m/44'/784'/0'/0/0")
	assert.Error(t, err)

	_, err = ParseDerivationPath("44'/784'")
	assert.Error(t, err)
}

func TestMnemonicIdentityIsDeterministic(t *testing.T) {
	a, err := NewIdentityFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	b, err := NewIdentityFromMnemonic("  "+strings.ReplaceAll(testMnemonic, " ", "   ")+"\n", "m/44'/784'/0'/0'/0'")
	require.NoError(t, err)

	assert.Equal(t, a.Address(), b.Address())
	assert.True(t, strings.HasPrefix(a.Address(), "0x"))
	assert.Len(t, a.Address(), 66)
	assert.Equal(t, "mnemonic", a.Source())

	other, err := NewIdentityFromMnemonic(testMnemonic, "m/44'/784'/1'/0'/0'")
	require.NoError(t, err)
	assert.NotEqual(t, a.Address(), other.Address())
}

func TestMnemonicIdentityRejectsGarbage(t *testing.T) {
	_, err := NewIdentityFromMnemonic("not a real mnemonic phrase", "")
	assert.Error(t, err)
}

func TestSecretFormsResolveToSameIdentity(t *testing.T) {
	seed := testSeed()
	prv := ed25519.NewKeyFromSeed(seed)

	bare32 := base64.StdEncoding.EncodeToString(seed)
	bare64 := base64.StdEncoding.EncodeToString(prv)
	prefixed := base64.StdEncoding.EncodeToString(append([]byte{0x00}, seed...))

	words, err := bech32.ConvertBits(append([]byte{0x00}, seed...), 8, 5, true)
	require.NoError(t, err)
	bech, err := bech32.Encode("suiprivkey", words)
	require.NoError(t, err)

	want := SuiAddress(prv.Public().(ed25519.PublicKey))

	for name, secret := range map[string]string{"bare32": bare32, "bare64": bare64, "prefixed": prefixed, "bech32": bech} {
		id, err := NewIdentityFromSecret(secret)
		require.NoError(t, err, name)
		assert.Equal(t, want, id.Address(), name)
	}
}

func TestSecretRejections(t *testing.T) {
	seed := testSeed()

	_, err := NewIdentityFromSecret("%%%not-base64%%%")
	assert.ErrorContains(t, err, "base64")

	_, err = NewIdentityFromSecret(base64.StdEncoding.EncodeToString(seed[:16]))
	assert.ErrorContains(t, err, "got 16")

	_, err = NewIdentityFromSecret(base64.StdEncoding.EncodeToString(append([]byte{0x01}, seed...)))
	assert.ErrorContains(t, err, "scheme flag")

	mismatched := append(append([]byte{}, seed...), make([]byte, 32)...)
	_, err = NewIdentityFromSecret(base64.StdEncoding.EncodeToString(mismatched))
	assert.ErrorContains(t, err, "public half")
}

func TestResolveIdentityPrefersMnemonic(t *testing.T) {
	fromMnemonic, err := NewIdentityFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	id, err := ResolveIdentity(testMnemonic, base64.StdEncoding.EncodeToString(testSeed()), "")
	require.NoError(t, err)
	assert.Equal(t, fromMnemonic.Address(), id.Address())

	_, err = ResolveIdentity("", "", "")
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestSignatureRoundTrip(t *testing.T) {
	id, err := NewIdentityFromSecret(base64.StdEncoding.EncodeToString(testSeed()))
	require.NoError(t, err)

	txBytes := []byte("transaction bytes")

	sig, err := id.Sign(txBytes)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sig)
	require.NoError(t, err)
	assert.Len(t, raw, 97)
	assert.Equal(t, byte(0x00), raw[0])
	assert.Equal(t, []byte(id.PublicKey()), raw[65:])

	assert.True(t, VerifySignature(txBytes, sig))
	assert.False(t, VerifySignature([]byte("other bytes"), sig))
	assert.False(t, VerifySignature(txBytes, "AAAA"))
}

func TestTransactionDigest(t *testing.T) {
	digest := TransactionDigest([]byte{1, 2, 3})
	assert.True(t, IsValidDigest(digest))
	assert.Equal(t, digest, TransactionDigest([]byte{1, 2, 3}))
	assert.NotEqual(t, digest, TransactionDigest([]byte{1, 2, 4}))

	assert.False(t, IsValidDigest(""))
	assert.False(t, IsValidDigest("0OIl"))
	assert.False(t, IsValidDigest(base58.Encode([]byte{1, 2, 3})))
}
