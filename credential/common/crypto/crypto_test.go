package crypto

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	jose "github.com/go-jose/go-jose/v3"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-credential-verifier/credential/common/model"
)

func signNIST(t *testing.T, priv *ecdsa.PrivateKey, message []byte) []byte {
	t.Helper()
	h := HashForCurve(priv.Curve)
	h.Write(message)
	r, s, err := ecdsa.Sign(rand.Reader, priv, h.Sum(nil))
	require.NoError(t, err)

	size := (priv.Curve.Params().BitSize + 7) / 8
	sig := make([]byte, 2*size)
	r.FillBytes(sig[:size])
	s.FillBytes(sig[size:])
	return sig
}

func TestVerify(t *testing.T) {
	message := []byte("verify data")

	secpKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	digest := sha256.Sum256(message)
	secpSig, err := crypto.Sign(digest[:], secpKey)
	require.NoError(t, err)

	p256Key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	p384Key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherSecp, err := crypto.GenerateKey()
	require.NoError(t, err)

	tests := []struct {
		name      string
		key       interface{}
		signature []byte
		expectErr bool
	}{
		{name: "secp256k1 with recovery id", key: &secpKey.PublicKey, signature: secpSig},
		{name: "secp256k1 without recovery id", key: &secpKey.PublicKey, signature: secpSig[:64]},
		{name: "secp256k1 wrong key", key: &otherSecp.PublicKey, signature: secpSig[:64], expectErr: true},
		{name: "secp256k1 wrong key recovered", key: &otherSecp.PublicKey, signature: secpSig, expectErr: true},
		{name: "secp256k1 bad length", key: &secpKey.PublicKey, signature: secpSig[:10], expectErr: true},
		{name: "p256", key: &p256Key.PublicKey, signature: signNIST(t, p256Key, message)},
		{name: "p384", key: &p384Key.PublicKey, signature: signNIST(t, p384Key, message)},
		{name: "p256 signature on p384 key", key: &p384Key.PublicKey, signature: signNIST(t, p256Key, message), expectErr: true},
		{name: "ed25519", key: edPub, signature: ed25519.Sign(edPriv, message)},
		{name: "ed25519 tampered", key: edPub, signature: ed25519.Sign(edPriv, []byte("other")), expectErr: true},
		{name: "unsupported key", key: "not a key", signature: []byte{1}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.key, message, tt.signature)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsSecp256k1(t *testing.T) {
	assert.True(t, IsSecp256k1(crypto.S256()))
	assert.False(t, IsSecp256k1(elliptic.P256()))
	assert.False(t, IsSecp256k1(nil))
}

func TestParsePublicKeyHex(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	compressed := hex.EncodeToString(crypto.CompressPubkey(&key.PublicKey))
	uncompressed := "0x" + hex.EncodeToString(crypto.FromECDSAPub(&key.PublicKey))

	for _, input := range []string{compressed, uncompressed} {
		parsed, err := ParsePublicKeyHex(input)
		require.NoError(t, err)
		assert.Equal(t, 0, parsed.X.Cmp(key.PublicKey.X))
		assert.Equal(t, 0, parsed.Y.Cmp(key.PublicKey.Y))
	}

	_, err = ParsePublicKeyHex("zz")
	assert.Error(t, err)
	_, err = ParsePublicKeyHex("0102")
	assert.Error(t, err)
}

func TestParsePublicKeyJWK(t *testing.T) {
	t.Run("p256", func(t *testing.T) {
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		raw, err := json.Marshal(jose.JSONWebKey{Key: &priv.PublicKey})
		require.NoError(t, err)

		key, err := ParsePublicKeyJWK(raw)
		require.NoError(t, err)
		assert.True(t, priv.PublicKey.Equal(key))
	})

	t.Run("ed25519", func(t *testing.T) {
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		raw, err := json.Marshal(jose.JSONWebKey{Key: pub})
		require.NoError(t, err)

		key, err := ParsePublicKeyJWK(raw)
		require.NoError(t, err)
		assert.Equal(t, pub, key)
	})

	t.Run("secp256k1", func(t *testing.T) {
		priv, err := crypto.GenerateKey()
		require.NoError(t, err)
		x := make([]byte, 32)
		y := make([]byte, 32)
		priv.PublicKey.X.FillBytes(x)
		priv.PublicKey.Y.FillBytes(y)
		raw := []byte(`{"kty":"EC","crv":"secp256k1","x":"` + base64.RawURLEncoding.EncodeToString(x) +
			`","y":"` + base64.RawURLEncoding.EncodeToString(y) + `"}`)

		key, err := ParsePublicKeyJWK(raw)
		require.NoError(t, err)
		ecKey, ok := key.(*ecdsa.PublicKey)
		require.True(t, ok)
		assert.True(t, IsSecp256k1(ecKey.Curve))
		assert.Equal(t, 0, ecKey.X.Cmp(priv.PublicKey.X))
	})

	t.Run("private key is rejected", func(t *testing.T) {
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		raw, err := json.Marshal(jose.JSONWebKey{Key: priv})
		require.NoError(t, err)

		_, err = ParsePublicKeyJWK(raw)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParsePublicKeyJWK([]byte(`{"kty":"EC","crv":"P-256","x":"@@"}`))
		assert.Error(t, err)
	})
}

func TestMultibaseRoundTrip(t *testing.T) {
	secpKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	p256Key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	p384Key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	keys := map[string]interface{}{
		"secp256k1": &secpKey.PublicKey,
		"p256":      &p256Key.PublicKey,
		"p384":      &p384Key.PublicKey,
		"ed25519":   edPub,
	}

	for name, key := range keys {
		t.Run(name, func(t *testing.T) {
			encoded, err := EncodeMultibase(key)
			require.NoError(t, err)
			assert.Equal(t, byte('z'), encoded[0])

			decoded, err := ParsePublicKeyMultibase(encoded)
			require.NoError(t, err)

			switch want := key.(type) {
			case ed25519.PublicKey:
				assert.Equal(t, want, decoded)
			case *ecdsa.PublicKey:
				got, ok := decoded.(*ecdsa.PublicKey)
				require.True(t, ok)
				assert.Equal(t, 0, got.X.Cmp(want.X))
				assert.Equal(t, 0, got.Y.Cmp(want.Y))
			}
		})
	}

	_, err = ParsePublicKeyMultibase("not-multibase")
	assert.Error(t, err)
}

func TestPublicKeyFromEntry(t *testing.T) {
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	entry := &model.VerificationMethodEntry{
		ID:              "did:example:a#key-1",
		Type:            "Ed25519VerificationKey2018",
		PublicKeyBase58: base58.Encode(edPub),
	}
	key, err := PublicKeyFromEntry(entry)
	require.NoError(t, err)
	assert.Equal(t, "did:example:a#key-1", key.ID)
	assert.Equal(t, edPub, key.Key)

	_, err = PublicKeyFromEntry(&model.VerificationMethodEntry{ID: "did:example:a#key-2"})
	assert.ErrorIs(t, err, ErrNoKeyMaterial)
}
