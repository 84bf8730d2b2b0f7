// Package testutil builds signed fixtures for verifier tests.
package testutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/multiformats/go-multibase"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-credential-verifier/credential/common/dto"
	"github.com/pilacorp/go-credential-verifier/credential/common/jwt"
	"github.com/pilacorp/go-credential-verifier/credential/common/suite"
)

// VocabContext is an inline JSON-LD context that maps every term, so RDF
// canonicalization never drops data.
var VocabContext = map[string]interface{}{
	"@vocab": "https://example.org/vocab#",
	"id":     "@id",
	"type":   "@type",
}

// Key is a key pair with the JWS algorithm it signs with.
type Key struct {
	Alg     string
	Private crypto.Signer
	Public  crypto.PublicKey
}

// NewSecp256k1 generates an ES256K key.
func NewSecp256k1(t testing.TB) *Key {
	t.Helper()
	k, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return &Key{Alg: "ES256K", Private: k, Public: &k.PublicKey}
}

// NewP256 generates an ES256 key.
func NewP256(t testing.TB) *Key {
	t.Helper()
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return &Key{Alg: "ES256", Private: k, Public: &k.PublicKey}
}

// NewEd25519 generates an EdDSA key.
func NewEd25519(t testing.TB) *Key {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &Key{Alg: "EdDSA", Private: priv, Public: pub}
}

func (k *Key) method() gojwt.SigningMethod {
	if k.Alg == "ES256K" {
		return jwt.ES256K
	}
	return gojwt.GetSigningMethod(k.Alg)
}

// SignJWT signs claims as a compact JWT with the given kid.
func (k *Key) SignJWT(t testing.TB, kid string, claims gojwt.MapClaims) string {
	t.Helper()
	tok := gojwt.NewWithClaims(k.method(), claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(k.Private)
	require.NoError(t, err)
	return s
}

// SignRaw signs message the way proofValue signatures are checked: the
// curve hash for ECDSA keys, the message itself for Ed25519.
func (k *Key) SignRaw(t testing.TB, message []byte) []byte {
	t.Helper()
	switch priv := k.Private.(type) {
	case ed25519.PrivateKey:
		return ed25519.Sign(priv, message)
	case *ecdsa.PrivateKey:
		if k.Alg == "ES256K" {
			digest := sha256.Sum256(message)
			sig, err := ethcrypto.Sign(digest[:], priv)
			require.NoError(t, err)
			return sig[:64]
		}
		digest := sha256.Sum256(message)
		r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
		require.NoError(t, err)
		return fixedRS(r, s, 32)
	}
	t.Fatalf("unsupported key type %T", k.Private)
	return nil
}

func fixedRS(r, s *big.Int, size int) []byte {
	out := make([]byte, 2*size)
	r.FillBytes(out[:size])
	s.FillBytes(out[size:])
	return out
}

// DetachedJWS signs payload as an unencoded detached JWS.
func (k *Key) DetachedJWS(t testing.TB, payload []byte) string {
	t.Helper()
	header, err := json.Marshal(map[string]interface{}{"alg": k.Alg, "b64": false, "crit": []string{"b64"}})
	require.NoError(t, err)
	encodedHeader := base64.RawURLEncoding.EncodeToString(header)

	sig, err := k.method().Sign(suite.SigningInput(encodedHeader, false, payload), k.Private)
	require.NoError(t, err)
	return encodedHeader + ".." + base64.RawURLEncoding.EncodeToString(sig)
}

// Format selects how SignDocument encodes the signature.
type Format int

const (
	JWS Format = iota
	ProofValueMultibase
	ProofValueHex
)

// SignDocument attaches a proof built from proof (without signature fields)
// to a copy of doc and returns it.
func (k *Key) SignDocument(t testing.TB, s suite.SignatureSuite, doc, proof map[string]interface{}, format Format) map[string]interface{} {
	t.Helper()
	doc = roundTrip(t, doc)
	proof = roundTrip(t, proof)

	data, err := s.CreateVerifyData(doc, suite.ProofOptions(proof, doc["@context"]))
	require.NoError(t, err)

	switch format {
	case JWS:
		proof["jws"] = k.DetachedJWS(t, data)
	case ProofValueMultibase:
		v, err := multibase.Encode(multibase.Base58BTC, k.SignRaw(t, data))
		require.NoError(t, err)
		proof["proofValue"] = v
	case ProofValueHex:
		proof["proofValue"] = hex.EncodeToString(k.SignRaw(t, data))
	}

	doc["proof"] = proof
	return doc
}

// Proof returns the raw proof map of a proof description.
func Proof(p dto.Proof) map[string]interface{} {
	raw, _ := json.Marshal(p)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return out
}

// JSON marshals v.
func JSON(t testing.TB, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func roundTrip(t testing.TB, m map[string]interface{}) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(JSON(t, m)), &out))
	return out
}
