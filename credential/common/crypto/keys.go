package crypto

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	jose "github.com/go-jose/go-jose/v3"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"

	"github.com/pilacorp/go-credential-verifier/credential/common/model"
)

// Multicodec varint prefixes of the supported public key types.
var (
	multicodecEd25519   = []byte{0xed, 0x01}
	multicodecSecp256k1 = []byte{0xe7, 0x01}
	multicodecP256      = []byte{0x80, 0x24}
	multicodecP384      = []byte{0x81, 0x24}
)

// ErrNoKeyMaterial is returned when a verification method carries no
// supported public key encoding.
var ErrNoKeyMaterial = errors.New("verification method has no public key material")

// PublicKeyFromEntry decodes the key material of a verification method entry.
func PublicKeyFromEntry(entry *model.VerificationMethodEntry) (*model.PublicKey, error) {
	var (
		key crypto.PublicKey
		err error
	)

	switch {
	case len(entry.PublicKeyJwk) > 0:
		key, err = ParsePublicKeyJWK(entry.PublicKeyJwk)
	case entry.PublicKeyMultibase != "":
		key, err = ParsePublicKeyMultibase(entry.PublicKeyMultibase)
	case entry.PublicKeyBase58 != "":
		key, err = ParsePublicKeyBase58(entry.PublicKeyBase58, entry.Type)
	case entry.PublicKeyHex != "":
		key, err = ParsePublicKeyHex(entry.PublicKeyHex)
	default:
		return nil, ErrNoKeyMaterial
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode key of %q: %w", entry.ID, err)
	}

	return &model.PublicKey{ID: entry.ID, Type: entry.Type, Key: key}, nil
}

// ParsePublicKeyJWK parses a public JWK. EC keys on P-256, P-384, P-521 and
// secp256k1 and OKP Ed25519 keys are supported.
func ParsePublicKeyJWK(raw []byte) (crypto.PublicKey, error) {
	var probe struct {
		Kty string `json:"kty"`
		Crv string `json:"crv"`
		X   string `json:"x"`
		Y   string `json:"y"`
		D   string `json:"d"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JWK: %w", err)
	}
	if probe.D != "" {
		return nil, errors.New("JWK contains private key material")
	}

	if probe.Kty == "EC" && probe.Crv == "secp256k1" {
		return parseSecp256k1JWK(probe.X, probe.Y)
	}

	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("failed to parse JWK: %w", err)
	}

	switch k := jwk.Key.(type) {
	case *ecdsa.PublicKey:
		return k, nil
	case ed25519.PublicKey:
		return k, nil
	}
	return nil, fmt.Errorf("unsupported JWK key type %T", jwk.Key)
}

func parseSecp256k1JWK(x, y string) (*ecdsa.PublicKey, error) {
	xb, err := base64.RawURLEncoding.DecodeString(x)
	if err != nil {
		return nil, fmt.Errorf("failed to decode JWK x: %w", err)
	}
	yb, err := base64.RawURLEncoding.DecodeString(y)
	if err != nil {
		return nil, fmt.Errorf("failed to decode JWK y: %w", err)
	}
	if len(xb) != 32 || len(yb) != 32 {
		return nil, errors.New("invalid secp256k1 JWK coordinate length")
	}

	serialized := append([]byte{0x04}, append(xb, yb...)...)
	pub, err := secp256k1.ParsePubKey(serialized)
	if err != nil {
		return nil, fmt.Errorf("failed to parse secp256k1 JWK: %w", err)
	}
	return pub.ToECDSA(), nil
}

// ParsePublicKeyMultibase parses a multibase encoded, multicodec prefixed
// public key as used by publicKeyMultibase and did:key.
func ParsePublicKeyMultibase(value string) (crypto.PublicKey, error) {
	_, data, err := multibase.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode multibase key: %w", err)
	}

	switch {
	case bytes.HasPrefix(data, multicodecEd25519):
		raw := data[len(multicodecEd25519):]
		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("invalid ed25519 key length: %d", len(raw))
		}
		return ed25519.PublicKey(raw), nil
	case bytes.HasPrefix(data, multicodecSecp256k1):
		return parseSecp256k1Bytes(data[len(multicodecSecp256k1):])
	case bytes.HasPrefix(data, multicodecP256):
		return unmarshalCompressed(elliptic.P256(), data[len(multicodecP256):])
	case bytes.HasPrefix(data, multicodecP384):
		return unmarshalCompressed(elliptic.P384(), data[len(multicodecP384):])
	}
	return nil, errors.New("unsupported multicodec key type")
}

func unmarshalCompressed(curve elliptic.Curve, data []byte) (*ecdsa.PublicKey, error) {
	x, y := elliptic.UnmarshalCompressed(curve, data)
	if x == nil {
		return nil, fmt.Errorf("invalid compressed %s key", curve.Params().Name)
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// ParsePublicKeyBase58 parses a base58 key. The method type picks the
// algorithm; without a known type a 32 byte key is taken as Ed25519.
func ParsePublicKeyBase58(value, methodType string) (crypto.PublicKey, error) {
	data, err := base58.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base58 key: %w", err)
	}

	switch methodType {
	case "EcdsaSecp256k1VerificationKey2019":
		return parseSecp256k1Bytes(data)
	}
	if len(data) == ed25519.PublicKeySize {
		return ed25519.PublicKey(data), nil
	}
	return parseSecp256k1Bytes(data)
}

// EncodeMultibase encodes a public key as a base58btc multibase string with
// its multicodec prefix.
func EncodeMultibase(key crypto.PublicKey) (string, error) {
	var data []byte
	switch k := key.(type) {
	case ed25519.PublicKey:
		data = append(append([]byte{}, multicodecEd25519...), k...)
	case *ecdsa.PublicKey:
		switch {
		case IsSecp256k1(k.Curve):
			data = append(append([]byte{}, multicodecSecp256k1...), compress(k)...)
		case k.Curve.Params().BitSize == 256:
			data = append(append([]byte{}, multicodecP256...), elliptic.MarshalCompressed(elliptic.P256(), k.X, k.Y)...)
		case k.Curve.Params().BitSize == 384:
			data = append(append([]byte{}, multicodecP384...), elliptic.MarshalCompressed(elliptic.P384(), k.X, k.Y)...)
		default:
			return "", fmt.Errorf("unsupported curve %s", k.Curve.Params().Name)
		}
	default:
		return "", fmt.Errorf("unsupported public key type %T", key)
	}
	return multibase.Encode(multibase.Base58BTC, data)
}

func compress(pub *ecdsa.PublicKey) []byte {
	out := make([]byte, 33)
	out[0] = 0x02 + byte(pub.Y.Bit(0))
	pub.X.FillBytes(out[1:])
	return out
}
