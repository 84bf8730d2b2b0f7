package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
)

// IsSecp256k1 reports whether curve is secp256k1, whichever implementation
// produced it.
func IsSecp256k1(curve elliptic.Curve) bool {
	if curve == nil {
		return false
	}
	want := secp256k1.S256().Params()
	got := curve.Params()
	return got.P.Cmp(want.P) == 0 && got.N.Cmp(want.N) == 0
}

// VerifySecp256k1 verifies a secp256k1 signature over a 32 byte digest.
// A 64 byte signature is [R || S]; a 65 byte one also carries the recovery
// id, in which case the recovered key must equal pub.
func VerifySecp256k1(pub *ecdsa.PublicKey, digest, signature []byte) error {
	pubBytes := SerializeUncompressed(pub)

	switch len(signature) {
	case 65:
		recovered, err := crypto.Ecrecover(digest, signature)
		if err != nil {
			return fmt.Errorf("failed to recover public key: %w", err)
		}
		if !bytes.Equal(recovered, pubBytes) {
			return ErrSignatureMismatch
		}
		return nil
	case 64:
		if !crypto.VerifySignature(pubBytes, digest, signature) {
			return ErrSignatureMismatch
		}
		return nil
	}
	return fmt.Errorf("invalid signature length: got %d, want 64 or 65 bytes", len(signature))
}

// SerializeUncompressed encodes a secp256k1 key as 0x04 || X || Y.
func SerializeUncompressed(pub *ecdsa.PublicKey) []byte {
	out := make([]byte, 65)
	out[0] = 0x04
	pub.X.FillBytes(out[1:33])
	pub.Y.FillBytes(out[33:])
	return out
}

// ParsePublicKeyHex parses a hex encoded secp256k1 public key, compressed
// (33 bytes) or uncompressed (65 bytes), with or without a 0x prefix.
func ParsePublicKeyHex(publicKeyHex string) (*ecdsa.PublicKey, error) {
	publicKeyBytes, err := hex.DecodeString(strings.TrimPrefix(publicKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key hex: %w", err)
	}
	return parseSecp256k1Bytes(publicKeyBytes)
}

func parseSecp256k1Bytes(publicKeyBytes []byte) (*ecdsa.PublicKey, error) {
	switch {
	case len(publicKeyBytes) == 33 && (publicKeyBytes[0] == 0x02 || publicKeyBytes[0] == 0x03):
		parsed, err := btcec.ParsePubKey(publicKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse compressed public key: %w", err)
		}
		return parsed.ToECDSA(), nil
	case len(publicKeyBytes) == 65 && publicKeyBytes[0] == 0x04:
		parsed, err := crypto.UnmarshalPubkey(publicKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal public key: %w", err)
		}
		return parsed, nil
	}
	return nil, fmt.Errorf("unsupported secp256k1 public key format (%d bytes)", len(publicKeyBytes))
}
