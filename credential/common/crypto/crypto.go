package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"math/big"
)

// ErrSignatureMismatch is returned when a signature does not verify against
// the given key.
var ErrSignatureMismatch = errors.New("signature verification failed")

// Verify checks signature over message with the hash that belongs to the key:
// SHA-256 for secp256k1 and P-256, SHA-384 for P-384, SHA-512 for P-521.
// Ed25519 signs the message itself.
func Verify(key crypto.PublicKey, message, signature []byte) error {
	switch k := key.(type) {
	case *ecdsa.PublicKey:
		if IsSecp256k1(k.Curve) {
			digest := sha256.Sum256(message)
			return VerifySecp256k1(k, digest[:], signature)
		}
		h := HashForCurve(k.Curve)
		h.Write(message)
		return VerifyECDSA(k, h.Sum(nil), signature)
	case ed25519.PublicKey:
		if len(k) != ed25519.PublicKeySize {
			return fmt.Errorf("invalid ed25519 public key length: %d", len(k))
		}
		if !ed25519.Verify(k, message, signature) {
			return ErrSignatureMismatch
		}
		return nil
	}
	return fmt.Errorf("unsupported public key type %T", key)
}

// HashForCurve returns a new hash matching the curve size.
func HashForCurve(curve elliptic.Curve) hash.Hash {
	switch curve.Params().BitSize {
	case 384:
		return sha512.New384()
	case 521:
		return sha512.New()
	}
	return sha256.New()
}

// VerifyECDSA verifies a fixed size r||s signature over digest.
func VerifyECDSA(pub *ecdsa.PublicKey, digest, signature []byte) error {
	size := (pub.Curve.Params().BitSize + 7) / 8
	if len(signature) != 2*size {
		return fmt.Errorf("invalid signature length: got %d, want %d bytes", len(signature), 2*size)
	}

	r := new(big.Int).SetBytes(signature[:size])
	s := new(big.Int).SetBytes(signature[size:])
	if !ecdsa.Verify(pub, digest, r, s) {
		return ErrSignatureMismatch
	}
	return nil
}
