package jwt

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	gojwt "github.com/golang-jwt/jwt/v5"

	vmcrypto "github.com/pilacorp/go-credential-verifier/credential/common/crypto"
)

func init() {
	gojwt.RegisterSigningMethod(ES256K.Alg(), func() gojwt.SigningMethod {
		return ES256K
	})
}

// SigningMethodES256K implements ES256K signing
type SigningMethodES256K struct{}

// Alg returns the algorithm name
func (m *SigningMethodES256K) Alg() string {
	return "ES256K"
}

// Sign signs a string with a secp256k1 private key, given either as an
// *ecdsa.PrivateKey or as a hex string.
func (m *SigningMethodES256K) Sign(signingString string, key interface{}) ([]byte, error) {
	var privKey *ecdsa.PrivateKey
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		privKey = k
	case string:
		privKeyBytes, err := hex.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		privKey, err = crypto.ToECDSA(privKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
	default:
		return nil, gojwt.ErrInvalidKeyType
	}

	hash := sha256.Sum256([]byte(signingString))
	sig, err := crypto.Sign(hash[:], privKey)
	if err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}

	return sig[:64], nil // Return R and S, excluding recovery ID
}

// Verify verifies a 64 byte R || S signature with a secp256k1 public key.
func (m *SigningMethodES256K) Verify(signingString string, signature []byte, key interface{}) error {
	publicKey, ok := key.(*ecdsa.PublicKey)
	if !ok || !vmcrypto.IsSecp256k1(publicKey.Curve) {
		return gojwt.ErrInvalidKeyType
	}

	if len(signature) != 64 {
		return fmt.Errorf("invalid signature length")
	}

	hash := sha256.Sum256([]byte(signingString))
	return vmcrypto.VerifySecp256k1(publicKey, hash[:], signature)
}

// ES256K is the ES256K signing method instance
var ES256K = &SigningMethodES256K{}
