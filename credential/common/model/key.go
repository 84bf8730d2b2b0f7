package model

import (
	"crypto"
	"strings"
)

// PublicKey is decoded public key material. Key holds an *ecdsa.PublicKey
// (P-256, P-384, P-521 or secp256k1) or an ed25519.PublicKey.
type PublicKey struct {
	ID   string
	Type string
	Key  crypto.PublicKey
}

// VerificationMethod is a resolved verification method.
type VerificationMethod struct {
	ID         string
	Type       string
	Controller string
	PublicKey  *PublicKey

	// External is true when the method was obtained through a resolver
	// rather than from key material embedded in the proof.
	External bool
}

// ControllerDID returns the controller, or the method id without its
// fragment when no controller is set.
func (m *VerificationMethod) ControllerDID() string {
	if m.Controller != "" {
		return m.Controller
	}
	did, _, _ := strings.Cut(m.ID, "#")
	return did
}
