package suite

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/multiformats/go-multibase"

	"github.com/pilacorp/go-credential-verifier/credential/common/dto"
	"github.com/pilacorp/go-credential-verifier/credential/common/model"
	"github.com/pilacorp/go-credential-verifier/credential/common/processor"

	vmcrypto "github.com/pilacorp/go-credential-verifier/credential/common/crypto"
)

// ErrMissingSignature is returned for a proof with neither proofValue nor jws.
var ErrMissingSignature = errors.New("proof has neither 'proofValue' nor 'jws'")

// ProofFormat is a bit set of the signature encodings a suite accepts.
type ProofFormat int

const (
	// FormatProofValue is a hex or multibase encoded raw signature.
	FormatProofValue ProofFormat = 1 << iota
	// FormatJWS is a detached JWS.
	FormatJWS
)

// KeyCheck rejects keys a suite cannot use.
type KeyCheck func(key crypto.PublicKey) error

// SuiteOpt configures a LinkedDataSuite.
type SuiteOpt func(*LinkedDataSuite)

// WithProofFormats sets the accepted signature encodings.
func WithProofFormats(formats ProofFormat) SuiteOpt {
	return func(s *LinkedDataSuite) {
		s.formats = formats
	}
}

// WithKeyCheck restricts the key types a suite accepts.
func WithKeyCheck(check KeyCheck) SuiteOpt {
	return func(s *LinkedDataSuite) {
		s.keyCheck = check
	}
}

// LinkedDataSuite hashes the canonical proof options and document with
// SHA-256 and verifies a proofValue or detached JWS over the concatenation.
type LinkedDataSuite struct {
	name          string
	canonicalizer processor.Canonicalizer
	formats       ProofFormat
	keyCheck      KeyCheck
}

// NewLinkedDataSuite creates a suite. By default both signature encodings
// and every supported key type are accepted.
func NewLinkedDataSuite(name string, canonicalizer processor.Canonicalizer, opts ...SuiteOpt) *LinkedDataSuite {
	s := &LinkedDataSuite{
		name:          name,
		canonicalizer: canonicalizer,
		formats:       FormatProofValue | FormatJWS,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the suite name.
func (s *LinkedDataSuite) Name() string {
	return s.name
}

// CreateVerifyData implements SignatureSuite.
func (s *LinkedDataSuite) CreateVerifyData(document, proofOptions map[string]interface{}) ([]byte, error) {
	canonOptions, err := s.canonicalizer.Canonicalize(proofOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize proof options: %w", err)
	}
	canonDocument, err := s.canonicalizer.Canonicalize(document)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize document: %w", err)
	}

	optionsHash := sha256.Sum256(canonOptions)
	documentHash := sha256.Sum256(canonDocument)
	return append(optionsHash[:], documentHash[:]...), nil
}

// Verify implements SignatureSuite.
func (s *LinkedDataSuite) Verify(verifyData []byte, proof *dto.Proof, key *model.PublicKey) error {
	if proof == nil {
		return errors.New("proof is nil")
	}
	if key == nil || key.Key == nil {
		return errors.New("public key is nil")
	}
	if s.keyCheck != nil {
		if err := s.keyCheck(key.Key); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	switch {
	case proof.JWS != "":
		if s.formats&FormatJWS == 0 {
			return fmt.Errorf("%s proofs do not carry a 'jws'", s.name)
		}
		return VerifyDetachedJWS(proof.JWS, verifyData, key.Key)
	case proof.ProofValue != "":
		if s.formats&FormatProofValue == 0 {
			return fmt.Errorf("%s proofs do not carry a 'proofValue'", s.name)
		}
		signature, err := DecodeProofValue(proof.ProofValue)
		if err != nil {
			return err
		}
		return vmcrypto.Verify(key.Key, verifyData, signature)
	}
	return ErrMissingSignature
}

// DecodeProofValue decodes a hex or multibase proofValue.
func DecodeProofValue(value string) ([]byte, error) {
	if len(value)%2 == 0 {
		if sig, err := hex.DecodeString(value); err == nil {
			return sig, nil
		}
	}
	_, sig, err := multibase.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode proofValue: %w", err)
	}
	return sig, nil
}

// RequireEd25519 accepts Ed25519 keys only.
func RequireEd25519(key crypto.PublicKey) error {
	if _, ok := key.(ed25519.PublicKey); !ok {
		return fmt.Errorf("expected an Ed25519 key, got %T", key)
	}
	return nil
}

// RequireECDSA accepts ECDSA keys on any supported curve.
func RequireECDSA(key crypto.PublicKey) error {
	if _, ok := key.(*ecdsa.PublicKey); !ok {
		return fmt.Errorf("expected an ECDSA key, got %T", key)
	}
	return nil
}

// RequireSecp256k1 accepts secp256k1 ECDSA keys only.
func RequireSecp256k1(key crypto.PublicKey) error {
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok || !vmcrypto.IsSecp256k1(pub.Curve) {
		return fmt.Errorf("expected a secp256k1 key, got %T", key)
	}
	return nil
}

// ProofOptions returns the proof without its signature fields, carrying the
// document's @context when there is one.
func ProofOptions(proof map[string]interface{}, documentContext interface{}) map[string]interface{} {
	options := make(map[string]interface{}, len(proof)+1)
	for k, v := range proof {
		switch k {
		case "proofValue", "jws", "signatureValue":
			continue
		}
		options[k] = v
	}
	if documentContext != nil {
		options["@context"] = documentContext
	}
	return options
}
