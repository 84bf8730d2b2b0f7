package suite

import (
	"github.com/piprate/json-gold/ld"

	"github.com/pilacorp/go-credential-verifier/credential/common/processor"
)

// Proof types and cryptosuite names.
const (
	TypeEcdsaSecp256k1Signature2019 = "EcdsaSecp256k1Signature2019"
	TypeJsonWebSignature2020        = "JsonWebSignature2020"
	TypeEd25519Signature2020        = "Ed25519Signature2020"
	TypeDataIntegrityProof          = "DataIntegrityProof"

	CryptosuiteEcdsaRdfc2019 = "ecdsa-rdfc-2019"
	CryptosuiteEddsaRdfc2022 = "eddsa-rdfc-2022"
	CryptosuiteEcdsaJcs2019  = "ecdsa-jcs-2019"
	CryptosuiteEddsaJcs2022  = "eddsa-jcs-2022"
)

// EcdsaSecp256k1Signature2019 returns the suite for secp256k1 proofs, given
// as a hex proofValue or a detached JWS.
func EcdsaSecp256k1Signature2019(c processor.Canonicalizer) *LinkedDataSuite {
	return NewLinkedDataSuite(TypeEcdsaSecp256k1Signature2019, c, WithKeyCheck(RequireSecp256k1))
}

// JsonWebSignature2020 returns the suite for detached JWS proofs. Any key type
// with a matching JWS algorithm is accepted.
func JsonWebSignature2020(c processor.Canonicalizer) *LinkedDataSuite {
	return NewLinkedDataSuite(TypeJsonWebSignature2020, c, WithProofFormats(FormatJWS))
}

// Ed25519Signature2020 returns the suite for Ed25519 proofs with a multibase
// proofValue.
func Ed25519Signature2020(c processor.Canonicalizer) *LinkedDataSuite {
	return NewLinkedDataSuite(TypeEd25519Signature2020, c,
		WithProofFormats(FormatProofValue), WithKeyCheck(RequireEd25519))
}

// DataIntegrity returns the suite for a DataIntegrityProof cryptosuite.
// ecdsa-* suites take ECDSA keys and eddsa-* suites Ed25519 keys.
func DataIntegrity(cryptosuite string, c processor.Canonicalizer) *LinkedDataSuite {
	check := RequireECDSA
	if cryptosuite == CryptosuiteEddsaRdfc2022 || cryptosuite == CryptosuiteEddsaJcs2022 {
		check = RequireEd25519
	}
	return NewLinkedDataSuite(cryptosuite, c, WithProofFormats(FormatProofValue), WithKeyCheck(check))
}

// DefaultOpt adjusts the default registry.
type DefaultOpt func(*defaultConfig)

type defaultConfig struct {
	jws2020JCS bool
}

// WithJWS2020JCS canonicalizes JsonWebSignature2020 documents with JCS
// instead of URDNA2015.
func WithJWS2020JCS() DefaultOpt {
	return func(c *defaultConfig) {
		c.jws2020JCS = true
	}
}

// NewDefaultRegistry registers every supported suite. RDF canonicalization
// resolves contexts through loader. The registry is not frozen.
func NewDefaultRegistry(loader ld.DocumentLoader, opts ...DefaultOpt) *Registry {
	var cfg defaultConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	rdfc := processor.NewRDFC(processor.WithDocumentLoader(loader))
	jcs := processor.NewJCS()

	var jws2020 processor.Canonicalizer = rdfc
	if cfg.jws2020JCS {
		jws2020 = jcs
	}

	r := NewRegistry()
	_ = r.Register(TypeEcdsaSecp256k1Signature2019, EcdsaSecp256k1Signature2019(rdfc))
	_ = r.Register(TypeJsonWebSignature2020, JsonWebSignature2020(jws2020))
	_ = r.Register(TypeEd25519Signature2020, Ed25519Signature2020(rdfc))
	_ = r.Register(CryptosuiteEcdsaRdfc2019, DataIntegrity(CryptosuiteEcdsaRdfc2019, rdfc))
	_ = r.Register(CryptosuiteEddsaRdfc2022, DataIntegrity(CryptosuiteEddsaRdfc2022, rdfc))
	_ = r.Register(CryptosuiteEcdsaJcs2019, DataIntegrity(CryptosuiteEcdsaJcs2019, jcs))
	_ = r.Register(CryptosuiteEddsaJcs2022, DataIntegrity(CryptosuiteEddsaJcs2022, jcs))
	return r
}
