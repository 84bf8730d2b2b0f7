package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pilacorp/go-credential-verifier/credential/common/crypto"
	"github.com/pilacorp/go-credential-verifier/credential/common/dto"
	"github.com/pilacorp/go-credential-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-credential-verifier/credential/common/model"
	"github.com/pilacorp/go-credential-verifier/credential/common/processor"
	"github.com/pilacorp/go-credential-verifier/credential/common/schema"
	"github.com/pilacorp/go-credential-verifier/credential/common/suite"
	verificationmethod "github.com/pilacorp/go-credential-verifier/credential/common/verification-method"
	"github.com/pilacorp/go-credential-verifier/credential/common/verifyerr"
	"github.com/pilacorp/go-credential-verifier/credential/vp"
)

const securityVocab = "https://w3id.org/security#"

// LinkedDataOpt configures a LinkedDataVerifier.
type LinkedDataOpt func(*LinkedDataVerifier)

// WithSchemaValidator validates credentials against their credentialSchema
// after the proofs verify.
func WithSchemaValidator(validator *schema.Validator) LinkedDataOpt {
	return func(v *LinkedDataVerifier) {
		v.schemas = validator
	}
}

// WithLinkedDataLogger sets the logger.
func WithLinkedDataLogger(logger *zap.Logger) LinkedDataOpt {
	return func(v *LinkedDataVerifier) {
		v.logger = logger
	}
}

// LinkedDataVerifier verifies credentials and presentations secured with
// embedded linked data proofs.
type LinkedDataVerifier struct {
	suites    *suite.Registry
	resolvers []verificationmethod.Resolver
	schemas   *schema.Validator
	logger    *zap.Logger
}

// NewLinkedDataVerifier creates a verifier. Verification method URIs are
// handed to the first resolver that accepts them.
func NewLinkedDataVerifier(suites *suite.Registry, resolvers []verificationmethod.Resolver, opts ...LinkedDataOpt) *LinkedDataVerifier {
	v := &LinkedDataVerifier{
		suites:    suites,
		resolvers: resolvers,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks a JSON credential or presentation. Presentations are
// verified first by their own proofs, then entry by entry.
func (v *LinkedDataVerifier) Verify(ctx context.Context, document string, vctx *VerifierContext) error {
	if vctx == nil {
		return ErrNilContext
	}

	doc, err := jsonmap.Parse([]byte(document))
	if err != nil {
		return verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "invalid document")
	}
	return v.verifyDocument(ctx, doc, vctx)
}

func (v *LinkedDataVerifier) verifyDocument(ctx context.Context, doc jsonmap.JSONMap, vctx *VerifierContext) error {
	switch {
	case doc.HasType("VerifiablePresentation"):
		if vctx.isNested() {
			return verifyerr.New(verifyerr.CodeMalformedDocument, "a presentation cannot be nested in a presentation")
		}
		if err := v.verifyProofs(ctx, doc, doc.IDOf("holder"), vctx); err != nil {
			return err
		}
		return v.verifyEntries(ctx, doc, vctx)

	case doc.HasType("VerifiableCredential"):
		if err := v.verifyProofs(ctx, doc, doc.IDOf("issuer"), vctx); err != nil {
			return err
		}
		if v.schemas != nil {
			if err := v.schemas.ValidateCredential(doc); err != nil {
				return verifyerr.Wrap(err, verifyerr.CodeSchemaViolation, "credential schema validation failed")
			}
		}
		return nil
	}

	return verifyerr.New(verifyerr.CodeMalformedDocument,
		"document is neither a VerifiableCredential nor a VerifiablePresentation")
}

// verifyProofs checks every proof of doc. owner is the issuer or holder the
// verification method controller must match.
func (v *LinkedDataVerifier) verifyProofs(ctx context.Context, doc jsonmap.JSONMap, owner string, vctx *VerifierContext) error {
	rawProofs, err := doc.RawProofs()
	if err != nil {
		return verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "invalid proof")
	}
	if len(rawProofs) == 0 {
		return verifyerr.New(verifyerr.CodeMissingProof, "document has no proof")
	}

	unsigned := doc.WithoutProof()
	for i, raw := range rawProofs {
		err := v.verifyProof(ctx, unsigned, raw, owner, vctx)
		if err != nil && len(rawProofs) > 1 {
			return verifyerr.Prefix(err, fmt.Sprintf("proof[%d]: ", i))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *LinkedDataVerifier) verifyProof(ctx context.Context, unsigned jsonmap.JSONMap, rawProof map[string]interface{}, owner string, vctx *VerifierContext) error {
	proof, err := jsonmap.ParseRawToProof(rawProof)
	if err != nil {
		return verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "invalid proof")
	}

	s, ok := v.suites.Get(proof.SuiteKey())
	if !ok {
		return verifyerr.Newf(verifyerr.CodeUnsupportedSignatureSuite, "unsupported proof type '%s'", proof.SuiteKey())
	}

	method, err := v.resolveMethod(ctx, proof)
	if err != nil {
		v.logger.Debug("verification method resolution failed",
			zap.String("verificationMethod", proof.VerificationMethodID()), zap.Error(err))
		return verifyerr.Wrap(err, verifyerr.CodeKeyResolutionFailure, "failed to resolve verification method")
	}

	expected := strings.TrimPrefix(vctx.ProofPurpose(), securityVocab)
	if got := strings.TrimPrefix(proof.ProofPurpose, securityVocab); got != expected {
		return verifyerr.Newf(verifyerr.CodeInvalidProofPurpose,
			"Invalid proof purpose: expected '%s', got '%s'", expected, proof.ProofPurpose)
	}

	if method.External && strings.HasPrefix(owner, "did:") && method.ControllerDID() != owner {
		return verifyerr.New(verifyerr.CodeIssuerVerificationMethodMismatch, "Issuer and proof.verificationMethod mismatch")
	}

	if err := checkSignature(s, unsigned, rawProof, proof, method.PublicKey); err != nil {
		if errors.Is(err, processor.ErrContextUnavailable) {
			return verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "failed to load JSON-LD context")
		}
		return verifyerr.Wrap(err, verifyerr.CodeInvalidSignature, "Invalid proof signature")
	}
	return nil
}

func checkSignature(s suite.SignatureSuite, unsigned jsonmap.JSONMap, rawProof map[string]interface{}, proof *dto.Proof, key *model.PublicKey) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("signature suite panicked: %v", r)
		}
	}()

	data, err := s.CreateVerifyData(unsigned, suite.ProofOptions(rawProof, unsigned["@context"]))
	if err != nil {
		return err
	}
	return s.Verify(data, proof, key)
}

// resolveMethod returns the key of the proof's verification method. Inline
// key material is used as is; any other reference goes to the resolvers.
func (v *LinkedDataVerifier) resolveMethod(ctx context.Context, proof *dto.Proof) (method *model.VerificationMethod, err error) {
	defer func() {
		if r := recover(); r != nil {
			method, err = nil, fmt.Errorf("verification method resolver panicked: %v", r)
		}
	}()

	if inline, ok := proof.VerificationMethod.(map[string]interface{}); ok {
		entry, err := methodEntry(inline)
		if err != nil {
			return nil, err
		}
		if entry.HasKeyMaterial() {
			key, err := crypto.PublicKeyFromEntry(entry)
			if err != nil {
				return nil, err
			}
			return &model.VerificationMethod{
				ID:         entry.ID,
				Type:       entry.Type,
				Controller: entry.Controller,
				PublicKey:  key,
			}, nil
		}
	}

	uri := proof.VerificationMethodID()
	if uri == "" {
		return nil, fmt.Errorf("proof has no verificationMethod")
	}

	resolved, err := verificationmethod.Resolve(ctx, v.resolvers, uri)
	if err != nil {
		return nil, err
	}
	if resolved == nil || resolved.PublicKey == nil || resolved.PublicKey.Key == nil {
		return nil, fmt.Errorf("%w: %s", verificationmethod.ErrKeyNotFound, uri)
	}

	out := *resolved
	out.External = true
	return &out, nil
}

func methodEntry(raw map[string]interface{}) (*model.VerificationMethodEntry, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode verification method: %w", err)
	}
	var entry model.VerificationMethodEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode verification method: %w", err)
	}
	return &entry, nil
}

// verifyEntries verifies the credentials of a presentation in order and
// stops at the first failure.
func (v *LinkedDataVerifier) verifyEntries(ctx context.Context, doc jsonmap.JSONMap, vctx *VerifierContext) error {
	entries, err := vp.ParseEntries(doc["verifiableCredential"])
	if err != nil {
		return verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "invalid presentation")
	}

	nested := vctx.nested()
	for i, entry := range entries {
		if entry.IsToken() {
			err = callDelegate(ctx, entry.Token, nested)
		} else {
			err = v.verifyDocument(ctx, entry.Document, nested)
		}
		if err != nil {
			return verifyerr.Prefix(err, fmt.Sprintf("verifiableCredential[%d]: ", i))
		}
	}
	return nil
}
