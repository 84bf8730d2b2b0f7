package verifier

import (
	"context"
	"fmt"

	"github.com/pilacorp/go-credential-verifier/credential/common/jwt"
	"github.com/pilacorp/go-credential-verifier/credential/common/rules"
	"github.com/pilacorp/go-credential-verifier/credential/common/verifyerr"
	"github.com/pilacorp/go-credential-verifier/credential/vp"
)

// PresentationVerifier verifies a compact JWT-VP and every credential it
// carries.
type PresentationVerifier struct {
	tokens *jwt.TokenVerifier
}

// NewPresentationVerifier creates a compact presentation verifier.
func NewPresentationVerifier(tokens *jwt.TokenVerifier) *PresentationVerifier {
	return &PresentationVerifier{tokens: tokens}
}

// Verify checks the outer token in the "vp" context, then each nested
// credential. The first nested failure is returned with its index.
func (v *PresentationVerifier) Verify(ctx context.Context, token string, vctx *VerifierContext) error {
	if vctx == nil {
		return ErrNilContext
	}

	claims, err := v.tokens.Verify(ctx, token, rules.ContextPresentation, vctx.Audience())
	if err != nil {
		return err
	}

	vpClaim, err := jwt.GetDocumentFromClaims(claims, "vp")
	if err != nil {
		return verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "invalid presentation")
	}
	if vpClaim == nil {
		return nil
	}

	entries, err := vp.ParseEntries(vpClaim["verifiableCredential"])
	if err != nil {
		return verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "invalid presentation")
	}

	nested := vctx.nested()
	for i, entry := range entries {
		if entry.IsToken() {
			err = verifyCredentialToken(ctx, v.tokens, entry.Token)
		} else {
			err = delegateDocument(ctx, entry, nested)
		}
		if err != nil {
			return verifyerr.Prefix(err, fmt.Sprintf("verifiableCredential[%d]: ", i))
		}
	}
	return nil
}

// verifyCredentialToken verifies a token nested in a presentation. Only
// credentials may be nested.
func verifyCredentialToken(ctx context.Context, tokens *jwt.TokenVerifier, token string) error {
	claims, err := tokens.Verify(ctx, token, rules.ContextCredential, "")
	if err != nil {
		return err
	}
	if claims["vc"] == nil {
		return verifyerr.New(verifyerr.CodeMalformedDocument, "nested token does not carry a 'vc' claim")
	}
	return nil
}

// delegateDocument hands an embedded linked data credential to the context
// delegate.
func delegateDocument(ctx context.Context, entry vp.Entry, vctx *VerifierContext) error {
	raw, err := entry.Document.ToJSON()
	if err != nil {
		return verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "invalid embedded credential")
	}
	return callDelegate(ctx, string(raw), vctx)
}

func callDelegate(ctx context.Context, raw string, vctx *VerifierContext) (err error) {
	delegate := vctx.Delegate()
	if delegate == nil {
		return verifyerr.New(verifyerr.CodeMalformedDocument, "no verifier configured for nested credentials")
	}

	defer func() {
		if r := recover(); r != nil {
			err = verifyerr.Newf(verifyerr.CodeMalformedDocument, "nested credential verifier panicked: %v", r)
		}
	}()
	return delegate.Verify(ctx, raw, vctx)
}
