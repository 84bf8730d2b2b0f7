// Package verifier verifies Verifiable Credentials and Presentations in
// compact JWT and linked data form.
package verifier

import (
	"context"
	"errors"
)

// DefaultProofPurpose is the purpose expected of credential proofs.
const DefaultProofPurpose = "assertionMethod"

// ErrNilContext is returned when a verify call gets no VerifierContext. It
// is a usage error, not a verification failure.
var ErrNilContext = errors.New("verifier context is nil")

// CredentialVerifier verifies a credential given as a compact token or a
// JSON document.
type CredentialVerifier interface {
	Verify(ctx context.Context, raw string, vctx *VerifierContext) error
}

// VerifierContext holds the expectations of one verify call. It is never
// modified once built.
type VerifierContext struct {
	audience     string
	proofPurpose string
	delegate     CredentialVerifier
	depth        int
}

// ContextOpt configures a VerifierContext.
type ContextOpt func(*VerifierContext)

// WithAudience sets the audience a presentation token must name.
func WithAudience(audience string) ContextOpt {
	return func(c *VerifierContext) {
		c.audience = audience
	}
}

// WithProofPurpose sets the expected proof purpose of the top level
// document.
func WithProofPurpose(purpose string) ContextOpt {
	return func(c *VerifierContext) {
		c.proofPurpose = purpose
	}
}

// WithDelegate sets the verifier used for nested credentials in the other
// encoding.
func WithDelegate(delegate CredentialVerifier) ContextOpt {
	return func(c *VerifierContext) {
		c.delegate = delegate
	}
}

// NewVerifierContext creates a context. The proof purpose defaults to
// assertionMethod.
func NewVerifierContext(opts ...ContextOpt) *VerifierContext {
	c := &VerifierContext{proofPurpose: DefaultProofPurpose}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Audience returns the expected presentation audience. Empty disables the
// audience check.
func (c *VerifierContext) Audience() string {
	return c.audience
}

// ProofPurpose returns the expected proof purpose.
func (c *VerifierContext) ProofPurpose() string {
	return c.proofPurpose
}

// Delegate returns the verifier for nested credentials, or nil.
func (c *VerifierContext) Delegate() CredentialVerifier {
	return c.delegate
}

// With returns a copy with opts applied.
func (c *VerifierContext) With(opts ...ContextOpt) *VerifierContext {
	out := *c
	for _, opt := range opts {
		opt(&out)
	}
	return &out
}

// nested returns the context for credentials embedded in a presentation.
func (c *VerifierContext) nested() *VerifierContext {
	out := c.With(WithAudience(""), WithProofPurpose(DefaultProofPurpose))
	out.depth = c.depth + 1
	return out
}

func (c *VerifierContext) isNested() bool {
	return c.depth > 0
}
