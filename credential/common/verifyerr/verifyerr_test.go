package verifyerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type VerifyErrSuite struct {
	suite.Suite
}

func TestVerifyErrSuite(t *testing.T) {
	suite.Run(t, new(VerifyErrSuite))
}

func (s *VerifyErrSuite) TestErrorRendering() {
	s.Run("code and detail", func() {
		err := New(CodeMissingProof, "document has no proof")
		s.Equal("MissingProof: document has no proof", err.Error())
	})

	s.Run("multiple details are joined", func() {
		err := &Error{Code: CodeMissingClaim, Details: []string{"a", "b"}}
		s.Equal("MissingClaim: a; b", err.Error())
	})

	s.Run("falls back to wrapped error", func() {
		err := &Error{Code: CodeInvalidSignature, Err: errors.New("boom")}
		s.Equal("InvalidSignature: boom", err.Error())
	})

	s.Run("bare code", func() {
		err := &Error{Code: CodeInvalidProofPurpose}
		s.Equal("InvalidProofPurpose", err.Error())
	})
}

func (s *VerifyErrSuite) TestWrap() {
	s.Run("plain error takes the given code", func() {
		cause := errors.New("signature mismatch")
		err := Wrap(cause, CodeInvalidSignature, "Token verification failed")
		s.True(HasCode(err, CodeInvalidSignature))
		s.ErrorIs(err, cause)
		s.Equal("InvalidSignature: Token verification failed: signature mismatch", err.Error())
	})

	s.Run("verification failure keeps its code", func() {
		inner := New(CodeKeyResolutionFailure, "unknown kid")
		err := Wrap(inner, CodeInvalidSignature, "outer")
		s.Equal(CodeKeyResolutionFailure, CodeOf(err))
	})

	s.Run("nil error", func() {
		err := Wrap(nil, CodeMalformedDocument, "bad input")
		s.Equal("MalformedDocument: bad input", err.Error())
	})
}

func (s *VerifyErrSuite) TestPrefix() {
	inner := New(CodeInvalidSignature, "Token verification failed")
	err := Prefix(inner, "verifiableCredential[1]: ")
	s.Equal("InvalidSignature: verifiableCredential[1]: Token verification failed", err.Error())
	s.True(HasCode(err, CodeInvalidSignature))

	plain := errors.New("plain")
	s.Same(plain, Prefix(plain, "x: "))
}

func (s *VerifyErrSuite) TestIsMatchesByCode() {
	err := fmt.Errorf("context: %w", New(CodeMissingProof, "detail"))
	s.ErrorIs(err, &Error{Code: CodeMissingProof})
	s.NotErrorIs(err, &Error{Code: CodeInvalidSignature})
	s.Equal(Code(""), CodeOf(errors.New("other")))
	s.Equal(Code(""), CodeOf(nil))
}
