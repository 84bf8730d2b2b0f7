// Package verifyerr defines the typed failures reported by credential and
// presentation verification.
package verifyerr

import (
	"errors"
	"fmt"
	"strings"
)

// Code names the category of a verification failure.
type Code string

const (
	CodeMalformedDocument                Code = "MalformedDocument"
	CodeMissingClaim                     Code = "MissingClaim"
	CodeInvalidSignature                 Code = "InvalidSignature"
	CodeKeyResolutionFailure             Code = "KeyResolutionFailure"
	CodeAudienceMismatch                 Code = "AudienceMismatch"
	CodeMissingProof                     Code = "MissingProof"
	CodeUnsupportedSignatureSuite        Code = "UnsupportedSignatureSuite"
	CodeInvalidProofPurpose              Code = "InvalidProofPurpose"
	CodeIssuerVerificationMethodMismatch Code = "IssuerVerificationMethodMismatch"
	CodeSchemaViolation                  Code = "SchemaViolation"
)

// Error is a verification failure with a stable code and one or more
// human readable details.
type Error struct {
	Code    Code
	Details []string
	Err     error
}

// Error renders "<Code>: <detail>[; <detail>...]".
func (e *Error) Error() string {
	msg := strings.Join(e.Details, "; ")
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + msg
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a verification failure with a single detail.
func New(code Code, detail string) error {
	return &Error{Code: code, Details: []string{detail}}
}

// Newf creates a verification failure with a formatted detail.
func Newf(code Code, format string, args ...interface{}) error {
	return &Error{Code: code, Details: []string{fmt.Sprintf(format, args...)}}
}

// Wrap creates a verification failure whose detail is "<detail>: <err>".
// If err already is a verification failure its code is preserved.
func Wrap(err error, code Code, detail string) error {
	if err == nil {
		return New(code, detail)
	}
	var existing *Error
	if errors.As(err, &existing) {
		code = existing.Code
	}
	return &Error{Code: code, Details: []string{detail + ": " + err.Error()}, Err: err}
}

// Prefix keeps the code of a verification failure and prefixes each of its
// details. Other errors are returned unchanged.
func Prefix(err error, prefix string) error {
	var existing *Error
	if !errors.As(err, &existing) {
		return err
	}
	details := make([]string, 0, len(existing.Details))
	for _, d := range existing.Details {
		details = append(details, prefix+d)
	}
	if len(details) == 0 {
		details = append(details, strings.TrimSuffix(prefix, ": "))
	}
	return &Error{Code: existing.Code, Details: details, Err: existing}
}

// HasCode reports whether err is a verification failure with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of a verification failure, or "" for other errors
// and nil.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
