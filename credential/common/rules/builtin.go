package rules

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/pilacorp/go-credential-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-credential-verifier/credential/common/schema"
	"github.com/pilacorp/go-credential-verifier/credential/common/verifyerr"
)

// HasSubject requires a non-empty "sub" claim.
func HasSubject() Rule {
	return RuleFunc(func(in Input) error {
		sub, err := in.Claims.GetSubject()
		if err != nil || sub == "" {
			return verifyerr.New(verifyerr.CodeMissingClaim, "The 'sub' claim is mandatory and must not be null.")
		}
		return nil
	})
}

// HasPresentationOrCredential requires a "vp" or "vc" claim.
func HasPresentationOrCredential() Rule {
	return RuleFunc(func(in Input) error {
		if in.Claims["vp"] == nil && in.Claims["vc"] == nil {
			return verifyerr.New(verifyerr.CodeMissingClaim, "Either 'vp' or 'vc' claim must be present in JWT.")
		}
		return nil
	})
}

// AudienceContains requires the "aud" claim to contain the expected
// audience. It passes when no audience is expected.
func AudienceContains() Rule {
	return RuleFunc(func(in Input) error {
		if in.Audience == "" {
			return nil
		}

		aud, err := in.Claims.GetAudience()
		if err != nil {
			return verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "invalid 'aud' claim")
		}
		if !lo.Contains(aud, in.Audience) {
			return verifyerr.Newf(verifyerr.CodeAudienceMismatch,
				"Token audience claim (aud -> %v) did not contain expected audience: %s", []string(aud), in.Audience)
		}
		return nil
	})
}

// TimeValidity checks "exp" and "nbf" against the verification time, with
// the given leeway. Absent claims pass.
func TimeValidity(leeway time.Duration) Rule {
	return RuleFunc(func(in Input) error {
		now := in.Now
		if now.IsZero() {
			now = time.Now()
		}

		exp, err := in.Claims.GetExpirationTime()
		if err != nil {
			return verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "invalid 'exp' claim")
		}
		if exp != nil && now.After(exp.Add(leeway)) {
			return verifyerr.New(verifyerr.CodeMissingClaim, "Token has expired")
		}

		nbf, err := in.Claims.GetNotBefore()
		if err != nil {
			return verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "invalid 'nbf' claim")
		}
		if nbf != nil && now.Before(nbf.Add(-leeway)) {
			return verifyerr.New(verifyerr.CodeMissingClaim, "Token is not yet valid")
		}
		return nil
	})
}

// CredentialIssuerMatches requires the issuer inside the "vc" claim, when
// present, to equal the "iss" claim.
func CredentialIssuerMatches() Rule {
	return RuleFunc(func(in Input) error {
		vc, ok := in.Claims["vc"].(map[string]interface{})
		if !ok {
			return nil
		}
		issuer := jsonmap.JSONMap(vc).IDOf("issuer")
		if issuer == "" {
			return nil
		}

		iss, _ := in.Claims.GetIssuer()
		if iss != issuer {
			return verifyerr.Newf(verifyerr.CodeMalformedDocument,
				"JWT 'iss' claim (%s) does not match vc.issuer (%s)", iss, issuer)
		}
		return nil
	})
}

// CredentialSchema validates the "vc" claim against the schemas it
// references.
func CredentialSchema(validator *schema.Validator) Rule {
	return RuleFunc(func(in Input) error {
		vc, ok := in.Claims["vc"].(map[string]interface{})
		if !ok {
			return nil
		}
		if err := validator.ValidateCredential(vc); err != nil {
			return verifyerr.Wrap(err, verifyerr.CodeSchemaViolation, "credential schema validation failed")
		}
		return nil
	})
}

// RequireClaim requires a named claim to be present and non-null.
func RequireClaim(name string) Rule {
	return RuleFunc(func(in Input) error {
		if in.Claims[name] == nil {
			return verifyerr.New(verifyerr.CodeMissingClaim, fmt.Sprintf("The '%s' claim is mandatory and must not be null.", name))
		}
		return nil
	})
}
