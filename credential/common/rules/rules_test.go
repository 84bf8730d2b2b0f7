package rules

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-credential-verifier/credential/common/schema"
	"github.com/pilacorp/go-credential-verifier/credential/common/verifyerr"
)

func TestBuiltinRules(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		rule       Rule
		claims     gojwt.MapClaims
		audience   string
		expectCode verifyerr.Code
		expectMsg  string
	}{
		{
			name:   "subject present",
			rule:   HasSubject(),
			claims: gojwt.MapClaims{"sub": "did:web:holder"},
		},
		{
			name:       "subject missing",
			rule:       HasSubject(),
			claims:     gojwt.MapClaims{},
			expectCode: verifyerr.CodeMissingClaim,
			expectMsg:  "The 'sub' claim is mandatory and must not be null.",
		},
		{
			name:       "subject null",
			rule:       HasSubject(),
			claims:     gojwt.MapClaims{"sub": nil},
			expectCode: verifyerr.CodeMissingClaim,
		},
		{
			name:   "vp present",
			rule:   HasPresentationOrCredential(),
			claims: gojwt.MapClaims{"vp": map[string]interface{}{}},
		},
		{
			name:   "vc present",
			rule:   HasPresentationOrCredential(),
			claims: gojwt.MapClaims{"vc": map[string]interface{}{}},
		},
		{
			name:       "neither vp nor vc",
			rule:       HasPresentationOrCredential(),
			claims:     gojwt.MapClaims{"sub": "x"},
			expectCode: verifyerr.CodeMissingClaim,
			expectMsg:  "Either 'vp' or 'vc' claim must be present in JWT.",
		},
		{
			name:     "audience string matches",
			rule:     AudienceContains(),
			claims:   gojwt.MapClaims{"aud": "did:web:myself"},
			audience: "did:web:myself",
		},
		{
			name:     "audience array contains",
			rule:     AudienceContains(),
			claims:   gojwt.MapClaims{"aud": []interface{}{"other", "did:web:myself"}},
			audience: "did:web:myself",
		},
		{
			name:       "audience mismatch",
			rule:       AudienceContains(),
			claims:     gojwt.MapClaims{"aud": "invalid-vp-audience"},
			audience:   "did:web:myself",
			expectCode: verifyerr.CodeAudienceMismatch,
			expectMsg:  "Token audience claim (aud -> [invalid-vp-audience]) did not contain expected audience: did:web:myself",
		},
		{
			name:   "no expected audience",
			rule:   AudienceContains(),
			claims: gojwt.MapClaims{"aud": "anything"},
		},
		{
			name:   "not expired",
			rule:   TimeValidity(0),
			claims: gojwt.MapClaims{"exp": float64(now.Add(time.Hour).Unix())},
		},
		{
			name:       "expired",
			rule:       TimeValidity(0),
			claims:     gojwt.MapClaims{"exp": float64(now.Add(-time.Hour).Unix())},
			expectCode: verifyerr.CodeMissingClaim,
			expectMsg:  "Token has expired",
		},
		{
			name:   "expired within leeway",
			rule:   TimeValidity(2 * time.Hour),
			claims: gojwt.MapClaims{"exp": float64(now.Add(-time.Hour).Unix())},
		},
		{
			name:       "not yet valid",
			rule:       TimeValidity(0),
			claims:     gojwt.MapClaims{"nbf": float64(now.Add(time.Hour).Unix())},
			expectCode: verifyerr.CodeMissingClaim,
			expectMsg:  "Token is not yet valid",
		},
		{
			name:       "malformed exp",
			rule:       TimeValidity(0),
			claims:     gojwt.MapClaims{"exp": "tomorrow"},
			expectCode: verifyerr.CodeMalformedDocument,
		},
		{
			name: "issuer matches",
			rule: CredentialIssuerMatches(),
			claims: gojwt.MapClaims{
				"iss": "did:web:issuer",
				"vc":  map[string]interface{}{"issuer": map[string]interface{}{"id": "did:web:issuer"}},
			},
		},
		{
			name: "issuer differs",
			rule: CredentialIssuerMatches(),
			claims: gojwt.MapClaims{
				"iss": "did:web:issuer",
				"vc":  map[string]interface{}{"issuer": "did:web:someone-else"},
			},
			expectCode: verifyerr.CodeMalformedDocument,
		},
		{
			name:   "required claim present",
			rule:   RequireClaim("jti"),
			claims: gojwt.MapClaims{"jti": "123"},
		},
		{
			name:       "required claim missing",
			rule:       RequireClaim("jti"),
			claims:     gojwt.MapClaims{},
			expectCode: verifyerr.CodeMissingClaim,
			expectMsg:  "The 'jti' claim is mandatory and must not be null.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Check(Input{Claims: tt.claims, Audience: tt.audience, Now: now})
			if tt.expectCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, verifyerr.HasCode(err, tt.expectCode), "got %v", err)
			if tt.expectMsg != "" {
				assert.Contains(t, err.Error(), tt.expectMsg)
			}
		})
	}
}

func TestCredentialSchemaRule(t *testing.T) {
	validator := schema.NewValidator()
	require.NoError(t, validator.Register("https://example.org/s.json",
		[]byte(`{"type":"object","required":["credentialSubject"]}`)))
	rule := CredentialSchema(validator)

	ok := gojwt.MapClaims{"vc": map[string]interface{}{
		"credentialSchema":  map[string]interface{}{"id": "https://example.org/s.json"},
		"credentialSubject": map[string]interface{}{},
	}}
	assert.NoError(t, rule.Check(Input{Claims: ok}))

	bad := gojwt.MapClaims{"vc": map[string]interface{}{
		"credentialSchema": map[string]interface{}{"id": "https://example.org/s.json"},
	}}
	err := rule.Check(Input{Claims: bad})
	assert.True(t, verifyerr.HasCode(err, verifyerr.CodeSchemaViolation))

	assert.NoError(t, rule.Check(Input{Claims: gojwt.MapClaims{"vp": map[string]interface{}{}}}))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var order []string
	record := func(name string) Rule {
		return RuleFunc(func(Input) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, r.Add(ContextPresentation, record("a"), record("b")))
	require.NoError(t, r.Add(ContextPresentation, record("c")))
	assert.Len(t, r.RulesFor(ContextPresentation), 3)
	assert.Empty(t, r.RulesFor(ContextCredential))

	require.NoError(t, r.Check(ContextPresentation, Input{}))
	assert.Equal(t, []string{"a", "b", "c"}, order)

	r.Freeze()
	assert.ErrorIs(t, r.Add(ContextPresentation, record("d")), ErrRegistryFrozen)

	rules := r.RulesFor(ContextPresentation)
	rules[0] = nil
	assert.NotNil(t, r.RulesFor(ContextPresentation)[0])
}

func TestRegistryCheckStopsAtFirstFailure(t *testing.T) {
	r := NewRegistry()
	called := false
	require.NoError(t, r.Add(ContextCredential,
		HasSubject(),
		RuleFunc(func(Input) error {
			called = true
			return nil
		}),
	))

	err := r.Check(ContextCredential, Input{Claims: gojwt.MapClaims{}})
	assert.True(t, verifyerr.HasCode(err, verifyerr.CodeMissingClaim))
	assert.False(t, called)
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Len(t, r.RulesFor(ContextPresentation), 4)
	assert.Len(t, r.RulesFor(ContextCredential), 3)
}
