package jwt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/pilacorp/go-credential-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-credential-verifier/credential/common/model"
	"github.com/pilacorp/go-credential-verifier/credential/common/rules"
	verificationmethod "github.com/pilacorp/go-credential-verifier/credential/common/verification-method"
	"github.com/pilacorp/go-credential-verifier/credential/common/verifyerr"
)

var compactPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*$`)

// DefaultAlgorithms are the JWS algorithms accepted unless configured
// otherwise.
var DefaultAlgorithms = []string{"ES256", "ES384", "ES512", "ES256K", "EdDSA"}

// VerifierOpt configures a TokenVerifier.
type VerifierOpt func(*TokenVerifier)

// WithAlgorithms restricts the accepted "alg" header values.
func WithAlgorithms(algs ...string) VerifierOpt {
	return func(v *TokenVerifier) {
		v.algorithms = algs
	}
}

// WithClock sets the time source used by time based rules.
func WithClock(now func() time.Time) VerifierOpt {
	return func(v *TokenVerifier) {
		v.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) VerifierOpt {
	return func(v *TokenVerifier) {
		v.logger = logger
	}
}

// TokenVerifier verifies one compact JWT end to end: structure, key
// resolution, signature, then the claim rules of a verification context.
type TokenVerifier struct {
	keys       verificationmethod.KeyResolver
	rules      *rules.Registry
	parser     *gojwt.Parser
	algorithms []string
	now        func() time.Time
	logger     *zap.Logger
}

// NewTokenVerifier creates a token verifier.
func NewTokenVerifier(keys verificationmethod.KeyResolver, registry *rules.Registry, opts ...VerifierOpt) *TokenVerifier {
	v := &TokenVerifier{
		keys:       keys,
		rules:      registry,
		parser:     gojwt.NewParser(gojwt.WithoutClaimsValidation()),
		algorithms: DefaultAlgorithms,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks token and runs the rules registered for contextName. An
// empty audience disables audience checks. It returns the decoded claims.
func (v *TokenVerifier) Verify(ctx context.Context, token, contextName, audience string) (gojwt.MapClaims, error) {
	claims := gojwt.MapClaims{}
	parsed, parts, err := v.parser.ParseUnverified(token, claims)
	if err != nil {
		return nil, verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "malformed token")
	}

	alg := parsed.Method.Alg()
	if !lo.Contains(v.algorithms, alg) {
		return nil, verifyerr.Newf(verifyerr.CodeMalformedDocument, "unsupported token algorithm '%s'", alg)
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, verifyerr.Wrap(err, verifyerr.CodeMalformedDocument, "invalid signature encoding")
	}

	kid, err := keyID(parsed.Header, signerOf(contextName, claims))
	if err != nil {
		return nil, verifyerr.Wrap(err, verifyerr.CodeKeyResolutionFailure, "invalid key reference")
	}

	key, err := v.resolveKey(ctx, kid)
	if err != nil {
		v.logger.Debug("token key resolution failed", zap.String("kid", kid), zap.Error(err))
		return nil, verifyerr.Wrap(err, verifyerr.CodeKeyResolutionFailure, fmt.Sprintf("failed to resolve key '%s'", kid))
	}

	if err := verifySignature(parsed.Method, parts[0]+"."+parts[1], signature, key); err != nil {
		return nil, verifyerr.Wrap(err, verifyerr.CodeInvalidSignature, "Token verification failed")
	}

	in := rules.Input{Claims: claims, Audience: audience, Now: v.now()}
	if err := v.rules.Check(contextName, in); err != nil {
		return nil, err
	}
	return claims, nil
}

// keyID returns the key to resolve for a token. A DID URL kid must belong to
// signer and a fragment-only kid is resolved against it. Other kids only
// match keys configured by hand.
func keyID(header map[string]interface{}, signer string) (string, error) {
	kid, _ := header["kid"].(string)
	if kid == "" {
		return "", errors.New("token header has no 'kid'")
	}

	switch {
	case strings.HasPrefix(kid, "#"):
		if !strings.HasPrefix(signer, "did:") {
			return "", fmt.Errorf("key '%s' is relative but the token names no DID signer", kid)
		}
		return signer + kid, nil
	case strings.HasPrefix(kid, "did:"):
		did, err := verificationmethod.GetDIDFromVerificationMethod(kid)
		if err != nil {
			return "", err
		}
		if did != signer {
			return "", fmt.Errorf("key '%s' does not belong to token signer '%s'", kid, signer)
		}
	}
	return kid, nil
}

// signerOf returns who signed the token: "iss", else the issuer of a
// credential or the subject of a presentation.
func signerOf(contextName string, claims gojwt.MapClaims) string {
	if iss, _ := claims.GetIssuer(); iss != "" {
		return iss
	}
	if contextName == rules.ContextPresentation {
		sub, _ := claims.GetSubject()
		return sub
	}
	vc, _ := claims["vc"].(map[string]interface{})
	return jsonmap.JSONMap(vc).IDOf("issuer")
}

func (v *TokenVerifier) resolveKey(ctx context.Context, kid string) (key *model.PublicKey, err error) {
	defer func() {
		if r := recover(); r != nil {
			key, err = nil, fmt.Errorf("key resolver panicked: %v", r)
		}
	}()

	key, err = v.keys.Resolve(ctx, kid)
	if err == nil && (key == nil || key.Key == nil) {
		err = fmt.Errorf("%w: %s", verificationmethod.ErrKeyNotFound, kid)
	}
	return key, err
}

func verifySignature(method gojwt.SigningMethod, signingString string, signature []byte, key *model.PublicKey) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("signature check panicked: %v", r)
		}
	}()
	return method.Verify(signingString, signature, key.Key)
}
