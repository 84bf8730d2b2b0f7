package suite

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"

	// Registers ES256K with the jwt library.
	_ "github.com/pilacorp/go-credential-verifier/credential/common/jwt"
)

// JWSAlgorithms are the algorithms accepted in detached JWS proofs.
var JWSAlgorithms = []string{"ES256K", "ES256", "ES384", "EdDSA"}

type jwsHeader struct {
	Alg  string   `json:"alg"`
	B64  *bool    `json:"b64,omitempty"`
	Crit []string `json:"crit,omitempty"`
}

// VerifyDetachedJWS verifies a "<header>..<signature>" JWS over payload.
// With "b64": false in the header the payload is signed unencoded.
func VerifyDetachedJWS(jws string, payload []byte, key crypto.PublicKey) error {
	parts := strings.Split(jws, ".")
	if len(parts) != 3 || parts[1] != "" {
		return errors.New("invalid detached JWS: expected '<header>..<signature>'")
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return fmt.Errorf("failed to decode JWS header: %w", err)
	}
	var header jwsHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return fmt.Errorf("failed to parse JWS header: %w", err)
	}

	if !lo.Contains(JWSAlgorithms, header.Alg) {
		return fmt.Errorf("unsupported JWS algorithm '%s'", header.Alg)
	}
	method := gojwt.GetSigningMethod(header.Alg)
	if method == nil {
		return fmt.Errorf("unsupported JWS algorithm '%s'", header.Alg)
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("failed to decode JWS signature: %w", err)
	}

	return method.Verify(SigningInput(parts[0], header.B64 == nil || *header.B64, payload), signature, key)
}

// SigningInput builds the JWS signing input for a detached payload.
func SigningInput(encodedHeader string, b64 bool, payload []byte) string {
	if b64 {
		return encodedHeader + "." + base64.RawURLEncoding.EncodeToString(payload)
	}
	return encodedHeader + "." + string(payload)
}
