package jwt

import (
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/pilacorp/go-credential-verifier/credential/common/jsonmap"
)

// GetDocumentFromClaims returns the object stored under docType ("vp" or
// "vc"). It returns nil without error when the claim is absent or null.
func GetDocumentFromClaims(claims gojwt.MapClaims, docType string) (jsonmap.JSONMap, error) {
	documentData, ok := claims[docType]
	if !ok || documentData == nil {
		return nil, nil
	}

	documentMap, ok := documentData.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("'%s' claim is not a JSON object", docType)
	}
	return jsonmap.JSONMap(documentMap), nil
}

// LooksCompact reports whether s has the shape of a compact JWS.
func LooksCompact(s string) bool {
	return compactPattern.MatchString(s)
}
