// Package vp provides a read-only model of Verifiable Presentations.
package vp

import (
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"

	"github.com/pilacorp/go-credential-verifier/credential/common/dto"
	"github.com/pilacorp/go-credential-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-credential-verifier/credential/vc"
)

// Presentation represents the structured contents of a presentation.
type Presentation struct {
	Context []interface{}
	ID      string
	Types   []string
	Holder  string
	Entries []Entry      // verifiableCredential, in document order
	Proofs  []*dto.Proof // Attached proofs

	raw jsonmap.JSONMap
}

// Entry is one verifiableCredential member: a compact JWT-VC or an embedded
// document. Exactly one of Token and Document is set.
type Entry struct {
	Token    string
	Document jsonmap.JSONMap
}

// IsToken reports whether the entry is a compact token.
func (e Entry) IsToken() bool {
	return e.Document == nil
}

// Raw returns the document the presentation was parsed from.
func (p *Presentation) Raw() jsonmap.JSONMap {
	return p.raw
}

// ParsePresentation parses a JSON presentation.
func ParsePresentation(rawPresentation []byte) (*Presentation, error) {
	if len(rawPresentation) == 0 {
		return nil, fmt.Errorf("presentation is empty")
	}

	m, err := jsonmap.Parse(rawPresentation)
	if err != nil {
		return nil, fmt.Errorf("failed to parse presentation: %w", err)
	}
	return FromJSONMap(m)
}

// FromJSONMap builds a presentation from a decoded document.
func FromJSONMap(m jsonmap.JSONMap) (*Presentation, error) {
	if !m.HasType("VerifiablePresentation") {
		return nil, fmt.Errorf("document is not a VerifiablePresentation")
	}

	p := &Presentation{raw: m}
	parsers := []func(jsonmap.JSONMap, *Presentation) error{
		parseContext,
		parseID,
		parseTypes,
		parseHolder,
		parseVerifiableCredentials,
		parseProofs,
	}
	for _, parse := range parsers {
		if err := parse(m, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// FromClaims builds a presentation from the claims of a JWT-VP. The iss
// claim is the holder when the "vp" object names none.
func FromClaims(claims gojwt.MapClaims) (*Presentation, error) {
	vpClaim, ok := claims["vp"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("'vp' claim is missing or not a JSON object")
	}

	m := jsonmap.JSONMap(vpClaim)
	if len(m.Types()) == 0 {
		m = jsonmap.JSONMap(lo.Assign(vpClaim, map[string]interface{}{"type": "VerifiablePresentation"}))
	}

	p, err := FromJSONMap(m)
	if err != nil {
		return nil, err
	}
	if p.Holder == "" {
		p.Holder, _ = claims.GetIssuer()
	}
	if p.ID == "" {
		p.ID, _ = claims["jti"].(string)
	}
	return p, nil
}

// Credentials parses the embedded document entries as credentials. Token
// entries are skipped.
func (p *Presentation) Credentials() ([]*vc.Credential, error) {
	var out []*vc.Credential
	for i, e := range p.Entries {
		if e.IsToken() {
			continue
		}
		c, err := vc.FromJSONMap(e.Document)
		if err != nil {
			return nil, fmt.Errorf("verifiableCredential[%d]: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}
