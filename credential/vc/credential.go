// Package vc provides a read-only model of Verifiable Credentials, parsed
// from linked data documents or from the claims of a JWT-VC.
package vc

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/pilacorp/go-credential-verifier/credential/common/dto"
	"github.com/pilacorp/go-credential-verifier/credential/common/jsonmap"
)

// Credential represents the structured contents of a credential.
type Credential struct {
	Context          []interface{} // JSON-LD contexts
	ID               string        // Credential identifier
	Types            []string      // Credential types
	Issuer           string        // Issuer identifier
	ValidFrom        time.Time     // issuanceDate or validFrom
	ValidUntil       time.Time     // expirationDate or validUntil
	CredentialStatus []Status      // Credential status entries
	Subject          []Subject     // Credential subjects
	Schemas          []Schema      // Credential schemas
	Proofs           []*dto.Proof  // Attached proofs

	raw jsonmap.JSONMap
}

// Status represents the credentialStatus field as per W3C Verifiable Credentials.
type Status struct {
	ID                   string `json:"id,omitempty"`
	Type                 string `json:"type"`
	StatusPurpose        string `json:"statusPurpose,omitempty"`
	StatusListIndex      string `json:"statusListIndex,omitempty"`
	StatusListCredential string `json:"statusListCredential,omitempty"`
}

// Subject represents the credentialSubject field.
type Subject struct {
	ID           string                 // Subject identifier
	CustomFields map[string]interface{} // Additional subject data
}

// Schema represents a credential schema with an ID and type.
type Schema struct {
	ID   string // Schema identifier
	Type string // Schema type
}

// Raw returns the document the credential was parsed from.
func (c *Credential) Raw() jsonmap.JSONMap {
	return c.raw
}

// ParseCredential parses a JSON credential.
func ParseCredential(rawCredential []byte) (*Credential, error) {
	if len(rawCredential) == 0 {
		return nil, fmt.Errorf("JSON string is empty")
	}

	m, err := jsonmap.Parse(rawCredential)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credential: %w", err)
	}
	return FromJSONMap(m)
}

// FromJSONMap builds a credential from a decoded document.
func FromJSONMap(m jsonmap.JSONMap) (*Credential, error) {
	if !m.HasType("VerifiableCredential") {
		return nil, fmt.Errorf("document is not a VerifiableCredential")
	}

	c := &Credential{raw: m}
	parsers := []func(jsonmap.JSONMap, *Credential) error{
		parseContext,
		parseID,
		parseTypes,
		parseIssuer,
		parseDates,
		parseSubject,
		parseSchema,
		parseStatus,
		parseProofs,
	}
	for _, parse := range parsers {
		if err := parse(m, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// FromClaims builds a credential from the claims of a JWT-VC. Registered
// claims fill the members the "vc" object leaves out: iss is the issuer,
// jti the id, sub the subject id, nbf and exp the validity period.
func FromClaims(claims gojwt.MapClaims) (*Credential, error) {
	vcClaim, ok := claims["vc"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("'vc' claim is missing or not a JSON object")
	}

	c, err := FromJSONMap(jsonmap.JSONMap(vcClaim))
	if err != nil {
		return nil, err
	}

	if c.Issuer == "" {
		c.Issuer, _ = claims.GetIssuer()
	}
	if c.ID == "" {
		c.ID, _ = claims["jti"].(string)
	}
	if sub, _ := claims.GetSubject(); sub != "" {
		if len(c.Subject) == 0 {
			c.Subject = []Subject{{ID: sub}}
		} else if c.Subject[0].ID == "" {
			c.Subject[0].ID = sub
		}
	}
	if nbf, err := claims.GetNotBefore(); err == nil && nbf != nil && c.ValidFrom.IsZero() {
		c.ValidFrom = nbf.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && c.ValidUntil.IsZero() {
		c.ValidUntil = exp.Time
	}
	return c, nil
}
