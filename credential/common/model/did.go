package model

import "encoding/json"

// DIDDocument is a resolved DID document. Only the members needed to find
// verification methods are decoded.
type DIDDocument struct {
	Context            interface{}               `json:"@context,omitempty"`
	ID                 string                    `json:"id"`
	Controller         interface{}               `json:"controller,omitempty"` // string or []string
	VerificationMethod []VerificationMethodEntry `json:"verificationMethod"`
	Authentication     []json.RawMessage         `json:"authentication,omitempty"`
	AssertionMethod    []json.RawMessage         `json:"assertionMethod,omitempty"`
}

// VerificationMethodEntry is a single verification method as it appears in a
// DID document or inline in a proof.
type VerificationMethodEntry struct {
	ID                 string          `json:"id"`
	Type               string          `json:"type"`
	Controller         string          `json:"controller"`
	PublicKeyHex       string          `json:"publicKeyHex,omitempty"`
	PublicKeyJwk       json.RawMessage `json:"publicKeyJwk,omitempty"`
	PublicKeyMultibase string          `json:"publicKeyMultibase,omitempty"`
	PublicKeyBase58    string          `json:"publicKeyBase58,omitempty"`
}

// HasKeyMaterial reports whether the entry carries any public key encoding.
func (e *VerificationMethodEntry) HasKeyMaterial() bool {
	return e.PublicKeyHex != "" || len(e.PublicKeyJwk) > 0 ||
		e.PublicKeyMultibase != "" || e.PublicKeyBase58 != ""
}

// AssertionMethodIDs returns the ids referenced by assertionMethod, whether
// given as plain references or embedded methods.
func (d *DIDDocument) AssertionMethodIDs() []string {
	return relationshipIDs(d.AssertionMethod)
}

func relationshipIDs(raw []json.RawMessage) []string {
	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		var ref string
		if err := json.Unmarshal(r, &ref); err == nil {
			ids = append(ids, ref)
			continue
		}
		var entry VerificationMethodEntry
		if err := json.Unmarshal(r, &entry); err == nil && entry.ID != "" {
			ids = append(ids, entry.ID)
		}
	}
	return ids
}

// EmbeddedMethods returns verification methods embedded directly in the
// assertionMethod and authentication relationships.
func (d *DIDDocument) EmbeddedMethods() []VerificationMethodEntry {
	var out []VerificationMethodEntry
	for _, group := range [][]json.RawMessage{d.AssertionMethod, d.Authentication} {
		for _, r := range group {
			var entry VerificationMethodEntry
			if err := json.Unmarshal(r, &entry); err == nil && entry.ID != "" {
				out = append(out, entry)
			}
		}
	}
	return out
}
