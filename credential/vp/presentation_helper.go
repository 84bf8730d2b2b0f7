package vp

import (
	"fmt"

	"github.com/pilacorp/go-credential-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-credential-verifier/credential/vc"
)

// parseContext extracts the @context field from a Presentation.
func parseContext(m jsonmap.JSONMap, p *Presentation) error {
	switch context := m["@context"].(type) {
	case nil:
	case string, map[string]interface{}:
		p.Context = append(p.Context, context)
	case []interface{}:
		for _, ctx := range context {
			switch v := ctx.(type) {
			case string, map[string]interface{}:
				p.Context = append(p.Context, v)
			default:
				return fmt.Errorf("unsupported context type: %T", v)
			}
		}
	default:
		return fmt.Errorf("unsupported context type: %T", context)
	}
	return nil
}

// parseID extracts the ID field from a Presentation.
func parseID(m jsonmap.JSONMap, p *Presentation) error {
	if id, ok := m["id"].(string); ok {
		p.ID = id
	}
	return nil
}

// parseTypes extracts the type field from a Presentation.
func parseTypes(m jsonmap.JSONMap, p *Presentation) error {
	p.Types = m.Types()
	return nil
}

// parseHolder extracts the holder, given as a string or as an object with
// an id.
func parseHolder(m jsonmap.JSONMap, p *Presentation) error {
	p.Holder = m.IDOf("holder")
	return nil
}

// parseVerifiableCredentials extracts the verifiableCredential field from a Presentation.
func parseVerifiableCredentials(m jsonmap.JSONMap, p *Presentation) error {
	entries, err := ParseEntries(m["verifiableCredential"])
	if err != nil {
		return err
	}
	p.Entries = entries
	return nil
}

// ParseEntries normalizes a verifiableCredential member. Absent and null
// yield no entries; a single string or object is a one-element list.
func ParseEntries(raw interface{}) ([]Entry, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string, map[string]interface{}:
		entry, err := parseEntry(v)
		if err != nil {
			return nil, fmt.Errorf("verifiableCredential: %w", err)
		}
		return []Entry{entry}, nil
	case []interface{}:
		entries := make([]Entry, 0, len(v))
		for i, item := range v {
			entry, err := parseEntry(item)
			if err != nil {
				return nil, fmt.Errorf("verifiableCredential[%d]: %w", i, err)
			}
			entries = append(entries, entry)
		}
		return entries, nil
	}
	return nil, fmt.Errorf("verifiableCredential: unsupported format %T", raw)
}

func parseEntry(item interface{}) (Entry, error) {
	switch v := item.(type) {
	case string:
		if v == "" {
			return Entry{}, fmt.Errorf("empty credential token")
		}
		return Entry{Token: v}, nil
	case map[string]interface{}:
		return Entry{Document: jsonmap.JSONMap(v)}, nil
	}
	return Entry{}, fmt.Errorf("unsupported credential format: %T", item)
}

// parseProofs decodes the attached proofs.
func parseProofs(m jsonmap.JSONMap, p *Presentation) error {
	proofs, err := vc.ParseProofs(m)
	if err != nil {
		return err
	}
	p.Proofs = proofs
	return nil
}
