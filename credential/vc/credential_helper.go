package vc

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/pilacorp/go-credential-verifier/credential/common/dto"
	"github.com/pilacorp/go-credential-verifier/credential/common/jsonmap"
)

// parseContext extracts the @context field from a Credential.
func parseContext(m jsonmap.JSONMap, c *Credential) error {
	switch context := m["@context"].(type) {
	case nil:
	case string, map[string]interface{}:
		c.Context = append(c.Context, context)
	case []interface{}:
		for _, ctx := range context {
			switch v := ctx.(type) {
			case string, map[string]interface{}:
				c.Context = append(c.Context, v)
			default:
				return fmt.Errorf("unsupported context type: %T", v)
			}
		}
	default:
		return fmt.Errorf("unsupported context type: %T", context)
	}
	return nil
}

// parseID extracts the ID field from a Credential.
func parseID(m jsonmap.JSONMap, c *Credential) error {
	if id, ok := m["id"].(string); ok {
		c.ID = id
	}
	return nil
}

// parseTypes extracts the type field from a Credential.
func parseTypes(m jsonmap.JSONMap, c *Credential) error {
	c.Types = m.Types()
	return nil
}

// parseIssuer extracts the issuer, given as a string or as an object with
// an id.
func parseIssuer(m jsonmap.JSONMap, c *Credential) error {
	switch m["issuer"].(type) {
	case nil, string, map[string]interface{}:
		c.Issuer = m.IDOf("issuer")
		return nil
	}
	return fmt.Errorf("unsupported issuer format: %T", m["issuer"])
}

// parseDates extracts the validity period. The 1.1 names issuanceDate and
// expirationDate take precedence over validFrom and validUntil.
func parseDates(m jsonmap.JSONMap, c *Credential) error {
	var err error
	if c.ValidFrom, err = parseTime(m, "issuanceDate", "validFrom"); err != nil {
		return err
	}
	if c.ValidUntil, err = parseTime(m, "expirationDate", "validUntil"); err != nil {
		return err
	}
	return nil
}

func parseTime(m jsonmap.JSONMap, keys ...string) (time.Time, error) {
	for _, key := range keys {
		value, ok := m[key].(string)
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse %s: %w", key, err)
		}
		return t, nil
	}
	return time.Time{}, nil
}

// parseSubject extracts the credentialSubject field from a Credential.
func parseSubject(m jsonmap.JSONMap, c *Credential) error {
	subjectRaw := m["credentialSubject"]
	if subjectRaw == nil {
		return nil
	}

	switch subject := subjectRaw.(type) {
	case string:
		c.Subject = []Subject{{ID: subject}}
	case map[string]interface{}:
		parsed, err := SubjectFromJSON(subject)
		if err != nil {
			return fmt.Errorf("failed to parse subject: %w", err)
		}
		c.Subject = []Subject{parsed}
	case []interface{}:
		subjects := make([]Subject, 0, len(subject))
		for _, raw := range subject {
			sub, ok := raw.(map[string]interface{})
			if !ok {
				return fmt.Errorf("unsupported subject format: %T", raw)
			}
			parsed, err := SubjectFromJSON(sub)
			if err != nil {
				return fmt.Errorf("failed to parse subjects array: %w", err)
			}
			subjects = append(subjects, parsed)
		}
		c.Subject = subjects
	default:
		return fmt.Errorf("unsupported subject format: %T", subject)
	}
	return nil
}

// SubjectFromJSON creates a credential subject from a JSON object.
func SubjectFromJSON(subjectObj jsonmap.JSONMap) (Subject, error) {
	var id string
	if raw, ok := subjectObj["id"]; ok {
		s, ok := raw.(string)
		if !ok {
			return Subject{}, fmt.Errorf("field %q must be a string, got %T", "id", raw)
		}
		id = s
	}
	rest := lo.OmitByKeys(map[string]interface{}(subjectObj), []string{"id"})
	return Subject{ID: id, CustomFields: rest}, nil
}

// parseSchema extracts the credentialSchema field from a Credential.
func parseSchema(m jsonmap.JSONMap, c *Credential) error {
	schemaRaw := m["credentialSchema"]
	if schemaRaw == nil {
		return nil
	}

	switch schema := schemaRaw.(type) {
	case string, map[string]interface{}:
		parsed, err := parseSchemaID(schema)
		if err != nil {
			return fmt.Errorf("failed to parse schema: %w", err)
		}
		c.Schemas = append(c.Schemas, parsed)
	case []interface{}:
		for _, raw := range schema {
			parsed, err := parseSchemaID(raw)
			if err != nil {
				return fmt.Errorf("failed to parse schema: %w", err)
			}
			c.Schemas = append(c.Schemas, parsed)
		}
	default:
		return fmt.Errorf("unsupported schema format: %T", schema)
	}
	return nil
}

// parseSchemaID parses a Schema from a value.
func parseSchemaID(value interface{}) (Schema, error) {
	var schema Schema
	switch v := value.(type) {
	case string:
		schema.ID = v
	case map[string]interface{}:
		schema.ID, _ = v["id"].(string)
		schema.Type, _ = v["type"].(string)
	default:
		return schema, fmt.Errorf("invalid schema format: %T", v)
	}
	return schema, nil
}

// parseStatus extracts the credentialStatus field from a Credential.
func parseStatus(m jsonmap.JSONMap, c *Credential) error {
	statusRaw := m["credentialStatus"]
	if statusRaw == nil {
		return nil
	}

	switch status := statusRaw.(type) {
	case map[string]interface{}:
		c.CredentialStatus = append(c.CredentialStatus, parseStatusEntry(status))
	case []interface{}:
		for _, raw := range status {
			statusMap, ok := raw.(map[string]interface{})
			if !ok {
				return fmt.Errorf("unsupported status format: %T", raw)
			}
			c.CredentialStatus = append(c.CredentialStatus, parseStatusEntry(statusMap))
		}
	default:
		return fmt.Errorf("unsupported status format: %T", status)
	}
	return nil
}

// parseStatusEntry parses a single status entry from a JSON object.
func parseStatusEntry(status map[string]interface{}) Status {
	s := Status{}
	s.ID, _ = status["id"].(string)
	s.Type, _ = status["type"].(string)
	s.StatusPurpose, _ = status["statusPurpose"].(string)
	s.StatusListIndex, _ = status["statusListIndex"].(string)
	s.StatusListCredential, _ = status["statusListCredential"].(string)
	return s
}

// parseProofs decodes the attached proofs.
func parseProofs(m jsonmap.JSONMap, c *Credential) error {
	proofs, err := ParseProofs(m)
	if err != nil {
		return err
	}
	c.Proofs = proofs
	return nil
}

// ParseProofs decodes every proof of a document. A document without proof
// yields an empty list.
func ParseProofs(m jsonmap.JSONMap) ([]*dto.Proof, error) {
	rawProofs, err := m.RawProofs()
	if err != nil {
		return nil, err
	}

	proofs := make([]*dto.Proof, 0, len(rawProofs))
	for i, raw := range rawProofs {
		proof, err := jsonmap.ParseRawToProof(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proof[%d]: %w", i, err)
		}
		proofs = append(proofs, proof)
	}
	return proofs, nil
}
