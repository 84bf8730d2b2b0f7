package jsonmap

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"

	"github.com/pilacorp/go-credential-verifier/credential/common/dto"
)

// credentialsNamespace is the expanded IRI prefix of the VC data model terms.
const credentialsNamespace = "https://www.w3.org/2018/credentials#"

// JSONMap represents a JSON object as a map.
type JSONMap map[string]interface{}

// Parse decodes a JSON object. A single-element top-level array, as produced
// by JSON-LD expansion, is unwrapped.
func Parse(raw []byte) (JSONMap, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}

	if arr, ok := v.([]interface{}); ok {
		if len(arr) != 1 {
			return nil, fmt.Errorf("expected a single top-level object, got an array of %d", len(arr))
		}
		v = arr[0]
	}

	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("document is not a JSON object")
	}
	return JSONMap(m), nil
}

// ToJSON serializes the JSONMap to JSON.
func (m JSONMap) ToJSON() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("JSONMap is nil")
	}

	data, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSONMap: %w", err)
	}
	return data, nil
}

// Copy returns a deep copy made through a JSON round trip.
func (m JSONMap) Copy() (JSONMap, error) {
	data, err := m.ToJSON()
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSONMap copy: %w", err)
	}
	return JSONMap(out), nil
}

// WithoutProof returns a shallow copy with the proof member removed. The
// receiver is not modified.
func (m JSONMap) WithoutProof() JSONMap {
	out := make(JSONMap, len(m))
	for k, v := range m {
		if k != "proof" {
			out[k] = v
		}
	}
	return out
}

// Types returns the values of "type" or, for expanded documents, "@type".
func (m JSONMap) Types() []string {
	raw, ok := m["type"]
	if !ok {
		raw = m["@type"]
	}
	return StringList(raw)
}

// HasType reports whether the document declares the given VC data model type,
// in compact or expanded IRI form.
func (m JSONMap) HasType(name string) bool {
	return lo.ContainsBy(m.Types(), func(t string) bool {
		return t == name || t == credentialsNamespace+name
	})
}

// IDOf returns the member as an identifier: either the string itself or the
// "id" of an object value.
func (m JSONMap) IDOf(key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case map[string]interface{}:
		id, _ := v["id"].(string)
		return id
	}
	return ""
}

// RawProofs returns the proof objects. A single object and a proof set are
// both accepted; nil means the document carries no proof.
func (m JSONMap) RawProofs() ([]map[string]interface{}, error) {
	raw, ok := m["proof"]
	if !ok || raw == nil {
		return nil, nil
	}

	switch p := raw.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{p}, nil
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(p))
		for i, item := range p {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("proof[%d] is not an object", i)
			}
			out = append(out, obj)
		}
		return out, nil
	}
	return nil, fmt.Errorf("invalid proof format: expected object or array, got %T", raw)
}

// ParseRawToProof converts a proof object to a Proof struct.
func ParseRawToProof(proof map[string]interface{}) (*dto.Proof, error) {
	var result dto.Proof
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &result,
		TagName: "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create proof decoder: %w", err)
	}
	if err := decoder.Decode(proof); err != nil {
		return nil, fmt.Errorf("failed to decode proof: %w", err)
	}
	if result.Type == "" {
		return nil, fmt.Errorf("proof type is missing")
	}
	return &result, nil
}

// StringList normalizes a string or array-of-strings member into a slice.
// Non-string array items are skipped.
func StringList(raw interface{}) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
