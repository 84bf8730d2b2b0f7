// Package schema validates credentials against JSON schemas registered ahead
// of time. Schemas are never fetched from the network.
package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrUnknownSchema is returned when a credential references a schema that was
// not registered.
var ErrUnknownSchema = errors.New("unknown credential schema")

// ValidatorOpt configures a Validator.
type ValidatorOpt func(*Validator)

// WithIgnoreUnknown makes references to unregistered schemas pass.
func WithIgnoreUnknown() ValidatorOpt {
	return func(v *Validator) {
		v.ignoreUnknown = true
	}
}

// Validator holds compiled JSON schemas keyed by schema id.
type Validator struct {
	mu            sync.RWMutex
	schemas       map[string]*gojsonschema.Schema
	ignoreUnknown bool
}

// NewValidator creates an empty validator.
func NewValidator(opts ...ValidatorOpt) *Validator {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Register compiles a JSON schema document and stores it under id.
func (v *Validator) Register(id string, schemaJSON []byte) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", id, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.schemas[id] = compiled
	return nil
}

// Validate checks document against the schema registered under id.
func (v *Validator) Validate(id string, document interface{}) error {
	v.mu.RLock()
	compiled, ok := v.schemas[id]
	v.mu.RUnlock()
	if !ok {
		if v.ignoreUnknown {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrUnknownSchema, id)
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("credential does not match schema %s: %s", id, strings.Join(msgs, ", "))
	}
	return nil
}

// SchemaIDs extracts the ids of a credentialSchema member, which may be a
// single object or an array of objects.
func SchemaIDs(credentialSchema interface{}) []string {
	var items []interface{}
	switch v := credentialSchema.(type) {
	case nil:
		return nil
	case []interface{}:
		items = v
	default:
		items = []interface{}{v}
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			if id, ok := obj["id"].(string); ok && id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// ValidateCredential validates a credential against every schema listed in
// its credentialSchema member.
func (v *Validator) ValidateCredential(credential map[string]interface{}) error {
	for _, id := range SchemaIDs(credential["credentialSchema"]) {
		if err := v.Validate(id, credential); err != nil {
			return err
		}
	}
	return nil
}
