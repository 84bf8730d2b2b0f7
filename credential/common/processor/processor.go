// Package processor turns JSON documents into the canonical bytes that proofs
// sign.
package processor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gowebpki/jcs"
	"github.com/piprate/json-gold/ld"
)

// Canonicalizer produces a deterministic serialization of a JSON document.
type Canonicalizer interface {
	Canonicalize(doc map[string]interface{}) ([]byte, error)
}

// ProcessorOpt represents an option for JSON-LD processing.
type ProcessorOpt func(*RDFC)

// WithDocumentLoader sets the document loader for JSON-LD processing.
func WithDocumentLoader(loader ld.DocumentLoader) ProcessorOpt {
	return func(p *RDFC) {
		p.documentLoader = loader
	}
}

// WithSafeMode controls whether terms the @context does not define are an
// error. It is on by default: a dropped term is not covered by the
// canonical form, so changing it would not change the signature input.
func WithSafeMode(on bool) ProcessorOpt {
	return func(p *RDFC) {
		p.safeMode = on
	}
}

// WithAlgorithm sets the canonicalization algorithm.
func WithAlgorithm(alg string) ProcessorOpt {
	return func(p *RDFC) {
		p.algorithm = alg
	}
}

// RDFC canonicalizes JSON-LD documents into N-Quads with RDF dataset
// canonicalization.
type RDFC struct {
	documentLoader ld.DocumentLoader
	algorithm      string
	safeMode       bool
}

// NewRDFC creates a JSON-LD canonicalizer. Without a loader only the
// EmbeddedContexts resolve.
func NewRDFC(opts ...ProcessorOpt) *RDFC {
	p := &RDFC{
		documentLoader: NewOfflineLoader(),
		algorithm:      ld.AlgorithmURDNA2015,
		safeMode:       true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Canonicalize canonicalizes a document using JSON-LD processing.
func (p *RDFC) Canonicalize(doc map[string]interface{}) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("failed to canonicalize document: document is nil")
	}

	// json-gold may rewrite parts of its input while expanding.
	input, err := deepCopy(doc)
	if err != nil {
		return nil, err
	}

	processor := ld.NewJsonLdProcessor()
	jsonldOptions := ld.NewJsonLdOptions("")
	jsonldOptions.Format = "application/n-quads"
	jsonldOptions.Algorithm = p.algorithm
	jsonldOptions.DocumentLoader = p.documentLoader
	jsonldOptions.SafeMode = p.safeMode

	canonicalized, err := processor.Normalize(input, jsonldOptions)
	if err != nil {
		if isLoadFailure(err) {
			return nil, fmt.Errorf("%w: %v", ErrContextUnavailable, err)
		}
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}

	nquads, ok := canonicalized.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected normalize result %T", canonicalized)
	}
	if nquads == "" {
		return nil, fmt.Errorf("document produced an empty RDF dataset")
	}
	return []byte(nquads), nil
}

// JCS canonicalizes documents with the JSON Canonicalization Scheme
// (RFC 8785).
type JCS struct{}

// NewJCS creates a JCS canonicalizer.
func NewJCS() *JCS {
	return &JCS{}
}

// Canonicalize serializes doc and applies RFC 8785.
func (JCS) Canonicalize(doc map[string]interface{}) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("failed to canonicalize document: document is nil")
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to transform document: %w", err)
	}
	return out, nil
}

func isLoadFailure(err error) bool {
	var jsonldErr *ld.JsonLdError
	if !errors.As(err, &jsonldErr) {
		return false
	}
	return jsonldErr.Code == ld.LoadingDocumentFailed || jsonldErr.Code == ld.LoadingRemoteContextFailed
}

func deepCopy(doc map[string]interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document copy: %w", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document copy: %w", err)
	}
	return out, nil
}
