package verificationmethod

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"strings"
	"sync"

	vmcrypto "github.com/pilacorp/go-credential-verifier/credential/common/crypto"
	"github.com/pilacorp/go-credential-verifier/credential/common/model"
)

var (
	// ErrKeyNotFound is returned by key resolvers for an unknown key id.
	ErrKeyNotFound = errors.New("key not found")

	// ErrNotAccepted is returned when no resolver accepts a URI.
	ErrNotAccepted = errors.New("no resolver accepts verification method")

	// ErrMethodNotFound is returned when a DID document has no matching
	// verification method.
	ErrMethodNotFound = errors.New("verification method not found in DID document")
)

// Resolver resolves a verification method URI, typically a DID URL, to a
// verification method.
type Resolver interface {
	// Accepts reports whether this resolver handles the URI.
	Accepts(uri string) bool
	Resolve(ctx context.Context, uri string) (*model.VerificationMethod, error)
}

// KeyResolver resolves a flat key id (issuer id plus key fragment) to public
// key material.
type KeyResolver interface {
	Resolve(ctx context.Context, keyID string) (*model.PublicKey, error)
}

// ResolutionObserver is notified of every external resolution outcome.
type ResolutionObserver interface {
	ObserveResolution(outcome string)
}

// Resolve hands uri to the first resolver that accepts it.
func Resolve(ctx context.Context, resolvers []Resolver, uri string) (*model.VerificationMethod, error) {
	for _, r := range resolvers {
		if r.Accepts(uri) {
			return r.Resolve(ctx, uri)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotAccepted, uri)
}

// GetDIDFromVerificationMethod extracts the DID from a verification method URL.
func GetDIDFromVerificationMethod(verificationMethod string) (string, error) {
	if verificationMethod == "" {
		return "", fmt.Errorf("verification method is empty")
	}

	didPart, _, _ := strings.Cut(verificationMethod, "#")
	if !strings.HasPrefix(didPart, "did:") {
		return "", fmt.Errorf("extracted DID '%s' is invalid, must start with 'did:'", didPart)
	}
	return didPart, nil
}

// MethodFromDocument finds the verification method named by uri in doc. A
// URI without fragment selects the first assertionMethod, or the first
// verification method when the document lists none.
func MethodFromDocument(doc *model.DIDDocument, uri string) (*model.VerificationMethod, error) {
	_, fragment, hasFragment := strings.Cut(uri, "#")

	candidates := append(append([]model.VerificationMethodEntry{}, doc.VerificationMethod...), doc.EmbeddedMethods()...)
	matches := func(entry *model.VerificationMethodEntry, target string) bool {
		return entry.ID == target || doc.ID+entry.ID == target
	}

	target := uri
	if !hasFragment || fragment == "" {
		target = ""
		if ids := doc.AssertionMethodIDs(); len(ids) > 0 {
			target = ids[0]
			if strings.HasPrefix(target, "#") {
				target = doc.ID + target
			}
		}
	}

	for i := range candidates {
		entry := &candidates[i]
		if target == "" || matches(entry, target) {
			return methodFromEntry(entry, doc.ID)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, uri)
}

func methodFromEntry(entry *model.VerificationMethodEntry, documentID string) (*model.VerificationMethod, error) {
	key, err := vmcrypto.PublicKeyFromEntry(entry)
	if err != nil {
		return nil, err
	}

	id := entry.ID
	if strings.HasPrefix(id, "#") {
		id = documentID + id
	}
	controller := entry.Controller
	if controller == "" {
		controller = documentID
	}
	key.ID = id

	return &model.VerificationMethod{
		ID:         id,
		Type:       entry.Type,
		Controller: controller,
		PublicKey:  key,
		External:   true,
	}, nil
}

// StaticResolver serves verification methods from DID documents held in
// memory.
type StaticResolver struct {
	mu        sync.RWMutex
	documents map[string]*model.DIDDocument
}

// NewStaticResolver creates a resolver over the given documents.
func NewStaticResolver(docs ...*model.DIDDocument) *StaticResolver {
	r := &StaticResolver{documents: make(map[string]*model.DIDDocument)}
	for _, doc := range docs {
		r.Add(doc)
	}
	return r
}

// Add stores a DID document under its id.
func (r *StaticResolver) Add(doc *model.DIDDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[doc.ID] = doc
}

// Accepts reports whether the DID of uri is known.
func (r *StaticResolver) Accepts(uri string) bool {
	did, _, _ := strings.Cut(uri, "#")
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.documents[did]
	return ok
}

// Resolve implements Resolver.
func (r *StaticResolver) Resolve(_ context.Context, uri string) (*model.VerificationMethod, error) {
	did, _, _ := strings.Cut(uri, "#")
	r.mu.RLock()
	doc, ok := r.documents[did]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("DID '%s' is unknown", did)
	}
	return MethodFromDocument(doc, uri)
}

// StaticKeyResolver maps key ids to trusted keys.
type StaticKeyResolver struct {
	mu   sync.RWMutex
	keys map[string]*model.PublicKey
}

// NewStaticKeyResolver creates an empty key resolver.
func NewStaticKeyResolver() *StaticKeyResolver {
	return &StaticKeyResolver{keys: make(map[string]*model.PublicKey)}
}

// Add registers key under keyID.
func (r *StaticKeyResolver) Add(keyID string, key crypto.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[keyID] = &model.PublicKey{ID: keyID, Key: key}
}

// Resolve implements KeyResolver.
func (r *StaticKeyResolver) Resolve(_ context.Context, keyID string) (*model.PublicKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, keyID)
	}
	return key, nil
}

// MethodKeyResolver resolves key ids as verification method URIs.
type MethodKeyResolver struct {
	resolvers []Resolver
}

// NewMethodKeyResolver creates a KeyResolver backed by method resolvers,
// tried in order.
func NewMethodKeyResolver(resolvers ...Resolver) *MethodKeyResolver {
	return &MethodKeyResolver{resolvers: resolvers}
}

// Resolve implements KeyResolver.
func (r *MethodKeyResolver) Resolve(ctx context.Context, keyID string) (*model.PublicKey, error) {
	method, err := Resolve(ctx, r.resolvers, keyID)
	if err != nil {
		if errors.Is(err, ErrNotAccepted) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, keyID)
		}
		return nil, err
	}
	return method.PublicKey, nil
}

// ChainKeyResolver tries key resolvers in order and returns the first key
// found. Errors other than ErrKeyNotFound stop the chain.
type ChainKeyResolver []KeyResolver

// Resolve implements KeyResolver.
func (c ChainKeyResolver) Resolve(ctx context.Context, keyID string) (*model.PublicKey, error) {
	for _, r := range c {
		key, err := r.Resolve(ctx, keyID)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrKeyNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, keyID)
}
