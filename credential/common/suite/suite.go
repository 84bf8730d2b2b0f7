// Package suite implements the linked data signature suites used to verify
// proofs attached to credentials and presentations.
package suite

import (
	"errors"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/pilacorp/go-credential-verifier/credential/common/dto"
	"github.com/pilacorp/go-credential-verifier/credential/common/model"
)

// ErrRegistryFrozen is returned when registering into a frozen registry.
var ErrRegistryFrozen = errors.New("signature suite registry is frozen")

// SignatureSuite computes the data a proof signs and checks the signature.
type SignatureSuite interface {
	// CreateVerifyData returns H(canon(proofOptions)) || H(canon(document)).
	CreateVerifyData(document, proofOptions map[string]interface{}) ([]byte, error)
	// Verify checks the signature carried by proof over verifyData.
	Verify(verifyData []byte, proof *dto.Proof, key *model.PublicKey) error
}

// Registry maps proof types and cryptosuite names to suites.
type Registry struct {
	mu     sync.RWMutex
	suites map[string]SignatureSuite
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{suites: make(map[string]SignatureSuite)}
}

// Register binds a suite to a proof type or cryptosuite name, replacing any
// previous binding.
func (r *Registry) Register(key string, s SignatureSuite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}
	r.suites[key] = s
	return nil
}

// Get looks up a suite.
func (r *Registry) Get(key string) (SignatureSuite, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.suites[key]
	return s, ok
}

// Keys returns the registered names in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := lo.Keys(r.suites)
	sort.Strings(keys)
	return keys
}

// Freeze rejects further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}
