package verificationmethod

import (
	"context"
	"fmt"
	"strings"

	vmcrypto "github.com/pilacorp/go-credential-verifier/credential/common/crypto"
	"github.com/pilacorp/go-credential-verifier/credential/common/model"
)

const didKeyPrefix = "did:key:"

// DIDKeyResolver resolves did:key URLs. The key is encoded in the DID itself,
// so no I/O happens.
type DIDKeyResolver struct{}

// NewDIDKeyResolver creates a did:key resolver.
func NewDIDKeyResolver() *DIDKeyResolver {
	return &DIDKeyResolver{}
}

// Accepts implements Resolver.
func (DIDKeyResolver) Accepts(uri string) bool {
	return strings.HasPrefix(uri, didKeyPrefix)
}

// Resolve implements Resolver.
func (DIDKeyResolver) Resolve(_ context.Context, uri string) (*model.VerificationMethod, error) {
	did, fragment, _ := strings.Cut(uri, "#")
	encoded := strings.TrimPrefix(did, didKeyPrefix)
	if encoded == "" {
		return nil, fmt.Errorf("invalid did:key '%s'", uri)
	}
	if fragment != "" && fragment != encoded {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, uri)
	}

	key, err := vmcrypto.ParsePublicKeyMultibase(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode did:key '%s': %w", did, err)
	}

	id := did + "#" + encoded
	return &model.VerificationMethod{
		ID:         id,
		Type:       "Multikey",
		Controller: did,
		PublicKey:  &model.PublicKey{ID: id, Type: "Multikey", Key: key},
		External:   true,
	}, nil
}

// DIDKeyFromPublicKey returns the did:key identifier of a public key.
func DIDKeyFromPublicKey(key interface{}) (string, error) {
	encoded, err := vmcrypto.EncodeMultibase(key)
	if err != nil {
		return "", err
	}
	return didKeyPrefix + encoded, nil
}
