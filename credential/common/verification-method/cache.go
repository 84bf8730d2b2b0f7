package verificationmethod

import (
	"context"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"

	"github.com/pilacorp/go-credential-verifier/credential/common/model"
)

// CachingResolver memoizes successful resolutions of another resolver and
// collapses concurrent lookups of the same URI into one.
type CachingResolver struct {
	next  Resolver
	cache gcache.Cache
	group singleflight.Group
}

// NewCachingResolver wraps next with an LRU cache of the given size whose
// entries expire after ttl.
func NewCachingResolver(next Resolver, size int, ttl time.Duration) *CachingResolver {
	builder := gcache.New(size).LRU()
	if ttl > 0 {
		builder = builder.Expiration(ttl)
	}
	return &CachingResolver{
		next:  next,
		cache: builder.Build(),
	}
}

// Accepts implements Resolver.
func (r *CachingResolver) Accepts(uri string) bool {
	return r.next.Accepts(uri)
}

// Resolve implements Resolver. Failures are not cached.
func (r *CachingResolver) Resolve(ctx context.Context, uri string) (*model.VerificationMethod, error) {
	if v, err := r.cache.Get(uri); err == nil {
		return copyMethod(v.(*model.VerificationMethod)), nil
	}

	v, err, _ := r.group.Do(uri, func() (interface{}, error) {
		method, err := r.next.Resolve(ctx, uri)
		if err != nil {
			return nil, err
		}
		if method == nil {
			return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, uri)
		}
		_ = r.cache.Set(uri, method)
		return method, nil
	})
	if err != nil {
		return nil, err
	}
	return copyMethod(v.(*model.VerificationMethod)), nil
}

func copyMethod(m *model.VerificationMethod) *model.VerificationMethod {
	out := *m
	return &out
}
