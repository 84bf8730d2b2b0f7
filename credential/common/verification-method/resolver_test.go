package verificationmethod_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pilacorp/go-credential-verifier/credential/common/model"
	verificationmethod "github.com/pilacorp/go-credential-verifier/credential/common/verification-method"
	"github.com/pilacorp/go-credential-verifier/credential/common/verification-method/mocks"
)

func testKeyHex(t *testing.T) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return hex.EncodeToString(crypto.CompressPubkey(&key.PublicKey))
}

func documentJSON(did, pubHex string) []byte {
	return []byte(`{
	  "@context": ["https://www.w3.org/ns/did/v1"],
	  "id": "` + did + `",
	  "verificationMethod": [
	    {"id": "` + did + `#key-1", "type": "EcdsaSecp256k1VerificationKey2019", "controller": "` + did + `", "publicKeyHex": "` + pubHex + `"},
	    {"id": "#key-2", "type": "EcdsaSecp256k1VerificationKey2019", "publicKeyHex": "` + pubHex + `"}
	  ],
	  "assertionMethod": ["#key-2"]
	}`)
}

func testDocument(t *testing.T, did string) (*model.DIDDocument, []byte) {
	t.Helper()
	raw := documentJSON(did, testKeyHex(t))

	var doc model.DIDDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	return &doc, raw
}

func TestMethodFromDocument(t *testing.T) {
	did := "did:example:issuer"
	doc, _ := testDocument(t, did)

	tests := []struct {
		name       string
		uri        string
		expectID   string
		expectErr  bool
		controller string
	}{
		{name: "absolute id", uri: did + "#key-1", expectID: did + "#key-1", controller: did},
		{name: "relative id", uri: did + "#key-2", expectID: did + "#key-2", controller: did},
		{name: "no fragment uses assertion method", uri: did, expectID: did + "#key-2", controller: did},
		{name: "unknown fragment", uri: did + "#key-9", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, err := verificationmethod.MethodFromDocument(doc, tt.uri)
			if tt.expectErr {
				assert.ErrorIs(t, err, verificationmethod.ErrMethodNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectID, method.ID)
			assert.Equal(t, tt.controller, method.Controller)
			assert.True(t, method.External)
			assert.NotNil(t, method.PublicKey.Key)
		})
	}

	t.Run("no fragment and no assertion method uses first method", func(t *testing.T) {
		bare := *doc
		bare.AssertionMethod = nil
		method, err := verificationmethod.MethodFromDocument(&bare, did)
		require.NoError(t, err)
		assert.Equal(t, did+"#key-1", method.ID)
	})
}

func TestStaticResolver(t *testing.T) {
	doc, _ := testDocument(t, "did:example:issuer")
	r := verificationmethod.NewStaticResolver(doc)

	assert.True(t, r.Accepts("did:example:issuer#key-1"))
	assert.False(t, r.Accepts("did:example:other#key-1"))

	method, err := r.Resolve(context.Background(), "did:example:issuer#key-1")
	require.NoError(t, err)
	assert.Equal(t, "did:example:issuer", method.ControllerDID())

	_, err = r.Resolve(context.Background(), "did:example:other#key-1")
	assert.Error(t, err)
}

func TestDIDKeyResolver(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	did, err := verificationmethod.DIDKeyFromPublicKey(pub)
	require.NoError(t, err)

	r := verificationmethod.NewDIDKeyResolver()
	assert.True(t, r.Accepts(did))
	assert.False(t, r.Accepts("did:web:example.com"))

	fragment := strings.TrimPrefix(did, "did:key:")
	for _, uri := range []string{did, did + "#" + fragment} {
		method, err := r.Resolve(context.Background(), uri)
		require.NoError(t, err)
		assert.Equal(t, did, method.Controller)
		assert.Equal(t, pub, method.PublicKey.Key)
	}

	_, err = r.Resolve(context.Background(), did+"#other")
	assert.Error(t, err)
	_, err = r.Resolve(context.Background(), "did:key:zInvalid")
	assert.Error(t, err)
}

func TestKeyResolvers(t *testing.T) {
	ctx := context.Background()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	static := verificationmethod.NewStaticKeyResolver()
	static.Add("did:web:issuer#key-1", pub)

	key, err := static.Resolve(ctx, "did:web:issuer#key-1")
	require.NoError(t, err)
	assert.Equal(t, pub, key.Key)

	_, err = static.Resolve(ctx, "did:web:issuer#key-2")
	assert.ErrorIs(t, err, verificationmethod.ErrKeyNotFound)

	doc, _ := testDocument(t, "did:example:issuer")
	methods := verificationmethod.NewMethodKeyResolver(verificationmethod.NewStaticResolver(doc))
	key, err = methods.Resolve(ctx, "did:example:issuer#key-1")
	require.NoError(t, err)
	assert.NotNil(t, key.Key)

	_, err = methods.Resolve(ctx, "did:unknown:x#key-1")
	assert.ErrorIs(t, err, verificationmethod.ErrKeyNotFound)

	chain := verificationmethod.ChainKeyResolver{static, methods}
	_, err = chain.Resolve(ctx, "did:example:issuer#key-1")
	assert.NoError(t, err)
	_, err = chain.Resolve(ctx, "did:web:issuer#key-1")
	assert.NoError(t, err)
	_, err = chain.Resolve(ctx, "did:none:x#k")
	assert.ErrorIs(t, err, verificationmethod.ErrKeyNotFound)
}

func TestChainKeyResolverStopsOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	failing := mocks.NewMockKeyResolver(ctrl)
	next := mocks.NewMockKeyResolver(ctrl)

	failing.EXPECT().Resolve(gomock.Any(), "kid").Return(nil, errors.New("backend down"))

	_, err := verificationmethod.ChainKeyResolver{failing, next}.Resolve(context.Background(), "kid")
	assert.EqualError(t, err, "backend down")
}

func TestResolveFirstAccepting(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mocks.NewMockResolver(ctrl)
	second := mocks.NewMockResolver(ctrl)

	first.EXPECT().Accepts("did:web:a#k").Return(false)
	second.EXPECT().Accepts("did:web:a#k").Return(true)
	second.EXPECT().Resolve(gomock.Any(), "did:web:a#k").Return(&model.VerificationMethod{ID: "did:web:a#k"}, nil)

	method, err := verificationmethod.Resolve(context.Background(), []verificationmethod.Resolver{first, second}, "did:web:a#k")
	require.NoError(t, err)
	assert.Equal(t, "did:web:a#k", method.ID)

	_, err = verificationmethod.Resolve(context.Background(), nil, "did:web:a#k")
	assert.ErrorIs(t, err, verificationmethod.ErrNotAccepted)
}

func TestHTTPResolver(t *testing.T) {
	pubHex := testKeyHex(t)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		did := strings.TrimPrefix(r.URL.Path, "/")
		switch {
		case strings.Contains(did, "missing"):
			w.WriteHeader(http.StatusNotFound)
		case strings.Contains(did, "flaky") && n == 1:
			w.WriteHeader(http.StatusInternalServerError)
		case strings.Contains(did, "impostor"):
			_, _ = w.Write(documentJSON("did:example:issuer", pubHex))
		case strings.Contains(did, "slow"):
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write(documentJSON(did, pubHex))
		default:
			_, _ = w.Write(documentJSON(did, pubHex))
		}
	}))
	defer server.Close()

	t.Run("resolves method", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		observer := mocks.NewMockResolutionObserver(ctrl)
		observer.EXPECT().ObserveResolution("success")

		r := verificationmethod.NewResolver(server.URL, verificationmethod.WithObserver(observer))
		assert.True(t, r.Accepts("did:example:issuer#key-1"))
		assert.False(t, r.Accepts("https://example.com/key"))

		method, err := r.Resolve(context.Background(), "did:example:issuer#key-1")
		require.NoError(t, err)
		assert.Equal(t, "did:example:issuer", method.Controller)
	})

	t.Run("retries server errors", func(t *testing.T) {
		calls.Store(0)
		r := verificationmethod.NewResolver(server.URL, verificationmethod.WithRetry(2, time.Millisecond))
		doc, err := r.ResolveToDoc(context.Background(), "did:example:flaky")
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, "did:example:flaky", doc.ID)
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		observer := mocks.NewMockResolutionObserver(ctrl)
		observer.EXPECT().ObserveResolution("error")

		calls.Store(0)
		r := verificationmethod.NewResolver(server.URL,
			verificationmethod.WithRetry(3, time.Millisecond), verificationmethod.WithObserver(observer))
		_, err := r.ResolveToDoc(context.Background(), "did:example:missing")
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("document id must match", func(t *testing.T) {
		r := verificationmethod.NewResolver(server.URL)
		_, err := r.Resolve(context.Background(), "did:example:impostor#key-1")
		assert.Error(t, err)
	})

	t.Run("timeout regardless of option order", func(t *testing.T) {
		orders := [][]verificationmethod.HTTPOpt{
			{verificationmethod.WithTimeout(20 * time.Millisecond), verificationmethod.WithHTTPClient(server.Client())},
			{verificationmethod.WithHTTPClient(server.Client()), verificationmethod.WithTimeout(20 * time.Millisecond)},
		}
		for _, opts := range orders {
			opts = append(opts, verificationmethod.WithRetry(0, time.Millisecond))
			r := verificationmethod.NewResolver(server.URL, opts...)
			_, err := r.ResolveToDoc(context.Background(), "did:example:slow")
			assert.Error(t, err)
		}
	})

	t.Run("method prefixes", func(t *testing.T) {
		r := verificationmethod.NewResolver(server.URL, verificationmethod.WithMethods("did:example:"))
		assert.True(t, r.Accepts("did:example:issuer#key-1"))
		assert.False(t, r.Accepts("did:web:issuer#key-1"))
	})
}

func TestDecodeResolutionEnvelope(t *testing.T) {
	did := "did:example:issuer"
	_, raw := testDocument(t, did)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"didDocument": ` + string(raw) + `}`))
	}))
	defer server.Close()

	doc, err := verificationmethod.NewResolver(server.URL).ResolveToDoc(context.Background(), did)
	require.NoError(t, err)
	assert.Equal(t, did, doc.ID)
	assert.Len(t, doc.VerificationMethod, 2)
}

func TestDIDWebResolver(t *testing.T) {
	pubHex := testKeyHex(t)

	var raw []byte
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/did.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(raw)
	}))
	defer server.Close()

	host := strings.TrimPrefix(server.URL, "https://")
	did := "did:web:" + strings.ReplaceAll(host, ":", "%3A")
	raw = documentJSON(did, pubHex)

	r := verificationmethod.NewDIDWebResolver(verificationmethod.WithHTTPClient(server.Client()))
	assert.True(t, r.Accepts(did+"#key-1"))
	assert.False(t, r.Accepts("did:key:z6Mk"))

	method, err := r.Resolve(context.Background(), did+"#key-1")
	require.NoError(t, err)
	assert.Equal(t, did, method.Controller)
}

func TestDIDWebURL(t *testing.T) {
	tests := []struct {
		did       string
		expectURL string
		expectErr bool
	}{
		{did: "did:web:example.com", expectURL: "https://example.com/.well-known/did.json"},
		{did: "did:web:example.com:user:alice", expectURL: "https://example.com/user/alice/did.json"},
		{did: "did:web:localhost%3A8443", expectURL: "https://localhost:8443/.well-known/did.json"},
		{did: "did:key:z6Mk", expectErr: true},
		{did: "did:web:", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.did, func(t *testing.T) {
			got, err := verificationmethod.DIDWebURL(tt.did)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectURL, got)
		})
	}
}

func TestCachingResolver(t *testing.T) {
	ctx := context.Background()
	uri := "did:web:issuer#key-1"

	t.Run("caches successes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := mocks.NewMockResolver(ctrl)
		next.EXPECT().Resolve(gomock.Any(), uri).Return(&model.VerificationMethod{ID: uri}, nil).Times(1)

		r := verificationmethod.NewCachingResolver(next, 10, time.Minute)
		for i := 0; i < 3; i++ {
			method, err := r.Resolve(ctx, uri)
			require.NoError(t, err)
			assert.Equal(t, uri, method.ID)
		}
	})

	t.Run("does not cache failures", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := mocks.NewMockResolver(ctrl)
		next.EXPECT().Resolve(gomock.Any(), uri).Return(nil, errors.New("unreachable")).Times(2)

		r := verificationmethod.NewCachingResolver(next, 10, time.Minute)
		_, err := r.Resolve(ctx, uri)
		assert.Error(t, err)
		_, err = r.Resolve(ctx, uri)
		assert.Error(t, err)
	})

	t.Run("empty result", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := mocks.NewMockResolver(ctrl)
		next.EXPECT().Resolve(gomock.Any(), uri).Return(nil, nil).Times(2)

		r := verificationmethod.NewCachingResolver(next, 10, time.Minute)
		for i := 0; i < 2; i++ {
			method, err := r.Resolve(ctx, uri)
			assert.ErrorIs(t, err, verificationmethod.ErrMethodNotFound)
			assert.Nil(t, method)
		}
	})

	t.Run("returns copies", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := mocks.NewMockResolver(ctrl)
		next.EXPECT().Accepts(uri).Return(true)
		next.EXPECT().Resolve(gomock.Any(), uri).Return(&model.VerificationMethod{ID: uri, Controller: "did:web:issuer"}, nil)

		r := verificationmethod.NewCachingResolver(next, 10, 0)
		assert.True(t, r.Accepts(uri))

		first, err := r.Resolve(ctx, uri)
		require.NoError(t, err)
		first.Controller = "tampered"

		second, err := r.Resolve(ctx, uri)
		require.NoError(t, err)
		assert.Equal(t, "did:web:issuer", second.Controller)
	})
}
