package verificationmethod

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/pilacorp/go-credential-verifier/credential/common/model"
)

const maxDocumentSize = 1 << 20

// DefaultRetryInterval is the first backoff interval between retries.
const DefaultRetryInterval = 200 * time.Millisecond

// HTTPOpt configures an HTTPResolver.
type HTTPOpt func(*HTTPResolver)

// WithHTTPClient replaces the HTTP client. Its transport is wrapped for
// tracing.
func WithHTTPClient(client *http.Client) HTTPOpt {
	return func(r *HTTPResolver) {
		c := *client
		c.Transport = otelhttp.NewTransport(transportOrDefault(client.Transport))
		r.client = &c
	}
}

// WithTimeout sets the per-request timeout. It applies to the client given
// by WithHTTPClient as well.
func WithTimeout(timeout time.Duration) HTTPOpt {
	return func(r *HTTPResolver) {
		r.timeout = timeout
	}
}

// WithRetry sets how many times a failed request is retried and the first
// backoff interval.
func WithRetry(maxRetries uint64, initialInterval time.Duration) HTTPOpt {
	return func(r *HTTPResolver) {
		r.maxRetries = maxRetries
		r.initialInterval = initialInterval
	}
}

// WithMethods restricts the resolver to DIDs with the given method
// prefixes, e.g. "did:web:".
func WithMethods(prefixes ...string) HTTPOpt {
	return func(r *HTTPResolver) {
		r.prefixes = prefixes
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) HTTPOpt {
	return func(r *HTTPResolver) {
		r.logger = logger
	}
}

// WithObserver reports resolution outcomes.
func WithObserver(observer ResolutionObserver) HTTPOpt {
	return func(r *HTTPResolver) {
		r.observer = observer
	}
}

// HTTPResolver fetches DID documents over HTTP, either from a universal
// resolver style endpoint or by did:web URL mapping.
type HTTPResolver struct {
	client          *http.Client
	timeout         time.Duration
	urlFor          func(did string) (string, error)
	prefixes        []string
	maxRetries      uint64
	initialInterval time.Duration
	logger          *zap.Logger
	observer        ResolutionObserver
}

// NewResolver creates a resolver that fetches baseURL + "/" + DID.
func NewResolver(baseURL string, opts ...HTTPOpt) *HTTPResolver {
	base := strings.TrimSuffix(baseURL, "/")
	return newHTTPResolver(func(did string) (string, error) {
		return base + "/" + url.PathEscape(did), nil
	}, opts...)
}

// NewDIDWebResolver creates a resolver for did:web identifiers.
func NewDIDWebResolver(opts ...HTTPOpt) *HTTPResolver {
	opts = append([]HTTPOpt{WithMethods("did:web:")}, opts...)
	return newHTTPResolver(DIDWebURL, opts...)
}

func newHTTPResolver(urlFor func(string) (string, error), opts ...HTTPOpt) *HTTPResolver {
	r := &HTTPResolver{
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout:         -1,
		urlFor:          urlFor,
		maxRetries:      2,
		initialInterval: DefaultRetryInterval,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.timeout >= 0 {
		r.client.Timeout = r.timeout
	}
	return r
}

func transportOrDefault(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}

// DIDWebURL maps a did:web identifier to the URL of its DID document.
func DIDWebURL(did string) (string, error) {
	id := strings.TrimPrefix(did, "did:web:")
	if id == did || id == "" {
		return "", fmt.Errorf("'%s' is not a did:web identifier", did)
	}

	segments := strings.Split(id, ":")
	for i, s := range segments {
		unescaped, err := url.PathUnescape(s)
		if err != nil {
			return "", fmt.Errorf("invalid did:web segment '%s': %w", s, err)
		}
		segments[i] = unescaped
	}

	if len(segments) == 1 {
		return "https://" + segments[0] + "/.well-known/did.json", nil
	}
	return "https://" + strings.Join(segments, "/") + "/did.json", nil
}

// Accepts implements Resolver.
func (r *HTTPResolver) Accepts(uri string) bool {
	if !strings.HasPrefix(uri, "did:") {
		return false
	}
	if len(r.prefixes) == 0 {
		return true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(uri, p) {
			return true
		}
	}
	return false
}

// Resolve implements Resolver.
func (r *HTTPResolver) Resolve(ctx context.Context, uri string) (*model.VerificationMethod, error) {
	did, err := GetDIDFromVerificationMethod(uri)
	if err != nil {
		return nil, err
	}

	doc, err := r.ResolveToDoc(ctx, did)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DID '%s': %w", did, err)
	}
	return MethodFromDocument(doc, uri)
}

// ResolveToDoc fetches and parses a DID document, retrying transient
// failures.
func (r *HTTPResolver) ResolveToDoc(ctx context.Context, did string) (*model.DIDDocument, error) {
	apiURL, err := r.urlFor(did)
	if err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval

	var doc *model.DIDDocument
	attempt := 0
	operation := func() error {
		attempt++
		d, err := r.fetch(ctx, apiURL)
		if err != nil {
			r.logger.Debug("DID document fetch failed",
				zap.String("did", did), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		doc = d
		return nil
	}

	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx))
	r.observe(err)
	if err != nil {
		return nil, err
	}
	if doc.ID != "" && doc.ID != did {
		return nil, fmt.Errorf("DID document id '%s' does not match requested DID '%s'", doc.ID, did)
	}
	return doc, nil
}

func (r *HTTPResolver) observe(err error) {
	if r.observer == nil {
		return
	}
	if err != nil {
		r.observer.ObserveResolution("error")
		return
	}
	r.observer.ObserveResolution("success")
}

func (r *HTTPResolver) fetch(ctx context.Context, apiURL string) (*model.DIDDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/did+json, application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("failed to make HTTP request to DID resolver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("DID resolver API returned non-200 status: %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from DID resolver: %w", err)
	}

	doc, err := decodeDIDDocument(body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return doc, nil
}

// decodeDIDDocument accepts a bare DID document or a DID resolution result
// wrapping one in "didDocument".
func decodeDIDDocument(body []byte) (*model.DIDDocument, error) {
	var envelope struct {
		DIDDocument json.RawMessage `json:"didDocument"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DID document JSON: %w", err)
	}
	if len(envelope.DIDDocument) > 0 && string(envelope.DIDDocument) != "null" {
		body = envelope.DIDDocument
	}

	var doc model.DIDDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DID document JSON: %w", err)
	}
	return &doc, nil
}
