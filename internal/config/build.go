package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/piprate/json-gold/ld"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	vmcrypto "github.com/pilacorp/go-credential-verifier/credential/common/crypto"
	"github.com/pilacorp/go-credential-verifier/credential/common/metrics"
	"github.com/pilacorp/go-credential-verifier/credential/common/model"
	"github.com/pilacorp/go-credential-verifier/credential/common/processor"
	"github.com/pilacorp/go-credential-verifier/credential/common/schema"
	"github.com/pilacorp/go-credential-verifier/credential/common/suite"
	verificationmethod "github.com/pilacorp/go-credential-verifier/credential/common/verification-method"
	"github.com/pilacorp/go-credential-verifier/credential/verifier"
)

// BuildOpt adds runtime dependencies that do not come from the file.
type BuildOpt func(*buildOptions)

type buildOptions struct {
	logger         *zap.Logger
	metrics        *metrics.Metrics
	tracerProvider trace.TracerProvider
}

// WithLogger sets the logger of the verifier and its resolvers.
func WithLogger(logger *zap.Logger) BuildOpt {
	return func(o *buildOptions) {
		o.logger = logger
	}
}

// WithMetrics records verification and resolution outcomes.
func WithMetrics(m *metrics.Metrics) BuildOpt {
	return func(o *buildOptions) {
		o.metrics = m
	}
}

// WithTracerProvider sets the tracer provider of the verifier.
func WithTracerProvider(tp trace.TracerProvider) BuildOpt {
	return func(o *buildOptions) {
		o.tracerProvider = tp
	}
}

// Build assembles a verifier and the top level context described by cfg.
func Build(cfg *Config, opts ...BuildOpt) (*verifier.Verifier, *verifier.VerifierContext, error) {
	o := &buildOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	loader, err := cfg.documentLoader()
	if err != nil {
		return nil, nil, err
	}

	var suiteOpts []suite.DefaultOpt
	if cfg.JWS2020Canonicalization == CanonicalizationJCS {
		suiteOpts = append(suiteOpts, suite.WithJWS2020JCS())
	}

	static, trusted, err := cfg.localResolvers()
	if err != nil {
		return nil, nil, err
	}

	resolvers := []verificationmethod.Resolver{static, verificationmethod.NewDIDKeyResolver()}
	resolvers = append(resolvers, cfg.remoteResolvers(o)...)

	verifierOpts := []verifier.Option{
		verifier.WithResolvers(resolvers...),
		verifier.WithKeyResolver(verificationmethod.ChainKeyResolver{
			trusted,
			verificationmethod.NewMethodKeyResolver(resolvers...),
		}),
		verifier.WithSuites(suite.NewDefaultRegistry(loader, suiteOpts...)),
		verifier.WithLogger(o.logger),
	}
	if len(cfg.Algorithms) > 0 {
		verifierOpts = append(verifierOpts, verifier.WithAlgorithms(cfg.Algorithms...))
	}
	if o.metrics != nil {
		verifierOpts = append(verifierOpts, verifier.WithMetrics(o.metrics))
	}
	if o.tracerProvider != nil {
		verifierOpts = append(verifierOpts, verifier.WithTracerProvider(o.tracerProvider))
	}

	schemas, err := cfg.schemaValidator()
	if err != nil {
		return nil, nil, err
	}
	if schemas != nil {
		verifierOpts = append(verifierOpts, verifier.WithSchemas(schemas))
	}

	v, err := verifier.New(verifierOpts...)
	if err != nil {
		return nil, nil, err
	}

	contextOpts := []verifier.ContextOpt{verifier.WithAudience(cfg.Audience)}
	if cfg.ProofPurpose != "" {
		contextOpts = append(contextOpts, verifier.WithProofPurpose(cfg.ProofPurpose))
	}
	return v, verifier.NewVerifierContext(contextOpts...), nil
}

func (c *Config) documentLoader() (*processor.OfflineLoader, error) {
	var loaderOpts []processor.LoaderOpt
	if c.AllowRemoteContexts {
		loaderOpts = append(loaderOpts, processor.WithFallback(ld.NewDefaultDocumentLoader(nil)))
	}
	loader := processor.NewOfflineLoader(loaderOpts...)

	for url, file := range c.Contexts {
		raw, err := c.readFile(file)
		if err != nil {
			return nil, err
		}
		if err := loader.AddDocument(url, raw); err != nil {
			return nil, err
		}
	}
	return loader, nil
}

// localResolvers loads the configured DID documents and trusted keys. Keys
// with a DID controller are added to that DID's document.
func (c *Config) localResolvers() (*verificationmethod.StaticResolver, *verificationmethod.StaticKeyResolver, error) {
	docs := make(map[string]*model.DIDDocument)
	var order []string

	for _, file := range c.DIDDocuments {
		raw, err := c.readFile(file)
		if err != nil {
			return nil, nil, err
		}
		var doc model.DIDDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, nil, fmt.Errorf("failed to decode DID document %s: %w", file, err)
		}
		if doc.ID == "" {
			return nil, nil, fmt.Errorf("DID document %s has no id", file)
		}
		if _, ok := docs[doc.ID]; !ok {
			order = append(order, doc.ID)
		}
		docs[doc.ID] = &doc
	}

	keys := verificationmethod.NewStaticKeyResolver()
	for _, k := range c.TrustedKeys {
		entry, err := k.entry()
		if err != nil {
			return nil, nil, err
		}
		key, err := vmcrypto.PublicKeyFromEntry(entry)
		if err != nil {
			return nil, nil, err
		}
		keys.Add(k.ID, key.Key)

		did := trustedKeyDID(k)
		if did == "" {
			continue
		}
		doc, ok := docs[did]
		if !ok {
			doc = &model.DIDDocument{ID: did}
			docs[did] = doc
			order = append(order, did)
		}
		entry.Controller = did
		doc.VerificationMethod = append(doc.VerificationMethod, *entry)
	}

	static := verificationmethod.NewStaticResolver()
	for _, id := range order {
		static.Add(docs[id])
	}
	return static, keys, nil
}

func trustedKeyDID(k TrustedKey) string {
	if strings.HasPrefix(k.Controller, "did:") {
		return k.Controller
	}
	did, err := verificationmethod.GetDIDFromVerificationMethod(k.ID)
	if err != nil {
		return ""
	}
	return did
}

func (k TrustedKey) entry() (*model.VerificationMethodEntry, error) {
	jwk, err := k.jwk()
	if err != nil {
		return nil, err
	}
	return &model.VerificationMethodEntry{
		ID:                 k.ID,
		Type:               k.Type,
		Controller:         k.Controller,
		PublicKeyJwk:       jwk,
		PublicKeyHex:       k.PublicKeyHex,
		PublicKeyMultibase: k.PublicKeyMultibase,
		PublicKeyBase58:    k.PublicKeyBase58,
	}, nil
}

func (c *Config) remoteResolvers(o *buildOptions) []verificationmethod.Resolver {
	httpOpts := []verificationmethod.HTTPOpt{
		verificationmethod.WithRetry(c.Resolver.Retries, verificationmethod.DefaultRetryInterval),
		verificationmethod.WithLogger(o.logger),
	}
	if c.Resolver.Timeout > 0 {
		httpOpts = append(httpOpts, verificationmethod.WithTimeout(c.Resolver.Timeout))
	}
	if o.metrics != nil {
		httpOpts = append(httpOpts, verificationmethod.WithObserver(o.metrics))
	}

	var out []verificationmethod.Resolver
	if c.Resolver.DIDWeb {
		out = append(out, c.cached(verificationmethod.NewDIDWebResolver(httpOpts...)))
	}
	if c.Resolver.BaseURL != "" {
		out = append(out, c.cached(verificationmethod.NewResolver(c.Resolver.BaseURL, httpOpts...)))
	}
	return out
}

func (c *Config) cached(r verificationmethod.Resolver) verificationmethod.Resolver {
	if c.Resolver.CacheSize == 0 {
		return r
	}
	return verificationmethod.NewCachingResolver(r, c.Resolver.CacheSize, c.Resolver.CacheTTL)
}

func (c *Config) schemaValidator() (*schema.Validator, error) {
	if len(c.Schemas) == 0 {
		return nil, nil
	}

	v := schema.NewValidator()
	for id, file := range c.Schemas {
		raw, err := c.readFile(file)
		if err != nil {
			return nil, err
		}
		if err := v.Register(id, raw); err != nil {
			return nil, err
		}
	}
	return v, nil
}
