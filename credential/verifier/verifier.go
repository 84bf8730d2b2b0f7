package verifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/piprate/json-gold/ld"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pilacorp/go-credential-verifier/credential/common/jwt"
	"github.com/pilacorp/go-credential-verifier/credential/common/metrics"
	"github.com/pilacorp/go-credential-verifier/credential/common/processor"
	"github.com/pilacorp/go-credential-verifier/credential/common/rules"
	"github.com/pilacorp/go-credential-verifier/credential/common/schema"
	"github.com/pilacorp/go-credential-verifier/credential/common/suite"
	verificationmethod "github.com/pilacorp/go-credential-verifier/credential/common/verification-method"
	"github.com/pilacorp/go-credential-verifier/credential/common/verifyerr"
)

// Format labels.
const (
	FormatJWT = "jwt"
	FormatLDP = "ldp"
)

const tracerName = "github.com/pilacorp/go-credential-verifier/credential/verifier"

// Option configures a Verifier.
type Option func(*options)

type options struct {
	keyResolver    verificationmethod.KeyResolver
	resolvers      []verificationmethod.Resolver
	rules          *rules.Registry
	suites         *suite.Registry
	documentLoader ld.DocumentLoader
	schemas        *schema.Validator
	algorithms     []string
	clock          func() time.Time
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	metrics        *metrics.Metrics
}

// WithKeyResolver sets the resolver for compact token "kid" values. It
// defaults to looking the kid up through the method resolvers.
func WithKeyResolver(r verificationmethod.KeyResolver) Option {
	return func(o *options) {
		o.keyResolver = r
	}
}

// WithResolvers sets the verification method resolvers, tried in order.
// The default is did:key only.
func WithResolvers(resolvers ...verificationmethod.Resolver) Option {
	return func(o *options) {
		o.resolvers = resolvers
	}
}

// WithRules sets the claim rules. The default is rules.NewDefaultRegistry.
func WithRules(r *rules.Registry) Option {
	return func(o *options) {
		o.rules = r
	}
}

// WithSuites sets the signature suites. The default is
// suite.NewDefaultRegistry over the document loader.
func WithSuites(r *suite.Registry) Option {
	return func(o *options) {
		o.suites = r
	}
}

// WithDocumentLoader sets the JSON-LD loader of the default suites. The
// default is a processor.OfflineLoader with the embedded contexts.
func WithDocumentLoader(loader ld.DocumentLoader) Option {
	return func(o *options) {
		o.documentLoader = loader
	}
}

// WithSchemas enables credentialSchema validation for both encodings.
func WithSchemas(v *schema.Validator) Option {
	return func(o *options) {
		o.schemas = v
	}
}

// WithAlgorithms restricts the accepted compact token algorithms.
func WithAlgorithms(algs ...string) Option {
	return func(o *options) {
		o.algorithms = algs
	}
}

// WithClock sets the time source for token validity checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracerProvider sets the tracer provider. The global one is used
// otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMetrics records verification outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Verifier is the verification engine. It is safe for concurrent use.
type Verifier struct {
	tokens        *jwt.TokenVerifier
	presentations *PresentationVerifier
	linkedData    *LinkedDataVerifier
	logger        *zap.Logger
	tracer        trace.Tracer
	metrics       *metrics.Metrics
}

// New creates a Verifier. The rule and suite registries are frozen.
func New(opts ...Option) (*Verifier, error) {
	o := &options{
		clock:  time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.resolvers == nil {
		o.resolvers = []verificationmethod.Resolver{verificationmethod.NewDIDKeyResolver()}
	}
	if o.keyResolver == nil {
		o.keyResolver = verificationmethod.NewMethodKeyResolver(o.resolvers...)
	}
	if o.rules == nil {
		o.rules = rules.NewDefaultRegistry()
	}
	if o.suites == nil {
		loader := o.documentLoader
		if loader == nil {
			loader = processor.NewOfflineLoader()
		}
		o.suites = suite.NewDefaultRegistry(loader)
	}
	if o.schemas != nil {
		if err := o.rules.Add(rules.ContextCredential, rules.CredentialSchema(o.schemas)); err != nil {
			return nil, fmt.Errorf("failed to register schema rule: %w", err)
		}
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	o.rules.Freeze()
	o.suites.Freeze()

	tokenOpts := []jwt.VerifierOpt{jwt.WithClock(o.clock), jwt.WithLogger(o.logger)}
	if len(o.algorithms) > 0 {
		tokenOpts = append(tokenOpts, jwt.WithAlgorithms(o.algorithms...))
	}
	tokens := jwt.NewTokenVerifier(o.keyResolver, o.rules, tokenOpts...)

	ldOpts := []LinkedDataOpt{WithLinkedDataLogger(o.logger)}
	if o.schemas != nil {
		ldOpts = append(ldOpts, WithSchemaValidator(o.schemas))
	}

	return &Verifier{
		tokens:        tokens,
		presentations: NewPresentationVerifier(tokens),
		linkedData:    NewLinkedDataVerifier(o.suites, o.resolvers, ldOpts...),
		logger:        o.logger,
		tracer:        o.tracerProvider.Tracer(tracerName),
		metrics:       o.metrics,
	}, nil
}

// VerifyCompact verifies a compact JWT-VP and its credentials. Called for
// an entry of a presentation, it verifies a compact JWT-VC.
func (v *Verifier) VerifyCompact(ctx context.Context, token string, vctx *VerifierContext) error {
	return v.run(ctx, FormatJWT, vctx, func(ctx context.Context, vctx *VerifierContext) error {
		if vctx.isNested() {
			return verifyCredentialToken(ctx, v.tokens, token)
		}
		return v.presentations.Verify(ctx, token, vctx)
	})
}

// VerifyLinkedData verifies a linked data credential or presentation.
func (v *Verifier) VerifyLinkedData(ctx context.Context, document string, vctx *VerifierContext) error {
	return v.run(ctx, FormatLDP, vctx, func(ctx context.Context, vctx *VerifierContext) error {
		return v.linkedData.Verify(ctx, document, vctx)
	})
}

// Verify dispatches JSON input to VerifyLinkedData and anything else to
// VerifyCompact. It implements CredentialVerifier.
func (v *Verifier) Verify(ctx context.Context, raw string, vctx *VerifierContext) error {
	if IsJSON(raw) {
		return v.VerifyLinkedData(ctx, raw, vctx)
	}
	return v.VerifyCompact(ctx, raw, vctx)
}

// IsJSON reports whether raw looks like a JSON document rather than a
// compact token.
func IsJSON(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func (v *Verifier) run(ctx context.Context, format string, vctx *VerifierContext, fn func(context.Context, *VerifierContext) error) error {
	if vctx == nil {
		return ErrNilContext
	}
	if vctx.Delegate() == nil {
		vctx = vctx.With(WithDelegate(v))
	}
	if vctx.isNested() {
		return fn(ctx, vctx)
	}

	id := uuid.NewString()
	ctx, span := v.tracer.Start(ctx, "verifier.Verify",
		trace.WithAttributes(attribute.String("verification_id", id), attribute.String("format", format)))
	defer span.End()

	start := time.Now()
	err := fn(ctx, vctx)
	code := string(verifyerr.CodeOf(err))

	outcome := metrics.OutcomeValid
	switch {
	case err == nil:
	case code != "":
		outcome = metrics.OutcomeInvalid
	default:
		outcome = metrics.OutcomeError
	}

	span.SetAttributes(attribute.String("outcome", outcome), attribute.String("code", code))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	if v.metrics != nil {
		v.metrics.ObserveVerification(format, outcome, code, time.Since(start))
	}
	v.logger.Debug("verification finished",
		zap.String("verification_id", id),
		zap.String("format", format),
		zap.String("outcome", outcome),
		zap.String("code", code),
		zap.Error(err))
	return err
}
