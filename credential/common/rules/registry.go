// Package rules holds the claim checks run against decoded JWT claims, keyed
// by verification context.
package rules

import (
	"errors"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Verification contexts.
const (
	ContextPresentation = "vp"
	ContextCredential   = "vc"
)

// ErrRegistryFrozen is returned when rules are added after Freeze.
var ErrRegistryFrozen = errors.New("rules registry is frozen")

// Input is what a rule sees for one token.
type Input struct {
	Claims gojwt.MapClaims
	// Audience is the audience the verifier expects; empty disables
	// audience checks.
	Audience string
	Now      time.Time
}

// Rule checks decoded claims. A failing rule returns a *verifyerr.Error.
type Rule interface {
	Check(in Input) error
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc func(in Input) error

// Check calls f(in).
func (f RuleFunc) Check(in Input) error {
	return f(in)
}

// Registry maps a verification context to an ordered list of rules.
type Registry struct {
	mu     sync.RWMutex
	rules  map[string][]Rule
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string][]Rule)}
}

// NewDefaultRegistry creates a registry with the standard presentation and
// credential rules. It is not frozen so callers can append their own rules.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Add(ContextPresentation,
		HasSubject(),
		HasPresentationOrCredential(),
		AudienceContains(),
		TimeValidity(0),
	)
	_ = r.Add(ContextCredential,
		HasPresentationOrCredential(),
		CredentialIssuerMatches(),
		TimeValidity(0),
	)
	return r
}

// Add appends rules to a context.
func (r *Registry) Add(context string, rules ...Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}
	r.rules[context] = append(r.rules[context], rules...)
	return nil
}

// RulesFor returns a copy of the rules registered for a context, in
// registration order.
func (r *Registry) RulesFor(context string) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, len(r.rules[context]))
	copy(out, r.rules[context])
	return out
}

// Freeze rejects further additions.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Check runs every rule of a context and returns the first failure.
func (r *Registry) Check(context string, in Input) error {
	for _, rule := range r.RulesFor(context) {
		if err := rule.Check(in); err != nil {
			return err
		}
	}
	return nil
}
