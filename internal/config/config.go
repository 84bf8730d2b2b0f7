// Package config loads the verifier configuration file and assembles a
// ready to use verifier from it.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Canonicalization names accepted for JsonWebSignature2020.
const (
	CanonicalizationRDFC = "rdfc"
	CanonicalizationJCS  = "jcs"
)

// Config is the verifier configuration.
type Config struct {
	// Audience expected in presentation tokens. Empty disables the check.
	Audience string `yaml:"audience"`
	// ProofPurpose expected of top level linked data proofs.
	ProofPurpose string   `yaml:"proofPurpose"`
	Algorithms   []string `yaml:"algorithms"`

	Resolver     ResolverConfig `yaml:"resolver"`
	TrustedKeys  []TrustedKey   `yaml:"trustedKeys"`
	DIDDocuments []string       `yaml:"didDocuments"`

	// Contexts maps JSON-LD context URLs to local files.
	Contexts            map[string]string `yaml:"contexts"`
	AllowRemoteContexts bool              `yaml:"allowRemoteContexts"`

	// Schemas maps credentialSchema ids to local JSON schema files.
	Schemas map[string]string `yaml:"schemas"`

	JWS2020Canonicalization string `yaml:"jws2020Canonicalization"`

	dir string
}

// ResolverConfig configures remote DID resolution.
type ResolverConfig struct {
	// BaseURL of a universal resolver style endpoint.
	BaseURL   string        `yaml:"baseURL"`
	DIDWeb    bool          `yaml:"didWeb"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   uint64        `yaml:"retries"`
	CacheSize int           `yaml:"cacheSize"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
}

// TrustedKey is a verification method configured by hand. Keys with a DID
// controller are served for both compact tokens and linked data proofs;
// others only match a token "kid".
type TrustedKey struct {
	ID                 string                 `yaml:"id"`
	Type               string                 `yaml:"type"`
	Controller         string                 `yaml:"controller"`
	PublicKeyJwk       map[string]interface{} `yaml:"publicKeyJwk"`
	PublicKeyHex       string                 `yaml:"publicKeyHex"`
	PublicKeyMultibase string                 `yaml:"publicKeyMultibase"`
	PublicKeyBase58    string                 `yaml:"publicKeyBase58"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Resolver: ResolverConfig{
			Timeout:   10 * time.Second,
			Retries:   2,
			CacheSize: 256,
			CacheTTL:  5 * time.Minute,
		},
		JWS2020Canonicalization: CanonicalizationRDFC,
	}
}

// Load reads a YAML configuration file. Relative file references inside it
// are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data, filepath.Dir(path))
}

// Parse decodes YAML on top of Default. dir is the base for relative file
// references.
func Parse(data []byte, dir string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.dir = dir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values Build cannot use.
func (c *Config) Validate() error {
	var errs []error

	if !lo.Contains([]string{"", CanonicalizationRDFC, CanonicalizationJCS}, c.JWS2020Canonicalization) {
		errs = append(errs, fmt.Errorf("jws2020Canonicalization must be %q or %q, got %q",
			CanonicalizationRDFC, CanonicalizationJCS, c.JWS2020Canonicalization))
	}
	if c.Resolver.CacheSize < 0 {
		errs = append(errs, errors.New("resolver.cacheSize must not be negative"))
	}
	if c.Resolver.Timeout < 0 {
		errs = append(errs, errors.New("resolver.timeout must not be negative"))
	}
	for i, k := range c.TrustedKeys {
		if k.ID == "" {
			errs = append(errs, fmt.Errorf("trustedKeys[%d]: id is required", i))
		}
		if len(k.PublicKeyJwk) == 0 && k.PublicKeyHex == "" && k.PublicKeyMultibase == "" && k.PublicKeyBase58 == "" {
			errs = append(errs, fmt.Errorf("trustedKeys[%d]: no public key material", i))
		}
	}

	return errors.Join(errs...)
}

// path resolves a file reference from the configuration.
func (c *Config) path(name string) string {
	if filepath.IsAbs(name) || c.dir == "" {
		return name
	}
	return filepath.Join(c.dir, name)
}

func (c *Config) readFile(name string) ([]byte, error) {
	data, err := os.ReadFile(c.path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func (k TrustedKey) jwk() (json.RawMessage, error) {
	if len(k.PublicKeyJwk) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(k.PublicKeyJwk)
	if err != nil {
		return nil, fmt.Errorf("invalid publicKeyJwk of %s: %w", k.ID, err)
	}
	return raw, nil
}
