package verifycmd

import (
	"encoding/json"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/pilacorp/go-credential-verifier/credential/common/dto"
	"github.com/pilacorp/go-credential-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-credential-verifier/credential/vc"
	"github.com/pilacorp/go-credential-verifier/credential/verifier"
	"github.com/pilacorp/go-credential-verifier/credential/vp"
)

// Kinds reported by inspect.
const (
	KindCredential   = "credential"
	KindPresentation = "presentation"
)

// Summary is the decoded, unverified view of a credential or presentation.
type Summary struct {
	Kind        string         `json:"kind"`
	Format      string         `json:"format"`
	Algorithm   string         `json:"alg,omitempty"`
	KeyID       string         `json:"kid,omitempty"`
	ID          string         `json:"id,omitempty"`
	Types       []string       `json:"types,omitempty"`
	Issuer      string         `json:"issuer,omitempty"`
	Holder      string         `json:"holder,omitempty"`
	Subjects    []string       `json:"subjects,omitempty"`
	ValidFrom   string         `json:"validFrom,omitempty"`
	ValidUntil  string         `json:"validUntil,omitempty"`
	Credentials int            `json:"credentials,omitempty"`
	Proofs      []ProofSummary `json:"proofs,omitempty"`
}

// ProofSummary describes one embedded proof.
type ProofSummary struct {
	Type               string `json:"type"`
	Cryptosuite        string `json:"cryptosuite,omitempty"`
	VerificationMethod string `json:"verificationMethod,omitempty"`
	ProofPurpose       string `json:"proofPurpose,omitempty"`
	Created            string `json:"created,omitempty"`
}

// NewInspectCmd returns the inspect command.
func NewInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Print a summary of a credential or presentation without verifying it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			summary, err := Inspect(input)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
}

// Inspect decodes input without checking any signature.
func Inspect(input string) (*Summary, error) {
	if verifier.IsJSON(input) {
		return inspectDocument(input)
	}
	return inspectToken(input)
}

func inspectDocument(input string) (*Summary, error) {
	doc, err := jsonmap.Parse([]byte(input))
	if err != nil {
		return nil, err
	}

	if doc.HasType("VerifiablePresentation") {
		p, err := vp.FromJSONMap(doc)
		if err != nil {
			return nil, err
		}
		return presentationSummary(p, verifier.FormatLDP), nil
	}

	c, err := vc.FromJSONMap(doc)
	if err != nil {
		return nil, err
	}
	return credentialSummary(c, verifier.FormatLDP), nil
}

func inspectToken(input string) (*Summary, error) {
	claims := gojwt.MapClaims{}
	token, _, err := gojwt.NewParser().ParseUnverified(input, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	var summary *Summary
	if claims["vp"] != nil {
		p, err := vp.FromClaims(claims)
		if err != nil {
			return nil, err
		}
		summary = presentationSummary(p, verifier.FormatJWT)
	} else {
		c, err := vc.FromClaims(claims)
		if err != nil {
			return nil, err
		}
		summary = credentialSummary(c, verifier.FormatJWT)
	}

	summary.Algorithm = token.Method.Alg()
	summary.KeyID, _ = token.Header["kid"].(string)
	return summary, nil
}

func credentialSummary(c *vc.Credential, format string) *Summary {
	return &Summary{
		Kind:   KindCredential,
		Format: format,
		ID:     c.ID,
		Types:  c.Types,
		Issuer: c.Issuer,
		Subjects: lo.FilterMap(c.Subject, func(s vc.Subject, _ int) (string, bool) {
			return s.ID, s.ID != ""
		}),
		ValidFrom:  formatTime(c.ValidFrom),
		ValidUntil: formatTime(c.ValidUntil),
		Proofs:     proofSummaries(c.Proofs),
	}
}

func presentationSummary(p *vp.Presentation, format string) *Summary {
	return &Summary{
		Kind:        KindPresentation,
		Format:      format,
		ID:          p.ID,
		Types:       p.Types,
		Holder:      p.Holder,
		Credentials: len(p.Entries),
		Proofs:      proofSummaries(p.Proofs),
	}
}

func proofSummaries(proofs []*dto.Proof) []ProofSummary {
	return lo.Map(proofs, func(p *dto.Proof, _ int) ProofSummary {
		return ProofSummary{
			Type:               p.Type,
			Cryptosuite:        p.Cryptosuite,
			VerificationMethod: p.VerificationMethodID(),
			ProofPurpose:       p.ProofPurpose,
			Created:            p.Created,
		}
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
