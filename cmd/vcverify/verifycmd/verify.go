package verifycmd

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pilacorp/go-credential-verifier/credential/common/metrics"
	"github.com/pilacorp/go-credential-verifier/credential/common/verifyerr"
	"github.com/pilacorp/go-credential-verifier/credential/verifier"
	"github.com/pilacorp/go-credential-verifier/internal/config"
)

type verifyResult struct {
	Valid  bool   `json:"valid"`
	Format string `json:"format"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewVerifyCmd returns the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Verify a credential or presentation",
		Long: "Verify a compact JWT or a JSON document with linked data proofs, read from file or stdin. " +
			"The format is detected from the input.",
		Args: cobra.MaximumNArgs(1),
		RunE: runVerify,
	}

	cmd.Flags().StringP(ConfigFlagName, "c", "", configFlagUsage)
	cmd.Flags().StringP(AudienceFlagName, "a", "", audienceFlagUsage)
	cmd.Flags().StringP(ProofPurposeFlagName, "p", "", proofPurposeFlagUsage)
	cmd.Flags().String(ResolverURLFlagName, "", resolverURLFlagUsage)
	cmd.Flags().Bool(DIDWebFlagName, false, didWebFlagUsage)
	cmd.Flags().String(LogLevelFlagName, "", logLevelFlagUsage)
	cmd.Flags().String(MetricsFileFlagName, "", metricsFileFlagUsage)
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	input, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level, _, err := getUserSetVar(cmd, LogLevelFlagName, LogLevelEnvKey)
	if err != nil {
		return err
	}
	logger, err := newLogger(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	registry := prometheus.NewRegistry()
	v, vctx, err := config.Build(cfg, config.WithLogger(logger), config.WithMetrics(metrics.New(registry)))
	if err != nil {
		return fmt.Errorf("failed to build verifier: %w", err)
	}

	result := verifyResult{Valid: true, Format: verifier.FormatJWT}
	if verifier.IsJSON(input) {
		result.Format = verifier.FormatLDP
	}

	verr := v.Verify(cmd.Context(), input, vctx)
	if verr != nil {
		result.Valid = false
		result.Code = string(verifyerr.CodeOf(verr))
		result.Error = verr.Error()
	}

	metricsFile, _, err := getUserSetVar(cmd, MetricsFileFlagName, MetricsFileEnvKey)
	if err != nil {
		return err
	}
	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}

	if verr != nil {
		return fmt.Errorf("verification failed: %w", verr)
	}
	return nil
}

// loadConfig reads the configuration file, then applies environment
// variables and flags on top. A flag wins over its environment variable.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _, err := getUserSetVar(cmd, ConfigFlagName, ConfigEnvKey)
	if err != nil {
		return nil, err
	}

	cfg := config.Default()
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if value, ok, err := getUserSetVar(cmd, AudienceFlagName, AudienceEnvKey); err != nil {
		return nil, err
	} else if ok {
		cfg.Audience = value
	}

	if value, ok, err := getUserSetVar(cmd, ProofPurposeFlagName, ProofPurposeEnvKey); err != nil {
		return nil, err
	} else if ok {
		cfg.ProofPurpose = value
	}

	if value, ok, err := getUserSetVar(cmd, ResolverURLFlagName, ResolverURLEnvKey); err != nil {
		return nil, err
	} else if ok {
		cfg.Resolver.BaseURL = value
	}

	if value, ok, err := getUserSetBool(cmd, DIDWebFlagName, DIDWebEnvKey); err != nil {
		return nil, err
	} else if ok {
		cfg.Resolver.DIDWeb = value
	}

	return cfg, nil
}
