// Package verifycmd implements the vcverify commands.
package verifycmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ConfigFlagName is the flag name for the configuration file.
	ConfigFlagName  = "config"
	ConfigEnvKey    = "VCVERIFY_CONFIG"
	configFlagUsage = "Path to a YAML configuration file. Alternatively, this can be set with the following environment variable: " +
		ConfigEnvKey

	// AudienceFlagName is the flag name for the expected presentation audience.
	AudienceFlagName  = "audience"
	AudienceEnvKey    = "VCVERIFY_AUDIENCE"
	audienceFlagUsage = "Audience expected in presentation tokens. Alternatively, this can be set with the following environment variable: " +
		AudienceEnvKey

	// ProofPurposeFlagName is the flag name for the expected proof purpose.
	ProofPurposeFlagName  = "proof-purpose"
	ProofPurposeEnvKey    = "VCVERIFY_PROOF_PURPOSE"
	proofPurposeFlagUsage = "Proof purpose expected of top level linked data proofs. Alternatively, this can be set with the following environment variable: " +
		ProofPurposeEnvKey

	// ResolverURLFlagName is the flag name for the universal resolver endpoint.
	ResolverURLFlagName  = "resolver-url"
	ResolverURLEnvKey    = "VCVERIFY_RESOLVER_URL"
	resolverURLFlagUsage = "Universal resolver style DID resolution endpoint. Alternatively, this can be set with the following environment variable: " +
		ResolverURLEnvKey

	// DIDWebFlagName is the flag name that enables did:web resolution.
	DIDWebFlagName  = "did-web"
	DIDWebEnvKey    = "VCVERIFY_DID_WEB"
	didWebFlagUsage = "Resolve did:web identifiers over HTTPS. Alternatively, this can be set with the following environment variable: " +
		DIDWebEnvKey

	// LogLevelFlagName is the flag name for the log level.
	LogLevelFlagName  = "log-level"
	LogLevelEnvKey    = "VCVERIFY_LOG_LEVEL"
	logLevelFlagUsage = "Log level (debug, info, warn, error). Logging is off when unset. Alternatively, this can be set with the following environment variable: " +
		LogLevelEnvKey

	// MetricsFileFlagName is the flag name for the metrics output file.
	MetricsFileFlagName  = "metrics-file"
	MetricsFileEnvKey    = "VCVERIFY_METRICS_FILE"
	metricsFileFlagUsage = "Write Prometheus metrics in text format to this file after the run. Alternatively, this can be set with the following environment variable: " +
		MetricsFileEnvKey
)

// Cmd returns the vcverify root command.
func Cmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vcverify",
		Short:         "Verify W3C verifiable credentials and presentations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewVerifyCmd(), NewInspectCmd())
	return rootCmd
}

// getUserSetVar returns the flag value if it was set, then the environment
// value.
func getUserSetVar(cmd *cobra.Command, flagName, envKey string) (string, bool, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", false, fmt.Errorf(flagName+" flag not found: %w", err)
		}
		return value, true, nil
	}

	value, isSet := os.LookupEnv(envKey)
	return value, isSet, nil
}

func getUserSetBool(cmd *cobra.Command, flagName, envKey string) (bool, bool, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetBool(flagName)
		if err != nil {
			return false, false, fmt.Errorf(flagName+" flag not found: %w", err)
		}
		return value, true, nil
	}

	raw, isSet := os.LookupEnv(envKey)
	if !isSet {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid value of %s: %w", envKey, err)
	}
	return value, true, nil
}

// readInput reads the document named by args, or stdin when there is none
// or it is "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	input := strings.TrimSpace(string(data))
	if input == "" {
		return "", errors.New("input is empty")
	}
	return input, nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		return zap.NewNop(), nil
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
