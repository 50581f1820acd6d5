// Package cmd implements the s3utils command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsantor/go-s3-utils/internal/config"
	"github.com/tsantor/go-s3-utils/internal/observability"
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected by the linker.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
}

var (
	cfgFile   string
	logLevel  string
	region    string
	profile   string
	endpoint  string
	pathStyle bool
	accessKey string
	secretKey string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "s3utils",
	Short: "Convenience tooling for S3 bucket operations",
	Long: `s3utils wraps common S3 bucket operations: existence checks, listing,
uploads, downloads, and batch deletes.

Objects are addressed with s3:// URIs:

  s3utils ls s3://bucket/prefix/
  s3utils put report.pdf s3://bucket/reports/
  s3utils get s3://bucket/reports/report.pdf --dir /tmp
  s3utils rm s3://bucket/reports/report.pdf

Credentials come from the AWS SDK default chain (environment, shared
config, instance roles); s3utils never stores credentials itself.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Failed to load configuration", err)
		}
		cfg = loaded
		applyFlagOverrides(cmd)

		if err := observability.InitCLILogger(cfg.Logging.Level); err != nil {
			return exitError(foundry.ExitInvalidArgument, "Failed to initialize logging", err)
		}

		observability.CLILogger.Debug("Configuration loaded",
			zap.String("region", cfg.Region),
			zap.String("endpoint", cfg.Endpoint),
			zap.String("profile", cfg.Profile),
			zap.Int("page_size", cfg.PageSize),
		)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./s3utils.yaml or ~/.config/s3utils/s3utils.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVarP(&region, "region", "r", "", "AWS region")
	pf.StringVarP(&profile, "profile", "p", "", "AWS profile")
	pf.StringVar(&endpoint, "endpoint", "", "Custom S3 endpoint for S3-compatible stores")
	pf.BoolVar(&pathStyle, "path-style", false, "Force path-style addressing")
	pf.StringVar(&accessKey, "access-key", "", "Explicit access key ID (prefer the SDK default chain)")
	pf.StringVar(&secretKey, "secret-key", "", "Explicit secret access key (prefer the SDK default chain)")
}

// applyFlagOverrides layers changed persistent flags over the loaded
// config: flags > environment > file > defaults.
func applyFlagOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("region") {
		cfg.Region = region
	}
	if flags.Changed("profile") {
		cfg.Profile = profile
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = endpoint
		cfg.ForcePathStyle = true
	}
	if flags.Changed("path-style") {
		cfg.ForcePathStyle = pathStyle
	}
}

// commandContext derives the per-command context, applying the
// configured overall timeout when one is set.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if cfg != nil && cfg.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Timeout)
	}
	return ctx, func() {}
}

// Execute runs the root command and exits the process with the
// appropriate code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	observability.Sync()
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr)
		os.Exit(exitErr.Code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
