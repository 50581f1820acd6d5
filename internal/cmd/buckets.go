package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsantor/go-s3-utils/internal/observability"
	"github.com/tsantor/go-s3-utils/pkg/bucket"
)

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "List bucket names in the account",
	Long: `List the names of all buckets the resolved credentials can see,
one per line.

Examples:
  s3utils buckets
  s3utils buckets --profile staging`,
	Args: cobra.NoArgs,
	RunE: runBuckets,
}

func init() {
	rootCmd.AddCommand(bucketsCmd)
}

func runBuckets(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	awsCfg, err := loadAWSConfig(ctx)
	if err != nil {
		observability.CLILogger.Error("Failed to load AWS configuration", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to load AWS configuration", err)
	}

	names, err := bucket.ListBuckets(ctx, awsCfg, s3ClientOptions()...)
	if err != nil {
		observability.CLILogger.Error("Failed to list buckets", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to list buckets", err)
	}

	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
