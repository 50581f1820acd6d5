package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsantor/go-s3-utils/internal/observability"
)

var existsCmd = &cobra.Command{
	Use:   "exists <uri>",
	Short: "Check whether an object exists",
	Long: `Check whether an exact object key exists.

Prints "true" or "false" and exits 0 either way; a missing object is a
result, not a failure. Service errors (credentials, throttling,
missing bucket) exit non-zero.

Examples:
  s3utils exists s3://bucket/path/to/object.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runExists,
}

func init() {
	rootCmd.AddCommand(existsCmd)
}

func runExists(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	uri := args[0]

	parsed, err := ParseURI(uri)
	if err != nil {
		observability.CLILogger.Error("Invalid URI", zap.String("uri", uri), zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.IsPattern() || parsed.IsPrefix() {
		return exitError(foundry.ExitInvalidArgument, "exists requires an exact object key",
			fmt.Errorf("provide an exact object URI (no glob, no trailing '/'): %s", uri))
	}

	b, err := openBucket(ctx, parsed.Bucket)
	if err != nil {
		observability.CLILogger.Error("Failed to connect to S3", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to S3", err)
	}

	found, err := b.Exists(ctx, parsed.Key)
	if err != nil {
		observability.CLILogger.Error("Existence check failed",
			zap.String("bucket", parsed.Bucket), zap.String("key", parsed.Key), zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Existence check failed", err)
	}

	fmt.Println(found)
	return nil
}
