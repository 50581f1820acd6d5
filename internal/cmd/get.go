package cmd

import (
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsantor/go-s3-utils/internal/observability"
	"github.com/tsantor/go-s3-utils/pkg/bucket"
)

var getCmd = &cobra.Command{
	Use:   "get <uri>",
	Short: "Download an object or prefix",
	Long: `Download an object, or every object under a prefix, into a local
directory. Key path segments become subdirectories; existing files are
overwritten.

Examples:
  s3utils get s3://bucket/path/to/object.txt
  s3utils get s3://bucket/reports/ --dir /tmp/reports`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

var getDir string

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVarP(&getDir, "dir", "d", ".", "Local destination directory")
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	uri := args[0]
	start := time.Now()

	parsed, err := ParseURI(uri)
	if err != nil {
		observability.CLILogger.Error("Invalid URI", zap.String("uri", uri), zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.IsPattern() {
		return exitError(foundry.ExitInvalidArgument, "get does not accept glob URIs",
			fmt.Errorf("give an exact key or a prefix ending in '/': %s", uri))
	}

	b, err := openBucket(ctx, parsed.Bucket)
	if err != nil {
		observability.CLILogger.Error("Failed to connect to S3", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to S3", err)
	}

	if parsed.IsPrefix() {
		count, err := b.DownloadPrefix(ctx, parsed.Key, getDir)
		if err != nil {
			if ctx.Err() != nil {
				return exitError(foundry.ExitSignalInt, "get cancelled", err)
			}
			observability.CLILogger.Error("Prefix download failed",
				zap.String("prefix", parsed.Key), zap.Error(err))
			return exitError(foundry.ExitExternalServiceUnavailable, "Prefix download failed", err)
		}
		fmt.Printf("Downloaded %d object(s) to %s (%s)\n", count, getDir, formatDuration(time.Since(start)))
		return nil
	}

	dest, err := b.Download(ctx, parsed.Key, getDir)
	if err != nil {
		observability.CLILogger.Error("Download failed",
			zap.String("key", parsed.Key), zap.Error(err))
		if bucket.IsNotFound(err) {
			return exitError(foundry.ExitInvalidArgument, "Object not found", err)
		}
		return exitError(foundry.ExitExternalServiceUnavailable, "Download failed", err)
	}

	fmt.Printf("Downloaded s3://%s/%s to %s\n", parsed.Bucket, parsed.Key, dest)
	return nil
}
