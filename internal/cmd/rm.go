package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsantor/go-s3-utils/internal/observability"
	"github.com/tsantor/go-s3-utils/pkg/bucket"
	"github.com/tsantor/go-s3-utils/pkg/output"
)

var rmCmd = &cobra.Command{
	Use:   "rm <uri> [key...]",
	Short: "Delete objects",
	Long: `Delete one or more objects.

The first argument is a full s3:// URI; additional arguments are bare
keys in the same bucket. Multiple keys are deleted in a single batch
request (up to 1000 keys). Deleting an absent key is not an error.

Examples:
  s3utils rm s3://bucket/path/to/object.txt
  s3utils rm s3://bucket/a.txt b.txt c.txt
  s3utils rm s3://bucket/a.txt b.txt --output jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

var rmOutput string

func init() {
	rootCmd.AddCommand(rmCmd)

	rmCmd.Flags().StringVar(&rmOutput, "output", "text", "Output format: text or jsonl")
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	uri := args[0]

	parsed, err := ParseURI(uri)
	if err != nil {
		observability.CLILogger.Error("Invalid URI", zap.String("uri", uri), zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.IsPattern() || parsed.IsPrefix() {
		return exitError(foundry.ExitInvalidArgument, "rm requires exact object keys",
			fmt.Errorf("provide an exact object URI (no glob, no trailing '/'): %s", uri))
	}
	if rmOutput != "text" && rmOutput != "jsonl" {
		return exitError(foundry.ExitInvalidArgument, "Invalid --output value", fmt.Errorf("expected text or jsonl"))
	}

	keys := []string{parsed.Key}
	for _, arg := range args[1:] {
		if strings.Contains(arg, "://") {
			extra, err := ParseURI(arg)
			if err != nil {
				return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
			}
			if extra.Bucket != parsed.Bucket {
				return exitError(foundry.ExitInvalidArgument, "rm deletes from a single bucket",
					fmt.Errorf("bucket %q does not match %q", extra.Bucket, parsed.Bucket))
			}
			keys = append(keys, extra.Key)
			continue
		}
		keys = append(keys, arg)
	}
	if len(keys) > bucket.MaxBatchDelete {
		return exitError(foundry.ExitInvalidArgument, "Too many keys",
			fmt.Errorf("%d keys exceeds the %d-key batch limit", len(keys), bucket.MaxBatchDelete))
	}

	b, err := openBucket(ctx, parsed.Bucket)
	if err != nil {
		observability.CLILogger.Error("Failed to connect to S3", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to S3", err)
	}

	if len(keys) == 1 {
		if err := b.Delete(ctx, keys[0]); err != nil {
			observability.CLILogger.Error("Delete failed", zap.String("key", keys[0]), zap.Error(err))
			return exitError(foundry.ExitExternalServiceUnavailable, "Delete failed", err)
		}
		return reportDeletes(ctx, &bucket.DeleteResult{Deleted: keys})
	}

	result, err := b.DeleteBatch(ctx, keys)
	if err != nil {
		observability.CLILogger.Error("Batch delete failed", zap.Int("keys", len(keys)), zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Batch delete failed", err)
	}
	return reportDeletes(ctx, result)
}

// reportDeletes emits the delete outcome and maps remote-reported
// failures to a non-zero exit.
func reportDeletes(ctx context.Context, result *bucket.DeleteResult) error {
	if rmOutput == "jsonl" {
		w := output.NewJSONLWriter(os.Stdout, uuid.New().String())
		defer func() { _ = w.Close() }()

		rec := &output.DeleteRecord{
			Deleted:      result.Deleted,
			DeletedCount: result.DeletedCount(),
			FailedCount:  result.ErrorCount(),
		}
		for _, e := range result.Errors {
			rec.Failed = append(rec.Failed, e.Key)
		}
		if err := w.WriteDelete(ctx, rec); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	} else {
		for _, key := range result.Deleted {
			fmt.Printf("Deleted %s\n", key)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "Failed %s: %s: %s\n", e.Key, e.Code, e.Message)
		}
	}

	if n := result.ErrorCount(); n > 0 {
		for _, e := range result.Errors {
			observability.CLILogger.Warn("Object not deleted",
				zap.String("key", e.Key), zap.String("code", e.Code), zap.String("message", e.Message))
		}
		return exitError(foundry.ExitExternalServiceUnavailable, "rm completed with errors", fmt.Errorf("failed=%d", n))
	}
	return nil
}
