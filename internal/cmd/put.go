package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsantor/go-s3-utils/internal/observability"
	"github.com/tsantor/go-s3-utils/pkg/bucket"
	"github.com/tsantor/go-s3-utils/pkg/match"
	"github.com/tsantor/go-s3-utils/pkg/output"
)

var putCmd = &cobra.Command{
	Use:   "put <local-path> <uri>",
	Short: "Upload a file or directory of files",
	Long: `Upload a local file, or every immediate regular file in a local
directory, to a bucket.

A single file is stored under the URI's key; a key ending in '/' is
treated as a prefix and the file's base name is appended. Directory
uploads always key each object by its base name, so the URI must not
carry a key. Directory traversal is not recursive.

Examples:
  s3utils put report.pdf s3://bucket/reports/
  s3utils put report.pdf s3://bucket/reports/2026-q3.pdf
  s3utils put ./exports s3://bucket --include '*.csv' --parallel 8`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

var (
	putParallel int
	putIncludes []string
	putExcludes []string
	putOutput   string
)

func init() {
	rootCmd.AddCommand(putCmd)

	putCmd.Flags().IntVar(&putParallel, "parallel", 0, "Concurrent uploads for directories (0 = host execution units)")
	putCmd.Flags().StringSliceVar(&putIncludes, "include", nil, "Glob patterns file names must match (directory uploads)")
	putCmd.Flags().StringSliceVar(&putExcludes, "exclude", nil, "Glob patterns to filter file names out (directory uploads)")
	putCmd.Flags().StringVar(&putOutput, "output", "text", "Output format: text or jsonl")
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	localPath, uri := args[0], args[1]

	parsed, err := ParseURI(uri)
	if err != nil {
		observability.CLILogger.Error("Invalid URI", zap.String("uri", uri), zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.IsPattern() {
		return exitError(foundry.ExitInvalidArgument, "put does not accept glob URIs",
			fmt.Errorf("give an exact key or a prefix ending in '/': %s", uri))
	}
	if putOutput != "text" && putOutput != "jsonl" {
		return exitError(foundry.ExitInvalidArgument, "Invalid --output value", fmt.Errorf("expected text or jsonl"))
	}

	info, err := os.Stat(localPath)
	if err != nil {
		observability.CLILogger.Error("Cannot read local path", zap.String("path", localPath), zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Cannot read local path", err)
	}

	b, err := openBucket(ctx, parsed.Bucket)
	if err != nil {
		observability.CLILogger.Error("Failed to connect to S3", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to S3", err)
	}

	if info.IsDir() {
		return runPutDir(ctx, b, localPath, parsed)
	}
	return runPutFile(ctx, b, localPath, parsed, info.Size())
}

func runPutFile(ctx context.Context, b *bucket.Bucket, localPath string, uri *ObjectURI, size int64) error {
	key := uri.Key
	if uri.IsPrefix() && key != "" {
		key += filepath.Base(localPath)
	}

	key, err := b.Upload(ctx, localPath, key)
	if err != nil {
		observability.CLILogger.Error("Upload failed",
			zap.String("path", localPath), zap.String("key", key), zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Upload failed", err)
	}

	if putOutput == "jsonl" {
		w := output.NewJSONLWriter(os.Stdout, uuid.New().String())
		defer func() { _ = w.Close() }()
		rec := &output.TransferRecord{Direction: "upload", Key: key, Path: localPath, Bytes: size}
		if err := w.WriteTransfer(ctx, rec); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
		return nil
	}

	fmt.Printf("Uploaded %s to s3://%s/%s (%s)\n", localPath, b.Name(), key, formatSize(size))
	return nil
}

func runPutDir(ctx context.Context, b *bucket.Bucket, dir string, uri *ObjectURI) error {
	start := time.Now()

	if uri.Key != "" {
		return exitError(foundry.ExitInvalidArgument, "directory uploads key objects by file name",
			fmt.Errorf("give a bucket-only URI: s3://%s", uri.Bucket))
	}

	var matcher *match.Matcher
	if len(putIncludes) > 0 || len(putExcludes) > 0 {
		var err error
		matcher, err = match.New(match.Config{Includes: putIncludes, Excludes: putExcludes})
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid include/exclude patterns", err)
		}
	}

	var w output.Writer
	if putOutput == "jsonl" {
		jw := output.NewJSONLWriter(os.Stdout, uuid.New().String())
		defer func() { _ = jw.Close() }()
		w = jw
	}

	var uploaded, failed atomic.Int64
	onUpload := func(path, key string, err error) {
		if err != nil {
			failed.Add(1)
			observability.CLILogger.Warn("Upload failed",
				zap.String("path", path), zap.String("key", key), zap.Error(err))
			if w != nil {
				_ = w.WriteError(ctx, &output.ErrorRecord{
					Code:    errorCode(err),
					Message: err.Error(),
					Key:     key,
				})
			}
			return
		}
		uploaded.Add(1)
		observability.CLILogger.Debug("Uploaded",
			zap.String("path", path), zap.String("key", key))
		if w != nil {
			_ = w.WriteTransfer(ctx, &output.TransferRecord{Direction: "upload", Key: key, Path: path})
		}
	}

	opts := []bucket.UploadDirOption{bucket.WithUploadCallback(onUpload)}
	if putParallel > 0 {
		opts = append(opts, bucket.WithUploadParallel(putParallel))
	} else if cfg.Parallel > 0 {
		opts = append(opts, bucket.WithUploadParallel(cfg.Parallel))
	}
	if matcher != nil {
		opts = append(opts, bucket.WithUploadFilter(matcher))
	}

	if err := b.UploadDir(ctx, dir, opts...); err != nil {
		if ctx.Err() != nil {
			return exitError(foundry.ExitSignalInt, "put cancelled", err)
		}
		observability.CLILogger.Error("Directory upload failed", zap.String("dir", dir), zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Directory upload failed", err)
	}

	elapsed := time.Since(start)
	if w != nil {
		_ = w.WriteSummary(ctx, &output.SummaryRecord{
			Objects:       uploaded.Load(),
			Errors:        failed.Load(),
			Duration:      elapsed,
			DurationHuman: formatDuration(elapsed),
		})
	} else {
		fmt.Printf("Uploaded %d file(s), %d failed (%s)\n", uploaded.Load(), failed.Load(), formatDuration(elapsed))
	}

	if n := failed.Load(); n > 0 {
		return exitError(foundry.ExitExternalServiceUnavailable, "put completed with errors", fmt.Errorf("errors=%d", n))
	}
	return nil
}

// errorCode maps a bucket error to an output error code.
func errorCode(err error) string {
	switch {
	case bucket.IsNotFound(err):
		return output.ErrCodeNotFound
	case bucket.IsAccessDenied(err):
		return output.ErrCodeAccessDenied
	case bucket.IsThrottled(err):
		return output.ErrCodeThrottled
	case bucket.IsServiceUnavailable(err):
		return output.ErrCodeServiceUnavailable
	default:
		return output.ErrCodeInternal
	}
}
