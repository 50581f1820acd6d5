package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
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

var lsCmd = &cobra.Command{
	Use:   "ls <uri>",
	Short: "List objects under a prefix",
	Long: `List objects in a bucket.

Without --recursive, at most one listing page (up to the configured page
size) is returned. With --recursive, pagination continues until the
bucket is exhausted.

Examples:
  s3utils ls s3://bucket/
  s3utils ls s3://bucket/prefix/ --recursive
  s3utils ls s3://bucket/data/**/*.parquet --recursive
  s3utils ls s3://bucket/prefix/ --output jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

var (
	lsRecursive bool
	lsLimit     int
	lsOutput    string
	lsIncludes  []string
	lsExcludes  []string
)

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().BoolVar(&lsRecursive, "recursive", false, "Paginate through all objects, not just the first page")
	lsCmd.Flags().IntVarP(&lsLimit, "limit", "n", 0, "Max objects to list (0 = no limit)")
	lsCmd.Flags().StringVar(&lsOutput, "output", "table", "Output format: table or jsonl")
	lsCmd.Flags().StringSliceVar(&lsIncludes, "include", nil, "Glob patterns keys must match (doublestar syntax)")
	lsCmd.Flags().StringSliceVar(&lsExcludes, "exclude", nil, "Glob patterns to filter keys out")
}

// errListLimit stops a walk once --limit objects are collected.
var errListLimit = errors.New("list limit reached")

func runLs(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	uri := args[0]
	start := time.Now()

	parsed, err := ParseURI(uri)
	if err != nil {
		observability.CLILogger.Error("Invalid URI", zap.String("uri", uri), zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
	}
	if lsOutput != "table" && lsOutput != "jsonl" {
		return exitError(foundry.ExitInvalidArgument, "Invalid --output value", fmt.Errorf("expected jsonl or table"))
	}

	matcher, err := lsMatcher(parsed)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid include/exclude patterns", err)
	}

	b, err := openBucket(ctx, parsed.Bucket)
	if err != nil {
		observability.CLILogger.Error("Failed to connect to S3", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to S3", err)
	}

	objects, err := collectObjects(ctx, b, parsed, matcher)
	if err != nil {
		observability.CLILogger.Error("Failed to list objects", zap.Error(err))
		if bucket.IsNotFound(err) {
			return exitError(foundry.ExitInvalidArgument, "Object not found", err)
		}
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to list objects", err)
	}

	if lsOutput == "jsonl" {
		return writeObjectsJSONL(ctx, objects, time.Since(start))
	}
	return writeObjectsTable(objects)
}

// lsMatcher builds the key filter from the URI pattern and the
// include/exclude flags. Returns nil when no filtering applies.
func lsMatcher(uri *ObjectURI) (*match.Matcher, error) {
	includes := lsIncludes
	if uri.IsPattern() {
		includes = append([]string{uri.Pattern}, includes...)
	}
	if len(includes) == 0 && len(lsExcludes) == 0 {
		return nil, nil
	}
	return match.New(match.Config{Includes: includes, Excludes: lsExcludes})
}

// collectObjects gathers the objects addressed by the URI. An exact
// object key uses Head for precise lookup; prefix-based listing could
// return unrelated siblings (e.g., "object.txt" vs "object.txt.bak").
func collectObjects(ctx context.Context, b *bucket.Bucket, uri *ObjectURI, matcher *match.Matcher) ([]bucket.Object, error) {
	if !uri.IsPattern() && !uri.IsPrefix() {
		obj, err := b.Stat(ctx, uri.Key)
		if err != nil {
			return nil, err
		}
		return []bucket.Object{*obj}, nil
	}

	var objects []bucket.Object
	collect := func(obj bucket.Object) error {
		if matcher != nil && !matcher.Match(obj.Key) {
			return nil
		}
		objects = append(objects, obj)
		if lsLimit > 0 && len(objects) >= lsLimit {
			return errListLimit
		}
		return nil
	}

	if lsRecursive {
		if err := b.Walk(ctx, uri.Key, collect); err != nil && !errors.Is(err, errListLimit) {
			return nil, err
		}
		return objects, nil
	}

	page, err := b.List(ctx, uri.Key)
	if err != nil {
		return nil, err
	}
	for _, obj := range page {
		if err := collect(obj); err != nil {
			break
		}
	}
	return objects, nil
}

// writeObjectsJSONL writes objects as JSONL records plus a summary.
func writeObjectsJSONL(ctx context.Context, objects []bucket.Object, elapsed time.Duration) error {
	w := output.NewJSONLWriter(os.Stdout, uuid.New().String())
	defer func() { _ = w.Close() }()

	var totalBytes int64
	for i := range objects {
		obj := &objects[i]
		totalBytes += obj.Size
		rec := &output.ObjectRecord{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		}
		if err := w.WriteObject(ctx, rec); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	}

	sum := &output.SummaryRecord{
		Objects:       int64(len(objects)),
		Bytes:         totalBytes,
		Duration:      elapsed,
		DurationHuman: formatDuration(elapsed),
	}
	if err := w.WriteSummary(ctx, sum); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	}
	return nil
}

// writeObjectsTable writes objects as a formatted table to stdout.
func writeObjectsTable(objects []bucket.Object) error {
	if len(objects) == 0 {
		fmt.Println("No objects found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	var totalSize int64
	for _, obj := range objects {
		totalSize += obj.Size
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n",
			obj.Key,
			formatSize(obj.Size),
			obj.LastModified.Format("2006-01-02 15:04:05")); err != nil {
			return fmt.Errorf("failed to write object: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	fmt.Println()
	fmt.Printf("Found %d object(s) (%s total)\n", len(objects), formatSize(totalSize))

	return nil
}
