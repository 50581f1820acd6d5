package bucket

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MaxBatchDelete is the maximum number of keys S3 accepts in one
// DeleteObjects request. Larger inputs must be chunked by the caller.
const MaxBatchDelete = 1000

// DeleteError describes one key the remote reported as not deleted.
type DeleteError struct {
	// Key is the object key that failed to delete.
	Key string

	// Code is the remote error code (e.g., "AccessDenied").
	Code string

	// Message is the remote error message.
	Message string
}

// Error implements the error interface.
func (e DeleteError) Error() string {
	return fmt.Sprintf("delete %s: %s: %s", e.Key, e.Code, e.Message)
}

// DeleteResult partitions a batch delete into remote-confirmed deletions
// and remote-reported failures. It is created fresh per call and never
// mutated after return. Counts are derived from the partitions.
type DeleteResult struct {
	// Deleted lists the keys the remote confirmed deleted.
	Deleted []string

	// Errors lists the keys the remote reported as errored.
	Errors []DeleteError
}

// DeletedCount returns the number of confirmed deletions.
func (r *DeleteResult) DeletedCount() int {
	return len(r.Deleted)
}

// ErrorCount returns the number of reported failures.
func (r *DeleteResult) ErrorCount() int {
	return len(r.Errors)
}

// Delete removes a single object.
//
// Deleting an absent key is not an error; the remote delete contract is
// idempotent and this is the one case intentionally not surfaced.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return b.wrapError("Delete", key, err)
	}
	return nil
}

// DeleteBatch removes up to MaxBatchDelete keys in one request.
//
// Partial failure is data, not an error: the returned DeleteResult
// partitions the input into confirmed deletions and remote-reported
// failures. The error return covers only whole-request failures and
// inputs exceeding the batch cap (chunking is the caller's job).
func (b *Bucket) DeleteBatch(ctx context.Context, keys []string) (*DeleteResult, error) {
	if len(keys) == 0 {
		return &DeleteResult{}, nil
	}
	if len(keys) > MaxBatchDelete {
		return nil, &OpError{
			Op:     "DeleteBatch",
			Bucket: b.name,
			Err:    fmt.Errorf("%d keys exceeds the %d-key batch limit", len(keys), MaxBatchDelete),
		}
	}

	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
	}

	// Quiet mode suppresses the Deleted list; we need it to partition.
	out, err := b.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.name),
		Delete: &types.Delete{
			Objects: ids,
			Quiet:   aws.Bool(false),
		},
	})
	if err != nil {
		return nil, b.wrapError("DeleteBatch", "", err)
	}

	result := &DeleteResult{
		Deleted: make([]string, 0, len(out.Deleted)),
	}
	for _, d := range out.Deleted {
		result.Deleted = append(result.Deleted, aws.ToString(d.Key))
	}
	for _, e := range out.Errors {
		result.Errors = append(result.Errors, DeleteError{
			Key:     aws.ToString(e.Key),
			Code:    aws.ToString(e.Code),
			Message: aws.ToString(e.Message),
		})
	}
	return result, nil
}
