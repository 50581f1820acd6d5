package bucket

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BucketsAPI is the account-level subset of the S3 client used by
// ListBucketNames. Tests substitute a fake.
type BucketsAPI interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
}

// ListBuckets returns the names of all buckets in the account the given
// session can see.
func ListBuckets(ctx context.Context, cfg aws.Config, optFns ...func(*s3.Options)) ([]string, error) {
	return ListBucketNames(ctx, s3.NewFromConfig(cfg, optFns...))
}

// ListBucketNames is the API-level form of ListBuckets for callers that
// already hold a client.
func ListBucketNames(ctx context.Context, api BucketsAPI) ([]string, error) {
	out, err := api.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		wrapped := &OpError{Op: "ListBuckets", Err: err}
		if kind := classify(err); kind != nil {
			wrapped.Err = kind
		}
		return nil, wrapped
	}

	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}
