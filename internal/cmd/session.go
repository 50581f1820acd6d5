package cmd

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tsantor/go-s3-utils/pkg/bucket"
)

// loadAWSConfig resolves AWS configuration via the SDK default chain,
// layered with the CLI's region, profile, and explicit credentials.
func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	// Use explicit credentials if provided
	if accessKey != "" && secretKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"", // session token (empty for long-term credentials)
		)
		opts = append(opts, awsconfig.WithCredentialsProvider(staticCreds))
	}

	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// s3ClientOptions builds client option functions for custom endpoints
// and path-style addressing.
func s3ClientOptions() []func(*s3.Options) {
	var optFns []func(*s3.Options)

	// Custom endpoint for S3-compatible stores
	if cfg.Endpoint != "" {
		optFns = append(optFns, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		optFns = append(optFns, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return optFns
}

// openBucket builds a bucket handle for the given name using the
// resolved AWS configuration.
func openBucket(ctx context.Context, name string) (*bucket.Bucket, error) {
	awsCfg, err := loadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	opts := []bucket.Option{bucket.WithPageSize(cfg.PageSize)}
	if cfg.ListRPS > 0 {
		opts = append(opts, bucket.WithRateLimit(cfg.ListRPS))
	}
	return bucket.New(awsCfg, name, s3ClientOptions(), opts...), nil
}
