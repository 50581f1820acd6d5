// Package bucket wraps AWS S3 bucket operations behind a small convenience
// surface: existence checks, listing, upload, download, and batch delete.
//
// A Bucket is bound to a single bucket name and a caller-supplied aws.Config
// (the pre-authenticated session handle). The package never constructs
// credentials - authentication is the caller's concern, typically via the
// SDK default chain. Every operation is a single blocking request/response
// exchange; there is no local retry or backoff beyond what the SDK performs
// on its own.
package bucket

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"
)

// S3API is the subset of the S3 client this package uses.
//
// It exists so tests can substitute a fake; production code passes the
// client built by New from an aws.Config.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// DefaultPageSize is the default page size for List operations.
const DefaultPageSize = 1000

// MaxPageSize is the maximum page size S3 accepts per listing request.
const MaxPageSize = 1000

// Object describes one object returned by a listing or metadata call.
// Instances are produced from remote responses, never constructed locally.
type Object struct {
	// Key is the full object key in the bucket.
	Key string

	// Size is the object size in bytes.
	Size int64

	// ETag is the entity tag with surrounding quotes stripped.
	ETag string

	// LastModified is when the object was last modified.
	LastModified time.Time
}

// Bucket wraps operations on a single S3 bucket.
//
// Bucket is safe for concurrent use. It holds no local state about the
// remote bucket; the remote service is the only source of truth.
type Bucket struct {
	api      S3API
	name     string
	pageSize int32
	limiter  *rate.Limiter
}

// Option customizes a Bucket.
type Option func(*Bucket)

// WithPageSize sets the page size for listing operations.
// Values outside (0, MaxPageSize] are clamped.
func WithPageSize(n int) Option {
	return func(b *Bucket) {
		b.pageSize = clampPageSize(n)
	}
}

// WithRateLimit caps paginated listing at the given requests per second.
// Zero or negative disables client-side limiting (the default).
func WithRateLimit(rps float64) Option {
	return func(b *Bucket) {
		if rps > 0 {
			b.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New creates a Bucket bound to name using a client built from cfg.
//
// Endpoint overrides, path-style addressing, and other client behavior can
// be supplied through optFns exactly as with s3.NewFromConfig.
func New(cfg aws.Config, name string, optFns []func(*s3.Options), opts ...Option) *Bucket {
	return NewWithAPI(s3.NewFromConfig(cfg, optFns...), name, opts...)
}

// NewWithAPI creates a Bucket using an existing S3 client.
func NewWithAPI(api S3API, name string, opts ...Option) *Bucket {
	b := &Bucket{
		api:      api,
		name:     name,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the bucket name this client is bound to.
func (b *Bucket) Name() string {
	return b.name
}

// Stat returns metadata for a single object.
// Returns ErrNotFound if the object does not exist.
func (b *Bucket) Stat(ctx context.Context, key string) (*Object, error) {
	out, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, b.wrapError("Stat", key, err)
	}

	return &Object{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         cleanETag(aws.ToString(out.ETag)),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// Exists reports whether key is present in the bucket.
//
// Only the remote "not found" signal maps to (false, nil); any other
// failure (auth, network, server fault) is returned as an error so it
// cannot be mistaken for absence.
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.Stat(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// clampPageSize applies defaults and limits to listing page sizes.
func clampPageSize(n int) int32 {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return int32(n)
}
