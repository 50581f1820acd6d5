package bucket

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Sentinel errors for bucket operations. The remote's wire-level error
// identifiers are mapped onto this closed set; anything unrecognized is
// propagated with its original error intact.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrBucketNotFound indicates the bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrThrottled indicates the request was rate limited by the service.
	ErrThrottled = errors.New("request throttled")

	// ErrServiceUnavailable indicates the storage service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// OpError wraps a failed bucket operation with context.
type OpError struct {
	// Op is the operation that failed (e.g., "Stat", "Upload").
	Op string

	// Bucket is the bucket name, if applicable.
	Bucket string

	// Key is the object key, if applicable.
	Key string

	// Err is the underlying or classified error.
	Err error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3 %s: %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3 %s: %s: %v", e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("s3 %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OpError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates an absent object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsBucketNotFound returns true if the error indicates an absent bucket.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidCredentials returns true if the error indicates authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsThrottled returns true if the error indicates service-side rate limiting.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsServiceUnavailable returns true if the error indicates the service is down.
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// wrapError converts an S3 error into an *OpError carrying the matching
// sentinel, or the original error when no sentinel applies.
func (b *Bucket) wrapError(op, key string, err error) error {
	wrapped := &OpError{Op: op, Bucket: b.name, Key: key, Err: err}
	if kind := classify(err); kind != nil {
		wrapped.Err = kind
	}
	return wrapped
}

// classify maps an S3 error to one of the sentinel errors, or nil when the
// error does not correspond to a known kind.
func classify(err error) error {
	// Typed S3 errors first
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		return ErrNotFound
	case errors.As(err, &noSuchBucket):
		return ErrBucketNotFound
	}

	// Smithy API error codes
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return ErrNotFound
		case "NoSuchBucket":
			return ErrBucketNotFound
		case "AccessDenied", "Forbidden":
			return ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			return ErrThrottled
		case "ServiceUnavailable", "InternalError":
			return ErrServiceUnavailable
		}
		return nil
	}

	// Fallback: match on the message for errors the SDK surfaces untyped
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NoSuchKey"), strings.Contains(msg, "NotFound"), strings.Contains(msg, "404"):
		return ErrNotFound
	case strings.Contains(msg, "NoSuchBucket"):
		return ErrBucketNotFound
	case strings.Contains(msg, "AccessDenied"), strings.Contains(msg, "Forbidden"), strings.Contains(msg, "403"):
		return ErrAccessDenied
	case strings.Contains(msg, "InvalidAccessKeyId"), strings.Contains(msg, "SignatureDoesNotMatch"):
		return ErrInvalidCredentials
	case strings.Contains(msg, "SlowDown"), strings.Contains(msg, "Throttling"), strings.Contains(msg, "429"):
		return ErrThrottled
	case strings.Contains(msg, "ServiceUnavailable"), strings.Contains(msg, "503"):
		return ErrServiceUnavailable
	}

	return nil
}

// cleanETag removes the quotes S3 wraps around ETag values.
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}
