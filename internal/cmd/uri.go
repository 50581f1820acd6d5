package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tsantor/go-s3-utils/pkg/match"
)

// URI parsing errors
var (
	// ErrInvalidURI indicates the URI could not be parsed.
	ErrInvalidURI = errors.New("invalid URI")

	// ErrUnsupportedScheme indicates the URI scheme is not s3.
	ErrUnsupportedScheme = errors.New("unsupported scheme")

	// ErrMissingBucket indicates the URI is missing a bucket name.
	ErrMissingBucket = errors.New("missing bucket name")
)

// ObjectURI represents a parsed s3:// URI.
//
// Example URIs:
//   - s3://bucket/key/path.txt
//   - s3://bucket/prefix/
//   - s3://bucket/prefix/**/*.parquet
type ObjectURI struct {
	// Bucket is the bucket name.
	Bucket string

	// Key is the object key or prefix.
	// May be empty for bucket root.
	Key string

	// Pattern is set if the key portion contains glob characters.
	// When set, Key is the prefix used for listing.
	Pattern string
}

// String returns the URI in canonical form.
func (u *ObjectURI) String() string {
	if u.Pattern != "" {
		return fmt.Sprintf("s3://%s/%s", u.Bucket, u.Pattern)
	}
	if u.Key != "" {
		return fmt.Sprintf("s3://%s/%s", u.Bucket, u.Key)
	}
	return fmt.Sprintf("s3://%s/", u.Bucket)
}

// IsPattern returns true if the URI contains glob pattern characters.
func (u *ObjectURI) IsPattern() bool {
	return u.Pattern != ""
}

// IsPrefix returns true if the URI represents a prefix (ends with /).
func (u *ObjectURI) IsPrefix() bool {
	return strings.HasSuffix(u.Key, "/") || u.Key == ""
}

// ParseURI parses an s3:// URI into its components.
//
// Supported formats:
//   - s3://bucket
//   - s3://bucket/
//   - s3://bucket/key
//   - s3://bucket/prefix/
//   - s3://bucket/prefix/**/*.parquet
//
// Returns an error if the URI is malformed or does not use the s3 scheme.
func ParseURI(uri string) (*ObjectURI, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty URI", ErrInvalidURI)
	}

	// Parse manually so glob characters like ? survive; url.Parse would
	// treat them as a query delimiter.
	schemeEnd := strings.Index(uri, "://")
	if schemeEnd == -1 {
		return nil, fmt.Errorf("%w: missing scheme (expected s3://...)", ErrInvalidURI)
	}

	scheme := strings.ToLower(uri[:schemeEnd])
	if scheme != "s3" {
		return nil, fmt.Errorf("%w: %s (supported: s3)", ErrUnsupportedScheme, scheme)
	}

	remainder := uri[schemeEnd+3:]
	if remainder == "" {
		return nil, fmt.Errorf("%w: in %s", ErrMissingBucket, uri)
	}

	var bucket, key string
	slashIdx := strings.Index(remainder, "/")
	if slashIdx == -1 {
		bucket = remainder
	} else {
		bucket = remainder[:slashIdx]
		key = remainder[slashIdx+1:]
	}

	if bucket == "" {
		return nil, fmt.Errorf("%w: in %s", ErrMissingBucket, uri)
	}

	result := &ObjectURI{Bucket: bucket}
	if match.IsGlobPattern(key) {
		// Glob pattern: Key is the prefix for listing, Pattern is the full glob.
		result.Pattern = key
		result.Key = match.DerivePrefix(key)
	} else {
		result.Key = key
	}

	return result, nil
}
