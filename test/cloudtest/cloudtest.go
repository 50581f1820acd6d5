// Package cloudtest provides helpers for cloud integration tests using moto.
//
// These helpers enable testing against a local S3-compatible endpoint without
// requiring real AWS credentials. Tests using this package should be tagged
// with //go:build cloudintegration.
//
// Usage:
//
//	func TestRoundTrip(t *testing.T) {
//	    cloudtest.SkipIfUnavailable(t)
//	    b := cloudtest.NewBucket(t, ctx)
//	    cloudtest.PutObject(t, ctx, b.Name(), "key", []byte("content"))
//	    // ... test code ...
//	}
package cloudtest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tsantor/go-s3-utils/pkg/bucket"
)

const (
	// DefaultEndpoint is the default moto server endpoint.
	// Port 5555 avoids conflict with macOS AirTunes on 5000.
	DefaultEndpoint = "http://localhost:5555"

	// DefaultRegion is the default AWS region for tests.
	DefaultRegion = "us-east-1"

	// TestAccessKeyID is the access key used for moto (accepts any).
	TestAccessKeyID = "testing"

	// TestSecretAccessKey is the secret key used for moto (accepts any).
	TestSecretAccessKey = "testing"
)

var (
	// Endpoint is the moto server endpoint, configurable via MOTO_ENDPOINT env var.
	Endpoint = getEnvOrDefault("MOTO_ENDPOINT", DefaultEndpoint)

	// Region is the AWS region for tests, configurable via MOTO_REGION env var.
	Region = getEnvOrDefault("MOTO_REGION", DefaultRegion)

	// awsCfg caches the resolved AWS config for reuse across tests.
	awsCfg     aws.Config
	awsCfgOnce sync.Once
	awsCfgErr  error
)

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Available checks if the moto server is reachable.
func Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, Endpoint+"/moto-api/", nil)
	if err != nil {
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// SkipIfUnavailable skips the test if moto server is not available.
func SkipIfUnavailable(t *testing.T) {
	t.Helper()
	if !Available() {
		t.Skipf("moto server not available at %s (start with: moto_server -p 5555)", Endpoint)
	}
}

// Reset clears all moto state. Call this between tests for isolation.
func Reset(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, Endpoint+"/moto-api/reset", nil)
	if err != nil {
		return fmt.Errorf("create reset request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("reset request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reset returned status %d", resp.StatusCode)
	}

	return nil
}

// ResetT resets moto state, failing the test on error.
func ResetT(t *testing.T, ctx context.Context) {
	t.Helper()
	if err := Reset(ctx); err != nil {
		t.Fatalf("failed to reset moto: %v", err)
	}
}

// AWSConfig returns a shared aws.Config pointed at moto.
func AWSConfig() (aws.Config, error) {
	awsCfgOnce.Do(func() {
		ctx := context.Background()
		awsCfg, awsCfgErr = config.LoadDefaultConfig(ctx,
			config.WithRegion(Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				TestAccessKeyID,
				TestSecretAccessKey,
				"",
			)),
		)
	})
	return awsCfg, awsCfgErr
}

// ClientOptions returns the client options pointing requests at moto.
func ClientOptions() []func(*s3.Options) {
	return []func(*s3.Options){
		func(o *s3.Options) {
			o.BaseEndpoint = aws.String(Endpoint)
			o.UsePathStyle = true
		},
	}
}

// ClientT returns an S3 client for moto, failing the test on error.
func ClientT(t *testing.T) *s3.Client {
	t.Helper()
	cfg, err := AWSConfig()
	if err != nil {
		t.Fatalf("failed to load AWS config: %v", err)
	}
	return s3.NewFromConfig(cfg, ClientOptions()...)
}

// CreateBucket creates a test bucket with a unique name and registers cleanup.
func CreateBucket(t *testing.T, ctx context.Context) string {
	t.Helper()

	c := ClientT(t)

	// Derive a unique bucket name from the test name (S3 caps names at 63 chars).
	name := strings.ToLower(t.Name())
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "_", "-")
	if len(name) > 50 {
		name = name[:50]
	}
	name = fmt.Sprintf("%s-%d", name, time.Now().UnixNano()%100000)

	_, err := c.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		t.Fatalf("failed to create bucket %s: %v", name, err)
	}

	t.Cleanup(func() {
		DeleteBucket(t, context.Background(), name)
	})

	return name
}

// NewBucket creates a test bucket and returns a handle bound to it.
func NewBucket(t *testing.T, ctx context.Context, opts ...bucket.Option) *bucket.Bucket {
	t.Helper()

	name := CreateBucket(t, ctx)
	cfg, err := AWSConfig()
	if err != nil {
		t.Fatalf("failed to load AWS config: %v", err)
	}
	return bucket.New(cfg, name, ClientOptions(), opts...)
}

// DeleteBucket deletes a bucket and all its contents.
func DeleteBucket(t *testing.T, ctx context.Context, name string) {
	t.Helper()

	c := ClientT(t)

	paginator := s3.NewListObjectsV2Paginator(c, &s3.ListObjectsV2Input{
		Bucket: aws.String(name),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			t.Logf("warning: failed to list objects in bucket %s: %v", name, err)
			return
		}

		for _, obj := range page.Contents {
			_, err := c.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(name),
				Key:    obj.Key,
			})
			if err != nil {
				t.Logf("warning: failed to delete object %s: %v", *obj.Key, err)
			}
		}
	}

	_, err := c.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		t.Logf("warning: failed to delete bucket %s: %v", name, err)
	}
}

// PutObject uploads an object to the bucket.
func PutObject(t *testing.T, ctx context.Context, name, key string, content []byte) {
	t.Helper()

	c := ClientT(t)

	_, err := c.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(name),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		t.Fatalf("failed to put object %s/%s: %v", name, key, err)
	}
}

// PutObjects uploads multiple objects with generated content.
func PutObjects(t *testing.T, ctx context.Context, name string, keys []string) {
	t.Helper()

	for _, key := range keys {
		PutObject(t, ctx, name, key, []byte("test content for "+key))
	}
}
