package bucket

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tsantor/go-s3-utils/pkg/match"
)

// Upload uploads the file at localPath to key.
//
// An empty key derives the object key from the file's base name. The full
// byte content is sent in a single PutObject; the remote's atomic
// single-object put is the only partial-upload guarantee. The resulting
// key is returned.
func (b *Bucket) Upload(ctx context.Context, localPath, key string) (string, error) {
	if key == "" {
		key = filepath.Base(localPath)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	_, err = b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.name),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", b.wrapError("Upload", key, err)
	}
	return key, nil
}

// uploadDirOptions holds resolved UploadDir settings.
type uploadDirOptions struct {
	parallel int
	matcher  *match.Matcher
	onUpload func(path, key string, err error)
}

// UploadDirOption customizes an UploadDir call.
type UploadDirOption func(*uploadDirOptions)

// WithUploadParallel overrides the worker pool size.
// The default is the host's available execution units.
func WithUploadParallel(n int) UploadDirOption {
	return func(o *uploadDirOptions) {
		if n > 0 {
			o.parallel = n
		}
	}
}

// WithUploadFilter restricts uploads to file names accepted by m.
func WithUploadFilter(m *match.Matcher) UploadDirOption {
	return func(o *uploadDirOptions) {
		o.matcher = m
	}
}

// WithUploadCallback registers fn to be called once per attempted upload
// with the local path, resulting key, and that file's error (nil on
// success). Callbacks may run concurrently from worker goroutines.
func WithUploadCallback(fn func(path, key string, err error)) UploadDirOption {
	return func(o *uploadDirOptions) {
		o.onUpload = fn
	}
}

// UploadDir uploads every immediate regular file under dir, each keyed by
// its base name. There is no recursive traversal.
//
// Uploads run concurrently on a worker pool bounded by the host's
// available execution units (see WithUploadParallel). The call joins all
// workers before returning. Individual failures are independent: one
// file's error never blocks or cancels its siblings, and failures are
// reported only through the WithUploadCallback hook. The returned error
// covers directory enumeration and context cancellation only.
func (b *Bucket) UploadDir(ctx context.Context, dir string, opts ...UploadDirOption) error {
	o := uploadDirOptions{parallel: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, o.parallel)
	var wg sync.WaitGroup

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if o.matcher != nil && !o.matcher.Match(name) {
			continue
		}

		// Acquire a worker slot or stop scheduling on cancellation.
		// Slots acquired here are released by the worker goroutine.
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer func() { <-sem }()

			path := filepath.Join(dir, name)
			key, err := b.Upload(ctx, path, "")
			if o.onUpload != nil {
				o.onUpload(path, key, err)
			}
		}(name)
	}

	wg.Wait()
	return ctx.Err()
}
