package bucket

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tsantor/go-s3-utils/pkg/match"
)

// Download fetches key into localDir and returns the local path.
//
// The destination is localDir joined with the key's path segments; missing
// parent directories are created and an existing file at the destination
// is overwritten silently. An absent key surfaces as ErrNotFound from the
// transfer call itself - Download performs no pre-check probe, so absence
// costs a single round trip and carries the same error taxonomy as Stat.
func (b *Bucket) Download(ctx context.Context, key, localDir string) (string, error) {
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", b.wrapError("Download", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	dest := filepath.Join(localDir, filepath.FromSlash(key))
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return dest, nil
}

// DownloadPrefix fetches every object under prefix into localDir,
// preserving key path segments below localDir. A zero-length directory
// marker whose key equals the prefix is skipped. Returns the number of
// objects downloaded.
//
// The prefix is normalized to end with "/" so that sibling prefixes
// sharing the same leading characters are not swept in.
func (b *Bucket) DownloadPrefix(ctx context.Context, prefix, localDir string) (int, error) {
	prefix = match.EnsureTrailingSlash(prefix)

	var downloaded int
	err := b.Walk(ctx, prefix, func(obj Object) error {
		if obj.Key == prefix {
			return nil
		}
		if _, err := b.Download(ctx, obj.Key, localDir); err != nil {
			return err
		}
		downloaded++
		return nil
	})
	return downloaded, err
}
