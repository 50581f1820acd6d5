package bucket

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// List returns a single page of objects whose keys start with prefix.
//
// At most one page (MaxPageSize items, 1000 on S3) is returned; callers
// must not assume completeness for buckets larger than that. Use Walk or
// ListAll when the full result set is needed.
func (b *Bucket) List(ctx context.Context, prefix string) ([]Object, error) {
	out, err := b.api.ListObjectsV2(ctx, b.listInput(prefix, ""))
	if err != nil {
		return nil, b.wrapError("List", "", err)
	}
	return objectsFromPage(out), nil
}

// WalkFunc is invoked by Walk once per listed object.
// Returning a non-nil error stops the walk and is returned to the caller.
type WalkFunc func(obj Object) error

// Walk lists every object under prefix, paginating until the remote
// signals no further pages, and invokes fn for each object in the order
// the remote returns them (lexicographic by key, a remote contract).
//
// Walk holds no state between calls; calling it again restarts from the
// beginning. When the Bucket was built with WithRateLimit, Walk waits on
// the limiter before each page request.
func (b *Bucket) Walk(ctx context.Context, prefix string, fn WalkFunc) error {
	var token string

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		out, err := b.api.ListObjectsV2(ctx, b.listInput(prefix, token))
		if err != nil {
			return b.wrapError("Walk", "", err)
		}

		for _, obj := range objectsFromPage(out) {
			if err := fn(obj); err != nil {
				return err
			}
		}

		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return nil
		}
		token = aws.ToString(out.NextContinuationToken)
	}
}

// ListAll returns every object under prefix, paginating as needed.
func (b *Bucket) ListAll(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	err := b.Walk(ctx, prefix, func(obj Object) error {
		objects = append(objects, obj)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

func (b *Bucket) listInput(prefix, token string) *s3.ListObjectsV2Input {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.name),
		MaxKeys: aws.Int32(b.pageSize),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}
	return input
}

func objectsFromPage(out *s3.ListObjectsV2Output) []Object {
	objects := make([]Object, 0, len(out.Contents))
	for _, obj := range out.Contents {
		objects = append(objects, Object{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			ETag:         cleanETag(aws.ToString(obj.ETag)),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}
	return objects
}
