package bucket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsantor/go-s3-utils/pkg/match"
)

type fakeObject struct {
	data         []byte
	lastModified time.Time
}

// fakeS3 is an in-memory S3API. Listing paginates over sorted keys the
// way the real service does; forced errors let tests exercise failure
// paths without a live endpoint.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject

	headErr error
	listErr error
	putErr  error
	getErr  error

	// failDeletes marks keys DeleteObjects reports as errored.
	failDeletes map[string]string

	listCalls int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject)}
}

func (f *fakeS3) put(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: data, lastModified: time.Now().UTC()}
}

func (f *fakeS3) etag(key string) string {
	return fmt.Sprintf("%q", "etag-"+key)
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key := aws.ToString(params.Key)
	obj, ok := f.objects[key]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ETag:          aws.String(f.etag(key)),
		LastModified:  aws.Time(obj.lastModified),
	}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	prefix := aws.ToString(params.Prefix)
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	start := 0
	if token := aws.ToString(params.ContinuationToken); token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("bad continuation token %q", token)
		}
		start = n
	}

	pageSize := int(aws.ToInt32(params.MaxKeys))
	if pageSize <= 0 {
		pageSize = 1000
	}
	end := start + pageSize
	if end > len(keys) {
		end = len(keys)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, key := range keys[start:end] {
		obj := f.objects[key]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.data))),
			ETag:         aws.String(f.etag(key)),
			LastModified: aws.Time(obj.lastModified),
		})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.put(aws.ToString(params.Key), data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentLength: aws.Int64(int64(len(obj.data))),
	}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := &s3.DeleteObjectsOutput{}
	for _, id := range params.Delete.Objects {
		key := aws.ToString(id.Key)
		if code, ok := f.failDeletes[key]; ok {
			out.Errors = append(out.Errors, types.Error{
				Key:     aws.String(key),
				Code:    aws.String(code),
				Message: aws.String("forced failure"),
			})
			continue
		}
		delete(f.objects, key)
		out.Deleted = append(out.Deleted, types.DeletedObject{Key: aws.String(key)})
	}
	return out, nil
}

func newTestBucket(t *testing.T, opts ...Option) (*Bucket, *fakeS3) {
	t.Helper()
	fake := newFakeS3()
	return NewWithAPI(fake, "test-bucket", opts...), fake
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)
	fake.put("present.txt", []byte("hello"))

	found, err := b.Exists(ctx, "present.txt")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = b.Exists(ctx, "absent.txt")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExistsServiceError(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)
	fake.headErr = &mockAPIError{code: "AccessDenied"}

	// A failed probe must not read as absence.
	_, err := b.Exists(ctx, "anything.txt")
	require.Error(t, err)
	assert.True(t, IsAccessDenied(err))
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)
	fake.put("data/report.csv", []byte("a,b,c\n"))

	obj, err := b.Stat(ctx, "data/report.csv")
	require.NoError(t, err)
	assert.Equal(t, "data/report.csv", obj.Key)
	assert.Equal(t, int64(6), obj.Size)
	assert.Equal(t, "etag-data/report.csv", obj.ETag, "quotes must be stripped")
	assert.False(t, obj.LastModified.IsZero())
}

func TestStatNotFound(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBucket(t)

	_, err := b.Stat(ctx, "missing.txt")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "Stat", opErr.Op)
	assert.Equal(t, "test-bucket", opErr.Bucket)
	assert.Equal(t, "missing.txt", opErr.Key)
}

func TestListSinglePage(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t, WithPageSize(10))
	for i := 0; i < 25; i++ {
		fake.put(fmt.Sprintf("data/%03d.txt", i), []byte("x"))
	}
	fake.put("other/skip.txt", []byte("x"))

	objects, err := b.List(ctx, "data/")
	require.NoError(t, err)

	// One page only, never the full set.
	assert.Len(t, objects, 10)
	assert.Equal(t, "data/000.txt", objects[0].Key)
	assert.Equal(t, 1, fake.listCalls)
}

func TestWalkPaginates(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t, WithPageSize(100))
	for i := 0; i < 250; i++ {
		fake.put(fmt.Sprintf("logs/%04d.log", i), []byte("x"))
	}

	var keys []string
	err := b.Walk(ctx, "logs/", func(obj Object) error {
		keys = append(keys, obj.Key)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, keys, 250)
	assert.Equal(t, 3, fake.listCalls)
	assert.True(t, sort.StringsAreSorted(keys), "remote returns keys in order")
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t, WithPageSize(10))
	for i := 0; i < 30; i++ {
		fake.put(fmt.Sprintf("k/%02d", i), []byte("x"))
	}

	stop := errors.New("stop")
	seen := 0
	err := b.Walk(ctx, "k/", func(obj Object) error {
		seen++
		if seen == 5 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 5, seen)
	assert.Equal(t, 1, fake.listCalls)
}

func TestWalkCancelledContext(t *testing.T) {
	b, fake := newTestBucket(t)
	fake.put("a.txt", []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Walk(ctx, "", func(obj Object) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, fake.listCalls)
}

func TestListAll(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t, WithPageSize(7))
	for i := 0; i < 20; i++ {
		fake.put(fmt.Sprintf("all/%02d", i), []byte("x"))
	}

	objects, err := b.ListAll(ctx, "all/")
	require.NoError(t, err)
	assert.Len(t, objects, 20)
}

func TestUploadDerivesKeyFromBaseName(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)

	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf bytes"), 0o644))

	key, err := b.Upload(ctx, path, "")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", key)
	assert.Equal(t, []byte("pdf bytes"), fake.objects["report.pdf"].data)
}

func TestUploadExplicitKey(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)

	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf bytes"), 0o644))

	key, err := b.Upload(ctx, path, "reports/2026/q3.pdf")
	require.NoError(t, err)
	assert.Equal(t, "reports/2026/q3.pdf", key)
	_, ok := fake.objects["reports/2026/q3.pdf"]
	assert.True(t, ok)
}

func TestUploadMissingFile(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBucket(t)

	_, err := b.Upload(ctx, filepath.Join(t.TempDir(), "nope.txt"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)
	fake.put("nested/path/file.txt", []byte("round trip"))

	dir := t.TempDir()
	dest, err := b.Download(ctx, "nested/path/file.txt", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "path", "file.txt"), dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("round trip"), data)
}

func TestDownloadOverwritesExisting(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)
	fake.put("file.txt", []byte("new"))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("old contents"), 0o644))

	dest, err := b.Download(ctx, "file.txt", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
}

func TestDownloadNotFound(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBucket(t)

	_, err := b.Download(ctx, "missing.txt", t.TempDir())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestDownloadPrefix(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)
	fake.put("reports/", nil) // directory marker
	fake.put("reports/a.txt", []byte("a"))
	fake.put("reports/2026/b.txt", []byte("b"))
	fake.put("reports-archive/c.txt", []byte("c")) // sibling prefix, excluded

	dir := t.TempDir()
	count, err := b.DownloadPrefix(ctx, "reports", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.FileExists(t, filepath.Join(dir, "reports", "a.txt"))
	assert.FileExists(t, filepath.Join(dir, "reports", "2026", "b.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "reports-archive", "c.txt"))
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)
	fake.put("gone.txt", []byte("x"))

	require.NoError(t, b.Delete(ctx, "gone.txt"))
	_, ok := fake.objects["gone.txt"]
	assert.False(t, ok)

	// Absent key deletes cleanly.
	assert.NoError(t, b.Delete(ctx, "gone.txt"))
}

func TestDeleteBatch(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)
	fake.put("a", []byte("x"))
	fake.put("b", []byte("x"))
	fake.put("c", []byte("x"))
	fake.failDeletes = map[string]string{"b": "AccessDenied"}

	result, err := b.DeleteBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, result.Deleted)
	assert.Equal(t, 2, result.DeletedCount())
	require.Equal(t, 1, result.ErrorCount())
	assert.Equal(t, "b", result.Errors[0].Key)
	assert.Equal(t, "AccessDenied", result.Errors[0].Code)
}

func TestDeleteBatchEmpty(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBucket(t)

	result, err := b.DeleteBatch(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DeletedCount())
	assert.Equal(t, 0, result.ErrorCount())
}

func TestDeleteBatchOverLimit(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBucket(t)

	keys := make([]string, MaxBatchDelete+1)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}

	_, err := b.DeleteBatch(ctx, keys)
	require.Error(t, err)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "DeleteBatch", opErr.Op)
}

func TestUploadDir(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.log"), []byte("c"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte("n"), 0o644))

	var mu sync.Mutex
	var uploaded []string
	err := b.UploadDir(ctx, dir,
		WithUploadParallel(2),
		WithUploadCallback(func(path, key string, err error) {
			mu.Lock()
			defer mu.Unlock()
			require.NoError(t, err)
			uploaded = append(uploaded, key)
		}),
	)
	require.NoError(t, err)

	sort.Strings(uploaded)
	// Immediate regular files only; the subdirectory is not traversed.
	assert.Equal(t, []string{"a.txt", "b.txt", "c.log"}, uploaded)
	assert.Len(t, fake.objects, 3)
}

func TestUploadDirFilter(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.csv"), []byte("k"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.tmp"), []byte("s"), 0o644))

	matcher, err := match.New(match.Config{Includes: []string{"*.csv"}})
	require.NoError(t, err)

	require.NoError(t, b.UploadDir(ctx, dir, WithUploadFilter(matcher)))
	assert.Len(t, fake.objects, 1)
	_, ok := fake.objects["keep.csv"]
	assert.True(t, ok)
}

func TestUploadDirFailuresAreIndependent(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))
	fake.putErr = &mockAPIError{code: "SlowDown"}

	var mu sync.Mutex
	failures := 0
	err := b.UploadDir(ctx, dir, WithUploadCallback(func(path, key string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			assert.True(t, IsThrottled(err))
			failures++
		}
	}))

	// Per-file failures never surface through the call's own error.
	require.NoError(t, err)
	assert.Equal(t, 2, failures)
}

func TestUploadDirMissingDir(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBucket(t)

	err := b.UploadDir(ctx, filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestUploadListDeleteScenario drives the full life cycle: upload a
// directory, list the keys back, batch delete them, observe absence.
func TestUploadListDeleteScenario(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBucket(t)

	dir := t.TempDir()
	names := []string{"one.txt", "two.txt", "three.txt"}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}

	require.NoError(t, b.UploadDir(ctx, dir))

	objects, err := b.ListAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, objects, 3)

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"one.txt", "three.txt", "two.txt"}, keys)

	result, err := b.DeleteBatch(ctx, keys)
	require.NoError(t, err)
	assert.Equal(t, 3, result.DeletedCount())
	assert.Equal(t, 0, result.ErrorCount())

	for _, key := range keys {
		found, err := b.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, found, "key %s should be gone", key)
	}

	objects, err = b.ListAll(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestWithRateLimit(t *testing.T) {
	b := NewWithAPI(newFakeS3(), "b", WithRateLimit(5))
	assert.NotNil(t, b.limiter)

	b = NewWithAPI(newFakeS3(), "b", WithRateLimit(0))
	assert.Nil(t, b.limiter)
}

func TestWalkWithRateLimit(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBucket(t, WithPageSize(5), WithRateLimit(1000))
	for i := 0; i < 12; i++ {
		fake.put(fmt.Sprintf("r/%02d", i), []byte("x"))
	}

	count := 0
	err := b.Walk(ctx, "r/", func(obj Object) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 12, count)
	assert.Equal(t, 3, fake.listCalls)
}

func TestClampPageSize(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int32
	}{
		{"zero takes default", 0, DefaultPageSize},
		{"negative takes default", -5, DefaultPageSize},
		{"in range passes through", 250, 250},
		{"above cap clamps", 5000, MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clampPageSize(tt.in))
		})
	}
}
