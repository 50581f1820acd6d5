package output

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []Record {
	t.Helper()
	var records []Record
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func TestJSONLWriterEnvelope(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123")

	require.NoError(t, w.WriteObject(ctx, &ObjectRecord{
		Key:          "data/file.txt",
		Size:         42,
		ETag:         "abc",
		LastModified: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, w.WriteSummary(ctx, &SummaryRecord{Objects: 1, Bytes: 42}))

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)

	assert.Equal(t, TypeObject, records[0].Type)
	assert.Equal(t, "job-123", records[0].JobID)
	assert.False(t, records[0].TS.IsZero())

	var obj ObjectRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &obj))
	assert.Equal(t, "data/file.txt", obj.Key)
	assert.Equal(t, int64(42), obj.Size)

	assert.Equal(t, TypeSummary, records[1].Type)
}

func TestJSONLWriterRecordTypes(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job")

	require.NoError(t, w.WriteTransfer(ctx, &TransferRecord{Direction: "upload", Key: "k", Path: "/tmp/k"}))
	require.NoError(t, w.WriteDelete(ctx, &DeleteRecord{Deleted: []string{"a"}, DeletedCount: 1}))
	require.NoError(t, w.WriteError(ctx, &ErrorRecord{Code: ErrCodeNotFound, Message: "nope", Key: "k"}))

	records := decodeLines(t, &buf)
	require.Len(t, records, 3)
	assert.Equal(t, TypeTransfer, records[0].Type)
	assert.Equal(t, TypeDelete, records[1].Type)
	assert.Equal(t, TypeError, records[2].Type)
}

func TestJSONLWriterClosed(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job")

	require.NoError(t, w.Close())
	err := w.WriteObject(ctx, &ObjectRecord{Key: "k"})
	assert.ErrorIs(t, err, ErrWriterClosed)
}

func TestJSONLWriterCancelledContext(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.WriteObject(ctx, &ObjectRecord{Key: "k"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestJSONLWriterConcurrentWritesDoNotInterleave(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = w.WriteTransfer(ctx, &TransferRecord{
				Direction: "upload",
				Key:       strings.Repeat("k", 100+n),
			})
		}(i)
	}
	wg.Wait()

	// Every line must decode independently.
	records := decodeLines(t, &buf)
	assert.Len(t, records, 20)
}

// chunkWriter writes at most n bytes per call, forcing short writes.
type chunkWriter struct {
	buf bytes.Buffer
	n   int
}

func (c *chunkWriter) Write(p []byte) (int, error) {
	if len(p) > c.n {
		p = p[:c.n]
	}
	return c.buf.Write(p)
}

func TestJSONLWriterShortWrites(t *testing.T) {
	ctx := context.Background()
	cw := &chunkWriter{n: 7}
	w := NewJSONLWriter(cw, "job")

	require.NoError(t, w.WriteObject(ctx, &ObjectRecord{Key: "data/file.txt", Size: 42}))

	var rec Record
	line := strings.TrimSuffix(cw.buf.String(), "\n")
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, TypeObject, rec.Type)
}
