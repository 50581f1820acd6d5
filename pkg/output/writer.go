package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrWriterClosed is returned when writing after Close.
var ErrWriterClosed = errors.New("output writer is closed")

// WriteFailure wraps marshal/write failures with the failing stage.
type WriteFailure struct {
	Op  string
	Err error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("output %s: %v", e.Op, e.Err)
}

func (e *WriteFailure) Unwrap() error {
	return e.Err
}

// Writer emits JSONL records. Implementations must be safe for
// concurrent use; each Write* call produces one complete line.
type Writer interface {
	WriteObject(ctx context.Context, obj *ObjectRecord) error
	WriteTransfer(ctx context.Context, tr *TransferRecord) error
	WriteDelete(ctx context.Context, del *DeleteRecord) error
	WriteError(ctx context.Context, rec *ErrorRecord) error
	WriteSummary(ctx context.Context, sum *SummaryRecord) error

	// Close marks the writer closed. The underlying io.Writer is the
	// caller's to close.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON. Writes are
// serialized under a mutex so concurrent callers never interleave lines.
type JSONLWriter struct {
	w     io.Writer
	jobID string

	mu     sync.Mutex
	closed bool
}

// NewJSONLWriter creates a JSONL writer tagging every record with jobID.
func NewJSONLWriter(w io.Writer, jobID string) *JSONLWriter {
	return &JSONLWriter{w: w, jobID: jobID}
}

func (jw *JSONLWriter) WriteObject(ctx context.Context, obj *ObjectRecord) error {
	return jw.writeRecord(ctx, TypeObject, obj)
}

func (jw *JSONLWriter) WriteTransfer(ctx context.Context, tr *TransferRecord) error {
	return jw.writeRecord(ctx, TypeTransfer, tr)
}

func (jw *JSONLWriter) WriteDelete(ctx context.Context, del *DeleteRecord) error {
	return jw.writeRecord(ctx, TypeDelete, del)
}

func (jw *JSONLWriter) WriteError(ctx context.Context, rec *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, rec)
}

func (jw *JSONLWriter) WriteSummary(ctx context.Context, sum *SummaryRecord) error {
	return jw.writeRecord(ctx, TypeSummary, sum)
}

// Close marks the writer as closed. Subsequent writes fail with
// ErrWriterClosed.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.closed = true
	return nil
}

func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Marshal the payload outside the lock.
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteFailure{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}

	record := Record{
		Type:  recordType,
		TS:    time.Now().UTC(),
		JobID: jw.jobID,
		Data:  dataBytes,
	}
	line, err := json.Marshal(record)
	if err != nil {
		return &WriteFailure{Op: "marshal_record", Err: err}
	}

	// io.Writer may return a short write with nil error; a truncated
	// line would corrupt the JSONL stream, so loop until drained.
	line = append(line, '\n')
	for len(line) > 0 {
		n, err := jw.w.Write(line)
		if err != nil {
			return &WriteFailure{Op: "write", Err: err}
		}
		if n == 0 {
			return &WriteFailure{Op: "write", Err: io.ErrShortWrite}
		}
		line = line[n:]
	}
	return nil
}

// Compile-time check that JSONLWriter implements Writer.
var _ Writer = (*JSONLWriter)(nil)
