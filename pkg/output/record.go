// Package output emits machine-readable JSONL records for CLI results.
//
// Every line is a Record envelope carrying a typed payload. Writers are
// safe for concurrent use so worker goroutines can report as they finish.
package output

import (
	"encoding/json"
	"time"
)

// Record types.
const (
	TypeObject   = "object"
	TypeTransfer = "transfer"
	TypeDelete   = "delete"
	TypeError    = "error"
	TypeSummary  = "summary"
)

// Error codes for ErrorRecord.
const (
	ErrCodeNotFound           = "not_found"
	ErrCodeAccessDenied       = "access_denied"
	ErrCodeThrottled          = "throttled"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeInternal           = "internal"
)

// Record is the envelope wrapping every JSONL line.
type Record struct {
	// Type identifies the payload (object, transfer, delete, error, summary).
	Type string `json:"type"`

	// TS is the UTC emission time.
	TS time.Time `json:"ts"`

	// JobID correlates all records from one command invocation.
	JobID string `json:"job_id"`

	// Data is the typed payload.
	Data json.RawMessage `json:"data"`
}

// ObjectRecord describes one listed object.
type ObjectRecord struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// TransferRecord describes one completed upload or download.
type TransferRecord struct {
	// Direction is "upload" or "download".
	Direction string `json:"direction"`
	Key       string `json:"key"`
	Path      string `json:"path"`
	Bytes     int64  `json:"bytes,omitempty"`
}

// DeleteRecord summarizes a delete operation.
type DeleteRecord struct {
	Deleted      []string `json:"deleted"`
	DeletedCount int      `json:"deleted_count"`
	Failed       []string `json:"failed,omitempty"`
	FailedCount  int      `json:"failed_count"`
}

// ErrorRecord describes a non-fatal error encountered mid-command.
type ErrorRecord struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
}

// SummaryRecord closes a command's output with aggregate counts.
type SummaryRecord struct {
	Objects       int64         `json:"objects"`
	Bytes         int64         `json:"bytes"`
	Errors        int64         `json:"errors"`
	Duration      time.Duration `json:"duration_ns"`
	DurationHuman string        `json:"duration"`
}
