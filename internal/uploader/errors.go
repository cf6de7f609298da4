package uploader

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. The event router converts
// these to user-facing messages; none of them are fatal to the process.
var (
	// ErrNotFound covers decode failures and missing cards: the request
	// has expired or the message was edited/deleted externally.
	ErrNotFound = errors.New("request not found or expired")

	// ErrPermissionDenied is returned for privileged-command attempts by
	// non-privileged actors. Initiation attempts never surface it: they
	// are silently dropped (see Gate).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAlreadyProcessed guards terminal cards against a second terminal
	// transition (duplicate clicks, races).
	ErrAlreadyProcessed = errors.New("request already processed")

	// ErrConfigurationMissing means a required runtime setting (such as a
	// review channel for the source channel) has not been configured.
	ErrConfigurationMissing = errors.New("required configuration missing")
)

// TransferError wraps a download or upload failure during approval. It is
// terminal for the request: the review card is rewritten to a failure
// receipt carrying the underlying detail.
type TransferError struct {
	Stage string // "download" or "upload"
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed during %s: %v", e.Stage, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
