package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error-taxonomy row. Components return errors
// wrapping these so callers can classify failures with errors.Is
// without parsing strings.
var (
	ErrTransport   = errors.New("transport-error")
	ErrProtocol    = errors.New("protocol-error")
	ErrDecode      = errors.New("decode-error")
	ErrIO          = errors.New("io-error")
	ErrDecompress  = errors.New("decompress-error")
	ErrArchive     = errors.New("archive-error")
	ErrCancelled   = errors.New("cancelled")
	ErrPathEscape  = errors.New("path-escape")
)

// TransferError attaches the context a telemetry consumer needs to
// attribute a failure: which target, which file, and why.
type TransferError struct {
	Kind   error
	Target string
	File   string
	Reason string
}

func (e *TransferError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%v: %s: %s", e.Kind, e.Target, e.Reason)
	}
	return fmt.Sprintf("%v: %s (file %q): %s", e.Kind, e.Target, e.File, e.Reason)
}

func (e *TransferError) Unwrap() error {
	return e.Kind
}

func NewTransferError(kind error, target, file, reason string) *TransferError {
	return &TransferError{Kind: kind, Target: target, File: file, Reason: reason}
}
