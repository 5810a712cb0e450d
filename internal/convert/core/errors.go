// Package core implements the top-level Conversion Controller: it
// negotiates a plan for every input track, drives one pipeline per
// surviving track, and reports aggregate progress and cancellation.
package core

import (
	"errors"
	"fmt"
)

// Kind classifies a conversion failure the way the controller's
// user-facing surface reports it.
type Kind string

// Error kinds.
const (
	KindUnsupportedCodec    Kind = "unsupported_codec"
	KindIncompatibleRequest Kind = "incompatible_request"
	KindNoOutputTracks      Kind = "no_output_tracks"
	KindDemuxError          Kind = "demux_error"
	KindDecodeError         Kind = "decode_error"
	KindEncodeError         Kind = "encode_error"
	KindMuxerError          Kind = "muxer_error"
	KindCancelled           Kind = "cancelled"
	KindInternalInvariant   Kind = "internal_invariant"
)

// Error is a Kind-tagged conversion error, wrapping an underlying cause
// with typed context.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given Kind.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf wraps a formatted error with the given Kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, defaulting to KindInternalInvariant otherwise.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternalInvariant
}

// Sentinel errors for conditions that do not carry additional context.
var (
	ErrCancelled = New(KindCancelled, errors.New("conversion cancelled"))
)
