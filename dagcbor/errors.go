package dagcbor

import (
	"errors"
	"fmt"
	"io"
)

// Code is a stable category for programmatic error handling.
//
// These codes are intended to remain stable across versions.
// Callers should branch on Code rather than matching error strings.
//
// NOTE: Error() strings are intentionally kept human-readable and may evolve.
// Use errors.As to extract *Error for structured handling.
type Code string

const (
	// CodeUnexpectedEOF: the stream ended before a required field could be
	// fully read. Any underlying short-read signal is normalized to this.
	CodeUnexpectedEOF Code = "UNEXPECTED_EOF"
	// CodeUnexpectedCode: a type byte (or length selector) does not match
	// any recognized encoding.
	CodeUnexpectedCode Code = "UNEXPECTED_CODE"
	// CodeUnknownTag: inside the link sub-grammar, an expected fixed marker
	// byte had the wrong value.
	CodeUnknownTag Code = "UNKNOWN_TAG"
	// CodeInvalidCidPrefix: the embedded CID does not start with the
	// multibase identity prefix.
	CodeInvalidCidPrefix Code = "INVALID_CID_PREFIX"
	// CodeInvalidCidVersion: the embedded CID is not version 1.
	CodeInvalidCidVersion Code = "INVALID_CID_VERSION"
	// CodeInvalidHashAlgorithm: the multihash header is not blake3-256.
	CodeInvalidHashAlgorithm Code = "INVALID_HASH_ALGORITHM"
	// CodeInvalidHashLength: the digest is not exactly 32 bytes.
	CodeInvalidHashLength Code = "INVALID_HASH_LENGTH"
	// CodeLengthOutOfRange: a declared length is zero where nonzero is
	// required, exceeds the host int range, or leaves too few bytes for a
	// fixed-size tail.
	CodeLengthOutOfRange Code = "LENGTH_OUT_OF_RANGE"
	// CodeInvalidVarint: a varint failed to terminate within 64 bits of
	// accumulated shift, or was cut off by the end of its buffer.
	CodeInvalidVarint Code = "INVALID_VARINT"
	// CodeDepthLimit: nesting exceeded the configured maximum depth.
	CodeDepthLimit Code = "DEPTH_LIMIT"
	// CodeIO: any other underlying I/O failure; the cause is preserved and
	// reachable via errors.Unwrap.
	CodeIO Code = "IO"
)

// Error is the package's structured error type.
//
// Byte carries the offending byte for UNEXPECTED_CODE, UNKNOWN_TAG and
// INVALID_CID_PREFIX; it is zero otherwise.
type Error struct {
	Code  Code
	Byte  byte
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Code {
	case CodeUnexpectedCode, CodeUnknownTag, CodeInvalidCidPrefix:
		return fmt.Sprintf("dagcbor: %s (0x%02x)", e.Code, e.Byte)
	case CodeIO:
		if e.Cause != nil {
			return fmt.Sprintf("dagcbor: %s: %v", e.Code, e.Cause)
		}
	}
	return fmt.Sprintf("dagcbor: %s", e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(code Code) error {
	return &Error{Code: code}
}

func newByteError(code Code, b byte) error {
	return &Error{Code: code, Byte: b}
}

// wrapIO normalizes an underlying read failure: any EOF-shaped error
// becomes UNEXPECTED_EOF, everything else is wrapped as IO with its
// cause preserved.
func wrapIO(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Code: CodeUnexpectedEOF}
	}
	return &Error{Code: CodeIO, Cause: err}
}

// IsCode reports whether err is (or wraps) a *Error with the given Code.
func IsCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// ErrCode returns the stable Code for a structured error, or "" if unknown.
func ErrCode(err error) Code {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}
