// Package verifyerror defines the failure taxonomy of the attestation pipeline.
//
// Every failure is fatal: a run that returns any of these errors must not produce
// a commitment. Callers branch on Kind through IsKind or KindOf rather than on
// message text.
package verifyerror

import (
	"errors"
	"fmt"
)

// Kind is a stable failure category.
type Kind string

const (
	// KindMalformedInput covers invalid base64/hex, non-UTF-8 text, XML syntax errors
	// and unparsable numbers or booleans.
	KindMalformedInput Kind = "MalformedInput"
	// KindProtocolViolation covers missing fields, unsupported segment or signature
	// versions and multi-segment responses.
	KindProtocolViolation Kind = "ProtocolViolation"
	// KindIntegrityMismatch covers digests and re-encrypted ciphertexts that do not
	// match their declared values.
	KindIntegrityMismatch Kind = "IntegrityMismatch"
	// KindAuthenticityFailure covers bank or witness signatures that do not verify.
	KindAuthenticityFailure Kind = "AuthenticityFailure"
	// KindDecryptionFailure covers failed private-key decryption and structurally
	// invalid keys or padding.
	KindDecryptionFailure Kind = "DecryptionFailure"
	// KindCardinalityViolation covers statement counts other than the one required.
	KindCardinalityViolation Kind = "CardinalityViolation"
)

// Error is the structured pipeline error.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates an error of the given kind raised by op.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap creates an error of the given kind raised by op with an underlying cause.
func Wrap(kind Kind, op, msg string, cause error) error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: cause}
}

// MissingFieldError reports a required field that was absent or empty after parsing.
type MissingFieldError struct {
	Parser string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing field %s", e.Parser, e.Field)
}

// ParseError represents a value that could not be decoded.
type ParseError struct {
	Parser string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Parser, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or "" when err is not part of the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var mf *MissingFieldError
	if errors.As(err, &mf) {
		return KindProtocolViolation
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return KindMalformedInput
	}
	return ""
}

// IsKind reports whether err is (or wraps) a failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
