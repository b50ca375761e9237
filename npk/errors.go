package npk

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	// KindFrame reports a malformed frame in a serialized package.
	KindFrame Kind = "Frame"
	// KindValidation reports a package that violates a structural invariant.
	KindValidation Kind = "Validation"
	// KindSigning reports a failure of a signing backend.
	KindSigning Kind = "Signing"
	// KindVerify reports a missing or invalid signature.
	KindVerify Kind = "Verify"
)

// Error is the library's structured error type.
//
// RuleID is a stable identifier (e.g. NPK-FRAME-001, NPK-SIGN-002) naming the
// violated rule. Offset is the byte offset of the offending frame for
// KindFrame errors and -1 otherwise.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Offset  int64
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s (offset %d)", msg, e.Offset)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Offset: -1}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Offset: -1, Cause: cause}
}

func frameError(ruleID, msg string, offset int64) error {
	return &Error{Kind: KindFrame, RuleID: ruleID, Message: msg, Offset: offset}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
