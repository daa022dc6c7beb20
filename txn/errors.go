// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package txn

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Every error BuildManifest and its helpers return
// wraps exactly one of these, so callers can branch with errors.Is
// without parsing message text.
var (
	ErrInvalidInput   = errors.New("txn: invalid input")
	ErrCommitConflict = errors.New("txn: commit conflict")
	ErrNotSupported   = errors.New("txn: not supported")
	ErrInternal       = errors.New("txn: internal invariant violation")
)

// InvalidInputError covers DataReplacement precondition violations,
// file-version disagreement, rewritten indices under stable row ids, a
// Restore passed to BuildManifest, and ValidateOperation failures. A
// Rewrite referencing an absent old fragment is a CommitConflictError.
type InvalidInputError struct{ Detail string }

func (e *InvalidInputError) Error() string { return fmt.Sprintf("txn: invalid input: %s", e.Detail) }
func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

func invalidInput(format string, args ...any) error {
	return &InvalidInputError{Detail: fmt.Sprintf(format, args...)}
}

// CommitConflictError: a rewrite (or retry) cannot locate a required
// fragment at a given version.
type CommitConflictError struct{ Detail string }

func (e *CommitConflictError) Error() string { return fmt.Sprintf("txn: commit conflict: %s", e.Detail) }
func (e *CommitConflictError) Unwrap() error { return ErrCommitConflict }

func commitConflict(format string, args ...any) error {
	return &CommitConflictError{Detail: fmt.Sprintf(format, args...)}
}

// NotSupportedError: e.g. enabling stable row ids on an existing dataset
// that lacked them.
type NotSupportedError struct{ Detail string }

func (e *NotSupportedError) Error() string { return fmt.Sprintf("txn: not supported: %s", e.Detail) }
func (e *NotSupportedError) Unwrap() error { return ErrNotSupported }

func notSupported(format string, args ...any) error {
	return &NotSupportedError{Detail: fmt.Sprintf(format, args...)}
}

// InternalError: an invariant breach, e.g. a fragment missing
// PhysicalRows during row-id assignment, or an absent current manifest
// where one is required.
type InternalError struct{ Detail string }

func (e *InternalError) Error() string { return fmt.Sprintf("txn: internal: %s", e.Detail) }
func (e *InternalError) Unwrap() error { return ErrInternal }

func internalErr(format string, args ...any) error {
	return &InternalError{Detail: fmt.Sprintf(format, args...)}
}
