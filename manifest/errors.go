// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package manifest

import (
	"errors"
	"fmt"
)

// ErrInternal is the sentinel for invariant breaches that should never
// happen given a correctly behaving transaction engine.
var ErrInternal = errors.New("manifest: internal invariant violation")

// InternalError wraps ErrInternal with context.
type InternalError struct{ Detail string }

func (e *InternalError) Error() string { return fmt.Sprintf("manifest: internal: %s", e.Detail) }
func (e *InternalError) Unwrap() error { return ErrInternal }

func newInternalErr(detail string) error { return &InternalError{Detail: detail} }
