// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrValidation indicates the caller supplied invalid input.
// Wrap it with the field-level detail: fmt.Errorf("%w: username is required", ErrValidation).
var ErrValidation = errors.New("validation failed")
