package tryon

import (
	"fmt"
	"time"
)

// MissingInputError reports which input image could not be resolved,
// so the caller can tell a bad person reference from a bad garment
// reference.
type MissingInputError struct {
	Role string
	Ref  string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s image %q not found", e.Role, e.Ref)
}

// RateLimitError is returned when the cooldown gate denies a call. No
// version number is consumed and no API call is made.
type RateLimitError struct {
	Remaining time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: next generation allowed in %s", e.Remaining.Round(time.Second))
}

// PersistError means the image was generated but could not be saved.
// The version number was already committed; the caller should surface
// the filename so the result is not silently lost.
type PersistError struct {
	Filename string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("generated image could not be saved as %s: %v", e.Filename, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
