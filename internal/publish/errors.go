package publish

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError aggregates every problem found in an upload so the
// caller sees the full list in one response, not one field at a time.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// MissingFieldsError lists required metadata fields that were absent or
// empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing or empty metadata fields: %s", strings.Join(e.Fields, ", "))
}

// PreviouslyNamedError is returned when the canonical form of the
// submitted name maps to a differently-cased existing crate. Publishing
// under the new spelling would silently rename the crate.
type PreviouslyNamedError struct {
	Name string
}

func (e *PreviouslyNamedError) Error() string {
	return fmt.Sprintf("crate was previously named `%s`", e.Name)
}

// UnknownCrateError is returned when a declared dependency references a
// crate that does not exist; publishes may not forward-declare
// dependencies.
type UnknownCrateError struct {
	Name string
}

func (e *UnknownCrateError) Error() string {
	return fmt.Sprintf("no known crate named `%s`", e.Name)
}

// DuplicateVersionError is returned when the (crate, version) pair has
// already been published.
type DuplicateVersionError struct {
	Vers string
}

func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("crate version `%s` is already uploaded", e.Vers)
}

// ErrNotOwner is returned when the requester holds less than publish
// rights on the crate.
var ErrNotOwner = errors.New("crate name has already been claimed by another user")

// DownstreamError wraps artifact-store and index failures. The database
// rows committed before the failure are not rolled back; the
// compensation guard removes the uploaded artifact and the operator
// reconciles the rest.
type DownstreamError struct {
	Stage string
	Err   error
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *DownstreamError) Unwrap() error {
	return e.Err
}
