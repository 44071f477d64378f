// Package hpccerr defines the error types returned by the gohpcc packages.
//
// Configuration errors (invalid option keys) are reported with every
// offending key. Operation errors wrap I/O and process failures with the
// operation that failed. Authentication errors wrap failed credential checks.
// Parsed failures (compiler diagnostics, failed workunit states) are not
// errors; they are returned as data by the output package.
package hpccerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoClusters is returned when a cluster selector is built without candidates.
	ErrNoClusters = errors.New("at least one cluster is required")
	// ErrNoAuth is returned when a submitter is built without an auth context.
	ErrNoAuth = errors.New("auth context is required")
	// ErrWorkunitNotCreated is returned when the platform does not report a wuid.
	ErrWorkunitNotCreated = errors.New("workunit id not created")
	// ErrUnknownEndpoint is returned when a call names an endpoint that is not registered.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	// ErrInvalidParam is returned for unrecognized or duplicate call parameters.
	ErrInvalidParam = errors.New("invalid parameter")
)

// ConfigError reports option keys that are not accepted by a tool.
type ConfigError struct {
	Tool string
	Keys []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s options not supported: [%s]", e.Tool, strings.Join(e.Keys, ", "))
}

// NewConfigError creates a ConfigError for the given tool and keys.
func NewConfigError(tool string, keys ...string) *ConfigError {
	return &ConfigError{Tool: tool, Keys: keys}
}

// OperationError wraps a failure of a lifecycle operation.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	if e.Err == nil {
		return "could not " + e.Op
	}
	return fmt.Sprintf("could not %s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Wrap returns an OperationError for op, or nil if err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Err: err}
}

// AuthError reports a failed credential check.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("authentication failed: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("authentication failed: status %d", e.StatusCode)
	default:
		return "authentication failed"
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
