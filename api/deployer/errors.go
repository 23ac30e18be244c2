// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package deployer

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a malformed deployment property. It always
// names the offending key and carries the raw value so the caller can see
// what was actually supplied, not just that something was invalid.
type ConfigurationError struct {
	// Key is the deployment property key that failed to parse.
	Key string
	// Value is the raw property value as supplied.
	Value string
	// Reason describes what is wrong with the value.
	Reason string
	// Err is the underlying parse error, if any.
	Err error
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("invalid deployment property %q: %s (value: %q)", e.Key, e.Reason, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying parse error.
func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError creates a ConfigurationError for the given property.
func NewConfigurationError(key, value, reason string) *ConfigurationError {
	return &ConfigurationError{Key: key, Value: value, Reason: reason}
}

// WrapConfigurationError creates a ConfigurationError wrapping a parse error.
func WrapConfigurationError(key, value, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Key: key, Value: value, Reason: reason, Err: err}
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// StateError reports an operation applied to a deployment in the wrong
// state: deploying an id that already exists, undeploying an id that does
// not, launching past the concurrency cap.
type StateError struct {
	// ID is the deployment or task execution id.
	ID string
	// Reason describes why the operation is illegal in the current state.
	Reason string
}

// Error implements error.
func (e *StateError) Error() string {
	return fmt.Sprintf("illegal state for %q: %s", e.ID, e.Reason)
}

// NewStateError creates a StateError for the given id.
func NewStateError(id, reason string) *StateError {
	return &StateError{ID: id, Reason: reason}
}

// IsState reports whether err is (or wraps) a StateError.
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}
