package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeBackend represents transient store failures (safe to retry with backoff)
	ErrorTypeBackend ErrorType = "backend"
	// ErrorTypeTransition represents relationship changes that violate the current state
	ErrorTypeTransition ErrorType = "transition"
	// ErrorTypeNotFound represents references to users that do not exist
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeInput represents malformed identifiers or parameters
	ErrorTypeInput ErrorType = "input"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Backend Errors

// ErrBackendUnavailable is returned when a store cannot be reached.
// A failed query must stay distinguishable from a negative result.
type ErrBackendUnavailable struct {
	*BaseError
	Op string
}

func NewBackendUnavailable(op string, err error) *ErrBackendUnavailable {
	return &ErrBackendUnavailable{
		BaseError: NewBaseError(ErrorTypeBackend, fmt.Sprintf("store unavailable during %s", op), err),
		Op:        op,
	}
}

// Transition Errors

// ErrAlreadyFriends is returned when a transition requires the pair not to be friends
type ErrAlreadyFriends struct {
	*BaseError
	UserA string
	UserB string
}

func NewAlreadyFriends(a, b string) *ErrAlreadyFriends {
	return &ErrAlreadyFriends{
		BaseError: NewBaseError(ErrorTypeTransition, "users are already friends", nil),
		UserA:     a,
		UserB:     b,
	}
}

// ErrDuplicateRequest is returned when a friend request already exists in either direction
type ErrDuplicateRequest struct {
	*BaseError
	From string
	To   string
}

func NewDuplicateRequest(from, to string) *ErrDuplicateRequest {
	return &ErrDuplicateRequest{
		BaseError: NewBaseError(ErrorTypeTransition, "a friend request already exists between these users", nil),
		From:      from,
		To:        to,
	}
}

// ErrNoSuchRequest is returned when accepting or declining a request that does not exist
type ErrNoSuchRequest struct {
	*BaseError
	Requester string
	Recipient string
}

func NewNoSuchRequest(requester, recipient string) *ErrNoSuchRequest {
	return &ErrNoSuchRequest{
		BaseError: NewBaseError(ErrorTypeTransition, "user has not received a friend request", nil),
		Requester: requester,
		Recipient: recipient,
	}
}

// ErrSelfRelation is returned when a user targets themselves
type ErrSelfRelation struct {
	*BaseError
	UserID string
}

func NewSelfRelation(userID string) *ErrSelfRelation {
	return &ErrSelfRelation{
		BaseError: NewBaseError(ErrorTypeTransition, "a user cannot befriend themselves", nil),
		UserID:    userID,
	}
}

// Not Found Errors

// ErrUserNotFound is returned when a referenced user id does not exist
type ErrUserNotFound struct {
	*BaseError
	UserID string
}

func NewUserNotFound(userID string) *ErrUserNotFound {
	return &ErrUserNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("user not found: %s", userID), nil),
		UserID:    userID,
	}
}

// Input Errors

// ErrInvalidInput is returned for malformed identifiers or parameters
type ErrInvalidInput struct {
	*BaseError
	Field string
}

func NewInvalidInput(field, reason string) *ErrInvalidInput {
	return &ErrInvalidInput{
		BaseError: NewBaseError(ErrorTypeInput, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if baseErr, ok := err.(*BaseError); ok {
		return baseErr.Type == errType
	}
	if typed, ok := err.(interface{ Base() *BaseError }); ok {
		return typed.Base().Type == errType
	}
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		if inner := wrapped.Unwrap(); inner != nil {
			return IsErrorType(inner, errType)
		}
	}
	return false
}

// Base exposes the embedded BaseError for IsErrorType checks on typed errors

func (e *ErrBackendUnavailable) Base() *BaseError { return e.BaseError }
func (e *ErrAlreadyFriends) Base() *BaseError     { return e.BaseError }
func (e *ErrDuplicateRequest) Base() *BaseError   { return e.BaseError }
func (e *ErrNoSuchRequest) Base() *BaseError      { return e.BaseError }
func (e *ErrSelfRelation) Base() *BaseError       { return e.BaseError }
func (e *ErrUserNotFound) Base() *BaseError       { return e.BaseError }
func (e *ErrInvalidInput) Base() *BaseError       { return e.BaseError }

// IsRetryable checks if an error is retryable. Only transient backend
// failures qualify; state machine violations never do.
func IsRetryable(err error) bool {
	return IsErrorType(err, ErrorTypeBackend)
}
