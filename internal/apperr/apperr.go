// Package apperr defines the error kinds surfaced by the engine to its callers.
package apperr

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown             Code = "UNKNOWN"
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeNotParticipant      Code = "NOT_PARTICIPANT"
	CodeNotYourTurn         Code = "NOT_YOUR_TURN"
	CodeGameFinished        Code = "GAME_ALREADY_FINISHED"
	CodeSessionArchived     Code = "SESSION_ARCHIVED"
	CodeSessionNotWaiting   Code = "SESSION_NOT_WAITING"
	CodeUnsupportedGame     Code = "UNSUPPORTED_GAME"
	CodeInvalidMove         Code = "INVALID_MOVE"
	CodeSelfInvite          Code = "SELF_INVITE"
	CodeInviteCancelled     Code = "INVITE_CANCELLED"
	CodeInviteNotCancelable Code = "INVITE_NOT_CANCELABLE"
	CodeQuotaExceeded       Code = "QUOTA_EXCEEDED"
	CodeTooFrequent         Code = "TOO_FREQUENT"
)

// GRPCCode returns the error kind a code belongs to.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeUnauthenticated:
		return codes.Unauthenticated
	case CodeInvalidArgument, CodeInvalidMove, CodeSelfInvite:
		return codes.InvalidArgument
	case CodeNotFound:
		return codes.NotFound
	case CodeNotParticipant:
		return codes.PermissionDenied
	case CodeNotYourTurn, CodeGameFinished, CodeSessionArchived, CodeSessionNotWaiting,
		CodeUnsupportedGame, CodeInviteCancelled, CodeInviteNotCancelable:
		return codes.FailedPrecondition
	case CodeQuotaExceeded, CodeTooFrequent:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

// Error is the domain error type.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

var (
	ErrUnauthenticated     = New(CodeUnauthenticated, "unauthenticated")
	ErrNotFound            = New(CodeNotFound, "not found")
	ErrNotParticipant      = New(CodeNotParticipant, "not a participant")
	ErrNotYourTurn         = New(CodeNotYourTurn, "not your turn")
	ErrGameAlreadyFinished = New(CodeGameFinished, "game already finished")
	ErrSessionArchived     = New(CodeSessionArchived, "session archived")
	ErrSessionNotWaiting   = New(CodeSessionNotWaiting, "session is no longer waiting")
	ErrUnsupportedGame     = New(CodeUnsupportedGame, "unsupported game")
	ErrInvalidMove         = New(CodeInvalidMove, "invalid move")
	ErrSelfInvite          = New(CodeSelfInvite, "cannot invite yourself")
	ErrInviteCancelled     = New(CodeInviteCancelled, "invite cancelled")
	ErrInviteNotCancelable = New(CodeInviteNotCancelable, "invite can no longer be cancelled")
	ErrQuotaExceeded       = New(CodeQuotaExceeded, "daily play limit reached")
	ErrTooFrequent         = New(CodeTooFrequent, "too many invites, try again later")
)

// CodeOf extracts the domain code from err, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// KindOf returns the error kind of err; anything without a domain code is Internal.
func KindOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return CodeOf(err).GRPCCode()
}

// HTTPStatus maps an error to the status code returned by the HTTP API.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case codes.OK:
		return http.StatusOK
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show a caller. Internal errors are masked.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != CodeUnknown {
		return e.Message
	}
	return "internal error"
}
