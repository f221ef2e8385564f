package model

import (
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Domain errors. Wrap them with goerr.Wrap to add context; ErrorCodeOf maps
// any wrapped chain back to a client-facing code.
var (
	ErrInvalidArgument    = goerr.New("invalid argument")
	ErrUnauthenticated    = goerr.New("unauthenticated")
	ErrPermissionDenied   = goerr.New("permission denied")
	ErrNotFound           = goerr.New("not found")
	ErrFailedPrecondition = goerr.New("failed precondition")

	ErrTextTooShort   = goerr.New("text too short for analysis")
	ErrEmptyEmbedding = goerr.New("embedding provider returned no vector")
	ErrNoEmbedding    = goerr.New("bookmark has no embedding")
)

// ErrorCode is the status string sent to callable clients
type ErrorCode string

const (
	ErrorCodeInvalidArgument    ErrorCode = "invalid-argument"
	ErrorCodeUnauthenticated    ErrorCode = "unauthenticated"
	ErrorCodePermissionDenied   ErrorCode = "permission-denied"
	ErrorCodeNotFound           ErrorCode = "not-found"
	ErrorCodeFailedPrecondition ErrorCode = "failed-precondition"
	ErrorCodeInternal           ErrorCode = "internal"
)

// HTTPStatus returns the HTTP status used for the code
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrorCodeInvalidArgument, ErrorCodeFailedPrecondition:
		return 400
	case ErrorCodeUnauthenticated:
		return 401
	case ErrorCodePermissionDenied:
		return 403
	case ErrorCodeNotFound:
		return 404
	default:
		return 500
	}
}

// Status returns the upper snake case form used in callable error bodies
func (c ErrorCode) Status() string {
	return strings.ToUpper(strings.ReplaceAll(string(c), "-", "_"))
}

// ErrorCodeOf classifies err by the first domain error in its chain
func ErrorCodeOf(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return ErrorCodeInvalidArgument
	case errors.Is(err, ErrUnauthenticated):
		return ErrorCodeUnauthenticated
	case errors.Is(err, ErrPermissionDenied):
		return ErrorCodePermissionDenied
	case errors.Is(err, ErrNotFound):
		return ErrorCodeNotFound
	case errors.Is(err, ErrFailedPrecondition), errors.Is(err, ErrNoEmbedding):
		return ErrorCodeFailedPrecondition
	default:
		return ErrorCodeInternal
	}
}
