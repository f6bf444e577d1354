// Package errors provides the tracker's structured error type.
// Codes are stable strings so they can cross the HTTP and gRPC boundaries unchanged.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code classifies an AppError.
type Code string

const (
	CodeInvalidRegion      Code = "INVALID_REGION"
	CodeCaptureUnavailable Code = "CAPTURE_UNAVAILABLE"
	CodeOCRFailure         Code = "OCR_FAILURE"
	CodePersistence        Code = "PERSISTENCE_FAILURE"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeLastEntity         Code = "LAST_ENTITY"
	CodeUnavailable        Code = "UNAVAILABLE"
	CodeInternal           Code = "INTERNAL"
)

var grpcCodeMap = map[Code]codes.Code{
	CodeInvalidRegion:      codes.InvalidArgument,
	CodeCaptureUnavailable: codes.Unavailable,
	CodeOCRFailure:         codes.Internal,
	CodePersistence:        codes.Internal,
	CodeInvalidArgument:    codes.InvalidArgument,
	CodeNotFound:           codes.NotFound,
	CodeConflict:           codes.AlreadyExists,
	CodeLastEntity:         codes.FailedPrecondition,
	CodeUnavailable:        codes.Unavailable,
	CodeInternal:           codes.Internal,
}

var httpStatusMap = map[Code]int{
	CodeInvalidRegion:      http.StatusBadRequest,
	CodeCaptureUnavailable: http.StatusServiceUnavailable,
	CodeOCRFailure:         http.StatusBadGateway,
	CodePersistence:        http.StatusInternalServerError,
	CodeInvalidArgument:    http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeConflict:           http.StatusConflict,
	CodeLastEntity:         http.StatusConflict,
	CodeUnavailable:        http.StatusServiceUnavailable,
	CodeInternal:           http.StatusInternalServerError,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// GRPCStatus lets status.FromError recognise an AppError.
func (e *AppError) GRPCStatus() *status.Status {
	return status.New(e.GRPCCode(), e.Error())
}

// HTTPStatus returns the response status used by the HTTP surface.
func (e *AppError) HTTPStatus() int {
	if s, ok := httpStatusMap[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode checks if an error chain carries a specific error code.
func IsCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// FromGRPCError maps a gRPC failure onto an AppError with the given fallback code.
func FromGRPCError(err error, fallback Code) *AppError {
	if appErr, ok := As(err); ok {
		return appErr
	}
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: fallback, Message: err.Error(), Cause: err}
	}
	code := fallback
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		code = CodeUnavailable
	case codes.InvalidArgument:
		code = CodeInvalidArgument
	case codes.NotFound:
		code = CodeNotFound
	}
	return &AppError{Code: code, Message: st.Message(), Cause: err}
}

// IsRetryable reports whether a failure may succeed on a later attempt.
// Domain rejections (bad input, missing rows, guarded deletes) are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	appErr, ok := As(err)
	if !ok {
		return true
	}
	switch appErr.Code {
	case CodeInvalidRegion, CodeInvalidArgument, CodeNotFound, CodeConflict, CodeLastEntity:
		return false
	default:
		return true
	}
}
