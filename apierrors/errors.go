package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// Error is the classified form of a failed backend call. Status is zero for
// transport-level failures that never produced a response.
type Error struct {
	Code   Code
	Status int
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Describe returns the user-displayable descriptor for this error's code.
func (e *Error) Describe() Descriptor {
	return Describe(e.Code)
}

func New(code Code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// CodeOf extracts the classification code from an error chain. Unclassified
// errors report CodeUnknown.
func CodeOf(err error) Code {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return CodeUnknown
}

// wireError is the backend's error envelope. Older endpoints use "detail",
// newer ones nest code/message under "error".
type wireError struct {
	Detail string `json:"detail"`
	Error  struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FromResponse classifies a non-2xx backend response. The body reader is
// consumed but not closed.
func FromResponse(resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var wire wireError
	_ = json.Unmarshal(body, &wire)

	detail := wire.Error.Message
	if detail == "" {
		detail = wire.Detail
	}

	if wire.Error.Code != "" {
		code := Code(wire.Error.Code)
		if _, known := descriptors[code]; known {
			return &Error{Code: code, Status: resp.StatusCode, Detail: detail}
		}
	}

	return &Error{Code: codeForStatus(resp.StatusCode), Status: resp.StatusCode, Detail: detail}
}

// FromTransport classifies an error returned by the HTTP round trip itself
// (no response was received).
func FromTransport(err error) *Error {
	code := CodeNetworkError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeoutError
	case errors.As(err, &netErr) && netErr.Timeout():
		code = CodeTimeoutError
	}
	return &Error{Code: code, Detail: err.Error(), cause: err}
}

func codeForStatus(status int) Code {
	switch status {
	case http.StatusUnauthorized:
		return CodeTokenExpired
	case http.StatusForbidden:
		return CodeInsufficientPermissions
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidationError
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return CodeServiceUnavailable
	default:
		return CodeUnknown
	}
}
