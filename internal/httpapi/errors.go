package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AppError is the standard error shape every endpoint answers with.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // original cause, for logs only
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail returns a copy with extra detail, leaving the catalog entry
// untouched.
func (e *AppError) WithDetail(detail string) *AppError {
	out := *e
	out.Detail = detail
	return &out
}

// WithCause returns a copy carrying the original error for logging.
func (e *AppError) WithCause(err error) *AppError {
	out := *e
	out.Err = err
	return &out
}

// FromError converts any error into an AppError; unknown errors become a
// generic internal error so nothing from lower layers leaks to the client.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "The request has invalid syntax or missing parameters.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "The request body is not valid JSON.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingFields = &AppError{
		Code:       "MISSING_FIELDS",
		Message:    "Required fields are missing from the request.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidUsername = &AppError{
		Code:       "INVALID_USERNAME",
		Message:    "The username does not satisfy the format rules.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidPassword = &AppError{
		Code:       "INVALID_PASSWORD",
		Message:    "The password does not satisfy the strength rules.",
		HTTPStatus: http.StatusBadRequest,
	}

	// Unknown username and wrong password intentionally share this shape.
	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "The provided credentials are invalid.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenExpired = &AppError{
		Code:       "TOKEN_EXPIRED",
		Message:    "The presented token has expired.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenInvalid = &AppError{
		Code:       "TOKEN_INVALID",
		Message:    "The presented token failed verification.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrRefreshRejected = &AppError{
		Code:       "REFRESH_REJECTED",
		Message:    "The refresh token was not accepted.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrAuthRequired = &AppError{
		Code:       "AUTH_REQUIRED",
		Message:    "Authentication evidence is required for this resource.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrUserExists = &AppError{
		Code:       "USER_EXISTS",
		Message:    "The username is already taken.",
		HTTPStatus: http.StatusConflict,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "The HTTP method is not allowed for this resource.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "The requested resource does not exist.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// errorResponse controls exactly which fields reach the client.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError writes the JSON error response for err.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}
