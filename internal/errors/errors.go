package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUsernameTaken is returned when a username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials is returned when username or password is incorrect,
	// or when a bearer token is missing, malformed, or expired. Unknown-user
	// and wrong-password failures deliberately share this value.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound is returned when an authenticated identity no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidRequest is returned for malformed request shapes.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrStoreUnavailable is returned when the user store cannot be reached.
	ErrStoreUnavailable = errors.New("user store unavailable")
)

// ErrorResponse represents a standardized error response. Messages are
// fixed strings; driver or library error text never reaches the client.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors with sanitized messages.
// Route-specific status overrides happen in the handlers.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusConflict, ErrUsernameTaken.Error(), "USERNAME_TAKEN")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrInvalidRequest):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidRequest.Error(), "INVALID_REQUEST")
	case errors.Is(err, ErrStoreUnavailable):
		return NewHTTPError(http.StatusServiceUnavailable, ErrStoreUnavailable.Error(), "STORE_UNAVAILABLE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
