package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUserDoesNotExist is returned when no (enabled) user matches the lookup.
	ErrUserDoesNotExist = errors.New("user does not exist")
	// ErrEmptyRequiredField is returned when a mandatory field is blank.
	ErrEmptyRequiredField = errors.New("required field is empty")
	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrEmailAlreadyRegistered is returned when the email is taken.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrRegistrationTokenExpired is returned for unknown or consumed registration tokens.
	ErrRegistrationTokenExpired = errors.New("registration token expired")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrMissingAPIKey is returned when a recognition call has no api key.
	ErrMissingAPIKey = errors.New("missing api key")
	// ErrInvalidRecognitionParams is returned when recognition parameters are out of range.
	ErrInvalidRecognitionParams = errors.New("invalid recognition parameters")
	// ErrRecognitionEngine is returned when the recognition engine fails.
	ErrRecognitionEngine = errors.New("recognition engine error")
)

// DomainError attaches request context (a field name, an email, a token) to one
// of the sentinel errors above.
type DomainError struct {
	Kind   error
	Detail string
}

func (e *DomainError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Detail)
}

func (e *DomainError) Unwrap() error {
	return e.Kind
}

// Wrap builds a DomainError for kind with a formatted detail.
func Wrap(kind error, format string, args ...any) error {
	return &DomainError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// EmptyRequiredField reports which field was blank.
func EmptyRequiredField(field string) error {
	return &DomainError{Kind: ErrEmptyRequiredField, Detail: field}
}

// Is reports whether err is, or wraps, target. It mirrors the standard library
// so callers importing this package do not need both.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// ErrorResponse represents a standardized error response.
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

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUserDoesNotExist):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_DOES_NOT_EXIST")
	case errors.Is(err, ErrEmptyRequiredField):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "EMPTY_REQUIRED_FIELD")
	case errors.Is(err, ErrInvalidEmail):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_EMAIL")
	case errors.Is(err, ErrEmailAlreadyRegistered):
		return NewHTTPError(http.StatusConflict, err.Error(), "EMAIL_ALREADY_REGISTERED")
	case errors.Is(err, ErrRegistrationTokenExpired):
		return NewHTTPError(http.StatusForbidden, err.Error(), "REGISTRATION_TOKEN_EXPIRED")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidRefreshToken):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_REFRESH_TOKEN")
	case errors.Is(err, ErrMissingAPIKey):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "MISSING_API_KEY")
	case errors.Is(err, ErrInvalidRecognitionParams):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_PARAMS")
	case errors.Is(err, ErrRecognitionEngine):
		return NewHTTPError(http.StatusBadGateway, err.Error(), "RECOGNITION_ENGINE_ERROR")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
