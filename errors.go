package yayasan

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeSessionExpired       = "SESSION_EXPIRED"
	TextCodeInvalidAccountRecord = "INVALID_ACCOUNT_RECORD"
	TextCodeLoginSuperseded      = "LOGIN_SUPERSEDED"
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS_INPUT"
	TextCodeInvalidRegistration  = "INVALID_REGISTRATION_INPUT"
	TextCodeMalformedResponse    = "MALFORMED_API_RESPONSE"
)

// ErrSessionExpired is returned by the APIClient whenever the backend answers
// with 401. By the time callers see it the stored session is already gone.
var ErrSessionExpired = goerrors.New("session expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidAccountRecord is returned when an account record fails validation
var ErrInvalidAccountRecord = goerrors.New("invalid account record", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidAccountRecord).
	WithCode(goerrors.CodeBadRequest)

// ErrLoginSuperseded is returned when a logout happened while the login
// request was in flight. The late result is discarded.
var ErrLoginSuperseded = goerrors.New("login superseded by logout", goerrors.CategoryConflict).
	WithTextCode(TextCodeLoginSuperseded).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentialsInput is returned before calling the backend when
// identifier or secret are missing
var ErrInvalidCredentialsInput = goerrors.New("identifier and password are required", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeBadRequest)

// ErrMalformedResponse is returned when a successful response can not be decoded
var ErrMalformedResponse = goerrors.New("malformed API response", goerrors.CategoryInternal).
	WithTextCode(TextCodeMalformedResponse).
	WithCode(goerrors.CodeInternal)

// IsSessionExpired reports whether err signals an expired or rejected session
func IsSessionExpired(err error) bool {
	return hasTextCode(err, TextCodeSessionExpired)
}

// IsLoginSuperseded reports whether err is ErrLoginSuperseded
func IsLoginSuperseded(err error) bool {
	return hasTextCode(err, TextCodeLoginSuperseded)
}

// IsInvalidAccountRecord reports whether err is ErrInvalidAccountRecord
func IsInvalidAccountRecord(err error) bool {
	return hasTextCode(err, TextCodeInvalidAccountRecord)
}

// StatusCode returns the HTTP status carried by err, or 500
func StatusCode(err error) int {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code >= 400 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}

// Message returns the user facing message carried by err
func Message(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}
	return err.Error()
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

func withMetadata(base *goerrors.Error, meta map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	clone.Source = base
	return clone.WithMetadata(meta)
}
