package yayasan_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-yayasan"
	"github.com/stretchr/testify/assert"
)

func TestIsSessionExpired(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Sentinel",
			err:      yayasan.ErrSessionExpired,
			expected: true,
		},
		{
			name:     "Wrapped with fmt",
			err:      fmt.Errorf("listing news: %w", yayasan.ErrSessionExpired),
			expected: true,
		},
		{
			name:     "Clone with metadata",
			err:      yayasan.ErrSessionExpired.Clone().WithMetadata(map[string]any{"path": "/berita"}),
			expected: true,
		},
		{
			name:     "Different structured error",
			err:      yayasan.ErrLoginSuperseded,
			expected: false,
		},
		{
			name:     "Legacy error with the same text",
			err:      errors.New("session expired"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, yayasan.IsSessionExpired(tt.err))
		})
	}
}

func TestStatusCodeAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{
			name:    "Session expired",
			err:     yayasan.ErrSessionExpired,
			code:    http.StatusUnauthorized,
			message: "session expired",
		},
		{
			name:    "Invalid credentials input",
			err:     yayasan.ErrInvalidCredentialsInput,
			code:    http.StatusBadRequest,
			message: "identifier and password are required",
		},
		{
			name: "Wrapped validation",
			err: goerrors.Wrap(errors.New("nama: cannot be blank"), goerrors.CategoryValidation, "invalid registration").
				WithCode(goerrors.CodeBadRequest),
			code:    http.StatusBadRequest,
			message: "invalid registration",
		},
		{
			name:    "Plain error",
			err:     errors.New("connection refused"),
			code:    http.StatusInternalServerError,
			message: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, yayasan.StatusCode(tt.err))
			assert.Equal(t, tt.message, yayasan.Message(tt.err))
		})
	}
}

func TestPredicates(t *testing.T) {
	assert.True(t, yayasan.IsLoginSuperseded(yayasan.ErrLoginSuperseded))
	assert.False(t, yayasan.IsLoginSuperseded(yayasan.ErrSessionExpired))
	assert.True(t, yayasan.IsInvalidAccountRecord(yayasan.ErrInvalidAccountRecord))
	assert.Empty(t, yayasan.Message(nil))
}
