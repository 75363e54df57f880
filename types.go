package yayasan

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the API access options
type Config interface {
	GetAPIBaseURL() string
	GetDevProxyPath() string
	GetHost() string
	GetRequestTimeout() time.Duration
}

// TokenStore persists the session artifacts (token, user, user type)
// across reloads. Implementations must be safe for concurrent use.
type TokenStore interface {
	// Read returns the value stored under key, ok is false if absent
	Read(key string) (string, bool)
	// Write stores value under key, overwriting any previous value
	Write(key, value string) error
	// Clear removes the value stored under key
	Clear(key string) error
}

// BatchTokenStore is implemented by stores that can apply several
// changes as a single unit.
type BatchTokenStore interface {
	TokenStore
	WriteAll(values map[string]string) error
	ClearAll(keys ...string) error
}

// AuthAPI is the subset of the backend the AuthStore talks to
type AuthAPI interface {
	Login(ctx context.Context, identifier, secret string) (*AuthResult, error)
	Signin(ctx context.Context, identifier, secret string) (*AuthResult, error)
	Register(ctx context.Context, payload RegisterPayload) error
	Profile(ctx context.Context) (*Account, error)
	ChangePassword(ctx context.Context, payload ChangePasswordPayload) error
}

// Navigator moves the client to a route
type Navigator interface {
	Navigate(path string) error
}

// NavigatorFunc adapts a function to the Navigator interface
type NavigatorFunc func(path string) error

func (f NavigatorFunc) Navigate(path string) error {
	return f(path)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] YAYASAN "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] YAYASAN "+newline(format), args...)
}

// Debug is dropped, payload dumps only go to a logger set with WithLogger
func (d defLogger) Debug(format string, args ...any) {}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger returns a Logger that discards everything
func NopLogger() Logger {
	return nopLogger{}
}

// StaticConfig is a plain Config value
type StaticConfig struct {
	BaseURL      string
	DevProxyPath string
	Host         string
	Timeout      time.Duration
}

func (c StaticConfig) GetAPIBaseURL() string            { return c.BaseURL }
func (c StaticConfig) GetDevProxyPath() string          { return c.DevProxyPath }
func (c StaticConfig) GetHost() string                  { return c.Host }
func (c StaticConfig) GetRequestTimeout() time.Duration { return c.Timeout }
