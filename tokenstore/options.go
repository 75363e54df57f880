// Package tokenstore holds durable yayasan.TokenStore backends.
package tokenstore

import (
	"context"
	"time"

	"github.com/goliatone/go-yayasan"
)

const (
	DefaultScope     = "default"
	DefaultTimeout   = 5 * time.Second
	DefaultKeyPrefix = "yayasan:session:"
)

type settings struct {
	logger    yayasan.Logger
	timeout   time.Duration
	ttl       time.Duration
	scope     string
	keyPrefix string
}

// Option customizes a backend
type Option func(*settings)

// WithLogger sets the logger used to report read failures
func WithLogger(logger yayasan.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout bounds every backend round trip
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTTL expires idle scopes, only the Redis backend honours it
func WithTTL(d time.Duration) Option {
	return func(s *settings) {
		s.ttl = d
	}
}

// WithScope sets the initial scope
func WithScope(scope string) Option {
	return func(s *settings) {
		if scope != "" {
			s.scope = scope
		}
	}
}

// WithKeyPrefix sets the Redis key prefix
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

func newSettings(opts ...Option) settings {
	s := settings{
		logger:    yayasan.NopLogger(),
		timeout:   DefaultTimeout,
		scope:     DefaultScope,
		keyPrefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s settings) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}
