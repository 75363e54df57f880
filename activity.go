package yayasan

import (
	"context"
	"time"
)

// ActivityEventType enumerates the session events worth auditing
type ActivityEventType string

const (
	ActivityLoginSuccess    ActivityEventType = "session.login.success"
	ActivityLoginFailure    ActivityEventType = "session.login.failure"
	ActivityLogout          ActivityEventType = "session.logout"
	ActivitySessionExpired  ActivityEventType = "session.expired"
	ActivityRegistered      ActivityEventType = "account.registered"
	ActivityPasswordChanged ActivityEventType = "account.password.changed"
)

// ActivityEvent captures who did what to the session
type ActivityEvent struct {
	EventType   ActivityEventType
	AccountType AccountType
	UserID      string
	Identifier  string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// LoggerActivitySink writes every event as an info line
func LoggerActivitySink(logger Logger) ActivitySink {
	if logger == nil {
		logger = defLogger{}
	}
	return ActivitySinkFunc(func(_ context.Context, e ActivityEvent) error {
		subject := e.UserID
		if subject == "" {
			subject = e.Identifier
		}
		logger.Info("activity %s type=%s subject=%s", e.EventType, e.AccountType, subject)
		return nil
	})
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
