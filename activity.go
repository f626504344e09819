package credstore

import (
	"context"
	"time"
)

// ActivityEventType enumerates the account lifecycle events the manager emits.
type ActivityEventType string

const (
	ActivityEventAccountCreated  ActivityEventType = "account.created"
	ActivityEventLoginSuccess    ActivityEventType = "account.login.success"
	ActivityEventLoginFailure    ActivityEventType = "account.login.failure"
	ActivityEventAccountVerified ActivityEventType = "account.verified"
	ActivityEventTokenReset      ActivityEventType = "account.token.reset"
	ActivityEventTokenReissued   ActivityEventType = "account.token.reissued"
	ActivityEventPasswordChanged ActivityEventType = "account.password.changed"
	ActivityEventAccountDeleted  ActivityEventType = "account.deleted"
	ActivityEventDataUpdated     ActivityEventType = "account.data.updated"
)

// ActivityEvent describes a completed account lifecycle change.
// Tokens and password material are never included.
type ActivityEvent struct {
	EventType  ActivityEventType
	AccountID  int64
	Username   string
	FromState  VerificationState
	ToState    VerificationState
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink receives lifecycle events after each successful operation.
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
