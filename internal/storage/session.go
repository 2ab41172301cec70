package storage

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a session key holds no value.
var ErrKeyNotFound = errors.New("session key not found")

// SessionStore is the session-scoped keyed string storage the simulator and
// the wizard persist their transient state into. Values expire with a TTL so
// an abandoned wizard does not retain PII indefinitely.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
