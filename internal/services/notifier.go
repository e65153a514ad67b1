package services

import (
	"context"
	"errors"
	"log"

	"SafeDeal/internal/models"
)

// Notice is one message for one user. Payload is attached verbatim.
type Notice struct {
	UserID  string
	Type    models.NotificationType
	Title   string
	Message string
	Payload map[string]any
}

// Notifier delivers notices. Callers in this package treat delivery as
// best-effort: errors are logged, never returned to the caller of a transition.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice) error

func (f NotifierFunc) Notify(ctx context.Context, n Notice) error {
	return f(ctx, n)
}

// FanOut sends every notice to each channel and joins their errors.
type FanOut []Notifier

func (f FanOut) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, ch := range f {
		if ch == nil {
			continue
		}
		if err := ch.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// notifyQuietly runs after a transaction has committed.
func notifyQuietly(ctx context.Context, notifier Notifier, notices ...Notice) {
	if notifier == nil {
		return
	}
	for _, n := range notices {
		if err := notifier.Notify(ctx, n); err != nil {
			log.Printf("⚠️  Failed to notify user %s (%s): %v", n.UserID, n.Type, err)
		}
	}
}
