// Package notify sends out-of-band user notifications.
package notify

import (
	"context"
	"log"
	"time"
)

// Notifier delivers the welcome message after account creation.
type Notifier interface {
	Welcome(ctx context.Context, email, name string) error
}

// LogNotifier only logs; used when no mail provider is configured.
type LogNotifier struct{}

// Welcome logs the welcome email instead of sending it.
func (LogNotifier) Welcome(ctx context.Context, email, name string) error {
	log.Printf("notify: email service not configured, skipping welcome email to %s", email)
	return nil
}

// DefaultTimeout bounds a single dispatched notification.
const DefaultTimeout = 10 * time.Second

// Dispatch sends the welcome notification in the background. Failures are
// logged and never reach the caller. The returned channel is closed once the
// attempt has finished.
func Dispatch(n Notifier, email, name string, timeout time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if n == nil {
		close(done)
		return done
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("notify: welcome email to %s panicked: %v", email, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := n.Welcome(ctx, email, name); err != nil {
			log.Printf("notify: failed to send welcome email to %s: %v", email, err)
			return
		}
		log.Printf("notify: welcome email sent to %s", email)
	}()
	return done
}
