// Package notify delivers session notifications to interested listeners.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cidadao-ativo/cidadao-api/internal/session"
)

// Notifier defines notification delivery behavior.
type Notifier interface {
	Publish(ctx context.Context, sessionID string, n session.Notification) error
}

// NopNotifier ignores all notifications.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, string, session.Notification) error {
	return nil
}

// Published is a notification captured by MemoryNotifier.
type Published struct {
	SessionID    string
	Notification session.Notification
	At           time.Time
}

// MemoryNotifier stores notifications in memory for tests.
type MemoryNotifier struct {
	mu        sync.Mutex
	published []Published
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{
		published: []Published{},
	}
}

func (m *MemoryNotifier) Publish(_ context.Context, sessionID string, n session.Notification) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if n.Kind == "" {
		return fmt.Errorf("notification kind is required")
	}

	m.mu.Lock()
	m.published = append(m.published, Published{SessionID: sessionID, Notification: n, At: time.Now()})
	m.mu.Unlock()

	return nil
}

func (m *MemoryNotifier) Published() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Published{}, m.published...)
}
