// internal/notify/notify.go
package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Notifier delivers a push notification to a user. Delivery is fire-and-forget:
// implementations log failures instead of returning them.
type Notifier interface {
	NotifyUser(ctx context.Context, uid uuid.UUID, title, body string, metadata map[string]string)
}

// Notification is the payload handed to the push service.
type Notification struct {
	UserID    uuid.UUID         `json:"user_id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// LogNotifier only logs notifications. Used when no Redis is configured.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (n LogNotifier) NotifyUser(_ context.Context, uid uuid.UUID, title, body string, metadata map[string]string) {
	n.Logger.WithFields(logrus.Fields{
		"user_id":  uid,
		"title":    title,
		"metadata": metadata,
	}).Info(body)
}

// Recorder collects notifications in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) NotifyUser(_ context.Context, uid uuid.UUID, title, body string, metadata map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Notification{UserID: uid, Title: title, Body: body, Metadata: metadata})
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// For returns the notifications addressed to uid.
func (r *Recorder) For(uid uuid.UUID) []Notification {
	var out []Notification
	for _, n := range r.Sent() {
		if n.UserID == uid {
			out = append(out, n)
		}
	}
	return out
}
