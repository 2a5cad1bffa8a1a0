// Package notify carries user-visible notifications (toasts) from the upload
// controller to whichever front end renders them.
package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Variant selects the notification styling.
type Variant string

const (
	// VariantDefault is an informational notification.
	VariantDefault Variant = "default"
	// VariantDestructive flags a failure.
	VariantDestructive Variant = "destructive"
)

// Notification is a single toast.
type Notification struct {
	Title       string
	Description string
	Variant     Variant
}

// IsError reports whether the notification signals a failure.
func (n Notification) IsError() bool {
	return n.Variant == VariantDestructive
}

// String renders "Title: Description" or just the title.
func (n Notification) String() string {
	if strings.TrimSpace(n.Description) == "" {
		return n.Title
	}
	return n.Title + ": " + n.Description
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify implements Notifier.
func (fn NotifierFunc) Notify(ctx context.Context, n Notification) {
	fn(ctx, n)
}

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(context.Context, Notification) {})

// Multi fans a notification out to every non-nil notifier.
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notification) {
		for _, target := range notifiers {
			if target != nil {
				target.Notify(ctx, n)
			}
		}
	})
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// LogNotifier writes notifications to a slog logger; failures log at warn.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier backed by logger (discard when nil).
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.IsError() {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, n.Title, "description", n.Description, "variant", string(n.Variant))
}
