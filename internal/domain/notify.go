package domain

import "time"

// Severity of a user-visible notification
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a transient message for the user
type Notification struct {
	Severity Severity
	Summary  string
	Detail   string
	Life     time.Duration
}

// Notifier delivers notifications to whatever surface is active
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// NoOpNotifier discards notifications (for testing/batch operations).
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(Notification) {}
