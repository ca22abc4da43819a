// Package notifications pushes short status messages to the user's devices.
package notifications

// Notifier sends a titled message to one notification service.
type Notifier interface {
	Name() string
	Send(title, message string) error
	Test() error
}
