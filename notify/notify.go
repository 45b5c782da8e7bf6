// Package notify is the best-effort broadcast sink for registration events.
// Nothing here may affect a registration's outcome: implementations swallow
// their own failures.
package notify

import (
	"time"

	"go.uber.org/zap"
)

// Event describes one accepted registration.
type Event struct {
	RunnerName   string    `json:"runner_name"`
	CurrentCount int       `json:"current_count"`
	RegisteredAt time.Time `json:"registered_at"`
	RunDate      string    `json:"run_date"`
	Message      string    `json:"message"`
}

// Notifier receives registration events. Implementations must not block for
// long and must not surface errors to the caller.
type Notifier interface {
	NotifyRegistration(sessionID string, ev Event)
}

// LogNotifier writes events to the application log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) NotifyRegistration(sessionID string, ev Event) {
	n.Logger.Info("registration broadcast",
		zap.String("session_id", sessionID),
		zap.String("runner", ev.RunnerName),
		zap.Int("count", ev.CurrentCount),
	)
}

// Multi fans an event out to several notifiers.
type Multi []Notifier

func (m Multi) NotifyRegistration(sessionID string, ev Event) {
	for _, n := range m {
		n.NotifyRegistration(sessionID, ev)
	}
}
