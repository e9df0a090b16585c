// Package notify delivers surveillance alerts to external channels. Alerts
// are dispatched to every registered sender (Telegram, Discord) and can be
// filtered by event kind so operators receive only what they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guardiana/sentinel/internal/domain"
)

// Sender is the delivery channel interface. Each implementation formats the
// alert for its own medium.
type Sender interface {
	// Send delivers a detection alert.
	Send(ctx context.Context, alert domain.DetectionAlert) error
	// Name returns the channel identifier (e.g. "telegram").
	Name() string
}

// Notifier dispatches alerts to one or more Senders. It holds a set of
// allowed event kinds ("pattern", "anomaly"); Notify forwards only alerts
// whose event kind is allowed, while NotifyAll bypasses the filter.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. An empty
// events slice allows every event kind.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends the alert to all senders if the event kind passes the filter.
func (n *Notifier) Notify(ctx context.Context, event string, alert domain.DetectionAlert) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, alert)
}

// NotifyAll sends the alert to all senders regardless of event kind.
func (n *Notifier) NotifyAll(ctx context.Context, alert domain.DetectionAlert) error {
	return n.dispatch(ctx, alert)
}

// dispatch fans the alert out to every sender. Individual failures are
// collected into a combined error so one dead webhook does not block the
// rest.
func (n *Notifier) dispatch(ctx context.Context, alert domain.DetectionAlert) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, alert); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "alert delivered",
				slog.String("sender", s.Name()),
				slog.String("title", alert.Title),
				slog.String("level", string(alert.Level)),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// levelMarker maps an alert level to the emoji prefix used in chat messages.
func levelMarker(level domain.AlertLevel) string {
	switch level {
	case domain.AlertCritical:
		return "\U0001F6A8" // rotating light
	case domain.AlertWarning:
		return "⚠️" // warning sign
	default:
		return "ℹ️" // information
	}
}
