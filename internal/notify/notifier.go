// Package notify delivers scheduled-job reports to operator channels.
// Reports are dispatched to every registered sender and filtered by event
// type so operators receive only the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Well-known event types emitted by the job runner.
const (
	EventValidate = "job_validate"
	EventCleanup  = "job_cleanup"
	EventError    = "error"
)

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a short identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches job reports to one or more Senders. Only events whose
// type appears in the configured allow list are forwarded; an empty list
// allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders.
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

// JobReport formats the fields of a completed job run into a message and
// sends it under the given event type. Delivery failures are logged, not
// returned; a broken channel must never fail the job itself.
func (n *Notifier) JobReport(ctx context.Context, event, title string, fields map[string]any) {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return
	}
	if err := n.dispatch(ctx, title, formatFields(fields)); err != nil {
		n.logger.ErrorContext(ctx, "job report delivery failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// dispatch sends the message through every sender. Individual failures are
// collected so one broken channel does not block the others.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// formatFields renders report fields as stable "key: value" lines.
func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, fields[k])
	}
	return strings.TrimRight(b.String(), "\n")
}
