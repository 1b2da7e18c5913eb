package alerting

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/listeverything/finder/internal/filter"
	"github.com/listeverything/finder/internal/logger"
	"github.com/listeverything/finder/internal/notification"
)

// sendTimeout bounds one external delivery.
const sendTimeout = 10 * time.Second

// NotificationCreator abstracts the notification bell for testability.
type NotificationCreator interface {
	CreateAndBroadcastWithPriority(title, message string, priority notification.Priority) error
}

// Sender delivers a rendered alert to an external target.
type Sender interface {
	Name() string
	Send(ctx context.Context, title, message string, payload any) error
}

// Templates holds the title and message templates. Empty means default.
type Templates struct {
	Title   string
	Message string
}

// ActionDispatcher routes alert events to the notification bell and external
// senders.
type ActionDispatcher struct {
	notifCreator NotificationCreator
	senders      []Sender
	templates    Templates
	log          logger.Logger
}

// NewActionDispatcher creates a new ActionDispatcher.
func NewActionDispatcher(notifCreator NotificationCreator, templates Templates, log logger.Logger, senders ...Sender) *ActionDispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &ActionDispatcher{
		notifCreator: notifCreator,
		senders:      senders,
		templates:    templates,
		log:          log,
	}
}

// Dispatch implements AlertEventHandler.
func (d *ActionDispatcher) Dispatch(event *AlertEvent) {
	title := renderTemplate(d.templates.Title, event, defaultTitle)
	message := renderTemplate(d.templates.Message, event, defaultMessage)

	// Cleared events only go to machine targets; the bell shows firing alerts.
	if event.EventName == EventAlertFiring {
		d.dispatchBell(title, message, event)
	}
	for _, s := range d.senders {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := s.Send(ctx, title, message, event)
		cancel()
		if err != nil {
			d.log.Error("failed to deliver alert",
				logger.String("target", s.Name()),
				logger.String("alert", event.AlertName),
				logger.Error(err))
		}
	}
}

func (d *ActionDispatcher) dispatchBell(title, message string, event *AlertEvent) {
	if d.notifCreator == nil {
		return
	}
	if err := d.notifCreator.CreateAndBroadcastWithPriority(title, message, bellPriority(event.Priority)); err != nil {
		d.log.Error("failed to create bell notification",
			logger.String("alert", event.AlertName),
			logger.Error(err))
	}
}

// bellPriority maps an alert priority onto the bell's scale.
func bellPriority(p filter.Priority) notification.Priority {
	if p == filter.PriorityCritical {
		return notification.PriorityCritical
	}
	return notification.PriorityMedium
}

// renderTemplate substitutes template variables. Falls back to def if the
// template is empty.
func renderTemplate(tmpl string, event *AlertEvent, def func(*AlertEvent) string) string {
	if tmpl == "" {
		return def(event)
	}
	return strings.NewReplacer(
		"{{alert}}", event.AlertName,
		"{{context}}", contextLabel(event.ContextKey),
		"{{count}}", strconv.Itoa(event.Count),
		"{{priority}}", string(event.Priority),
		"{{culprits}}", strings.Join(event.Culprits, ", "),
		"{{event}}", event.EventName,
	).Replace(tmpl)
}

func defaultTitle(event *AlertEvent) string {
	if event.EventName == EventAlertCleared {
		return fmt.Sprintf("Cleared: %s", event.AlertName)
	}
	return fmt.Sprintf("Alert: %s (%d)", event.AlertName, event.Count)
}

func defaultMessage(event *AlertEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d found in %s", event.Count, contextLabel(event.ContextKey))
	if len(event.Culprits) > 0 {
		b.WriteString(":\n")
		b.WriteString(strings.Join(event.Culprits, "\n"))
	}
	return b.String()
}

func contextLabel(key string) string {
	if key == "" {
		return "all maps"
	}
	return key
}
