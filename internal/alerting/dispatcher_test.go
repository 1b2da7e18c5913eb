package alerting

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listeverything/finder/internal/filter"
	"github.com/listeverything/finder/internal/logger"
	"github.com/listeverything/finder/internal/notification"
)

type bellCall struct {
	title, message string
	priority       notification.Priority
}

type mockNotifCreator struct {
	calls []bellCall
	err   error
}

func (m *mockNotifCreator) CreateAndBroadcastWithPriority(title, message string, priority notification.Priority) error {
	m.calls = append(m.calls, bellCall{title, message, priority})
	return m.err
}

type mockSender struct {
	mu       sync.Mutex
	name     string
	err      error
	titles   []string
	payloads []any
}

func (m *mockSender) Name() string { return m.name }

func (m *mockSender) Send(_ context.Context, title, _ string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titles = append(m.titles, title)
	m.payloads = append(m.payloads, payload)
	return m.err
}

func dispatchTestLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func firingEvent() *AlertEvent {
	return &AlertEvent{
		EventName:  EventAlertFiring,
		ContextKey: "home",
		AlertName:  "raiders",
		Priority:   filter.PriorityCritical,
		Count:      2,
		Culprits:   []string{"pirate", "pirate boss"},
	}
}

func TestDispatcher_BellAndSenders(t *testing.T) {
	bell := &mockNotifCreator{}
	sender := &mockSender{name: "mqtt"}
	d := NewActionDispatcher(bell, Templates{}, dispatchTestLogger(), sender)

	d.Dispatch(firingEvent())

	require.Len(t, bell.calls, 1)
	assert.Equal(t, "Alert: raiders (2)", bell.calls[0].title)
	assert.Equal(t, "2 found in home:\npirate\npirate boss", bell.calls[0].message)
	assert.Equal(t, notification.PriorityCritical, bell.calls[0].priority)

	require.Len(t, sender.payloads, 1)
	assert.Equal(t, "raiders", sender.payloads[0].(*AlertEvent).AlertName)
}

func TestDispatcher_ClearedSkipsBell(t *testing.T) {
	bell := &mockNotifCreator{}
	sender := &mockSender{name: "shoutrrr"}
	d := NewActionDispatcher(bell, Templates{}, dispatchTestLogger(), sender)

	ev := firingEvent()
	ev.EventName = EventAlertCleared
	ev.ContextKey = ""
	d.Dispatch(ev)

	assert.Empty(t, bell.calls)
	require.Len(t, sender.titles, 1)
	assert.Equal(t, "Cleared: raiders", sender.titles[0])
}

func TestDispatcher_CustomTemplates(t *testing.T) {
	bell := &mockNotifCreator{}
	d := NewActionDispatcher(bell, Templates{
		Title:   "[{{priority}}] {{alert}}",
		Message: "{{count}} in {{context}}: {{culprits}}",
	}, dispatchTestLogger())

	d.Dispatch(firingEvent())

	require.Len(t, bell.calls, 1)
	assert.Equal(t, "[critical] raiders", bell.calls[0].title)
	assert.Equal(t, "2 in home: pirate, pirate boss", bell.calls[0].message)
}

func TestDispatcher_FailuresDoNotStopDelivery(t *testing.T) {
	bell := &mockNotifCreator{err: errors.New("bell down")}
	broken := &mockSender{name: "broken", err: errors.New("unreachable")}
	healthy := &mockSender{name: "healthy"}
	d := NewActionDispatcher(bell, Templates{}, dispatchTestLogger(), broken, healthy)

	d.Dispatch(firingEvent())

	assert.Len(t, bell.calls, 1)
	assert.Len(t, broken.titles, 1)
	assert.Len(t, healthy.titles, 1)
}

func TestDispatcher_NilBell(t *testing.T) {
	d := NewActionDispatcher(nil, Templates{}, nil)
	assert.NotPanics(t, func() { d.Dispatch(firingEvent()) })
}

func TestDispatcher_BellPriority(t *testing.T) {
	tests := []struct {
		name     string
		priority filter.Priority
		want     notification.Priority
	}{
		{"critical", filter.PriorityCritical, notification.PriorityCritical},
		{"medium", filter.PriorityMedium, notification.PriorityMedium},
		{"unset", "", notification.PriorityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bell := &mockNotifCreator{}
			d := NewActionDispatcher(bell, Templates{}, dispatchTestLogger())

			ev := firingEvent()
			ev.Priority = tt.priority
			d.Dispatch(ev)

			require.Len(t, bell.calls, 1)
			assert.Equal(t, tt.want, bell.calls[0].priority)
		})
	}
}

func TestDispatcher_ServiceKeepsAlertPriority(t *testing.T) {
	svc := notification.NewService(nil)
	d := NewActionDispatcher(svc, Templates{}, dispatchTestLogger())

	d.Dispatch(firingEvent())

	items := svc.List(0)
	require.Len(t, items, 1)
	assert.Equal(t, notification.PriorityCritical, items[0].Priority)
}
