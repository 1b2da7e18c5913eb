package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_CreateAndBroadcast(t *testing.T) {
	t.Parallel()

	svc := NewService(nil)
	ch, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	require.NoError(t, svc.CreateAndBroadcast("Alert: raiders (2)", "2 found in home"))
	require.Error(t, svc.CreateAndBroadcast("", "no title"))

	got := <-ch
	assert.Equal(t, "Alert: raiders (2)", got.Title)
	assert.Equal(t, TypeAlert, got.Type)
	assert.NotEmpty(t, got.ID)

	assert.Equal(t, 1, svc.UnreadCount())
	assert.True(t, svc.MarkRead(got.ID))
	assert.False(t, svc.MarkRead("missing"))
	assert.Zero(t, svc.UnreadCount())
}

func TestService_EvictsOldest(t *testing.T) {
	t.Parallel()

	svc := NewService(&ServiceConfig{MaxNotifications: 2})
	for _, title := range []string{"a", "b", "c"} {
		require.NoError(t, svc.CreateAndBroadcast(title, ""))
	}

	list := svc.List(0)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].Title, "newest first")
	assert.Equal(t, "b", list[1].Title)
	assert.Len(t, svc.List(1), 1)
}

func TestService_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	svc := NewService(&ServiceConfig{MaxNotifications: 10, SubscriberBuffer: 1})
	_, unsubscribe := svc.Subscribe()

	for range 5 {
		require.NoError(t, svc.CreateAndBroadcast("x", ""))
	}
	unsubscribe()
	unsubscribe()
	assert.Len(t, svc.List(0), 5)
}

func TestService_CreateAndBroadcastWithPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		priority Priority
		want     Priority
	}{
		{"critical kept", PriorityCritical, PriorityCritical},
		{"low kept", PriorityLow, PriorityLow},
		{"empty means medium", "", PriorityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewService(nil)
			require.NoError(t, svc.CreateAndBroadcastWithPriority("Alert: raiders (2)", "", tt.priority))

			list := svc.List(0)
			require.Len(t, list, 1)
			assert.Equal(t, tt.want, list[0].Priority)
		})
	}

	svc := NewService(nil)
	require.NoError(t, svc.CreateAndBroadcast("plain", ""))
	assert.Equal(t, PriorityMedium, svc.List(0)[0].Priority)
}
