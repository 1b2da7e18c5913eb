package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShoutrrrProvider_ValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		enabled bool
		urls    []string
		wantErr bool
	}{
		{"disabled skips validation", false, nil, false},
		{"no urls", true, nil, true},
		{"unknown scheme", true, []string{"carrierpigeon://coop"}, true},
		{"logger service", true, []string{"logger://"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewShoutrrrProvider("test", tt.enabled, tt.urls, time.Second)
			err := p.ValidateConfig()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestShoutrrrProvider_Send(t *testing.T) {
	t.Parallel()

	p := NewShoutrrrProvider("log", true, []string{"logger://"}, time.Second)
	assert.Equal(t, "log", p.Name())
	require.NoError(t, p.Send(t.Context(), "Alert: raiders", "2 found in home", nil))

	disabled := NewShoutrrrProvider("off", false, []string{"carrierpigeon://coop"}, 0)
	require.NoError(t, disabled.Send(t.Context(), "t", "m", nil))
}
