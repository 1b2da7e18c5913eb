package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// ShoutrrrProvider delivers alerts to shoutrrr service URLs
// (ntfy://, discord://, telegram://, smtp://, ...).
type ShoutrrrProvider struct {
	name    string
	enabled bool
	urls    []string
	timeout time.Duration
	sender  *router.ServiceRouter
}

// NewShoutrrrProvider creates a provider. The URLs are parsed by ValidateConfig.
func NewShoutrrrProvider(name string, enabled bool, urls []string, timeout time.Duration) *ShoutrrrProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShoutrrrProvider{
		name:    name,
		enabled: enabled,
		urls:    urls,
		timeout: timeout,
	}
}

// Name implements alerting.Sender.
func (p *ShoutrrrProvider) Name() string { return p.name }

// ValidateConfig parses the service URLs and builds the sender.
func (p *ShoutrrrProvider) ValidateConfig() error {
	if !p.enabled {
		return nil
	}
	if len(p.urls) == 0 {
		return fmt.Errorf("shoutrrr provider %s: no service URLs configured", p.name)
	}
	sender, err := shoutrrr.CreateSender(p.urls...)
	if err != nil {
		return fmt.Errorf("shoutrrr provider %s: invalid service URL: %w", p.name, err)
	}
	p.sender = sender
	return nil
}

// Send implements alerting.Sender. The payload is not used; shoutrrr services
// take a title and a text body.
func (p *ShoutrrrProvider) Send(ctx context.Context, title, message string, _ any) error {
	if !p.enabled {
		return nil
	}
	if p.sender == nil {
		if err := p.ValidateConfig(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := types.Params{}
	if title != "" {
		params["title"] = title
	}

	done := make(chan error, 1)
	go func() {
		done <- errors.Join(p.sender.Send(message, &params)...)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("shoutrrr provider %s: send failed: %w", p.name, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shoutrrr provider %s: %w", p.name, ctx.Err())
	}
}
