package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/listeverything/finder/internal/conf"
	"github.com/listeverything/finder/internal/logger"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttQoS            = 1
	mqttDisconnectMS   = 250
)

// MQTTMessage is the JSON document published for each alert transition.
type MQTTMessage struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Event   any    `json:"event,omitempty"`
}

// MQTTPublisher publishes alerts to a broker topic. It connects on first use
// and reconnects automatically afterwards.
type MQTTPublisher struct {
	settings conf.MQTTSettings
	log      logger.Logger

	mu     sync.Mutex
	client mqtt.Client
}

// NewMQTTPublisher creates a publisher for settings.
func NewMQTTPublisher(settings conf.MQTTSettings, log logger.Logger) *MQTTPublisher {
	if log == nil {
		log = logger.NewNop()
	}
	if settings.ClientID == "" {
		settings.ClientID = "finder"
	}
	return &MQTTPublisher{settings: settings, log: log}
}

// Name implements alerting.Sender.
func (p *MQTTPublisher) Name() string { return "mqtt" }

func (p *MQTTPublisher) connect(ctx context.Context) (mqtt.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.client.IsConnectionOpen() {
		return p.client, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.settings.Broker)
	opts.SetClientID(p.settings.ClientID)
	opts.SetUsername(p.settings.Username)
	opts.SetPassword(p.settings.Password)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.log.Warn("mqtt connection lost",
			logger.String("broker", p.settings.Broker),
			logger.Error(err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !waitToken(ctx, token) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", p.settings.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", p.settings.Broker, err)
	}
	p.client = client
	p.log.Info("connected to mqtt broker", logger.String("broker", p.settings.Broker))
	return client, nil
}

// Send implements alerting.Sender.
func (p *MQTTPublisher) Send(ctx context.Context, title, message string, payload any) error {
	client, err := p.connect(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(MQTTMessage{Title: title, Message: message, Event: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal mqtt message: %w", err)
	}
	token := client.Publish(p.settings.Topic, mqttQoS, false, data)
	if !waitToken(ctx, token) {
		return fmt.Errorf("mqtt publish to %s timed out", p.settings.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.settings.Topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Disconnect(mqttDisconnectMS)
		p.client = nil
	}
}

// waitToken waits for token until ctx is done.
func waitToken(ctx context.Context, token mqtt.Token) bool {
	select {
	case <-token.Done():
		return true
	case <-ctx.Done():
		return false
	}
}
