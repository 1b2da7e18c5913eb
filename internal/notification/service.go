package notification

import (
	"fmt"
	"slices"
	"sync"
)

// ServiceConfig configures the bell.
type ServiceConfig struct {
	// MaxNotifications is the number of entries kept; oldest are evicted.
	MaxNotifications int
	// SubscriberBuffer is the channel capacity of each subscriber.
	SubscriberBuffer int
}

// DefaultServiceConfig returns the bell defaults.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxNotifications: 200,
		SubscriberBuffer: 16,
	}
}

// Service is the notification bell: a bounded in-memory list with
// broadcast to subscribers.
type Service struct {
	cfg ServiceConfig

	mu            sync.RWMutex
	notifications []*Notification
	subscribers   map[chan *Notification]struct{}
}

// NewService creates a bell. A nil config uses the defaults.
func NewService(config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	cfg := *config
	if cfg.MaxNotifications <= 0 {
		cfg.MaxNotifications = DefaultServiceConfig().MaxNotifications
	}
	return &Service{
		cfg:         cfg,
		subscribers: make(map[chan *Notification]struct{}),
	}
}

// CreateAndBroadcast stores a medium priority alert notification and sends it
// to every subscriber. Slow subscribers miss notifications rather than block.
func (s *Service) CreateAndBroadcast(title, message string) error {
	return s.CreateAndBroadcastWithPriority(title, message, PriorityMedium)
}

// CreateAndBroadcastWithPriority is CreateAndBroadcast with an explicit
// priority. An empty priority means medium.
func (s *Service) CreateAndBroadcastWithPriority(title, message string, priority Priority) error {
	if title == "" {
		return fmt.Errorf("notification title must not be empty")
	}
	if priority == "" {
		priority = PriorityMedium
	}
	s.Add(NewNotification(TypeAlert, priority, title, message))
	return nil
}

// Add stores n and broadcasts it.
func (s *Service) Add(n *Notification) {
	s.mu.Lock()
	s.notifications = append(s.notifications, n)
	if over := len(s.notifications) - s.cfg.MaxNotifications; over > 0 {
		s.notifications = slices.Delete(s.notifications, 0, over)
	}
	for ch := range s.subscribers {
		select {
		case ch <- n:
		default:
		}
	}
	s.mu.Unlock()
}

// List returns up to limit notifications, newest first. A limit of 0 returns all.
func (s *Service) List(limit int) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, 0, len(s.notifications))
	for i := len(s.notifications) - 1; i >= 0; i-- {
		out = append(out, *s.notifications[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// MarkRead marks one notification read.
func (s *Service) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.ID == id {
			n.Read = true
			return true
		}
	}
	return false
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	for _, n := range s.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// Subscribe returns a channel receiving new notifications and a function
// that unsubscribes and closes it.
func (s *Service) Subscribe() (<-chan *Notification, func()) {
	ch := make(chan *Notification, s.cfg.SubscriberBuffer)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}
