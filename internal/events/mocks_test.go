package events

import (
	"context"
	"sync"

	"github.com/appetiteclub/cocina/internal/feed"
)

// MockPublisher is a test mock for events.Publisher
type MockPublisher struct {
	mu              sync.Mutex
	PublishedEvents []PublishedEvent
	PublishFunc     func(ctx context.Context, topic string, data []byte) error
	published       chan PublishedEvent
}

type PublishedEvent struct {
	Topic string
	Data  []byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		PublishedEvents: make([]PublishedEvent, 0),
		published:       make(chan PublishedEvent, 16),
	}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, data)
	}
	evt := PublishedEvent{Topic: topic, Data: data}
	m.mu.Lock()
	m.PublishedEvents = append(m.PublishedEvents, evt)
	m.mu.Unlock()
	m.published <- evt
	return nil
}

// MockUpdateSource is a test mock for UpdateSource
type MockUpdateSource struct {
	mu      sync.Mutex
	Updates chan feed.Update
	closed  bool
}

func NewMockUpdateSource() *MockUpdateSource {
	return &MockUpdateSource{Updates: make(chan feed.Update, 16)}
}

func (m *MockUpdateSource) Subscribe(subscriberID string) <-chan feed.Update {
	return m.Updates
}

func (m *MockUpdateSource) Unsubscribe(subscriberID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		close(m.Updates)
		m.closed = true
	}
}
