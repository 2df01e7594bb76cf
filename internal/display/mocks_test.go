package display

import (
	"context"
	"sync"

	"github.com/appetiteclub/cocina/internal/feed"
	"github.com/appetiteclub/cocina/internal/filters"
	"github.com/appetiteclub/cocina/internal/kitchen"
)

// MockOrderSource is a test mock for OrderSource
type MockOrderSource struct {
	SnapshotValue feed.Snapshot
	PollFunc      func(ctx context.Context) error
	PollCalls     int
}

func (m *MockOrderSource) Snapshot() feed.Snapshot {
	return m.SnapshotValue
}

func (m *MockOrderSource) Poll(ctx context.Context) error {
	m.PollCalls++
	if m.PollFunc != nil {
		return m.PollFunc(ctx)
	}
	return nil
}

// MockFilterStore is a test mock for FilterStore
type MockFilterStore struct {
	state      filters.State
	ToggleFunc func(ctx context.Context, c kitchen.Category, checked bool) (filters.State, error)
	SaveFunc   func(ctx context.Context) error
	SaveCalls  int
}

func NewMockFilterStore() *MockFilterStore {
	return &MockFilterStore{state: filters.DefaultState()}
}

func (m *MockFilterStore) State() filters.State {
	return m.state.Clone()
}

func (m *MockFilterStore) Toggle(ctx context.Context, c kitchen.Category, checked bool) (filters.State, error) {
	if m.ToggleFunc != nil {
		return m.ToggleFunc(ctx, c, checked)
	}
	m.state[c] = checked
	return m.state.Clone(), nil
}

func (m *MockFilterStore) Save(ctx context.Context) error {
	m.SaveCalls++
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx)
	}
	return nil
}

// MockStatusUpdater is a test mock for StatusUpdater
type MockStatusUpdater struct {
	UpdateFunc func(ctx context.Context, invoiceNumber, tipo string) error
	Invoice    string
	Type       string
}

func (m *MockStatusUpdater) Update(ctx context.Context, invoiceNumber, tipo string) error {
	m.Invoice = invoiceNumber
	m.Type = tipo
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, invoiceNumber, tipo)
	}
	return nil
}

// MockUpdateSource is a test mock for UpdateSource
type MockUpdateSource struct {
	mu           sync.Mutex
	channels     map[string]chan feed.Update
	Subscribed   chan string
	Unsubscribed chan string
}

func NewMockUpdateSource() *MockUpdateSource {
	return &MockUpdateSource{
		channels:     make(map[string]chan feed.Update),
		Subscribed:   make(chan string, 1),
		Unsubscribed: make(chan string, 1),
	}
}

func (m *MockUpdateSource) Subscribe(subscriberID string) <-chan feed.Update {
	m.mu.Lock()
	ch := make(chan feed.Update, 1)
	m.channels[subscriberID] = ch
	m.mu.Unlock()

	m.Subscribed <- subscriberID
	return ch
}

func (m *MockUpdateSource) Unsubscribe(subscriberID string) {
	m.mu.Lock()
	delete(m.channels, subscriberID)
	m.mu.Unlock()

	m.Unsubscribed <- subscriberID
}

func (m *MockUpdateSource) Send(subscriberID string, u feed.Update) {
	m.mu.Lock()
	ch := m.channels[subscriberID]
	m.mu.Unlock()
	ch <- u
}
