package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/care-portal/internal/messaging"
)

// PublishedEvent is an event captured by MockPublisher.
type PublishedEvent struct {
	RoutingKey string
	EventData  interface{}
	Timestamp  time.Time
	RawJSON    []byte
}

// MockPublisher records events in memory instead of talking to RabbitMQ.
// Set Err to make every Publish fail.
type MockPublisher struct {
	mu     sync.RWMutex
	events []PublishedEvent
	Err    error
}

var _ messaging.PublisherInterface = (*MockPublisher)(nil)

// NewMockPublisher creates a new mock RabbitMQ publisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish marshals the event like the real publisher would and stores it.
func (m *MockPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	if m.Err != nil {
		return m.Err
	}
	raw, err := json.Marshal(eventData)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{
		RoutingKey: routingKey,
		EventData:  eventData,
		Timestamp:  time.Now(),
		RawJSON:    raw,
	})
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// GetEventsByKey returns all events with the specified routing key
func (m *MockPublisher) GetEventsByKey(routingKey string) []PublishedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []PublishedEvent
	for _, e := range m.events {
		if e.RoutingKey == routingKey {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// AssertEventCount asserts the exact number of events with the given routing key
func (m *MockPublisher) AssertEventCount(t *testing.T, routingKey string, expected int) {
	t.Helper()

	if got := len(m.GetEventsByKey(routingKey)); got != expected {
		t.Errorf("Expected %d events with routing key '%s', got %d", expected, routingKey, got)
	}
}

// AssertEventNotPublished asserts that no events with the given routing key were published
func (m *MockPublisher) AssertEventNotPublished(t *testing.T, routingKey string) {
	t.Helper()
	m.AssertEventCount(t, routingKey, 0)
}
