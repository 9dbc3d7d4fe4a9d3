package messaging

import "context"

// PublisherInterface defines the contract for event publishing
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, eventData interface{}) error
	Close() error
}

// MetricsRecorder counts publish attempts.
type MetricsRecorder interface {
	RecordEventPublished(ctx context.Context, routingKey string, ok bool)
}

var _ PublisherInterface = (*Publisher)(nil)
