package interfaces

import (
	"context"
	"errors"

	"isolar-cloud/internal/eventing"
	"isolar-cloud/internal/observability/metrics"
	"isolar-cloud/internal/production/application"
)

// EventPublisher publishes production events through an eventing publisher.
type EventPublisher struct {
	publisher *eventing.Publisher
}

// NewEventPublisher constructs an event publisher.
func NewEventPublisher(publisher *eventing.Publisher) (*EventPublisher, error) {
	if publisher == nil {
		return nil, errors.New("production publisher: nil eventing publisher")
	}
	return &EventPublisher{publisher: publisher}, nil
}

// PublishProductionParsed writes the event envelope to the sink.
func (p *EventPublisher) PublishProductionParsed(ctx context.Context, event application.ProductionParsed) error {
	if p == nil || p.publisher == nil {
		return errors.New("production publisher: nil publisher")
	}
	if event.TenantID != "" {
		ctx = eventing.WithTenantID(ctx, event.TenantID)
	}
	err := p.publisher.Publish(ctx, event)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.IncEventPublished(event.EventName(), result)
	return err
}

// MultiPublisher fans an event out to several publishers and returns the
// first error.
type MultiPublisher []application.ProductionPublisher

// PublishProductionParsed calls every publisher.
func (m MultiPublisher) PublishProductionParsed(ctx context.Context, event application.ProductionParsed) error {
	var first error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishProductionParsed(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
