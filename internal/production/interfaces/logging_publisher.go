package interfaces

import (
	"context"
	"errors"
	"log"

	"isolar-cloud/internal/production/application"
)

// LoggingPublisher logs production parsed events.
type LoggingPublisher struct {
	logger *log.Logger
}

// NewLoggingPublisher constructs a logging publisher.
func NewLoggingPublisher(logger *log.Logger) *LoggingPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingPublisher{logger: logger}
}

// PublishProductionParsed logs the event.
func (p *LoggingPublisher) PublishProductionParsed(ctx context.Context, event application.ProductionParsed) error {
	_ = ctx
	if p == nil {
		return errors.New("production publisher: nil publisher")
	}
	p.logger.Printf("production parsed: report=%s station=%s days=%s..%s total=%.3f records=%d",
		event.ReportID, event.StationID, event.FirstDay, event.LastDay, event.TotalKWh, event.Records)
	return nil
}
