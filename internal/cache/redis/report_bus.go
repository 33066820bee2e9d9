package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

// ReportPublisher publishes every tick report as JSON on a Pub/Sub channel.
type ReportPublisher struct {
	bus     domain.SignalBus
	channel string
}

// NewReportPublisher creates a ReportPublisher on channel.
func NewReportPublisher(bus domain.SignalBus, channel string) *ReportPublisher {
	return &ReportPublisher{bus: bus, channel: channel}
}

// PublishReport implements domain.ReportSink.
func (p *ReportPublisher) PublishReport(ctx context.Context, r domain.TickReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis: marshal tick report: %w", err)
	}
	return p.bus.Publish(ctx, p.channel, payload)
}

// FaultStream appends strategy faults to a Redis stream.
type FaultStream struct {
	bus    domain.SignalBus
	stream string
}

// NewFaultStream creates a FaultStream writing to stream.
func NewFaultStream(bus domain.SignalBus, stream string) *FaultStream {
	return &FaultStream{bus: bus, stream: stream}
}

// Append implements domain.FaultLog.
func (f *FaultStream) Append(ctx context.Context, fault domain.Fault) error {
	payload, err := json.Marshal(fault)
	if err != nil {
		return fmt.Errorf("redis: marshal fault: %w", err)
	}
	return f.bus.StreamAppend(ctx, f.stream, payload)
}

var (
	_ domain.ReportSink = (*ReportPublisher)(nil)
	_ domain.FaultLog   = (*FaultStream)(nil)
)
