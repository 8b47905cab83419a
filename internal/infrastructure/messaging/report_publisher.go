package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"intent-orchestrator/internal/domain/health"
	"intent-orchestrator/internal/logger"

	"go.uber.org/zap"
)

// Publisher is the subset of the MQTT client the report publisher needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// FleetReportMessage is the payload published for each scheduled fleet check.
type FleetReportMessage struct {
	Event       string              `json:"event"`
	PublishedAt time.Time           `json:"published_at"`
	Report      *health.FleetReport `json:"report"`
}

// ReportPublisher publishes fleet reports to an MQTT topic. Reports are
// retained so a new subscriber sees the latest fleet state immediately.
type ReportPublisher struct {
	client Publisher
	topic  string
	now    func() time.Time
}

func NewReportPublisher(client Publisher, topic string) *ReportPublisher {
	return &ReportPublisher{client: client, topic: topic, now: time.Now}
}

func (p *ReportPublisher) PublishFleetReport(ctx context.Context, report *health.FleetReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(FleetReportMessage{
		Event:       "fleet_health_report",
		PublishedAt: p.now().UTC(),
		Report:      report,
	})
	if err != nil {
		return fmt.Errorf("failed to encode fleet report: %w", err)
	}

	if err := p.client.Publish(p.topic, 1, true, payload); err != nil {
		return fmt.Errorf("failed to publish fleet report to %s: %w", p.topic, err)
	}

	logger.Info("Fleet report published",
		zap.String("topic", p.topic),
		zap.String("status", string(report.Status)),
		zap.Int("devices_checked", report.DevicesChecked),
		zap.String("event", "fleet_report_published"),
	)
	return nil
}
