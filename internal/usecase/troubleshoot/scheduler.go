package troubleshoot

import (
	"context"
	"time"

	"intent-orchestrator/internal/domain/health"
	"intent-orchestrator/internal/logger"

	"go.uber.org/zap"
)

// ReportPublisher hands a finished fleet report to an external sink.
type ReportPublisher interface {
	PublishFleetReport(ctx context.Context, report *health.FleetReport) error
}

// LogPublisher writes fleet reports to the application log only.
type LogPublisher struct{}

func (LogPublisher) PublishFleetReport(_ context.Context, report *health.FleetReport) error {
	logger.Info("Fleet health report",
		zap.String("stream_id", report.StreamID),
		zap.String("status", string(report.Status)),
		zap.Int("devices_checked", report.DevicesChecked),
		zap.Float64("healthy_percentage", report.Summary.HealthyPercentage),
		zap.Strings("recommendations", report.Recommendations),
	)
	return nil
}

// StartFleetCheckJob runs CheckAllDevices on the default stream every interval
// until ctx is cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartFleetCheckJob(ctx context.Context, interval time.Duration, limit int, publisher ReportPublisher) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Fleet check job started",
		zap.Duration("interval", interval),
		zap.Int("limit", limit),
	)

	s.runFleetCheck(ctx, limit, publisher)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Fleet check job stopped")
			return
		case <-ticker.C:
			s.runFleetCheck(ctx, limit, publisher)
		}
	}
}

func (s *Service) runFleetCheck(ctx context.Context, limit int, publisher ReportPublisher) {
	report, err := s.CheckAllDevices(ctx, &CheckAllDevicesRequest{Limit: limit})
	if err != nil {
		logger.Error("Scheduled fleet check failed", zap.Error(err))
		return
	}

	if err := publisher.PublishFleetReport(ctx, report); err != nil {
		logger.Error("Failed to publish fleet report",
			zap.String("stream_id", report.StreamID),
			zap.Error(err),
		)
		return
	}

	logger.Debug("Fleet report published",
		zap.String("stream_id", report.StreamID),
		zap.String("status", string(report.Status)),
	)
}
