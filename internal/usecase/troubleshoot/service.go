package troubleshoot

import (
	"context"
	"fmt"
	"time"

	"intent-orchestrator/internal/config"
	"intent-orchestrator/internal/domain/device"
	"intent-orchestrator/internal/domain/freshness"
	"intent-orchestrator/internal/domain/health"
	"intent-orchestrator/internal/logger"
	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service diagnoses device telemetry freshness by combining a directory
// lookup with a last-seen store.
type Service struct {
	directory        device.Directory
	store            freshness.Store
	defaultStreamID  string
	thresholdMinutes int
	maxConcurrency   int
	now              func() time.Time
}

// NewService creates a troubleshoot service. The threshold is fixed for the
// lifetime of the service.
func NewService(directory device.Directory, store freshness.Store, cfg config.TroubleshootConfig) *Service {
	concurrency := cfg.MaxConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Service{
		directory:        directory,
		store:            store,
		defaultStreamID:  cfg.DefaultStreamID,
		thresholdMinutes: cfg.ThresholdMinutes,
		maxConcurrency:   concurrency,
		now:              time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) ThresholdMinutes() int {
	return s.thresholdMinutes
}

func (s *Service) TroubleshootDevice(ctx context.Context, req *TroubleshootDeviceRequest) (*health.TroubleshootReport, error) {
	req.normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid input", err)
	}

	criteria := utils.SanitizeCriteria(req.DeviceCriteria)

	devices, err := s.directory.Search(ctx, criteria)
	if err != nil {
		logger.Error("Device search failed",
			zap.String("criteria", criteria),
			zap.Error(err),
		)
		return nil, appErrors.NewAppError(appErrors.CodeDirectoryUnavailable, "Failed to search device directory", err)
	}

	if len(devices) == 0 {
		logger.Info("No devices matched criteria",
			zap.String("criteria", criteria),
			zap.String("event", "device_not_found"),
		)
		return &health.TroubleshootReport{
			Status:          health.OverallDeviceNotFound,
			Criteria:        criteria,
			Message:         fmt.Sprintf("No devices found matching criteria: %s", criteria),
			Troubleshooting: "Check device name spelling or try broader search criteria",
			Devices:         []health.DeviceReport{},
		}, nil
	}

	streamID, err := s.resolveStreamID(req.StreamID)
	if err != nil {
		return nil, err
	}

	reports := s.checkDevices(ctx, streamID, devices)

	var counts health.Counts
	allRecent := true
	for _, r := range reports {
		counts.Add(r.Status)
		if r.Status != health.StatusEventsRecent {
			allRecent = false
		}
	}

	status := health.OverallIssuesDetected
	if allRecent {
		status = health.OverallHealthy
	}

	logger.Info("Device troubleshooting completed",
		zap.String("criteria", criteria),
		zap.String("stream_id", streamID),
		zap.Int("devices_checked", len(reports)),
		zap.String("status", string(status)),
		zap.String("event", "device_troubleshoot_completed"),
	)

	return &health.TroubleshootReport{
		Status:         status,
		Criteria:       criteria,
		StreamID:       streamID,
		DevicesChecked: len(reports),
		Message:        summaryMessage(len(reports), counts),
		Counts:         counts,
		Devices:        reports,
	}, nil
}

func (s *Service) CheckAllDevices(ctx context.Context, req *CheckAllDevicesRequest) (*health.FleetReport, error) {
	req.normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid input", err)
	}

	streamID, err := s.resolveStreamID(req.StreamID)
	if err != nil {
		return nil, err
	}

	devices, err := s.directory.ListAll(ctx, req.Limit)
	if err != nil {
		logger.Error("Device listing failed", zap.Int("limit", req.Limit), zap.Error(err))
		return nil, appErrors.NewAppError(appErrors.CodeDirectoryUnavailable, "Failed to list device directory", err)
	}
	if len(devices) > req.Limit {
		devices = devices[:req.Limit]
	}

	checkedAt := s.now().UTC()

	if len(devices) == 0 {
		return &health.FleetReport{
			Status:          health.OverallNoDevices,
			StreamID:        streamID,
			Message:         "No devices found in the directory",
			Devices:         []health.DeviceReport{},
			Recommendations: []string{},
			CheckedAt:       checkedAt,
		}, nil
	}

	reports := s.checkDevices(ctx, streamID, devices)
	summary := Summarize(reports)
	status := FleetStatus(summary)

	logger.Info("Fleet check completed",
		zap.String("stream_id", streamID),
		zap.Int("devices_checked", summary.TotalDevices),
		zap.Float64("healthy_percentage", summary.HealthyPercentage),
		zap.String("status", string(status)),
		zap.String("event", "fleet_check_completed"),
	)

	return &health.FleetReport{
		Status:          status,
		StreamID:        streamID,
		DevicesChecked:  summary.TotalDevices,
		Message:         summaryMessage(summary.TotalDevices, summary.Counts),
		Summary:         summary,
		Devices:         reports,
		Recommendations: Recommendations(summary.Counts),
		CheckedAt:       checkedAt,
	}, nil
}

func (s *Service) CheckDeviceEvents(ctx context.Context, req *CheckDeviceEventsRequest) (*health.DeviceReport, error) {
	req.normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid input", err)
	}

	streamID := req.StreamID
	if streamID == "" {
		streamID = s.defaultStreamID
	}
	if streamID == "" {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "stream_id is required", nil)
	}

	id := req.TelemetryID
	report := s.checkDevice(ctx, streamID, &device.Device{Name: req.DeviceName, TelemetryID: &id})
	return &report, nil
}

func (s *Service) resolveStreamID(requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if s.defaultStreamID != "" {
		return s.defaultStreamID, nil
	}
	return "", appErrors.NewAppError(appErrors.CodeConfiguration,
		"stream identifier required, none provided and no default configured", nil)
}

// checkDevices runs checkDevice for every device with bounded concurrency.
// Each goroutine writes only its own slot, so the output order matches the input.
func (s *Service) checkDevices(ctx context.Context, streamID string, devices []device.Device) []health.DeviceReport {
	reports := make([]health.DeviceReport, len(devices))

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i := range devices {
		g.Go(func() error {
			reports[i] = s.checkDevice(ctx, streamID, &devices[i])
			return nil
		})
	}
	_ = g.Wait()

	return reports
}

func (s *Service) checkDevice(ctx context.Context, streamID string, d *device.Device) health.DeviceReport {
	if !d.Trackable() {
		report := withGuidance(health.DeviceReport{ThresholdMinutes: s.thresholdMinutes}, health.StatusNoUUID)
		return describeDevice(report, streamID, d)
	}

	record, err := s.store.GetLastSeen(ctx, streamID, *d.TelemetryID)
	if err != nil {
		logger.Warn("Freshness lookup failed",
			zap.String("stream_id", streamID),
			zap.String("device_uuid", *d.TelemetryID),
			zap.Error(err),
		)
		report := withGuidance(health.DeviceReport{ThresholdMinutes: s.thresholdMinutes}, health.StatusError)
		report.Message = fmt.Sprintf("Error checking events: %v", err)
		return describeDevice(report, streamID, d)
	}

	return describeDevice(Evaluate(record, s.now(), s.thresholdMinutes), streamID, d)
}

func describeDevice(report health.DeviceReport, streamID string, d *device.Device) health.DeviceReport {
	report.DeviceName = d.DisplayName()
	report.StreamID = streamID
	if d.TelemetryID != nil {
		report.TelemetryID = *d.TelemetryID
	}
	report.DeviceType = d.DeviceType
	report.SoftwareVersion = d.SoftwareVersion
	report.ConnectivityState = d.ConnectivityState
	return report
}

// summaryMessage reports the status counts of a completed check. Rarer
// statuses are only listed when present.
func summaryMessage(checked int, counts health.Counts) string {
	noun := "devices"
	if checked == 1 {
		noun = "device"
	}
	msg := fmt.Sprintf("Checked %d %s: %d recent, %d stale, %d with no events",
		checked, noun, counts.Recent, counts.Stale, counts.NoEvents)
	if counts.InvalidTimestamp > 0 {
		msg += fmt.Sprintf(", %d with invalid timestamps", counts.InvalidTimestamp)
	}
	if counts.NoUUID > 0 {
		msg += fmt.Sprintf(", %d without telemetry ID", counts.NoUUID)
	}
	if counts.Errors > 0 {
		msg += fmt.Sprintf(", %d failed", counts.Errors)
	}
	return msg
}
