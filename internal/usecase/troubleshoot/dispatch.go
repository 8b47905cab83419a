package troubleshoot

import (
	"context"
	"fmt"
	"strings"

	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"
)

const (
	ToolName = "sal_troubleshoot"

	OpTroubleshootDevice = "troubleshoot_device"
	OpCheckAllDevices    = "check_all_devices"
	OpCheckDeviceEvents  = "check_device_events"
)

var operations = []string{OpTroubleshootDevice, OpCheckAllDevices, OpCheckDeviceEvents}

func (s *Service) Name() string {
	return ToolName
}

func (s *Service) Description() string {
	return "Diagnose whether devices are sending telemetry events: look a device up by name, " +
		"check its last-seen time in the event tracking table, or run a fleet-wide health check."
}

func (s *Service) Operations() []string {
	return append([]string(nil), operations...)
}

// Process dispatches a loosely typed request to the matching operation.
func (s *Service) Process(ctx context.Context, operation string, params map[string]any) (any, error) {
	switch operation {
	case OpTroubleshootDevice:
		var req TroubleshootDeviceRequest
		if err := utils.DecodeParams(params, &req); err != nil {
			return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid parameters", err)
		}
		report, err := s.TroubleshootDevice(ctx, &req)
		if err != nil {
			return nil, err
		}
		return report, nil

	case OpCheckAllDevices:
		var req CheckAllDevicesRequest
		if err := utils.DecodeParams(params, &req); err != nil {
			return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid parameters", err)
		}
		report, err := s.CheckAllDevices(ctx, &req)
		if err != nil {
			return nil, err
		}
		return report, nil

	case OpCheckDeviceEvents:
		var req CheckDeviceEventsRequest
		if err := utils.DecodeParams(params, &req); err != nil {
			return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid parameters", err)
		}
		report, err := s.CheckDeviceEvents(ctx, &req)
		if err != nil {
			return nil, err
		}
		return report, nil

	default:
		return nil, appErrors.NewAppError(appErrors.CodeUnsupportedOperation,
			fmt.Sprintf("Unsupported operation: %s. Available: %s", operation, strings.Join(operations, ", ")), nil)
	}
}
