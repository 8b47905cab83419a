package troubleshoot

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"intent-orchestrator/internal/domain/freshness"
	"intent-orchestrator/internal/domain/health"
)

const (
	DefaultThresholdMinutes = 15

	lastEventLayout = "2006-01-02 15:04:05 UTC"
)

type guidance struct {
	message         string
	troubleshooting string
}

// statusGuidance holds the fixed text for every per-device status. Recent and
// stale messages get the event time appended by the evaluator.
var statusGuidance = map[health.Status]guidance{
	health.StatusNoEventsEver: {
		message:         "No events have ever been recorded for this device.",
		troubleshooting: "Check stream configuration and device connectivity.",
	},
	health.StatusInvalidTimestamp: {
		message:         "Device record exists but has invalid timestamp.",
		troubleshooting: "Database record corruption or invalid data format.",
	},
	health.StatusEventsRecent: {
		message:         "Device is actively sending events.",
		troubleshooting: "Device is working correctly - events are being received recently.",
	},
	health.StatusEventsStale: {
		message:         "No recent events from device.",
		troubleshooting: "Device may be offline, misconfigured, or experiencing connectivity issues.",
	},
	health.StatusNoUUID: {
		message:         "Device does not have a telemetry identifier and cannot be tracked.",
		troubleshooting: "This device type may not support event streaming.",
	},
	health.StatusError: {
		message:         "Error checking events.",
		troubleshooting: "Unable to query the event tracking table.",
	},
}

// Evaluate classifies a freshness record. It never fails: anything it cannot
// read becomes invalid_timestamp. The returned report carries only the
// evaluation fields; callers fill in device identity.
func Evaluate(record *freshness.Record, now time.Time, thresholdMinutes int) health.DeviceReport {
	report := health.DeviceReport{ThresholdMinutes: thresholdMinutes}

	if record == nil {
		return withGuidance(report, health.StatusNoEventsEver)
	}

	if record.LastSeen == nil {
		return withGuidance(report, health.StatusInvalidTimestamp)
	}

	lastSeen, err := parseEpoch(*record.LastSeen)
	if err != nil {
		report = withGuidance(report, health.StatusInvalidTimestamp)
		report.Message = fmt.Sprintf("Invalid timestamp format: %s", *record.LastSeen)
		return report
	}

	minutes := floorDiv(now.Unix()-lastSeen, 60)
	readable := time.Unix(lastSeen, 0).UTC().Format(lastEventLayout)

	report.LastEventTime = readable
	report.LastEventTimestamp = &lastSeen
	report.MinutesSinceLastEvent = &minutes
	report.IsRecent = minutes <= int64(thresholdMinutes)

	if report.IsRecent {
		report = withGuidance(report, health.StatusEventsRecent)
	} else {
		report = withGuidance(report, health.StatusEventsStale)
		report.Troubleshooting = fmt.Sprintf("%s Events are older than %d minutes.",
			report.Troubleshooting, thresholdMinutes)
	}
	report.Message = fmt.Sprintf("%s Last event: %s (%d minutes ago)", report.Message, readable, minutes)

	return report
}

func withGuidance(report health.DeviceReport, status health.Status) health.DeviceReport {
	g := statusGuidance[status]
	report.Status = status
	report.Message = g.message
	report.Troubleshooting = g.troubleshooting
	return report
}

// parseEpoch reads epoch seconds. Numeric values with a fraction are truncated
// toward zero; non-numeric and non-finite values are rejected.
func parseEpoch(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, fmt.Errorf("epoch out of range: %s", raw)
	}
	return int64(f), nil
}

// floorDiv rounds toward negative infinity, unlike Go's / operator.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
