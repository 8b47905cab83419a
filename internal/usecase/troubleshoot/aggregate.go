package troubleshoot

import (
	"fmt"
	"math"

	"intent-orchestrator/internal/domain/health"
)

const healthyPercentageCutoff = 80.0

// Summarize reduces per-device reports into counts and the healthy share.
// The result does not depend on the order of reports.
func Summarize(reports []health.DeviceReport) health.FleetSummary {
	var counts health.Counts
	for _, r := range reports {
		counts.Add(r.Status)
	}

	return health.FleetSummary{
		TotalDevices:      len(reports),
		HealthyPercentage: HealthyPercentage(counts.Recent, len(reports)),
		Counts:            counts,
	}
}

// HealthyPercentage is recent/total*100 rounded to two decimals, 0 for an empty fleet.
func HealthyPercentage(recent, total int) float64 {
	if total == 0 {
		return 0
	}
	pct := float64(recent) / float64(total) * 100
	return math.Round(pct*100) / 100
}

func FleetStatus(summary health.FleetSummary) health.OverallStatus {
	if summary.HealthyPercentage > healthyPercentageCutoff {
		return health.OverallHealthy
	}
	return health.OverallIssuesDetected
}

// Recommendations derives remediation lines from status counts alone.
func Recommendations(counts health.Counts) []string {
	recommendations := make([]string, 0, 2)

	if counts.NoEvents > 0 {
		recommendations = append(recommendations, fmt.Sprintf(
			"%d devices have never sent events - check stream configuration and device connectivity", counts.NoEvents))
	}
	if counts.Stale > 0 {
		recommendations = append(recommendations, fmt.Sprintf(
			"%d devices have stale events - verify devices are online and forwarding is working", counts.Stale))
	}
	if counts.NoEvents == 0 && counts.Stale == 0 {
		recommendations = append(recommendations, "All devices are sending recent events - system is healthy")
	}

	return recommendations
}
