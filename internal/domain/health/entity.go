package health

import "time"

// Status is the outcome of checking a single device.
type Status string

const (
	StatusNoEventsEver     Status = "no_events_ever"
	StatusInvalidTimestamp Status = "invalid_timestamp"
	StatusEventsRecent     Status = "events_recent"
	StatusEventsStale      Status = "events_stale"
	StatusNoUUID           Status = "no_uuid"
	StatusError            Status = "error"
)

// DeviceStatuses lists every per-device status. Counts partition over it.
var DeviceStatuses = []Status{
	StatusNoEventsEver,
	StatusInvalidTimestamp,
	StatusEventsRecent,
	StatusEventsStale,
	StatusNoUUID,
	StatusError,
}

func (s Status) Valid() bool {
	for _, known := range DeviceStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// OverallStatus describes a whole troubleshooting call.
type OverallStatus string

const (
	OverallHealthy        OverallStatus = "healthy"
	OverallIssuesDetected OverallStatus = "issues_detected"
	OverallDeviceNotFound OverallStatus = "device_not_found"
	OverallNoDevices      OverallStatus = "no_devices"
)

// DeviceReport is the finding for one device.
type DeviceReport struct {
	DeviceName            string `json:"device_name"`
	TelemetryID           string `json:"device_uuid,omitempty"`
	StreamID              string `json:"stream_id,omitempty"`
	Status                Status `json:"status"`
	Message               string `json:"message"`
	Troubleshooting       string `json:"troubleshooting"`
	LastEventTime         string `json:"last_event_time,omitempty"`
	LastEventTimestamp    *int64 `json:"last_event_timestamp,omitempty"`
	MinutesSinceLastEvent *int64 `json:"minutes_since_last_event,omitempty"`
	IsRecent              bool   `json:"is_recent"`
	ThresholdMinutes      int    `json:"threshold_minutes"`

	DeviceType        string `json:"device_type,omitempty"`
	SoftwareVersion   string `json:"software_version,omitempty"`
	ConnectivityState string `json:"connectivity_state,omitempty"`
}

// Counts is the number of devices per status.
type Counts struct {
	Recent           int `json:"devices_with_recent_events"`
	Stale            int `json:"devices_with_stale_events"`
	NoEvents         int `json:"devices_with_no_events"`
	InvalidTimestamp int `json:"devices_with_invalid_timestamp"`
	NoUUID           int `json:"devices_without_uuid"`
	Errors           int `json:"devices_with_errors"`
}

func (c *Counts) Add(s Status) {
	switch s {
	case StatusEventsRecent:
		c.Recent++
	case StatusEventsStale:
		c.Stale++
	case StatusNoEventsEver:
		c.NoEvents++
	case StatusInvalidTimestamp:
		c.InvalidTimestamp++
	case StatusNoUUID:
		c.NoUUID++
	case StatusError:
		c.Errors++
	}
}

func (c Counts) Total() int {
	return c.Recent + c.Stale + c.NoEvents + c.InvalidTimestamp + c.NoUUID + c.Errors
}

// TroubleshootReport answers a by-name troubleshooting request.
type TroubleshootReport struct {
	Status          OverallStatus  `json:"status"`
	Criteria        string         `json:"device_criteria"`
	StreamID        string         `json:"stream_id,omitempty"`
	Message         string         `json:"message,omitempty"`
	Troubleshooting string         `json:"troubleshooting,omitempty"`
	DevicesChecked  int            `json:"devices_checked"`
	Counts          Counts         `json:"summary"`
	Devices         []DeviceReport `json:"results"`
}

// FleetSummary is the aggregate block of a fleet report.
type FleetSummary struct {
	TotalDevices      int     `json:"total_devices"`
	HealthyPercentage float64 `json:"healthy_percentage"`
	Counts
}

// FleetReport answers a fleet-wide health check.
type FleetReport struct {
	Status          OverallStatus  `json:"status"`
	StreamID        string         `json:"stream_id"`
	Message         string         `json:"message,omitempty"`
	DevicesChecked  int            `json:"devices_checked"`
	Summary         FleetSummary   `json:"summary"`
	Devices         []DeviceReport `json:"device_results"`
	Recommendations []string       `json:"recommendations"`
	CheckedAt       time.Time      `json:"checked_at"`
}
