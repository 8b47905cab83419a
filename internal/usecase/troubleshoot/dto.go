package troubleshoot

import "strings"

const (
	DefaultFleetLimit = 50
	MaxFleetLimit     = 1000
)

type TroubleshootDeviceRequest struct {
	DeviceCriteria string `json:"device_criteria" validate:"required,max=256"`
	// DeviceName is accepted as an alias for DeviceCriteria.
	DeviceName string `json:"device_name" validate:"max=256"`
	StreamID   string `json:"stream_id" validate:"max=256"`
}

func (r *TroubleshootDeviceRequest) normalize() {
	r.DeviceCriteria = strings.TrimSpace(r.DeviceCriteria)
	if r.DeviceCriteria == "" {
		r.DeviceCriteria = strings.TrimSpace(r.DeviceName)
	}
	r.StreamID = strings.TrimSpace(r.StreamID)
}

type CheckAllDevicesRequest struct {
	StreamID string `json:"stream_id" validate:"max=256"`
	Limit    int    `json:"limit" validate:"min=0,max=1000"`
}

func (r *CheckAllDevicesRequest) normalize() {
	r.StreamID = strings.TrimSpace(r.StreamID)
	if r.Limit == 0 {
		r.Limit = DefaultFleetLimit
	}
}

type CheckDeviceEventsRequest struct {
	TelemetryID string `json:"device_uuid" validate:"required,max=256"`
	StreamID    string `json:"stream_id" validate:"max=256"`
	DeviceName  string `json:"device_name" validate:"max=256"`
}

func (r *CheckDeviceEventsRequest) normalize() {
	r.TelemetryID = strings.TrimSpace(r.TelemetryID)
	r.StreamID = strings.TrimSpace(r.StreamID)
	r.DeviceName = strings.TrimSpace(r.DeviceName)
}
