package device

// Device is a monitored entity as reported by the inventory directory.
// Only Name and TelemetryID carry meaning for freshness checks; the rest is
// passed through to reports unchanged.
type Device struct {
	Name              string   `json:"name"`
	TelemetryID       *string  `json:"telemetry_id,omitempty"`
	UID               string   `json:"uid,omitempty"`
	DeviceType        string   `json:"device_type,omitempty"`
	Serial            string   `json:"serial,omitempty"`
	SoftwareVersion   string   `json:"software_version,omitempty"`
	ConnectivityState string   `json:"connectivity_state,omitempty"`
	ConfigState       string   `json:"config_state,omitempty"`
	Licenses          []string `json:"licenses,omitempty"`
}

// Trackable reports whether the device has a telemetry identifier.
func (d *Device) Trackable() bool {
	return d.TelemetryID != nil && *d.TelemetryID != ""
}

func (d *Device) DisplayName() string {
	if d.Name == "" {
		return "Unknown"
	}
	return d.Name
}
