package device

import (
	"encoding/json"
	"time"
)

// Device is the controller-facing description of one LED module.
type Device struct {
	ID          string          `json:"id"`           // hardware id from discovery, or the address
	Name        string          `json:"name"`         // user-friendly name
	Type        string          `json:"type"`         // light or switch
	Protocol    string          `json:"protocol"`     // always wifi
	Addr        string          `json:"addr"`         // host:port TCP endpoint
	Model       string          `json:"model"`        // capability table model name
	ModelCode   byte            `json:"model_code"`   // raw model byte from the state response
	Dialect     string          `json:"dialect"`      // detected protocol dialect
	StateSchema json.RawMessage `json:"state_schema"` // JSON Schema for settable state
}

// DeviceState represents the current state of a device as a dynamic map.
type DeviceState map[string]any

// DiscoveryEvent represents a device lifecycle event.
type DiscoveryEvent struct {
	Type      string      `json:"type"`             // device_found, device_left, state_changed
	Device    *Device     `json:"device,omitempty"` // Device information if available
	State     DeviceState `json:"state,omitempty"`  // Snapshot for state_changed events
	Timestamp time.Time   `json:"timestamp"`        // When the event occurred
}

// Event type constants
const (
	EventDeviceFound  = "device_found"
	EventDeviceLeft   = "device_left"
	EventStateChanged = "state_changed"
)

// ProtocolWiFi is the only protocol this controller speaks.
const ProtocolWiFi = "wifi"

// Device type constants
const (
	DeviceTypeLight  = "light"
	DeviceTypeSwitch = "switch"
)
